package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"pricewise/internal/camera"
	"pricewise/internal/catalog"
	"pricewise/internal/scanning"
)

// maxFrameSize bounds uploaded frames; high-resolution phone captures can
// be large
const maxFrameSize = int64(50 << 20) // 50MB

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// scanResponse is the body returned by the scan endpoint
type scanResponse struct {
	Records  []scanning.LineItem `json:"records"`
	Fallback bool                `json:"fallback"`
	Message  string              `json:"message"`
}

// handleScan runs a full scan over an uploaded frame: the browser holds
// the live camera preview, captures a still, and posts it here.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFrameSize)
	if err := r.ParseMultipartForm(maxFrameSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "Frame is too large. Maximum size is 50MB."
		}
		jsonError(w, msg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("frame")
	if err != nil {
		slog.Error("Error getting frame from form", "error", err)
		jsonError(w, "No frame was provided. Capture a frame and try again.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFrameSize {
		jsonError(w, "Frame is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading frame data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading frame. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeForFilename(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	device, err := camera.NewStaticDevice(data, contentType)
	if err != nil {
		jsonError(w, "No usable frame was provided.", http.StatusBadRequest)
		return
	}

	session := camera.NewSession(device)
	if err := session.Start(r.Context(), camera.DefaultConstraints()); err != nil {
		slog.Error("Error starting camera session", "error", err)
		jsonError(w, err.Error(), scanStatus(err))
		return
	}

	result, err := s.pipeline.Scan(r.Context(), session, func(percent int) {
		slog.Debug("Scan progress", "percent", percent)
	})
	if err != nil {
		slog.Error("Error scanning frame", "filename", header.Filename, "error", err)
		jsonError(w, err.Error(), scanStatus(err))
		return
	}

	resp := scanResponse{
		Records:  result.Records,
		Fallback: result.Fallback,
		Message:  "Bill scanned",
	}
	if result.Fallback {
		resp.Message = "We couldn't read your bill clearly, so sample items are shown"
	}
	writeJSON(w, http.StatusOK, resp)
}

// scanStatus maps the scan error taxonomy onto HTTP statuses
func scanStatus(err error) int {
	switch {
	case errors.Is(err, camera.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, camera.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, camera.ErrBusy), errors.Is(err, camera.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, scanning.ErrEngineInit):
		return http.StatusBadGateway
	case errors.Is(err, scanning.ErrBadFrame):
		// the frame itself is unusable, not the engine
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}

// contentTypeForFilename guesses a frame's content type from its filename
func contentTypeForFilename(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleConfirmScan credits the reward for a confirmed scan
func (s *Server) handleConfirmScan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"user_id"`
		ItemCount int    `json:"item_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	awarded, balance, err := s.catalog.ConfirmScan(req.UserID, req.ItemCount)
	if err != nil {
		slog.Error("Error confirming scan", "user", req.UserID, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"points_awarded": awarded,
		"points_balance": balance,
	})
}

// handleListShops returns all shops
func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := s.catalog.ListShops()
	if err != nil {
		slog.Error("Error listing shops", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, shops)
}

// handleListItems returns all items
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.catalog.ListItems()
	if err != nil {
		slog.Error("Error listing items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleListCategories returns the distinct item categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.catalog.Categories()
	if err != nil {
		slog.Error("Error listing categories", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleItemsByCategory returns the items in one category
func (s *Server) handleItemsByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if category == "" {
		corsError(w, "Category required", http.StatusBadRequest)
		return
	}
	items, err := s.catalog.ItemsByCategory(category)
	if err != nil {
		slog.Error("Error listing items by category", "category", category, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleComparePrices returns an item's prices, cheapest first
func (s *Server) handleComparePrices(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Item ID required", http.StatusBadRequest)
		return
	}
	prices, err := s.catalog.ComparePrices(id)
	if err != nil {
		slog.Error("Error comparing prices", "item", id, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// handleAddPrice handles a shopkeeper price update
func (s *Server) handleAddPrice(w http.ResponseWriter, r *http.Request) {
	var update catalog.PriceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	price, err := s.catalog.AddPrice(update)
	if err != nil {
		slog.Error("Error adding price", "item", update.ItemID, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, price)
}

// handleGetPoints returns a user's point balance
func (s *Server) handleGetPoints(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if user == "" {
		corsError(w, "User required", http.StatusBadRequest)
		return
	}
	balance, err := s.catalog.Points(user)
	if err != nil {
		slog.Error("Error getting points", "user", user, "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"points_balance": balance})
}
