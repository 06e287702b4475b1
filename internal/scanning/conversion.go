package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrBadFrame indicates the captured frame could not be decoded or
// converted for recognition. Distinct from engine failures: the frame
// itself is unusable and re-submitting it will not help.
var ErrBadFrame = errors.New("frame could not be decoded")

// transcriptionPrompt builds the shared prompt used by all vision-model
// engines to turn a bill frame into raw text for the line-item extractor
func transcriptionPrompt(language string) string {
	return fmt.Sprintf(`You are reading a shop bill or grocery receipt written primarily in language %q.

Transcribe every line of text visible in the image, top to bottom, exactly as printed. Keep each printed line on its own output line. Preserve item names, quantities, unit tokens (kg, g, l, ml, piece, pack, pcs) and prices as they appear.

Important:
- Output plain text only, one receipt line per output line
- Do not summarize, translate, or reorder lines
- Do not add headings, commentary, or markdown code blocks
- If a line is unreadable, skip it`, language)
}

// pdfToFrame renders the first page of a PDF to a PNG frame. Printed bills
// forwarded as PDFs go through here.
func pdfToFrame(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Render the first page (bills are almost always single page)
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// frameToPNG converts any captured image format to PNG
func frameToPNG(frameData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// HEIC/HEIF is the default camera format on iPhones and isn't
	// supported by Go's standard image package
	if isHEICFormat(frameData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(frameData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(frameData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks if the frame data is in HEIC/HEIF format
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	// HEIC files carry an ftyp box at offset 4 with a HEIC-related brand
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// convertToPNG converts PDFs and non-PNG frames to PNG format.
// Returns the PNG data and a boolean indicating if conversion occurred.
func convertToPNG(frameData []byte, mimeType string) ([]byte, bool, error) {
	if mimeType == "application/pdf" {
		pngData, err := pdfToFrame(frameData)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, true, nil
	} else if mimeType != "image/png" || isHEICFormat(frameData) || isHEICMimeType(mimeType) {
		pngData, err := frameToPNG(frameData, mimeType)
		if err != nil {
			return nil, false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, true, nil
	}
	// Already PNG, return as-is
	return frameData, false, nil
}

// prepareFrame normalizes the MIME type and converts the captured frame to
// PNG if needed. Returns the final frame data, the MIME type to use, and
// whether conversion occurred.
func prepareFrame(frameData []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg" // default for camera captures
	}

	finalData, converted, err := convertToPNG(frameData, mimeType)
	if err != nil {
		return nil, "", false, fmt.Errorf("%w: %w", ErrBadFrame, err)
	}

	// Everything is PNG after conversion
	return finalData, "image/png", converted, nil
}
