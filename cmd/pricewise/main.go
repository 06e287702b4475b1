package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"pricewise/internal/camera"
	"pricewise/internal/catalog"
	"pricewise/internal/scanning"
	"pricewise/internal/server"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Optional .env for local development; env vars win
	_ = godotenv.Load()

	fs := ff.NewFlagSet("pricewise")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "", "Database file path (empty for the in-memory catalog)")
		engineType  = fs.StringLong("engine", "gemini", "Recognition engine: 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		language    = fs.StringLong("language", "eng", "Recognition language hint")
		frameDir    = fs.StringLong("frame-dir", "", "Frame spool directory for --scan-once")
		scanOnce    = fs.BoolLong("scan-once", "Scan the newest frame in --frame-dir, print the records, and exit")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PRICEWISE"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// The engine is initialized lazily on the first scan so a slow or
	// misconfigured engine never blocks startup; an init failure is
	// retried on the next scan.
	var factory scanning.EngineFactory
	switch *engineType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		model := *geminiModel
		lang := *language
		slog.Info("Using Gemini recognition engine", "model", model)
		factory = func() (scanning.Engine, error) {
			return scanning.NewGemini(apiKey, model, lang)
		}
	case "ollama":
		url, model, lang := *ollamaURL, *ollamaModel, *language
		slog.Info("Using Ollama recognition engine", "url", url, "model", model)
		factory = func() (scanning.Engine, error) {
			return scanning.NewOllama(url, model, lang)
		}
	default:
		slog.Error("Invalid engine type", "type", *engineType, "valid", "gemini or ollama")
		os.Exit(1)
	}

	engine := scanning.NewLazyEngine(factory)
	defer engine.Close()

	pipeline := scanning.NewPipeline(engine)

	if *scanOnce {
		if err := runScanOnce(pipeline, *frameDir); err != nil {
			slog.Error("Scan failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// Initialize the catalog store
	var db catalog.DB
	if *dbPath != "" {
		slog.Info("Initializing database...", "path", *dbPath)
		boltDB, err := catalog.NewBoltDB(*dbPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		db = boltDB
	} else {
		db = catalog.NewMemoryDB()
	}
	defer db.Close()

	catalogService := catalog.NewService(db)

	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(catalogService, pipeline, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// runScanOnce scans the newest frame in the spool directory and prints the
// extracted records as JSON. Useful for trying out engines and prompts
// without a browser in front of the service.
func runScanOnce(pipeline *scanning.Pipeline, frameDir string) error {
	if frameDir == "" {
		return fmt.Errorf("--frame-dir is required with --scan-once")
	}

	session := camera.NewSession(camera.NewDirDevice(frameDir))
	if err := session.Start(context.Background(), camera.DefaultConstraints()); err != nil {
		return err
	}

	result, err := pipeline.Scan(context.Background(), session, func(percent int) {
		slog.Info("Scan progress", "percent", percent)
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result.Records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling records: %w", err)
	}
	fmt.Println(string(out))
	if result.Fallback {
		slog.Warn("No items could be read from the frame; sample items shown")
	}
	return nil
}
