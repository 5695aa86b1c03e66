package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/blob"
	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/extraction"
	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/quota"
	"github.com/wayveconsulting/wayve-expense-tracker-sub000/internal/scan"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const scanAction = "receipt_scan"

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("wayve-scan")
	var (
		port          = fs.IntLong("port", 8080, "HTTP server port")
		quotaPath     = fs.StringLong("quota-db", "wayve-scan-quota.db", "Quota database file path")
		tempPath      = fs.StringLong("temp-storage", "./scan-pages", "Directory for temporary page renders")
		blobHosts     = fs.StringLong("blob-hosts", "", "Comma-separated allow-listed blob host patterns (e.g. '*.blob.example.com')")
		baseDomain    = fs.StringLong("base-domain", "", "Base domain for tenant subdomain resolution (optional)")
		extractorType = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'ollama'")
		geminiKey     = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel   = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL     = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel   = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2-vl)")
		scanLimit     = fs.IntLong("scan-limit", 50, "Scans allowed per tenant per window")
		scanWindow    = fs.DurationLong("scan-window", 24*time.Hour, "Scan quota window")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("WAYVE_SCAN"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if *blobHosts == "" {
		slog.Error("At least one allowed blob host is required. Set --blob-hosts or WAYVE_SCAN_BLOB_HOSTS")
		os.Exit(1)
	}
	var hostPatterns []string
	for _, pattern := range strings.Split(*blobHosts, ",") {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			hostPatterns = append(hostPatterns, pattern)
		}
	}

	// Quota guard
	policy := quota.Policy{Action: scanAction, Limit: *scanLimit, Window: *scanWindow}
	slog.Info("Initializing quota guard...", "db", *quotaPath, "limit", *scanLimit, "window", *scanWindow)
	guard, err := quota.NewBoltGuard(*quotaPath, policy)
	if err != nil {
		slog.Error("Failed to initialize quota guard", "error", err)
		os.Exit(1)
	}
	defer guard.Close()

	// Extractor. Left nil when unconfigured so the server can answer
	// 503 instead of refusing to start.
	var extractor extraction.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("No Gemini API key set; scan requests will be rejected until one is configured")
		} else {
			slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
			extractor, err = extraction.NewGemini(apiKey, *geminiModel)
			if err != nil {
				slog.Error("Failed to initialize Gemini", "error", err)
				os.Exit(1)
			}
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}

	// Temporary page storage
	tempStore, err := blob.NewLocalStore(*tempPath)
	if err != nil {
		slog.Error("Failed to initialize temporary storage", "error", err)
		os.Exit(1)
	}

	var pipeline *extraction.Pipeline
	if extractor != nil {
		defer extractor.Close()
		pipeline = extraction.NewPipeline(extraction.NewFitzRasterizer(), extractor, tempStore)
	}

	fetcher := blob.NewHTTPFetcher(hostPatterns)
	resolver := &scan.HeaderResolver{BaseDomain: *baseDomain}
	server := scan.NewServer(pipeline, fetcher, guard, resolver, policy)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
