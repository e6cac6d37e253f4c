// Package main provides the MCP server entry point for document ingestion.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/vector-ingest/internal/app"
	"github.com/bull/vector-ingest/internal/config"
	mcpserver "github.com/bull/vector-ingest/internal/mcp"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (environment variables take precedence)")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	port := getEnv("PORT", "8080")

	// Stdout carries the stdio transport; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{Service: a})

	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(a.Backend(), mcpserver.HealthTarget{
		Backend: cfg.Index.Backend,
		Index:   cfg.Index.Name,
	}))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, &mcpserver.HTTPHandlerOptions{
		Stateless:    getEnv("MCP_STATELESS", "false") == "true",
		JSONResponse: getEnv("MCP_JSON_RESPONSE", "false") == "true",
		Logger:       logger,
	}))

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			<-ctx.Done()
			srv.Shutdown(context.Background())
		}()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	// Stdio mode: also serve /health in the background for local testing
	go func() {
		addr := "0.0.0.0:" + port
		log.Printf("Starting health server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("Health server error: %v", err)
		}
	}()

	log.Println("Starting Vector Ingest MCP Server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
