package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/cache"
	"github.com/louisruiz/mt5-trading-analyzer/internal/config"
	"github.com/louisruiz/mt5-trading-analyzer/internal/db"
	"github.com/louisruiz/mt5-trading-analyzer/internal/mcpserver"
	"github.com/louisruiz/mt5-trading-analyzer/internal/repository"
	"github.com/louisruiz/mt5-trading-analyzer/pkg/tracing"

	"github.com/joho/godotenv"
)

const version = "1.0.0"

var (
	loadEnvFunc            = godotenv.Load
	loadConfigFunc         = config.Load
	initPostgresFunc       = db.InitPostgres
	initRedisFunc          = cache.InitRedis
	initTracerFunc         = tracing.InitTracer
	runStdioFunc           = func(s *mcpserver.Server, ctx context.Context) error { return s.RunStdio(ctx) }
	setupSignalNotify      = signal.Notify
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Fatalf("MCP server needs the report cache: %v", err)
	}
	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Printf("Warning: alert history disabled: %v", err)
	}

	tp, tracer, err := initTracerFunc(ctx, "mt5-analyzer-mcp")
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	opts := mcpserver.Options{
		Version:        version,
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
		RatePerMinute:  cfg.MCPRateLimitPerMin,
	}
	if db.Pool != nil {
		opts.Archive = repository.NewAlertRepository(db.Pool, tracer)
	}
	server := mcpserver.New(tracer, cache.NewReportCache(tracer, cache.Client, cache.DefaultTTL), opts)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)

	var srv *http.Server
	if cfg.MCPTransport == "http" || cfg.MCPHTTPEnabled {
		if cfg.MCPAuthToken == "" {
			log.Println("Warning: MCP_AUTH_TOKEN not set, MCP HTTP endpoint is unauthenticated")
		}
		mux := http.NewServeMux()
		mux.Handle("/mcp", server.HTTPHandler(cfg.MCPAuthToken))
		srv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("MCP HTTP server listening on %s/mcp", srv.Addr)
			if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
				log.Printf("MCP HTTP server stopped: %v", err)
				quit <- syscall.SIGTERM
			}
		}()
	}

	if cfg.MCPTransport == "stdio" {
		done := make(chan error, 1)
		go func() { done <- runStdioFunc(server, ctx) }()
		select {
		case err := <-done:
			if err != nil {
				log.Printf("MCP stdio session ended: %v", err)
			}
		case <-quit:
		}
	} else {
		<-quit
	}
	log.Println("Shutting down MCP server...")
	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
			log.Printf("MCP HTTP server shutdown error: %v", err)
		}
	}
	db.Close()
	cache.Close()
	log.Println("MCP server exited")
}
