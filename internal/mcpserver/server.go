// Package mcpserver exposes the latest risk report to MCP clients.
package mcpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/cache"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/pkg/ratelimit"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ReportLoader reads the report published by the analyzer process.
type ReportLoader interface {
	LoadReport(ctx context.Context) (*domain.RiskReport, error)
}

// AlertArchive serves persisted alerts beyond the latest cycle.
type AlertArchive interface {
	RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
}

type Options struct {
	Version        string
	RequestTimeout time.Duration
	RatePerMinute  int
	Archive        AlertArchive
}

type Server struct {
	tracer  trace.Tracer
	reports ReportLoader
	archive AlertArchive
	limiter *ratelimit.Limiter
	timeout time.Duration
	server  *mcp.Server
}

func New(tracer trace.Tracer, reports ReportLoader, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 5 * time.Second
	}
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = 60
	}
	s := &Server{
		tracer:  tracer,
		reports: reports,
		archive: opts.Archive,
		limiter: ratelimit.New(opts.RatePerMinute, time.Minute/time.Duration(opts.RatePerMinute)),
		timeout: opts.RequestTimeout,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "mt5-trading-analyzer",
			Version: opts.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// RunStdio serves a single client over stdin/stdout until ctx is done.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport. A non-empty token is
// required as a bearer credential on every request.
func (s *Server) HTTPHandler(token string) http.Handler {
	h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
	if token == "" {
		return h
	}
	return BearerAuth(token, h)
}

func BearerAuth(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// begin applies the per-call rate limit and timeout shared by every tool.
func (s *Server) begin(ctx context.Context, tool string) (context.Context, func(), *mcp.CallToolResult) {
	ctx, span := s.tracer.Start(ctx, "mcp.tool."+tool)
	span.SetAttributes(attribute.String("mcp.tool", tool))
	if !s.limiter.Allow() {
		span.End()
		return ctx, func() {}, errorResult("rate limit exceeded, retry in a few seconds")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, func() {
		cancel()
		span.End()
	}, nil
}

func (s *Server) load(ctx context.Context) (*domain.RiskReport, *mcp.CallToolResult) {
	r, err := s.reports.LoadReport(ctx)
	if errors.Is(err, cache.ErrNoReport) {
		return nil, errorResult("no risk report has been published yet")
	}
	if err != nil {
		return nil, errorResult("failed to load risk report: " + err.Error())
	}
	return r, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}
