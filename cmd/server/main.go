package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/advisor"
	"github.com/louisruiz/mt5-trading-analyzer/internal/alerts"
	"github.com/louisruiz/mt5-trading-analyzer/internal/bot"
	"github.com/louisruiz/mt5-trading-analyzer/internal/cache"
	"github.com/louisruiz/mt5-trading-analyzer/internal/config"
	"github.com/louisruiz/mt5-trading-analyzer/internal/db"
	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
	"github.com/louisruiz/mt5-trading-analyzer/internal/handler"
	"github.com/louisruiz/mt5-trading-analyzer/internal/job"
	"github.com/louisruiz/mt5-trading-analyzer/internal/journal"
	"github.com/louisruiz/mt5-trading-analyzer/internal/provider"
	"github.com/louisruiz/mt5-trading-analyzer/internal/repository"
	"github.com/louisruiz/mt5-trading-analyzer/internal/service"
	"github.com/louisruiz/mt5-trading-analyzer/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "github.com/louisruiz/mt5-trading-analyzer/docs"
)

// archive is what both the Postgres repository and the SQLite journal offer.
type archive interface {
	service.HistoryStore
	RecentAlerts(ctx context.Context, limit int) ([]domain.Alert, error)
	ScoreHistory(ctx context.Context, since time.Time) ([]domain.ScorePoint, error)
}

var (
	loadEnvFunc         = godotenv.Load
	loadConfigFunc      = config.Load
	initPostgresFunc    = db.InitPostgres
	initRedisFunc       = cache.InitRedis
	initTracerFunc      = tracing.InitTracer
	openJournalFunc     = func(path string) (archive, error) { return journal.NewSQLite(path) }
	newFileProviderFunc = func(tracer trace.Tracer, path string) service.SnapshotProvider {
		return provider.NewFileProvider(tracer, path)
	}
	newOpenAIClientFunc = advisor.NewOpenAIClient
	startRefreshJobFunc = func(j *job.RefreshJob, ctx context.Context) <-chan struct{} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			j.Start(ctx)
		}()
		return done
	}
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           MT5 Trading Analyzer API
// @version         1.0
// @description     Risk analytics for a MetaTrader 5 account: VaR, drawdown, D-Leverage, exposure and alerts.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
func main() {
	_ = loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis. Both are optional for the API server.
	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Printf("Warning: Postgres unavailable: %v", err)
	}
	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Printf("Warning: Redis unavailable, report mirror disabled: %v", err)
	}

	tp, tracer, err := initTracerFunc(ctx, tracing.ServiceName)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	settings := config.NewSettingsSource(cfg.SettingsPath)
	if _, err := settings.Reload(); err != nil {
		log.Printf("Warning: using default settings: %v", err)
	}

	// Snapshot source and history store
	var (
		snapshots service.SnapshotProvider
		history   archive
	)
	if db.Pool != nil {
		snapshots = repository.NewSnapshotRepository(db.Pool, tracer, func() int {
			return settings.Current().DataRefresh.HistoryDays
		})
		history = repository.NewAlertRepository(db.Pool, tracer)
	} else {
		if cfg.SnapshotPath == "" {
			log.Fatal("no snapshot source: set DATABASE_URL or SNAPSHOT_PATH")
		}
		snapshots = newFileProviderFunc(tracer, cfg.SnapshotPath)
		if history, err = openJournalFunc(cfg.JournalPath); err != nil {
			log.Printf("Warning: alert journal disabled: %v", err)
			history = nil
		}
	}

	hub := handler.NewHub()
	sinks := service.Sinks{Broadcaster: hub}
	if cache.Client != nil {
		sinks.Mirror = cache.NewReportCache(tracer, cache.Client, cache.DefaultTTL)
	}
	if history != nil {
		sinks.History = history
	}

	engine := alerts.NewEngine(alerts.DefaultOptions(), nil)
	if history != nil {
		restoreAlerts(ctx, engine.History(), history)
	}

	riskService := service.NewRiskService(tracer, snapshots, settings, engine, service.AnalyzeOptions{
		Seed:        cfg.MCSeed,
		Simulations: cfg.MCSimulations,
	}, sinks)

	refreshJob := job.NewRefreshJob(tracer, riskService, settings.Current().DataRefresh.IntervalSeconds)
	refreshJob.SetEnabled(func() bool { return settings.Current().DataRefresh.Enabled })
	refreshJob.SetSchedule(func() time.Duration {
		return time.Duration(settings.Current().DataRefresh.IntervalSeconds) * time.Second
	})

	// Advisor (optional)
	var advisorSvc bot.Advisor
	if cfg.OpenAIAPIKey != "" {
		var convStore advisor.ConversationStore
		if db.Pool != nil {
			convStore = repository.NewConversationRepository(db.Pool, tracer)
		}
		advisorSvc = advisor.NewAdvisorService(tracer, newOpenAIClientFunc(cfg.OpenAIAPIKey), riskService, convStore,
			cfg.OpenAIModel, cfg.AdvisorMaxHistory)
		log.Println("Advisor service enabled")
	}

	// Telegram bot, registered as the alert notifier before the first cycle
	if notifier := startTelegramBotFunc(cfg.TelegramBotToken, cfg.TelegramChatID, riskService, refreshJob, advisorSvc); notifier != nil {
		riskService.SetNotifier(notifier)
	}

	jobDone := startRefreshJobFunc(refreshJob, ctx)

	// Create handlers and routes
	h := handler.New(tracer, riskService)
	h.SetRefreshTrigger(refreshJob)
	h.SetEquitySource(riskService.Series())
	h.SetHub(hub)
	if history != nil {
		h.SetAlertArchive(history)
		h.SetScoreArchive(history)
	}

	r := newRouterFunc()
	r.Use(otelgin.Middleware(tracing.ServiceName))

	h.RegisterRoutes(r, cfg.APIKey)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	if !waitForRefreshJob(shutdownCtx, jobDone) {
		log.Println("Warning: refresh cycle still running at shutdown deadline")
	}
	if c, ok := history.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	db.Close()
	cache.Close()

	log.Println("Server exiting")
}

// waitForRefreshJob blocks until the job has returned or ctx expires. It
// reports whether the job returned.
func waitForRefreshJob(ctx context.Context, done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// restoreAlerts seeds the in-memory history so alert cooldowns survive a
// restart. The archive returns newest first.
func restoreAlerts(ctx context.Context, h *alerts.History, a archive) {
	recent, err := a.RecentAlerts(ctx, 50)
	if err != nil {
		log.Printf("Warning: could not restore alert history: %v", err)
		return
	}
	slices.Reverse(recent)
	h.Restore(recent)
	log.Printf("Restored %d alerts from history", len(recent))
}
