package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/advisor"
	"github.com/louisruiz/mt5-trading-analyzer/internal/cache"
	"github.com/louisruiz/mt5-trading-analyzer/internal/config"
	"github.com/louisruiz/mt5-trading-analyzer/internal/db"
	"github.com/louisruiz/mt5-trading-analyzer/internal/repository"
	"github.com/louisruiz/mt5-trading-analyzer/internal/tui"
	"github.com/louisruiz/mt5-trading-analyzer/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/joho/godotenv"
	gossh "golang.org/x/crypto/ssh"
)

// ctxKey is a typed context key to avoid collisions.
type ctxKey string

const sshFingerprintKey ctxKey = "ssh_fingerprint"

var (
	loadEnvFunc           = godotenv.Load
	loadConfigFunc        = config.Load
	initPostgresFunc      = db.InitPostgres
	initRedisFunc         = cache.InitRedis
	initTracerFunc        = tracing.InitTracer
	newOpenAIClientFunc   = advisor.NewOpenAIClient
	newAdvisorServiceFunc = advisor.NewAdvisorService
	newWishServerFunc     = wish.NewServer
	setupSignalNotify     = ossignal.Notify
	waitForSignalFunc     = func(quit <-chan os.Signal) { <-quit }
)

// allowKey reports whether the key's SHA256 fingerprint is on the allow-list.
func allowKey(allowed map[string]bool, key gossh.PublicKey) (string, bool) {
	fp := gossh.FingerprintSHA256(key)
	return fp, allowed[fp]
}

// chatIDFor maps a key fingerprint to a stable advisor conversation id.
// SSH conversations use negative ids so they never collide with Telegram chats.
func chatIDFor(fingerprint string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fingerprint))
	return -int64(h.Sum64() >> 1)
}

func main() {
	_ = loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Fatalf("SSH dashboard needs the report cache: %v", err)
	}
	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Printf("Warning: advisor conversation memory disabled: %v", err)
	}

	tp, tracer, err := initTracerFunc(ctx, "mt5-analyzer-ssh")
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	reports := cache.NewReportCache(tracer, cache.Client, cache.DefaultTTL)

	// Advisor (optional)
	var advisorQ tui.AdvisorQuerier
	if cfg.OpenAIAPIKey != "" {
		var convStore advisor.ConversationStore
		if db.Pool != nil {
			convStore = repository.NewConversationRepository(db.Pool, tracer)
		}
		llmClient := newOpenAIClientFunc(cfg.OpenAIAPIKey)
		advisorQ = newAdvisorServiceFunc(tracer, llmClient, &cachedReports{cache: reports}, convStore,
			cfg.OpenAIModel, cfg.AdvisorMaxHistory)
		log.Println("SSH advisor service enabled")
	}

	allowed := make(map[string]bool, len(cfg.SSHAuthorizedFingerprints))
	for _, fp := range cfg.SSHAuthorizedFingerprints {
		allowed[fp] = true
	}
	if len(allowed) == 0 {
		log.Println("Warning: SSH_AUTHORIZED_FINGERPRINTS is empty, every login will be refused")
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.SSHPort)

	srv, err := newWishServerFunc(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(cfg.SSHHostKeyPath),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			fp, ok := allowKey(allowed, key)
			if !ok {
				log.Printf("SSH auth denied: user=%s fingerprint=%s", ctx.User(), fp)
				return false
			}
			ctx.SetValue(sshFingerprintKey, fp)
			log.Printf("SSH auth accepted: user=%s fingerprint=%s", ctx.User(), fp)
			return true
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
				fp, _ := s.Context().Value(sshFingerprintKey).(string)

				model := tui.NewAppModel(tui.Services{
					Reports:  reports,
					Advisor:  advisorQ,
					ChatID:   chatIDFor(fp),
					Username: s.User(),
				})
				pty, _, _ := s.Pty()
				model.SetSize(pty.Window.Width, pty.Window.Height)

				return model, []tea.ProgramOption{tea.WithAltScreen()}
			}),
			logging.Middleware(),
		),
	)
	if err != nil {
		log.Fatalf("failed to create SSH server: %v", err)
	}

	if srv != nil {
		go func() {
			log.Printf("SSH server listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil {
				log.Printf("SSH server stopped: %v", err)
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down SSH server...")

	cancel()

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("SSH server shutdown error: %v", err)
		}
	}
	db.Close()
	cache.Close()

	log.Println("SSH server exited")
}
