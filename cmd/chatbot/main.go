package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger-chat/internal/analytics"
	"ledger-chat/internal/auth"
	"ledger-chat/internal/chat"
	"ledger-chat/internal/config"
	"ledger-chat/internal/extract"
	"ledger-chat/internal/ledger"
	"ledger-chat/internal/llm"
	"ledger-chat/internal/scheduler"
	"ledger-chat/internal/storage"
	"ledger-chat/internal/telegram"
	"ledger-chat/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingKey) {
			log.Fatalf("❌ API key no encontrada. Configura tu archivo .env (%v)", err)
		}
		log.Fatalf("❌ invalid configuration: %v", err)
	}

	llmClient, err := llm.NewFactory(cfg).CreateClient(ctx, string(cfg.LLMProvider))
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	appender, err := newLedger(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Error al conectar con Google Sheets: %v", err)
	}

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			log.Printf("failed to init file recorder: %v", err)
		} else {
			rec = fr
		}
	}

	instruction := cfg.ResolveSystemPrompt()
	sessions := chat.NewManager(instruction)
	extractor := extract.New(extract.KeysFrom(cfg.RecordKeys))
	controller := chat.NewController(llmClient, extractor, appender, chat.WithRecorder(rec), chat.WithChannel("web"))

	if rec != nil && cfg.StatsCron != "" {
		sched := scheduler.New(cfg.StatsCron)
		sched.SetReportFunction(func(ctx context.Context) error {
			events, err := rec.LoadInteractions()
			if err != nil {
				return err
			}
			log.Printf("📊 %s", analytics.AnalyzeDailyLogs(events, time.Now().UTC()).GenerateReportSummary())
			return nil
		})
		if err := sched.Start(); err != nil {
			log.Printf("failed to start scheduler: %v", err)
		} else {
			defer sched.Stop()
		}
	}

	if cfg.TelegramBotToken != "" {
		tgController := chat.NewController(llmClient, extractor, appender, chat.WithRecorder(rec), chat.WithChannel("telegram"))
		tgSessions := chat.NewManager(instruction)
		bot, err := telegram.New(cfg.TelegramBotToken, auth.New(cfg.AllowedUsers), tgController, tgSessions)
		if err != nil {
			log.Printf("failed to create telegram bot: %v", err)
		} else {
			go tgSessions.RunJanitor(ctx, cfg.SessionIdleTimeout)
			go bot.Start(ctx)
		}
	}

	server := web.NewServer(sessions, controller, web.Options{
		ModelLabel:         cfg.ModelLabel,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Recorder:           rec,
	})

	go server.RunJanitor(ctx, cfg.SessionIdleTimeout)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Chat available on http://localhost%s (provider=%s)", cfg.HTTPAddr, cfg.LLMProvider)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func newLedger(ctx context.Context, cfg *config.Config) (ledger.Appender, error) {
	if !cfg.LedgerEnabled {
		log.Println("⚠️ Ledger disabled, extracted records are kept in memory only")
		return ledger.NewMemory(), nil
	}
	credsJSON, err := cfg.CredentialsJSON()
	if err != nil {
		return nil, err
	}
	credsOpt, err := ledger.ServiceAccountOption(ctx, credsJSON)
	if err != nil {
		return nil, err
	}
	return ledger.OpenSheets(ctx, ledger.SheetsConfig{
		SpreadsheetID:   cfg.SpreadsheetID,
		SpreadsheetName: cfg.SpreadsheetName,
	}, credsOpt)
}
