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

	"github.com/zhouzirui/homebot/backend/internal/config"
	"github.com/zhouzirui/homebot/backend/internal/handler"
	"github.com/zhouzirui/homebot/backend/internal/metrics"
	"github.com/zhouzirui/homebot/backend/internal/model/rule"
	"github.com/zhouzirui/homebot/backend/internal/service/ai"
	"github.com/zhouzirui/homebot/backend/internal/service/assistant"
	"github.com/zhouzirui/homebot/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	bots, err := loadBots(cfg.Chat.RulesPath)
	if err != nil {
		log.Fatalf("failed to load rule tables: %v", err)
	}

	recorder := metrics.New()
	opts := assistant.Options{
		ReplyDelay: cfg.Chat.ReplyDelay,
		Metrics:    recorder,
	}

	// 大模型兜底是可选的，初始化失败时继续使用固定回复
	if cfg.AI.Enabled() {
		aiService, err := ai.NewService(ctx, cfg.AI, cfg.Chat.HistoryLimit)
		if err != nil {
			log.Printf("warning: failed to initialize AI fallback: %v", err)
			log.Println("continuing with canned fallback replies only")
		} else {
			opts.AI = aiService
			log.Println("AI fallback initialized successfully")
		}
	} else {
		log.Println("AI fallback disabled, unmatched questions get the canned fallback reply")
	}

	assistantService, err := assistant.NewService(rule.NewMemoryStore(bots), chat.NewService(), opts)
	if err != nil {
		log.Fatalf("failed to build resolvers: %v", err)
	}

	if !cfg.Speech.Enabled {
		log.Println("voice bridge disabled by configuration")
	}

	router := handler.NewRouter(assistantService, handler.Options{
		SpeechEnabled:  cfg.Speech.Enabled,
		SpeechSettings: cfg.Speech.Settings(),
		Metrics:        recorder,
	})

	startServer(ctx, cfg.Server, router)
}

func loadBots(path string) ([]rule.Bot, error) {
	if path == "" {
		log.Println("RULES_PATH not set, using built-in rule tables")
		return rule.Seed(), nil
	}

	bots, err := rule.Load(path)
	if err != nil {
		return nil, err
	}
	log.Printf("loaded %d rule tables from %s", len(bots), path)
	return bots, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("HomeBot backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
