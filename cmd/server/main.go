package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/ai/ollama"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/ai/openai"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/repo/memory"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/repo/postgres"
	redisrepo "github.com/fairyhunter13/ai-excel-interviewer/internal/adapter/repo/redis"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/app"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/config"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/service/turngen"
	"github.com/fairyhunter13/ai-excel-interviewer/internal/usecase"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracing, err := observability.SetupTracing(cfg)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	if shutdownTracing != nil {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				slog.Warn("tracing shutdown", slog.Any("error", err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, storeProbe, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	llm, llmProbe := buildLLM(cfg)

	script, err := turngen.LoadScript()
	if err != nil {
		return err
	}
	turns := turngen.New(llm, script, cfg.HistoryMaxTokens)

	svc := usecase.NewInterviewService(sessions, turns)
	srv := httpserver.NewServer(svc, version, cfg.AppEnv)
	ready := app.NewReadiness(storeProbe, llmProbe)
	router := app.BuildRouter(cfg, srv, ready)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening",
			slog.Int("port", cfg.Port),
			slog.String("env", cfg.AppEnv),
			slog.String("model", cfg.LLMModel()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildStore selects the session store: DB_URL wins over REDIS_URL, and
// in-process memory is the default.
func buildStore(ctx context.Context, cfg config.Config) (domain.SessionRepository, app.Probe, func(), error) {
	switch {
	case cfg.DBURL != "":
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, app.Probe{}, nil, fmt.Errorf("postgres pool: %w", err)
		}
		slog.Info("session store selected", slog.String("store", "postgres"))
		probe := app.Probe{Name: "store", Check: pool.Ping}
		return postgres.NewSessionRepo(pool), probe, pool.Close, nil

	case cfg.RedisURL != "":
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, app.Probe{}, nil, fmt.Errorf("redis url: %w", err)
		}
		rdb := goredis.NewClient(opts)
		slog.Info("session store selected", slog.String("store", "redis"))
		probe := app.Probe{Name: "store", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}}
		return redisrepo.NewSessionRepo(rdb), probe, func() { _ = rdb.Close() }, nil

	default:
		slog.Info("session store selected", slog.String("store", "memory"))
		probe := app.Probe{Name: "store", Check: func(context.Context) error { return nil }}
		return memory.NewSessionRepo(), probe, func() {}, nil
	}
}

// buildLLM selects the chat-completion provider. The service stays ready even
// when the model is down (turns degrade to the canned script), so the LLM
// probe reports reachability without gating on it at startup.
func buildLLM(cfg config.Config) (domain.ChatCompleter, app.Probe) {
	if cfg.UseLocalLLM {
		client := ollama.New(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.LLMTimeout)
		slog.Info("llm provider selected",
			slog.String("provider", "ollama"),
			slog.String("model", cfg.OllamaModel))
		return client, app.Probe{Name: "llm", Check: client.Ping}
	}
	client := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	slog.Info("llm provider selected",
		slog.String("provider", "openai"),
		slog.String("model", cfg.OpenAIModel))
	// No cheap unauthenticated health endpoint on OpenAI-compatible APIs;
	// report configuration presence only.
	return client, app.Probe{Name: "llm", Check: func(context.Context) error {
		if cfg.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY not set")
		}
		return nil
	}}
}
