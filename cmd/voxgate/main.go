// Command voxgate serves the chat, summarize and speech gateway over HTTP and
// WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/voxgate/adapters/llm"
	"github.com/satriahrh/voxgate/adapters/tts"
	"github.com/satriahrh/voxgate/domain/repositories"
	"github.com/satriahrh/voxgate/internal/api"
	"github.com/satriahrh/voxgate/internal/config"
	"github.com/satriahrh/voxgate/internal/observe"
	"github.com/satriahrh/voxgate/internal/websocket"
	"github.com/satriahrh/voxgate/usecase"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxgate: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxgate: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server exited")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Metrics
	var mp metric.MeterProvider = noop.NewMeterProvider()
	var metricsHandler http.Handler
	if cfg.Server.MetricsEnabled {
		provider, err := observe.InitProvider(observe.ProviderConfig{ServiceName: "voxgate", ServiceVersion: version})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer provider.Shutdown(context.Background())
		mp = provider.MeterProvider
		metricsHandler = provider.Handler
	}
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	// Adapters
	completers := newCompleterSet(ctx, cfg, logger)
	chat, err := completers.get(cfg.Providers.Chat)
	if err != nil {
		return err
	}
	summarize, err := completers.get(cfg.Providers.Summarize)
	if err != nil {
		return err
	}
	speech, err := newSpeechSynthesizer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Usecase
	gateway, err := usecase.NewGateway(cfg.GatewayConfig(), chat, summarize, speech, metrics, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	// Transport
	hub := websocket.NewHub(gateway, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.UseMiddleware(e, metrics, logger)
	api.InitRoutes(e, gateway, hub, metricsHandler, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server started",
			zap.String("port", cfg.Server.Port),
			zap.String("version", version),
			zap.Bool("metrics", cfg.Server.MetricsEnabled))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// completerSet builds each text provider at most once, so chat and summarize
// share a client when they name the same provider.
type completerSet struct {
	ctx    context.Context
	cfg    *config.Config
	logger *zap.Logger
	built  map[string]repositories.TextCompleter
}

func newCompleterSet(ctx context.Context, cfg *config.Config, logger *zap.Logger) *completerSet {
	return &completerSet{ctx: ctx, cfg: cfg, logger: logger, built: make(map[string]repositories.TextCompleter)}
}

func (s *completerSet) get(name string) (repositories.TextCompleter, error) {
	if c, ok := s.built[name]; ok {
		return c, nil
	}

	var (
		c   repositories.TextCompleter
		err error
	)
	switch name {
	case config.ProviderGapGPT:
		c, err = llm.NewOpenAICompatible(s.cfg.GapGPTLLMConfig(), s.logger.Named("gapgpt"))
	case config.ProviderGemini:
		c, err = llm.NewGeminiLLM(s.ctx, s.cfg.GeminiLLMConfig(), s.logger.Named("gemini"))
	default:
		err = fmt.Errorf("unknown text provider %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s completer: %w", name, err)
	}

	s.built[name] = c
	return c, nil
}

func newSpeechSynthesizer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.SpeechSynthesizer, error) {
	switch cfg.Providers.Speech {
	case config.ProviderGemini:
		s, err := tts.NewGeminiTTS(ctx, cfg.GeminiTTSConfig(), logger.Named("gemini_tts"))
		if err != nil {
			return nil, fmt.Errorf("create gemini speech: %w", err)
		}
		return s, nil
	case config.ProviderElevenLabs:
		s, err := tts.NewElevenLabsTTS(cfg.ElevenLabsTTSConfig(), logger.Named("elevenlabs"))
		if err != nil {
			return nil, fmt.Errorf("create elevenlabs speech: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Providers.Speech)
	}
}
