package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/genricoloni/nowpaper/internal/config"
	"github.com/genricoloni/nowpaper/internal/display"
	"github.com/genricoloni/nowpaper/internal/domain"
	"github.com/genricoloni/nowpaper/internal/engine"
	"github.com/genricoloni/nowpaper/internal/monitor"
	"github.com/genricoloni/nowpaper/internal/render"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AppOptions wires the daemon. A config.Config must be supplied alongside it.
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		newRenderer,
		newDriver,
		newSource,
		newEngine,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

// newLogger creates the production logger at the configured level
func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if cfg.LogFile != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.LogFile)
	}
	return zc.Build()
}

func parseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(s)
	if s == "warning" {
		s = "warn"
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return level, fmt.Errorf("invalid log level: %w", err)
	}
	return level, nil
}

func newRenderer(logger *zap.Logger, cfg config.Config) domain.Renderer {
	fonts := render.LoadFontSet(logger, render.FontConfig{
		Regular: cfg.FontRegular,
		Bold:    cfg.FontBold,
	})
	return render.NewRenderer(logger, cfg.Display().Geometry(), fonts)
}

func newDriver(logger *zap.Logger, cfg config.Config) (domain.Driver, error) {
	return display.New(logger, cfg.Display())
}

// newSource creates the MPRIS poller and closes its bus connection on stop
func newSource(lc fx.Lifecycle, logger *zap.Logger, cfg config.Config) domain.Source {
	src := monitor.NewMprisSource(logger, monitor.Options{
		Player:  cfg.Player,
		Timeout: cfg.Timeout(),
	})
	lc.Append(fx.StopHook(src.Close))
	return src
}

func newEngine(
	logger *zap.Logger,
	source domain.Source,
	renderer domain.Renderer,
	driver domain.Driver,
	cfg config.Config,
) *engine.Engine {
	return engine.NewEngine(logger, source, renderer, driver, engine.Options{
		Interval: cfg.Interval(),
		Backoff:  cfg.Backoff(),
		Policy:   engine.Policy{RefreshWhilePlaying: cfg.RefreshWhilePlaying},
	})
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, eng *engine.Engine, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("nowpaper started",
				zap.String("display", cfg.DisplayType),
				zap.Int("width", cfg.DisplayWidth),
				zap.Int("height", cfg.DisplayHeight),
				zap.Duration("interval", cfg.Interval()),
				zap.String("config", cfg.File))
			return eng.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			return eng.Stop(ctx)
		},
	})
}
