package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/config"
	"figmamcp/internal/infra/exportcache"
	"figmamcp/internal/infra/figmaapi"
	"figmamcp/internal/infra/gateway"
	"figmamcp/internal/infra/telemetry"
)

const (
	healthComponentConfig = "config"
	healthComponentFigma  = "figma"
)

// Application wires the gateway to its transport and background services.
type Application struct {
	ctx        context.Context
	configPath string
	override   func(*domain.Config)
	current    domain.Config

	logging  Logging
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  domain.Metrics
	health   *telemetry.HealthTracker
	cache    *exportcache.Cache
	client   *figmaapi.SwappableClient
	server   *gateway.Server
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context     context.Context
	ServeConfig ServeConfig
	Logging     Logging
	Registry    *prometheus.Registry
	Metrics     domain.Metrics
	Health      *telemetry.HealthTracker
	Cache       *exportcache.Cache
	Client      *figmaapi.SwappableClient
	Server      *gateway.Server
}

// NewApplication constructs the application runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	health := opts.Health
	if health == nil {
		health = telemetry.NewHealthTracker()
	}
	return &Application{
		ctx:        ctx,
		configPath: opts.ServeConfig.ConfigPath,
		override:   opts.ServeConfig.Override,
		current:    opts.ServeConfig.Config,
		logging:    opts.Logging,
		logger:     NewLogger(opts.Logging).Named("app"),
		registry:   opts.Registry,
		metrics:    opts.Metrics,
		health:     health,
		cache:      opts.Cache,
		client:     opts.Client,
		server:     opts.Server,
	}
}

// Run starts background services and serves the configured transport until
// the context is done.
func (a *Application) Run() error {
	cfg := a.current
	a.logger.Info("configuration loaded",
		zap.String("config", a.configPath),
		zap.String("transport", cfg.Server.Transport),
		zap.Duration("cache_ttl", cfg.Cache.TTL()),
		zap.String("version", Version),
	)
	a.health.SetComponent(healthComponentConfig, nil)
	a.health.SetComponent(healthComponentFigma, nil)

	ctx, cancel := context.WithCancel(a.ctx)
	defer cancel()

	if addr := cfg.Observability.ListenAddress; addr != "" {
		go func() {
			err := telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
				Addr:          addr,
				EnableMetrics: true,
				EnableHealthz: true,
				Health:        a.health,
				Registry:      a.registry,
			}, a.logger)
			if err != nil {
				a.logger.Warn("observability server failed", zap.Error(err))
			}
		}()
	}

	if a.configPath != "" {
		watcher := config.NewWatcher(a.configPath, config.DefaultReloadDebounce, a.logger)
		go func() {
			if err := watcher.Run(ctx, a.reload); err != nil {
				a.logger.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	err := a.serve(ctx, cfg.Server)
	a.logger.Info("gateway stopped", zap.Int("cached_resources", a.cache.Len()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *Application) serve(ctx context.Context, cfg domain.ServerConfig) error {
	switch cfg.Transport {
	case domain.TransportStdio, "":
		return a.server.RunStdio(ctx)
	case domain.TransportStreamableHTTP:
		return a.server.RunStreamableHTTP(ctx, gateway.HTTPOptions{
			Addr:         cfg.HTTPAddr,
			Path:         cfg.HTTPPath,
			Token:        cfg.HTTPToken,
			JSONResponse: cfg.JSONResponse,
		})
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
}

// reload applies a changed config file. The log level and Figma client are
// swapped in place; other changes are reported and need a restart.
func (a *Application) reload(ctx context.Context) {
	next, err := LoadConfig(ctx, a.configPath, a.override, a.logger)
	if err != nil {
		a.health.SetComponent(healthComponentConfig, err)
		a.logger.Warn("config reload failed", zap.String("config", a.configPath), zap.Error(err))
		return
	}
	a.health.SetComponent(healthComponentConfig, nil)
	prev := a.current

	if next.Log.Level != prev.Log.Level {
		if err := a.logging.SetLevel(next.Log.Level); err != nil {
			a.logger.Warn("log level update failed", zap.Error(err))
		} else {
			a.logger.Info("log level updated", zap.String("level", next.Log.Level))
		}
	}

	if next.Figma != prev.Figma {
		client, err := figmaapi.NewClient(figmaClientOptions(next.Figma, a.metrics, NewLogger(a.logging)))
		if err != nil {
			a.health.SetComponent(healthComponentFigma, err)
			a.logger.Warn("figma client rebuild failed", zap.Error(err))
			next.Figma = prev.Figma
		} else {
			a.client.Swap(client)
			a.health.SetComponent(healthComponentFigma, nil)
			a.logger.Info("figma client updated", zap.String("base_url", next.Figma.BaseURL))
		}
	}

	if next.Server != prev.Server || next.Cache != prev.Cache || next.Observability != prev.Observability {
		a.logger.Warn("server, cache and observability changes take effect after restart")
	}
	a.current = next
}

// Health returns the component health tracker.
func (a *Application) Health() *telemetry.HealthTracker {
	return a.health
}
