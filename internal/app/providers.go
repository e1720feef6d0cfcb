package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/exportcache"
	"figmamcp/internal/infra/figmaapi"
	"figmamcp/internal/infra/figmaurl"
	"figmamcp/internal/infra/gateway"
	"figmamcp/internal/infra/telemetry"
)

func NewDomainConfig(cfg ServeConfig) domain.Config {
	return cfg.Config
}

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

func NewExportCache(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) *exportcache.Cache {
	return exportcache.New(exportcache.Options{
		TTL:     cfg.Cache.TTL(),
		Logger:  logger,
		Metrics: metrics,
	})
}

func NewFigmaClient(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) (*figmaapi.Client, error) {
	return figmaapi.NewClient(figmaClientOptions(cfg.Figma, metrics, logger))
}

func figmaClientOptions(cfg domain.FigmaConfig, metrics domain.Metrics, logger *zap.Logger) figmaapi.Options {
	return figmaapi.Options{
		BaseURL:        cfg.BaseURL,
		Token:          cfg.Token,
		Timeout:        cfg.Timeout(),
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: time.Duration(domain.DefaultRetryBaseSeconds) * time.Second,
		RetryMaxDelay:  time.Duration(domain.DefaultRetryMaxSeconds) * time.Second,
		UserAgent:      UserAgent(),
		Logger:         logger,
		Metrics:        metrics,
	}
}

func NewSwappableClient(client *figmaapi.Client) *figmaapi.SwappableClient {
	return figmaapi.NewSwappableClient(client)
}

func NewResolver() *figmaurl.Resolver {
	return figmaurl.NewResolver()
}

func NewGatewayServer(api *figmaapi.SwappableClient, cache *exportcache.Cache, resolver *figmaurl.Resolver, logger *zap.Logger) (*gateway.Server, error) {
	return gateway.NewServer(api, cache, gateway.Options{
		Version:  Version,
		Resolver: resolver,
		Logger:   logger,
	})
}
