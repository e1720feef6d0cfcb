package app

import (
	"context"

	"go.uber.org/zap"

	"figmamcp/internal/infra/figmaapi"
	"figmamcp/internal/infra/telemetry"
)

// ValidateConfig validates the configuration at the provided path.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) error {
	loaded, err := LoadConfig(ctx, cfg.ConfigPath, cfg.Override, a.logger)
	if err != nil {
		return err
	}
	if err := figmaapi.ValidateToken(loaded.Figma.Token); err != nil {
		return err
	}

	if cfg.Remote {
		client, err := figmaapi.NewClient(figmaClientOptions(loaded.Figma, telemetry.NewNoopMetrics(), a.logger))
		if err != nil {
			return err
		}
		ctx, _ = telemetry.StartRequest(ctx, "validate")
		me, err := client.GetMe(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("figma token accepted", zap.Any("handle", me["handle"]))
	}

	a.logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("transport", loaded.Server.Transport),
		zap.Duration("cache_ttl", loaded.Cache.TTL()),
	)
	return nil
}
