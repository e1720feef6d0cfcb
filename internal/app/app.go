package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/config"
)

type App struct {
	logger *zap.Logger
}

type ServeConfig struct {
	ConfigPath string
	Config     domain.Config
	// Override reapplies command-line settings after each config reload.
	Override func(*domain.Config)
}

type ValidateConfig struct {
	ConfigPath string
	Override   func(*domain.Config)
	// Remote also checks the token against the Figma API.
	Remote bool
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		logger: logger.Named("app"),
	}
}

// LoadConfig reads the config at path and applies override on top.
func LoadConfig(ctx context.Context, path string, override func(*domain.Config), logger *zap.Logger) (domain.Config, error) {
	cfg, err := config.NewLoader(logger).Load(ctx, path)
	if err != nil {
		return domain.Config{}, err
	}
	if override == nil {
		return cfg, nil
	}
	override(&cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

// Serve runs the MCP server until ctx is done.
func (a *App) Serve(ctx context.Context, cfg ServeConfig, logging Logging) error {
	application, err := InitializeApplication(ctx, cfg, logging)
	if err != nil {
		return err
	}
	return application.Run()
}
