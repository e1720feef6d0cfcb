package app

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level       string
	Development bool
	// Core replaces the encoder and sink; used by tests.
	Core zapcore.Core
}

// Logging bundles the logger and the level it can be adjusted through.
type Logging struct {
	Logger *zap.Logger
	Level  zap.AtomicLevel
}

// NewLogging builds a logger writing to stderr, leaving stdout to the stdio
// transport.
func NewLogging(cfg LoggingConfig) (Logging, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return Logging{}, fmt.Errorf("log level: %w", err)
		}
	}

	if cfg.Core != nil {
		core := &levelCore{Core: cfg.Core, level: level}
		return Logging{Logger: zap.New(core), Level: level}, nil
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return Logging{}, fmt.Errorf("build logger: %w", err)
	}
	return Logging{Logger: logger, Level: level}, nil
}

// NewLogger returns the logger from a Logging bundle.
func NewLogger(logging Logging) *zap.Logger {
	if logging.Logger == nil {
		return zap.NewNop()
	}
	return logging.Logger
}

// SetLevel changes the level of every logger derived from the bundle.
func (l Logging) SetLevel(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	l.Level.SetLevel(parsed)
	return nil
}

type levelCore struct {
	zapcore.Core
	level zap.AtomicLevel
}

func (c *levelCore) Enabled(level zapcore.Level) bool {
	return c.level.Enabled(level) && c.Core.Enabled(level)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return checked
	}
	return checked.AddCore(entry, c)
}
