// Package config loads domain.Config from defaults, an optional file and the
// environment, in increasing order of precedence.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"figmamcp/internal/domain"
)

type Loader struct {
	logger *zap.Logger
	lookup envLookup
}

type rawConfig struct {
	Figma         rawFigmaConfig         `mapstructure:"figma"`
	Cache         rawCacheConfig         `mapstructure:"cache"`
	Server        rawServerConfig        `mapstructure:"server"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	Log           rawLogConfig           `mapstructure:"log"`
}

type rawFigmaConfig struct {
	Token          string  `mapstructure:"token"`
	BaseURL        string  `mapstructure:"baseURL"`
	TimeoutSeconds int     `mapstructure:"timeoutSeconds"`
	RateLimit      float64 `mapstructure:"rateLimit"`
	RateBurst      int     `mapstructure:"rateBurst"`
	MaxRetries     int     `mapstructure:"maxRetries"`
}

type rawCacheConfig struct {
	TTLSeconds int `mapstructure:"ttlSeconds"`
}

type rawServerConfig struct {
	Transport    string `mapstructure:"transport"`
	HTTPAddr     string `mapstructure:"httpAddr"`
	HTTPPath     string `mapstructure:"httpPath"`
	HTTPToken    string `mapstructure:"httpToken"`
	JSONResponse bool   `mapstructure:"jsonResponse"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

type rawLogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("config"), lookup: os.LookupEnv}
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(domain.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("figma.token", domain.EnvPrefix+"_FIGMA_TOKEN", domain.TokenEnvVar)
	return v
}

func setDefaults(v *viper.Viper) {
	defaults := domain.DefaultConfig()
	v.SetDefault("figma.token", "")
	v.SetDefault("figma.baseURL", defaults.Figma.BaseURL)
	v.SetDefault("figma.timeoutSeconds", defaults.Figma.TimeoutSeconds)
	v.SetDefault("figma.rateLimit", defaults.Figma.RateLimit)
	v.SetDefault("figma.rateBurst", defaults.Figma.RateBurst)
	v.SetDefault("figma.maxRetries", defaults.Figma.MaxRetries)
	v.SetDefault("cache.ttlSeconds", defaults.Cache.TTLSeconds)
	v.SetDefault("server.transport", defaults.Server.Transport)
	v.SetDefault("server.httpAddr", defaults.Server.HTTPAddr)
	v.SetDefault("server.httpPath", defaults.Server.HTTPPath)
	v.SetDefault("server.httpToken", "")
	v.SetDefault("server.jsonResponse", false)
	v.SetDefault("observability.listenAddress", defaults.Observability.ListenAddress)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.development", false)
}

// Load reads path (optional) and the environment into a validated Config.
// The token is not required here; callers that talk to Figma check it.
func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	v := newViper()
	if path != "" {
		if err := l.readFile(v, path); err != nil {
			return domain.Config{}, err
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	cfg := normalize(raw)
	if errs := Validate(cfg); len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (l *Loader) readFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		var tree map[string]any
		if err := toml.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
		if err := v.MergeConfigMap(tree); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		return nil
	case ".json":
		v.SetConfigType("json")
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		return nil
	default:
		expanded, missing, err := expandYAMLEnv(data, l.lookup)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
		}
		v.SetConfigType("yaml")
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
		return nil
	}
}

func normalize(raw rawConfig) domain.Config {
	return domain.Config{
		Figma: domain.FigmaConfig{
			Token:          strings.TrimSpace(raw.Figma.Token),
			BaseURL:        strings.TrimRight(strings.TrimSpace(raw.Figma.BaseURL), "/"),
			TimeoutSeconds: raw.Figma.TimeoutSeconds,
			RateLimit:      raw.Figma.RateLimit,
			RateBurst:      raw.Figma.RateBurst,
			MaxRetries:     raw.Figma.MaxRetries,
		},
		Cache: domain.CacheConfig{TTLSeconds: raw.Cache.TTLSeconds},
		Server: domain.ServerConfig{
			Transport:    strings.ToLower(strings.TrimSpace(raw.Server.Transport)),
			HTTPAddr:     strings.TrimSpace(raw.Server.HTTPAddr),
			HTTPPath:     strings.TrimSpace(raw.Server.HTTPPath),
			HTTPToken:    raw.Server.HTTPToken,
			JSONResponse: raw.Server.JSONResponse,
		},
		Observability: domain.ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
		},
		Log: domain.LogConfig{
			Level:       strings.ToLower(strings.TrimSpace(raw.Log.Level)),
			Development: raw.Log.Development,
		},
	}
}

// Validate returns every problem found in cfg.
func Validate(cfg domain.Config) []string {
	var errs []string

	if parsed, err := url.Parse(cfg.Figma.BaseURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Sprintf("figma.baseURL must be an http(s) url, got %q", cfg.Figma.BaseURL))
	}
	if cfg.Figma.TimeoutSeconds <= 0 {
		errs = append(errs, "figma.timeoutSeconds must be > 0")
	}
	if cfg.Figma.RateLimit < 0 {
		errs = append(errs, "figma.rateLimit must be >= 0")
	}
	if cfg.Figma.RateLimit > 0 && cfg.Figma.RateBurst < 1 {
		errs = append(errs, "figma.rateBurst must be >= 1 when figma.rateLimit is set")
	}
	if cfg.Figma.MaxRetries < 0 {
		errs = append(errs, "figma.maxRetries must be >= 0")
	}
	if cfg.Cache.TTLSeconds <= 0 {
		errs = append(errs, "cache.ttlSeconds must be > 0")
	}

	switch cfg.Server.Transport {
	case domain.TransportStdio:
	case domain.TransportStreamableHTTP:
		if cfg.Server.HTTPAddr == "" {
			errs = append(errs, "server.httpAddr is required for streamable-http")
		}
		if !strings.HasPrefix(cfg.Server.HTTPPath, "/") {
			errs = append(errs, fmt.Sprintf("server.httpPath must start with /, got %q", cfg.Server.HTTPPath))
		}
	default:
		errs = append(errs, fmt.Sprintf("server.transport must be %q or %q, got %q",
			domain.TransportStdio, domain.TransportStreamableHTTP, cfg.Server.Transport))
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: %v", err))
	}
	return errs
}
