package domain

import "time"

// Config is the normalized runtime configuration.
type Config struct {
	Figma         FigmaConfig
	Cache         CacheConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type FigmaConfig struct {
	Token          string
	BaseURL        string
	TimeoutSeconds int
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	// MaxRetries bounds retries of 429 and 5xx responses.
	MaxRetries int
}

func (c FigmaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type CacheConfig struct {
	TTLSeconds int
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type ServerConfig struct {
	Transport    string
	HTTPAddr     string
	HTTPPath     string
	HTTPToken    string
	JSONResponse bool
}

type ObservabilityConfig struct {
	ListenAddress string
}

type LogConfig struct {
	Level       string
	Development bool
}

// DefaultConfig returns a Config populated with defaults and no token.
func DefaultConfig() Config {
	return Config{
		Figma: FigmaConfig{
			BaseURL:        DefaultFigmaBaseURL,
			TimeoutSeconds: DefaultRequestTimeoutSeconds,
			RateBurst:      DefaultRateBurst,
			MaxRetries:     DefaultMaxRetries,
		},
		Cache: CacheConfig{TTLSeconds: DefaultExportTTLSeconds},
		Server: ServerConfig{
			Transport: DefaultTransport,
			HTTPAddr:  DefaultHTTPListenAddress,
			HTTPPath:  DefaultHTTPPath,
		},
		Observability: ObservabilityConfig{ListenAddress: DefaultObservabilityListenAddress},
		Log:           LogConfig{Level: DefaultLogLevel},
	}
}
