package domain

const (
	ResourceScheme                    = "figma"
	DefaultFigmaBaseURL               = "https://api.figma.com/v1"
	DefaultRequestTimeoutSeconds      = 30
	DefaultRateBurst                  = 1
	DefaultMaxRetries                 = 2
	DefaultRetryBaseSeconds           = 1
	DefaultRetryMaxSeconds            = 30
	DefaultExportTTLSeconds           = 3600
	DefaultExportFormat               = "png"
	DefaultExportScale                = 1.0
	DefaultDepth                      = 1
	DefaultTransport                  = TransportStdio
	DefaultHTTPListenAddress          = "127.0.0.1:8090"
	DefaultHTTPPath                   = "/mcp"
	DefaultLogLevel                   = "info"
	DefaultObservabilityListenAddress = ""
)

const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// TokenEnvVar is read in addition to the prefixed config variables.
const TokenEnvVar = "FIGMA_TOKEN"

// EnvPrefix prefixes environment overrides, e.g. FIGMA_MCP_SERVER_TRANSPORT.
const EnvPrefix = "FIGMA_MCP"
