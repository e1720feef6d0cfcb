// Package figmaapi is a thin client for the Figma REST API.
//
// Responses are returned as opaque Documents; this package only decides
// whether a call succeeded.
package figmaapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/jsonutil"
	"figmamcp/internal/infra/telemetry"
)

// TokenHeader carries the personal access token.
const TokenHeader = "X-Figma-Token"

const (
	endpointFile      = "files"
	endpointFileNodes = "file_nodes"
	endpointImages    = "images"
	endpointMe        = "me"
	endpointDownload  = "download"
)

// Document is a decoded JSON object from the API.
type Document map[string]any

// APIError is a non-2xx response, or a 2xx response whose body carries an
// err field.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Body
	}
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
	// MaxRetries bounds retries of 429 and 5xx responses. Zero disables them.
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	UserAgent      string
	HTTPClient     *http.Client
	Logger         *zap.Logger
	Metrics        domain.Metrics
}

// Client is bound to one token for its lifetime.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	metrics    domain.Metrics

	maxRetries     int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
}

func NewClient(opts Options) (*Client, error) {
	if err := ValidateToken(opts.Token); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = domain.DefaultFigmaBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "figmaapi.NewClient", "invalid base url", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = time.Duration(domain.DefaultRequestTimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				ResponseHeaderTimeout: timeout,
			},
			Timeout: timeout,
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = domain.DefaultRateBurst
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}

	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		userAgent:  opts.UserAgent,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger.Named("figmaapi"),
		metrics:    metrics,

		maxRetries:     max(opts.MaxRetries, 0),
		retryBaseDelay: opts.RetryBaseDelay,
		retryMaxDelay:  opts.RetryMaxDelay,
	}, nil
}

// ValidateToken rejects tokens that cannot be sent as a header value.
func ValidateToken(token string) error {
	const op = "figmaapi.ValidateToken"
	if token == "" {
		return domain.E(domain.CodeAuth, op, "figma token is required", domain.ErrInvalidToken)
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < 0x20 && c != '\t') || c == 0x7f {
			return domain.E(domain.CodeAuth, op, "invalid token format", domain.ErrInvalidToken)
		}
	}
	return nil
}

// GetFile fetches a file document. A nil depth omits the parameter.
func (c *Client) GetFile(ctx context.Context, fileKey string, depth *int) (Document, error) {
	query := url.Values{}
	if depth != nil {
		query.Set("depth", strconv.Itoa(*depth))
	}
	return c.getDocument(ctx, "figmaapi.GetFile", endpointFile, "/files/"+url.PathEscape(fileKey), query)
}

// GetFileNodes fetches selected nodes of a file.
func (c *Client) GetFileNodes(ctx context.Context, fileKey string, ids []string, depth *int) (Document, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	if depth != nil {
		query.Set("depth", strconv.Itoa(*depth))
	}
	return c.getDocument(ctx, "figmaapi.GetFileNodes", endpointFileNodes, "/files/"+url.PathEscape(fileKey)+"/nodes", query)
}

// ExportImages asks Figma to render nodes. The result maps node ids to
// short-lived download URLs under "images".
func (c *Client) ExportImages(ctx context.Context, fileKey string, ids []string, format string, scale *float64) (Document, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("format", format)
	if scale != nil {
		query.Set("scale", strconv.FormatFloat(*scale, 'f', -1, 64))
	}
	return c.getDocument(ctx, "figmaapi.ExportImages", endpointImages, "/images/"+url.PathEscape(fileKey), query)
}

// GetMe returns the user that owns the token.
func (c *Client) GetMe(ctx context.Context) (Document, error) {
	return c.getDocument(ctx, "figmaapi.GetMe", endpointMe, "/me", nil)
}

// Download fetches an export URL. Export URLs are pre-signed, so the token is
// not sent.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	const op = "figmaapi.Download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, op, "invalid download url", err)
	}
	c.decorate(ctx, req)

	status, body, err := c.do(ctx, op, endpointDownload, req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status}
		return nil, domain.E(domain.CodeRemoteAPI, op, "failed to download image: "+apiErr.Error(), apiErr)
	}
	return body, nil
}

func (c *Client) getDocument(ctx context.Context, op, endpoint, path string, query url.Values) (Document, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	retry := newBackoff(c.retryBaseDelay, c.retryMaxDelay)
	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, domain.E(domain.CodeCanceled, op, "rate limiter wait failed", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, domain.E(domain.CodeInvalidArgument, op, "build request", err)
		}
		req.Header.Set(TokenHeader, c.token)
		req.Header.Set("Accept", "application/json")
		c.decorate(ctx, req)

		status, body, err := c.do(ctx, op, endpoint, req)
		if err != nil {
			return nil, err
		}
		if attempt < c.maxRetries && retryableStatus(status) {
			telemetry.LoggerWithRequest(ctx, c.logger).Info("retrying figma request",
				telemetry.EndpointField(endpoint),
				telemetry.StatusField(status),
				zap.Int("attempt", attempt+1),
			)
			if retry.Sleep(ctx) {
				continue
			}
		}
		return classify(op, status, body)
	}
}

func (c *Client) decorate(ctx context.Context, req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if requestID, ok := telemetry.RequestIDFromContext(ctx); ok {
		req.Header.Set(telemetry.RequestIDHeader, requestID)
	}
}

func (c *Client) do(ctx context.Context, op, endpoint string, req *http.Request) (int, []byte, error) {
	start := time.Now()
	logger := telemetry.LoggerWithRequest(ctx, c.logger)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPIRequest(endpoint, 0, time.Since(start), err)
		logger.Warn("figma request failed",
			telemetry.EndpointField(endpoint),
			telemetry.DurationField(time.Since(start)),
			zap.Error(err),
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, domain.E(domain.CodeCanceled, op, "", ctxErr)
		}
		return 0, nil, domain.E(domain.CodeNetwork, op, "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveAPIRequest(endpoint, resp.StatusCode, time.Since(start), err)
		return 0, nil, domain.E(domain.CodeNetwork, op, "read response body", err)
	}

	c.metrics.ObserveAPIRequest(endpoint, resp.StatusCode, time.Since(start), nil)
	logger.Debug("figma request completed",
		telemetry.EndpointField(endpoint),
		telemetry.StatusField(resp.StatusCode),
		telemetry.DurationField(time.Since(start)),
		zap.Int("bytes", len(body)),
	)
	return resp.StatusCode, body, nil
}

// classify turns a response into a Document or a coded error. A present but
// null err field is not treated as an error.
func classify(op string, status int, body []byte) (Document, error) {
	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status, Body: string(body)}
		return nil, domain.E(domain.CodeRemoteAPI, op, apiErr.Error(), apiErr)
	}

	var doc Document
	if err := jsonutil.Unmarshal(body, &doc); err != nil {
		return nil, domain.E(domain.CodeRemoteAPI, op, "decode response", err)
	}
	if doc == nil {
		return nil, domain.E(domain.CodeRemoteAPI, op, "decode response", errors.New("response is not a json object"))
	}
	if embedded, ok := doc["err"]; ok && embedded != nil {
		apiErr := &APIError{Status: status, Body: embeddedMessage(embedded)}
		return nil, domain.E(domain.CodeRemoteAPI, op, apiErr.Body, apiErr)
	}
	return doc, nil
}

func embeddedMessage(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	out, err := jsonutil.MarshalString(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return out
}

// ImageURLs projects the images object of an export response. Nodes that
// failed to render have a null URL and are skipped.
func ImageURLs(doc Document) map[string]string {
	images, ok := doc["images"].(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(images))
	for nodeID, raw := range images {
		if link, ok := raw.(string); ok && link != "" {
			out[nodeID] = link
		}
	}
	return out
}
