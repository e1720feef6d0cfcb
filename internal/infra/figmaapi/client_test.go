package figmaapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/telemetry"
)

type recordedRequest struct {
	Path  string
	Query map[string][]string
	Token string
}

type fakeFigma struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	body     string
}

func (f *fakeFigma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Path:  r.URL.Path,
		Query: r.URL.Query(),
		Token: r.Header.Get(TokenHeader),
	})
	status, body := f.status, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if body == "" {
		body = `{"name":"Design"}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeFigma) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, fake *fakeFigma) *Client {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{BaseURL: server.URL, Token: "figd_test"})
	require.NoError(t, err)
	return client
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestNewClientValidatesToken(t *testing.T) {
	_, err := NewClient(Options{Token: ""})
	require.True(t, domain.IsCode(err, domain.CodeAuth))

	_, err = NewClient(Options{Token: "invalid\ntoken"})
	require.True(t, domain.IsCode(err, domain.CodeAuth))
	require.ErrorIs(t, err, domain.ErrInvalidToken)
	require.Contains(t, err.Error(), "invalid token format")

	client, err := NewClient(Options{Token: "test-token"})
	require.NoError(t, err)
	require.Equal(t, domain.DefaultFigmaBaseURL, client.baseURL)
}

func TestGetFileBuildsRequest(t *testing.T) {
	fake := &fakeFigma{}
	client := newTestClient(t, fake)

	doc, err := client.GetFile(context.Background(), "ABC123", intPtr(2))
	require.NoError(t, err)
	require.Equal(t, "Design", doc["name"])

	req := fake.last(t)
	require.Equal(t, "/files/ABC123", req.Path)
	require.Equal(t, []string{"2"}, req.Query["depth"])
	require.Equal(t, "figd_test", req.Token)
}

func TestGetFileOmitsNilDepth(t *testing.T) {
	fake := &fakeFigma{}
	client := newTestClient(t, fake)

	_, err := client.GetFile(context.Background(), "ABC123", nil)
	require.NoError(t, err)
	require.NotContains(t, fake.last(t).Query, "depth")
}

func TestGetFileNodesBuildsRequest(t *testing.T) {
	fake := &fakeFigma{}
	client := newTestClient(t, fake)

	_, err := client.GetFileNodes(context.Background(), "ABC123", []string{"1:2", "3:4"}, intPtr(1))
	require.NoError(t, err)

	req := fake.last(t)
	require.Equal(t, "/files/ABC123/nodes", req.Path)
	require.Equal(t, []string{"1:2,3:4"}, req.Query["ids"])
	require.Equal(t, []string{"1"}, req.Query["depth"])
}

func TestExportImagesBuildsRequest(t *testing.T) {
	fake := &fakeFigma{body: `{"err":null,"images":{"1:2":"https://s3/x.png","3:4":null}}`}
	client := newTestClient(t, fake)

	doc, err := client.ExportImages(context.Background(), "ABC123", []string{"1:2", "3:4"}, "svg", floatPtr(2))
	require.NoError(t, err)

	req := fake.last(t)
	require.Equal(t, "/images/ABC123", req.Path)
	require.Equal(t, []string{"svg"}, req.Query["format"])
	require.Equal(t, []string{"2"}, req.Query["scale"])
	require.Equal(t, map[string]string{"1:2": "https://s3/x.png"}, ImageURLs(doc))

	_, err = client.ExportImages(context.Background(), "ABC123", []string{"1:2"}, "png", nil)
	require.NoError(t, err)
	require.NotContains(t, fake.last(t).Query, "scale")
}

func TestGetMe(t *testing.T) {
	fake := &fakeFigma{body: `{"id":"42","email":"dev@example.com"}`}
	client := newTestClient(t, fake)

	doc, err := client.GetMe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "/me", fake.last(t).Path)
	require.Equal(t, "dev@example.com", doc["email"])
}

func TestNon2xxIsRemoteAPIError(t *testing.T) {
	fake := &fakeFigma{status: http.StatusForbidden, body: `{"status":403,"err":"Invalid token"}`}
	client := newTestClient(t, fake)

	_, err := client.GetFile(context.Background(), "ABC123", nil)
	require.True(t, domain.IsCode(err, domain.CodeRemoteAPI))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Contains(t, apiErr.Body, "Invalid token")
	require.Contains(t, err.Error(), "HTTP 403")
}

func TestEmbeddedErrorIsRemoteAPIError(t *testing.T) {
	fake := &fakeFigma{body: `{"err":"Render timeout","images":{}}`}
	client := newTestClient(t, fake)

	_, err := client.ExportImages(context.Background(), "ABC123", []string{"1:2"}, "png", nil)
	require.True(t, domain.IsCode(err, domain.CodeRemoteAPI))
	require.Contains(t, err.Error(), "Render timeout")

	fake.body = `{"err":{"code":7}}`
	_, err = client.GetFile(context.Background(), "ABC123", nil)
	require.True(t, domain.IsCode(err, domain.CodeRemoteAPI))
	require.Contains(t, err.Error(), `"code":7`)
}

func TestInvalidJSONIsRemoteAPIError(t *testing.T) {
	fake := &fakeFigma{body: `<html>`}
	client := newTestClient(t, fake)

	_, err := client.GetMe(context.Background())
	require.True(t, domain.IsCode(err, domain.CodeRemoteAPI))
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := NewClient(Options{BaseURL: base, Token: "t", Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.GetMe(context.Background())
	require.True(t, domain.IsCode(err, domain.CodeNetwork))
}

func TestCanceledContext(t *testing.T) {
	client := newTestClient(t, &fakeFigma{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetMe(ctx)
	require.True(t, domain.IsCode(err, domain.CodeCanceled))
}

func TestDownload(t *testing.T) {
	var sawToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawToken = r.Header.Get(TokenHeader)
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	}))
	defer server.Close()

	client, err := NewClient(Options{Token: "t"})
	require.NoError(t, err)

	data, err := client.Download(context.Background(), server.URL+"/image.png")
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
	require.Empty(t, sawToken)

	_, err = client.Download(context.Background(), server.URL+"/missing")
	require.True(t, domain.IsCode(err, domain.CodeRemoteAPI))
	require.Contains(t, err.Error(), "HTTP 403")
}

func TestRequestIDForwarded(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(telemetry.RequestIDHeader)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL, Token: "t"})
	require.NoError(t, err)

	ctx, meta := telemetry.StartRequest(context.Background(), "get_me")
	_, err = client.GetMe(ctx)
	require.NoError(t, err)
	require.Equal(t, meta.RequestID, got)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	fake := &fakeFigma{}
	server := httptest.NewServer(fake)
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL, Token: "t", RateLimit: 0.001, RateBurst: 1})
	require.NoError(t, err)

	_, err = client.GetMe(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetMe(ctx)
	require.True(t, domain.IsCode(err, domain.CodeCanceled))
}

func TestMetricsObserved(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := telemetry.NewPrometheusMetrics(registry)
	fake := &fakeFigma{}
	server := httptest.NewServer(fake)
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL, Token: "t", Metrics: metrics})
	require.NoError(t, err)

	_, err = client.GetFile(context.Background(), "ABC123", nil)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(registry, "figmamcp_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImageURLsWithoutImages(t *testing.T) {
	require.Empty(t, ImageURLs(Document{}))
	require.Empty(t, ImageURLs(Document{"images": "oops"}))
}

func TestRetriesTooManyRequests(t *testing.T) {
	var calls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":429,"err":"Rate limit exceeded"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{
		BaseURL:        server.URL,
		Token:          "t",
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  2 * time.Millisecond,
	})
	require.NoError(t, err)

	doc, err := client.GetMe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "42", doc["id"])
	require.Equal(t, 3, calls)
}

func TestRetriesExhausted(t *testing.T) {
	fake := &fakeFigma{status: http.StatusBadGateway, body: `bad gateway`}
	server := httptest.NewServer(fake)
	defer server.Close()

	client, err := NewClient(Options{
		BaseURL:        server.URL,
		Token:          "t",
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.GetFile(context.Background(), "ABC123", nil)
	require.True(t, domain.IsCode(err, domain.CodeRemoteAPI))
	require.Len(t, fake.requests, 2)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	fake := &fakeFigma{status: http.StatusNotFound, body: `{"status":404,"err":"Not found"}`}
	server := httptest.NewServer(fake)
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL, Token: "t", MaxRetries: 3, RetryBaseDelay: time.Millisecond})
	require.NoError(t, err)

	_, err = client.GetFile(context.Background(), "ABC123", nil)
	require.True(t, domain.IsCode(err, domain.CodeRemoteAPI))
	require.Len(t, fake.requests, 1)
}
