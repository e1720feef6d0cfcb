package telemetry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figmamcp/internal/domain"
)

func TestNewPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())
	assert.NotNil(t, m)
	assert.NotNil(t, m.apiDuration)
	assert.NotNil(t, m.apiRequests)
	assert.NotNil(t, m.exportsRegistered)
	assert.NotNil(t, m.resourceFetches)
	assert.NotNil(t, m.fetchDuration)
	assert.NotNil(t, m.cachedResources)
}

func TestObserveAPIRequestStatusLabels(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveAPIRequest("files", 200, 10*time.Millisecond, nil)
	m.ObserveAPIRequest("files", 200, 10*time.Millisecond, nil)
	m.ObserveAPIRequest("images", 403, 5*time.Millisecond, errors.New("forbidden"))
	m.ObserveAPIRequest("images", 0, time.Millisecond, errors.New("dial tcp"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("files", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("images", "403")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("images", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.apiDuration))
}

func TestCacheMetrics(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveExportRegistered("png")
	m.ObserveExportRegistered("png")
	m.ObserveResourceFetch(domain.FetchResultCacheHit, time.Millisecond)
	m.ObserveResourceFetch(domain.FetchResultExpired, time.Millisecond)
	m.SetCachedResources(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.exportsRegistered.WithLabelValues("png")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resourceFetches.WithLabelValues(string(domain.FetchResultExpired))))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cachedResources))
}

func TestPrometheusMetricsExposition(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPrometheusMetrics(registry)
	m.SetCachedResources(1)
	m.ObserveResourceFetch(domain.FetchResultDownloaded, 20*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	var out strings.Builder
	encoder := expfmt.NewEncoder(&out, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		require.NoError(t, encoder.Encode(family))
	}
	text := out.String()
	assert.Contains(t, text, "figmamcp_cached_resources 1")
	assert.Contains(t, text, `figmamcp_resource_fetches_total{result="downloaded"} 1`)
}

func TestNoopMetricsSatisfiesInterface(t *testing.T) {
	var m domain.Metrics = NewNoopMetrics()
	m.ObserveAPIRequest("files", 200, time.Millisecond, nil)
	m.ObserveExportRegistered("svg")
	m.ObserveResourceFetch(domain.FetchResultNotFound, 0)
	m.SetCachedResources(0)
}
