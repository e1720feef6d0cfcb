package telemetry

import (
	"time"

	"figmamcp/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveAPIRequest(_ string, _ int, _ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveExportRegistered(_ string) {}

func (n *NoopMetrics) ObserveResourceFetch(_ domain.FetchResult, _ time.Duration) {}

func (n *NoopMetrics) SetCachedResources(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
