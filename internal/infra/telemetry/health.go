package telemetry

import (
	"sort"
	"sync"
	"time"
)

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// ComponentHealth is the last reported state of one component.
type ComponentHealth struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type HealthReport struct {
	Status     string            `json:"status"`
	Components []ComponentHealth `json:"components,omitempty"`
}

// HealthTracker aggregates component states for the /healthz endpoint.
type HealthTracker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	now        func() time.Time
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		components: make(map[string]ComponentHealth),
		now:        time.Now,
	}
}

// SetComponent records the outcome of the latest check for name. A nil err
// marks the component healthy.
func (h *HealthTracker) SetComponent(name string, err error) {
	if h == nil || name == "" {
		return
	}
	state := ComponentHealth{
		Name:      name,
		Healthy:   err == nil,
		UpdatedAt: h.now(),
	}
	if err != nil {
		state.Error = err.Error()
	}

	h.mu.Lock()
	h.components[name] = state
	h.mu.Unlock()
}

func (h *HealthTracker) Report() HealthReport {
	if h == nil {
		return HealthReport{Status: HealthStatusOK}
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	report := HealthReport{Status: HealthStatusOK}
	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := h.components[name]
		if !state.Healthy {
			report.Status = HealthStatusDegraded
		}
		report.Components = append(report.Components, state)
	}
	return report
}
