package gateway

import (
	"net/url"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"figmamcp/internal/infra/telemetry"
)

// resourceRegistry mirrors a resource list onto the MCP server, adding new
// resources and removing the ones that disappeared.
type resourceRegistry struct {
	server     *mcp.Server
	handler    mcp.ResourceHandler
	logger     *zap.Logger
	applyMu    sync.Mutex
	mu         sync.Mutex
	etag       string
	registered map[string]struct{}
}

func newResourceRegistry(server *mcp.Server, handler mcp.ResourceHandler, logger *zap.Logger) *resourceRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resourceRegistry{
		server:     server,
		handler:    handler,
		logger:     logger.Named("resource_registry"),
		registered: make(map[string]struct{}),
	}
}

// ApplySnapshot replaces the registered resources with resources. A snapshot
// with the same non-empty etag as the last one is ignored.
func (r *resourceRegistry) ApplySnapshot(etag string, resources []*mcp.Resource) {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	r.mu.Lock()
	if etag != "" && etag == r.etag {
		r.mu.Unlock()
		return
	}
	prev := make(map[string]struct{}, len(r.registered))
	for uri := range r.registered {
		prev[uri] = struct{}{}
	}
	r.mu.Unlock()

	next := make(map[string]struct{}, len(resources))
	toAdd := make([]*mcp.Resource, 0, len(resources))
	for _, resource := range resources {
		if resource == nil || resource.URI == "" {
			continue
		}
		if !validResourceURI(resource.URI) {
			r.logger.Warn("skip resource with invalid uri", telemetry.URIField(resource.URI))
			continue
		}
		toAdd = append(toAdd, resource)
		next[resource.URI] = struct{}{}
	}

	var remove []string
	for uri := range prev {
		if _, ok := next[uri]; !ok {
			remove = append(remove, uri)
		}
	}
	for _, resource := range toAdd {
		r.server.AddResource(resource, r.handler)
	}
	if len(remove) > 0 {
		r.server.RemoveResources(remove...)
	}

	r.mu.Lock()
	r.registered = next
	r.etag = etag
	r.mu.Unlock()

	r.logger.Debug("resources applied", zap.Int("count", len(next)), zap.Int("removed", len(remove)))
}

func (r *resourceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}

func validResourceURI(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme != ""
}
