// Package gateway exposes the Figma API and exported images over MCP.
package gateway

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/exportcache"
	"figmamcp/internal/infra/figmaurl"
	"figmamcp/internal/infra/hashutil"
)

const (
	DefaultServerName = "figmamcp"

	serverInstructions = "A Figma MCP server that provides tools to access Figma files and export images. Use 'help' tool for usage instructions."
)

type Options struct {
	Name     string
	Version  string
	Resolver *figmaurl.Resolver
	Logger   *zap.Logger
}

// Server maps MCP tools and resources onto the Figma API and the export cache.
type Server struct {
	api       FigmaAPI
	cache     *exportcache.Cache
	resolver  *figmaurl.Resolver
	logger    *zap.Logger
	server    *mcp.Server
	resources *resourceRegistry

	// syncMu keeps a listing and its apply together so an older listing
	// never replaces a newer one.
	syncMu sync.Mutex
}

func NewServer(api FigmaAPI, cache *exportcache.Cache, opts Options) (*Server, error) {
	if api == nil {
		return nil, domain.E(domain.CodeInternal, "gateway.NewServer", "figma api is required", nil)
	}
	if cache == nil {
		return nil, domain.E(domain.CodeInternal, "gateway.NewServer", "export cache is required", nil)
	}
	name := opts.Name
	if name == "" {
		name = DefaultServerName
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = figmaurl.NewResolver()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		api:      api,
		cache:    cache,
		resolver: resolver,
		logger:   logger.Named("gateway"),
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: serverInstructions,
		HasTools:     true,
		HasResources: true,
	})
	s.resources = newResourceRegistry(s.server, s.readResource, s.logger)

	if err := s.registerTools(); err != nil {
		return nil, err
	}
	s.syncResources()
	return s, nil
}

// MCPServer returns the underlying go-sdk server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Run serves a single session over transport until it closes or ctx is done.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	err := s.server.Run(ctx, transport)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// RunStdio serves MCP over stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("gateway starting (stdio transport)")
	return s.Run(ctx, &mcp.StdioTransport{})
}

// syncResources publishes the cache contents as MCP resources.
func (s *Server) syncResources() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	listings, err := s.cache.ListAll()
	if err != nil {
		s.logger.Warn("list cached exports failed", zap.Error(err))
		return
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].URI < listings[j].URI
	})

	resources := make([]*mcp.Resource, 0, len(listings))
	for _, listing := range listings {
		resources = append(resources, describeResource(listing))
	}
	s.resources.ApplySnapshot(hashutil.ResourceETag(s.logger, resources), resources)
}
