package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/exportcache"
	"figmamcp/internal/infra/telemetry"
)

func describeResource(listing exportcache.Listing) *mcp.Resource {
	entry := listing.Entry
	resource := &mcp.Resource{
		URI:  listing.URI,
		Name: fmt.Sprintf("Node %s Export", entry.NodeID),
		Description: fmt.Sprintf("Exported from Figma file %s as %s (%sx scale)",
			entry.FileKey, entry.Format, exportcache.FormatScale(entry.Scale)),
		MIMEType: exportcache.MIMETypeFor(entry.Format),
	}
	if entry.Materialized() {
		resource.Size = int64(entry.Size())
	}
	return resource
}

// readResource serves resources/read, downloading the export on first use.
func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if req == nil || req.Params == nil || req.Params.URI == "" {
		return nil, domain.E(domain.CodeInvalidArgument, "gateway.readResource", "resource uri is required", nil)
	}
	uri := req.Params.URI
	ctx, _ = telemetry.StartRequest(ctx, "resources/read")
	logger := telemetry.LoggerWithRequest(ctx, s.logger)
	start := time.Now()

	var downloaded atomic.Bool
	downloader := downloaderFunc(func(ctx context.Context, rawURL string) ([]byte, error) {
		downloaded.Store(true)
		return s.api.Download(ctx, rawURL)
	})

	entry, err := s.cache.Fetch(ctx, uri, downloader)
	if err != nil {
		logger.Warn("resource read failed",
			telemetry.EventField(telemetry.EventResourceRead),
			telemetry.URIField(uri),
			telemetry.DurationField(time.Since(start)),
			zap.Error(err),
		)
		if domain.IsCode(err, domain.CodeNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, errors.New(userMessage(err))
	}
	if downloaded.Load() {
		s.syncResources()
	}

	logger.Debug("resource read",
		telemetry.EventField(telemetry.EventResourceRead),
		telemetry.URIField(uri),
		zap.Int("bytes", entry.Size()),
		telemetry.DurationField(time.Since(start)),
	)
	data := entry.Data
	if data == nil {
		data = []byte{}
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: exportcache.MIMETypeFor(entry.Format),
			Blob:     data,
		}},
	}, nil
}
