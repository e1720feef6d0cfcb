package gateway

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/figmaapi"
	"figmamcp/internal/infra/jsonutil"
	"figmamcp/internal/infra/telemetry"
)

const (
	ToolParseFigmaURL = "parse_figma_url"
	ToolGetFile       = "get_file"
	ToolGetFileNodes  = "get_file_nodes"
	ToolExportImages  = "export_images"
	ToolGetMe         = "get_me"
	ToolHelp          = "help"
)

var exportFormats = []any{"jpg", "png", "svg", "pdf"}

type parseURLInput struct {
	URL string `json:"url" jsonschema:"Figma URL to parse"`
}

type getFileInput struct {
	FileKey string `json:"file_key" jsonschema:"Figma file key (from parse_figma_url)"`
	Depth   *int   `json:"depth,omitempty" jsonschema:"Depth of the document tree to return (default 1)"`
}

type getFileNodesInput struct {
	FileKey string `json:"file_key" jsonschema:"Figma file key (from parse_figma_url)"`
	NodeIDs string `json:"node_ids" jsonschema:"Comma-separated list of node IDs"`
	Depth   *int   `json:"depth,omitempty" jsonschema:"Depth of the subtree to return below each node (default 1)"`
}

type exportImagesInput struct {
	FileKey string   `json:"file_key" jsonschema:"Figma file key (from parse_figma_url)"`
	NodeIDs string   `json:"node_ids" jsonschema:"Comma-separated list of node IDs to export"`
	Format  *string  `json:"format,omitempty" jsonschema:"Image format: jpg, png, svg or pdf (default png)"`
	Scale   *float64 `json:"scale,omitempty" jsonschema:"Scale factor (default 1.0)"`
}

type noInput struct{}

// toolFunc produces the content of a successful call.
type toolFunc[In any] func(ctx context.Context, in In) ([]mcp.Content, error)

func (s *Server) registerTools() error {
	parseSchema, err := inputSchema[parseURLInput](nil)
	if err != nil {
		return err
	}
	getFileSchema, err := inputSchema[getFileInput](func(schema *jsonschema.Schema) {
		setMinimum(schema, "depth", 1)
	})
	if err != nil {
		return err
	}
	getNodesSchema, err := inputSchema[getFileNodesInput](func(schema *jsonschema.Schema) {
		setMinimum(schema, "depth", 1)
	})
	if err != nil {
		return err
	}
	exportSchema, err := inputSchema[exportImagesInput](func(schema *jsonschema.Schema) {
		if prop := schema.Properties["format"]; prop != nil {
			prop.Enum = exportFormats
		}
		if prop := schema.Properties["scale"]; prop != nil {
			zero := 0.0
			prop.ExclusiveMinimum = &zero
		}
	})
	if err != nil {
		return err
	}
	emptySchema, err := inputSchema[noInput](nil)
	if err != nil {
		return err
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolParseFigmaURL,
		Description: "Parse a Figma URL to extract IDs and determine the URL type",
		InputSchema: parseSchema,
	}, instrument(s, ToolParseFigmaURL, "Error parsing URL", s.parseFigmaURL))
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGetFile,
		Description: "Get file contents from a Figma file using file key",
		InputSchema: getFileSchema,
	}, instrument(s, ToolGetFile, "Error fetching file", s.getFile))
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGetFileNodes,
		Description: "Get specific nodes from a file using file key",
		InputSchema: getNodesSchema,
	}, instrument(s, ToolGetFileNodes, "Error fetching file nodes", s.getFileNodes))
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolExportImages,
		Description: "Export images from a Figma file using file key. Exported images become readable MCP resources.",
		InputSchema: exportSchema,
	}, instrument(s, ToolExportImages, "Error exporting images", s.exportImages))
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolGetMe,
		Description: "Get current user information (useful for testing authentication)",
		InputSchema: emptySchema,
	}, instrument(s, ToolGetMe, "Error fetching user info", s.getMe))
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolHelp,
		Description: "Help: How to use this Figma file MCP server",
		InputSchema: emptySchema,
	}, instrument(s, ToolHelp, "Error rendering help", s.help))
	return nil
}

func inputSchema[T any](tweak func(*jsonschema.Schema)) (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "gateway.inputSchema", "build tool input schema", err)
	}
	if tweak != nil {
		tweak(schema)
	}
	return schema, nil
}

func setMinimum(schema *jsonschema.Schema, property string, minimum float64) {
	if prop := schema.Properties[property]; prop != nil {
		prop.Minimum = &minimum
	}
}

// instrument tags the call with a request id, logs it and renders failures as
// tool errors so the session stays usable.
func instrument[In any](s *Server, name, errPrefix string, fn toolFunc[In]) mcp.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		ctx, _ = telemetry.StartRequest(ctx, name)
		logger := telemetry.LoggerWithRequest(ctx, s.logger)
		start := time.Now()

		content, err := fn(ctx, in)
		if err != nil {
			logger.Warn("tool call failed",
				telemetry.EventField(telemetry.EventToolError),
				telemetry.DurationField(time.Since(start)),
				zap.Error(err),
			)
			return toolError(errPrefix + ": " + userMessage(err)), nil, nil
		}
		logger.Debug("tool call completed",
			telemetry.EventField(telemetry.EventToolCall),
			telemetry.DurationField(time.Since(start)),
		)
		return &mcp.CallToolResult{Content: content}, nil, nil
	}
}

func toolError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}

// userMessage strips the op and code prefix from coded errors.
func userMessage(err error) string {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	return err.Error()
}

func textContent(text string) []mcp.Content {
	return []mcp.Content{&mcp.TextContent{Text: text}}
}

func prettyJSON(v any) ([]mcp.Content, error) {
	out, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "gateway.prettyJSON", "serialization error", err)
	}
	return textContent(string(out)), nil
}

// splitNodeIDs splits a comma-separated id list, trimming blanks and dropping
// empty entries.
func splitNodeIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, part := range parts {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func requireFileKey(op, fileKey string) (string, error) {
	fileKey = strings.TrimSpace(fileKey)
	if fileKey == "" {
		return "", domain.E(domain.CodeInvalidArgument, op, "file_key is required", nil)
	}
	return fileKey, nil
}

func requireNodeIDs(op, raw string) ([]string, error) {
	ids := splitNodeIDs(raw)
	if len(ids) == 0 {
		return nil, domain.E(domain.CodeInvalidArgument, op, "node_ids must contain at least one id", nil)
	}
	return ids, nil
}

func depthOrDefault(depth *int) *int {
	value := domain.DefaultDepth
	if depth != nil {
		value = *depth
	}
	return &value
}

func (s *Server) parseFigmaURL(_ context.Context, in parseURLInput) ([]mcp.Content, error) {
	info, err := s.resolver.Parse(strings.TrimSpace(in.URL))
	if err != nil {
		return nil, err
	}
	return prettyJSON(info)
}

func (s *Server) getFile(ctx context.Context, in getFileInput) ([]mcp.Content, error) {
	fileKey, err := requireFileKey("gateway.getFile", in.FileKey)
	if err != nil {
		return nil, err
	}
	doc, err := s.api.GetFile(ctx, fileKey, depthOrDefault(in.Depth))
	if err != nil {
		return nil, err
	}
	return prettyJSON(doc)
}

func (s *Server) getFileNodes(ctx context.Context, in getFileNodesInput) ([]mcp.Content, error) {
	const op = "gateway.getFileNodes"
	fileKey, err := requireFileKey(op, in.FileKey)
	if err != nil {
		return nil, err
	}
	ids, err := requireNodeIDs(op, in.NodeIDs)
	if err != nil {
		return nil, err
	}
	doc, err := s.api.GetFileNodes(ctx, fileKey, ids, depthOrDefault(in.Depth))
	if err != nil {
		return nil, err
	}
	return prettyJSON(doc)
}

func (s *Server) exportImages(ctx context.Context, in exportImagesInput) ([]mcp.Content, error) {
	const op = "gateway.exportImages"
	fileKey, err := requireFileKey(op, in.FileKey)
	if err != nil {
		return nil, err
	}
	ids, err := requireNodeIDs(op, in.NodeIDs)
	if err != nil {
		return nil, err
	}
	format := domain.DefaultExportFormat
	if in.Format != nil && *in.Format != "" {
		format = *in.Format
	}
	scale := domain.DefaultExportScale
	if in.Scale != nil {
		scale = *in.Scale
	}

	doc, err := s.api.ExportImages(ctx, fileKey, ids, format, in.Scale)
	if err != nil {
		return nil, err
	}

	uris := s.registerExports(ctx, fileKey, format, scale, figmaapi.ImageURLs(doc))
	content, err := prettyJSON(doc)
	if err != nil {
		return nil, err
	}
	if len(uris) > 0 {
		var b strings.Builder
		b.WriteString("Registered resources:")
		for _, uri := range uris {
			b.WriteString("\n- ")
			b.WriteString(uri)
		}
		content = append(content, &mcp.TextContent{Text: b.String()})
	}
	return content, nil
}

// registerExports records each exported image in the cache. Failures are
// logged and skipped so one bad entry does not fail the export.
func (s *Server) registerExports(ctx context.Context, fileKey, format string, scale float64, images map[string]string) []string {
	logger := telemetry.LoggerWithRequest(ctx, s.logger)
	nodeIDs := make([]string, 0, len(images))
	for nodeID := range images {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Strings(nodeIDs)

	uris := make([]string, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		uri, err := s.cache.Register(fileKey, nodeID, format, scale, images[nodeID])
		if err != nil {
			logger.Warn("register export failed",
				telemetry.FileKeyField(fileKey),
				zap.String("node_id", nodeID),
				zap.Error(err),
			)
			continue
		}
		logger.Debug("export registered",
			telemetry.EventField(telemetry.EventExport),
			telemetry.URIField(uri),
		)
		uris = append(uris, uri)
	}
	if len(uris) > 0 {
		s.syncResources()
	}
	return uris
}

func (s *Server) getMe(ctx context.Context, _ noInput) ([]mcp.Content, error) {
	doc, err := s.api.GetMe(ctx)
	if err != nil {
		return nil, err
	}
	return prettyJSON(doc)
}

func (s *Server) help(_ context.Context, _ noInput) ([]mcp.Content, error) {
	return textContent(helpText), nil
}
