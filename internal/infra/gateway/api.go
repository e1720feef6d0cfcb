package gateway

import (
	"context"

	"figmamcp/internal/infra/figmaapi"
)

// FigmaAPI is the subset of the Figma client the server calls.
type FigmaAPI interface {
	GetFile(ctx context.Context, fileKey string, depth *int) (figmaapi.Document, error)
	GetFileNodes(ctx context.Context, fileKey string, ids []string, depth *int) (figmaapi.Document, error)
	ExportImages(ctx context.Context, fileKey string, ids []string, format string, scale *float64) (figmaapi.Document, error)
	GetMe(ctx context.Context) (figmaapi.Document, error)
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

var (
	_ FigmaAPI = (*figmaapi.Client)(nil)
	_ FigmaAPI = (*figmaapi.SwappableClient)(nil)
)

type downloaderFunc func(ctx context.Context, rawURL string) ([]byte, error)

func (f downloaderFunc) Download(ctx context.Context, rawURL string) ([]byte, error) {
	return f(ctx, rawURL)
}
