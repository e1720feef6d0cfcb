package figmaapi

import (
	"context"
	"sync/atomic"

	"figmamcp/internal/domain"
)

// SwappableClient forwards to the current Client. The config watcher swaps in
// a new client when the token changes; calls in flight finish on the old one.
type SwappableClient struct {
	current atomic.Pointer[Client]
}

func NewSwappableClient(client *Client) *SwappableClient {
	s := &SwappableClient{}
	s.current.Store(client)
	return s
}

// Swap installs next and returns the previous client.
func (s *SwappableClient) Swap(next *Client) *Client {
	return s.current.Swap(next)
}

func (s *SwappableClient) Current() *Client {
	return s.current.Load()
}

func (s *SwappableClient) load(op string) (*Client, error) {
	client := s.current.Load()
	if client == nil {
		return nil, domain.E(domain.CodeAuth, op, "figma client not configured", domain.ErrInvalidToken)
	}
	return client, nil
}

func (s *SwappableClient) GetFile(ctx context.Context, fileKey string, depth *int) (Document, error) {
	client, err := s.load("figmaapi.GetFile")
	if err != nil {
		return nil, err
	}
	return client.GetFile(ctx, fileKey, depth)
}

func (s *SwappableClient) GetFileNodes(ctx context.Context, fileKey string, ids []string, depth *int) (Document, error) {
	client, err := s.load("figmaapi.GetFileNodes")
	if err != nil {
		return nil, err
	}
	return client.GetFileNodes(ctx, fileKey, ids, depth)
}

func (s *SwappableClient) ExportImages(ctx context.Context, fileKey string, ids []string, format string, scale *float64) (Document, error) {
	client, err := s.load("figmaapi.ExportImages")
	if err != nil {
		return nil, err
	}
	return client.ExportImages(ctx, fileKey, ids, format, scale)
}

func (s *SwappableClient) GetMe(ctx context.Context) (Document, error) {
	client, err := s.load("figmaapi.GetMe")
	if err != nil {
		return nil, err
	}
	return client.GetMe(ctx)
}

func (s *SwappableClient) Download(ctx context.Context, rawURL string) ([]byte, error) {
	client, err := s.load("figmaapi.Download")
	if err != nil {
		return nil, err
	}
	return client.Download(ctx, rawURL)
}
