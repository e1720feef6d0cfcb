package gateway

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestResourceRegistry_ApplySnapshotRegistersAndRemovesResources(t *testing.T) {
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "gateway", Version: "0.1.0"}, &mcp.ServerOptions{HasResources: true})

	registry := newResourceRegistry(server, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: req.Params.URI, Text: "ok"}},
		}, nil
	}, zap.NewNop())

	registry.ApplySnapshot("v1", []*mcp.Resource{
		{URI: "figma://file/A/node/1:2.png", Name: "Node 1:2 Export", MIMEType: "image/png"},
		{URI: "not a uri", Name: "skipped"},
		nil,
	})
	require.Equal(t, 1, registry.Len())

	_, session := connectClient(t, ctx, server)
	defer session.Close()

	resources, err := session.ListResources(ctx, &mcp.ListResourcesParams{})
	require.NoError(t, err)
	require.Len(t, resources.Resources, 1)
	require.Equal(t, "figma://file/A/node/1:2.png", resources.Resources[0].URI)

	read, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: "figma://file/A/node/1:2.png"})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	require.Equal(t, "ok", read.Contents[0].Text)

	registry.ApplySnapshot("v2", nil)
	require.Zero(t, registry.Len())

	resources, err = session.ListResources(ctx, &mcp.ListResourcesParams{})
	require.NoError(t, err)
	require.Len(t, resources.Resources, 0)
}

func TestResourceRegistry_SameETagIsIgnored(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "gateway", Version: "0.1.0"}, &mcp.ServerOptions{HasResources: true})
	registry := newResourceRegistry(server, nil, nil)

	registry.ApplySnapshot("v1", []*mcp.Resource{{URI: "figma://file/A/node/1:2.png", Name: "a"}})
	registry.ApplySnapshot("v1", nil)
	require.Equal(t, 1, registry.Len())
}

func connectClient(t *testing.T, ctx context.Context, server *mcp.Server) (*mcp.Client, *mcp.ClientSession) {
	t.Helper()
	ct, st := mcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)
	return client, session
}
