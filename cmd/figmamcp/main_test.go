package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"figmamcp/internal/domain"
)

func TestResolveURL(t *testing.T) {
	var out bytes.Buffer
	err := resolveURL(&out, "https://www.figma.com/file/ABC123/Design?node-id=1%3A2")
	require.NoError(t, err)
	require.Contains(t, out.String(), `"file_id": "ABC123"`)
	require.Contains(t, out.String(), `"kind": "file"`)
}

func TestResolveURLRejectsForeignHost(t *testing.T) {
	var out bytes.Buffer
	err := resolveURL(&out, "https://example.com/file/ABC123")
	require.ErrorContains(t, err, "Not a Figma URL")
	require.Empty(t, out.String())
}

func TestBuildOverrideOnlyAppliesChangedFlags(t *testing.T) {
	root := newRootCmd(zap.NewNop())
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serve.ParseFlags([]string{"--transport", "streamable-http", "--http-path", "/figma"}))

	opts := &serveOptions{transport: "streamable-http", httpPath: "/figma", httpAddr: "ignored"}
	override := buildOverride(serve.Flags(), &rootOptions{}, opts)
	require.NotNil(t, override)

	cfg := domain.DefaultConfig()
	override(&cfg)
	require.Equal(t, domain.TransportStreamableHTTP, cfg.Server.Transport)
	require.Equal(t, "/figma", cfg.Server.HTTPPath)
	require.Equal(t, domain.DefaultHTTPListenAddress, cfg.Server.HTTPAddr)
}

func TestBuildOverrideNoFlags(t *testing.T) {
	root := newRootCmd(zap.NewNop())
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, serve.ParseFlags(nil))

	require.Nil(t, buildOverride(serve.Flags(), &rootOptions{}, &serveOptions{}))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd(zap.NewNop())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "figmamcp dev")
}
