package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"figmamcp/internal/domain"
)

const httpShutdownTimeout = 5 * time.Second

type HTTPOptions struct {
	Addr         string
	Path         string
	Token        string
	JSONResponse bool
}

// HTTPHandler serves MCP over streamable HTTP at opts.Path. A non-empty
// Token requires a matching bearer Authorization header.
func (s *Server) HTTPHandler(opts HTTPOptions) http.Handler {
	path := opts.Path
	if path == "" {
		path = domain.DefaultHTTPPath
	}
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{JSONResponse: opts.JSONResponse})

	var handler http.Handler = streamable
	if opts.Token != "" {
		handler = bearerAuth(opts.Token, handler)
	}

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	return mux
}

// RunStreamableHTTP listens on opts.Addr until ctx is done.
func (s *Server) RunStreamableHTTP(ctx context.Context, opts HTTPOptions) error {
	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultHTTPListenAddress
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("gateway starting (streamable http transport)",
			zap.String("addr", addr),
			zap.String("path", opts.Path),
			zap.Bool("auth", opts.Token != ""),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("streamable http server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("streamable http shutdown error", zap.Error(err))
			return err
		}
		s.logger.Info("streamable http server stopped")
		return nil
	}
}

func bearerAuth(token string, next http.Handler) http.Handler {
	expected := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			w.Header().Set("WWW-Authenticate", `Bearer realm="figmamcp"`)
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(value)), expected) != 1 {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
