// Package exportcache keeps exported Figma images addressable after their
// short-lived download URLs are issued.
//
// Each export registers an Entry under a deterministic figma:// URI. Bytes are
// fetched lazily on the first read and kept for the life of the process. An
// entry whose source URL is older than the TTL and was never downloaded can no
// longer be served and must be exported again.
package exportcache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/telemetry"
)

// DefaultTTL is how long a Figma export URL stays downloadable.
const DefaultTTL = time.Duration(domain.DefaultExportTTLSeconds) * time.Second

// Downloader fetches the bytes behind a source URL.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Entry is one exported artifact. Data is nil until the first successful download.
type Entry struct {
	FileKey   string
	NodeID    string
	Format    string
	Scale     float64
	SourceURL string
	Data      []byte
	CreatedAt time.Time
}

// Materialized reports whether the entry holds downloaded bytes.
func (e Entry) Materialized() bool {
	return e.Data != nil
}

// Size returns the number of cached bytes.
func (e Entry) Size() int {
	return len(e.Data)
}

func (e Entry) clone() Entry {
	out := e
	out.Data = copyBytes(e.Data)
	return out
}

// Listing pairs an entry with its URI.
type Listing struct {
	URI   string
	Entry Entry
}

type Options struct {
	TTL     time.Duration
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// Cache maps resource URIs to exported entries.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	metrics domain.Metrics
}

func New(opts Options) *Cache {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Cache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     now,
		logger:  logger.Named("exportcache"),
		metrics: metrics,
	}
}

// ResourceURI returns the deterministic URI for an export. Non-unit scales are
// truncated to an integer suffix.
func ResourceURI(fileKey, nodeID, format string, scale float64) string {
	if scale != 1.0 {
		return fmt.Sprintf("%s://file/%s/node/%s@%dx.%s", domain.ResourceScheme, fileKey, nodeID, uint32(scale), format)
	}
	return fmt.Sprintf("%s://file/%s/node/%s.%s", domain.ResourceScheme, fileKey, nodeID, format)
}

// Register records a fresh export and returns its URI. An existing entry with
// the same URI is replaced, dropping any bytes it held.
func (c *Cache) Register(fileKey, nodeID, format string, scale float64, sourceURL string) (string, error) {
	if c == nil || c.entries == nil {
		return "", domain.E(domain.CodeInternal, "exportcache.Register", "cache not initialized", nil)
	}
	uri := ResourceURI(fileKey, nodeID, format, scale)
	entry := &Entry{
		FileKey:   fileKey,
		NodeID:    nodeID,
		Format:    format,
		Scale:     scale,
		SourceURL: sourceURL,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	_, replaced := c.entries[uri]
	c.entries[uri] = entry
	count := len(c.entries)
	c.mu.Unlock()

	if replaced {
		c.logger.Debug("export entry replaced", telemetry.URIField(uri))
	}
	c.metrics.ObserveExportRegistered(strings.ToLower(format))
	c.metrics.SetCachedResources(count)
	return uri, nil
}

// ListAll returns a copy of every entry in map order.
func (c *Cache) ListAll() ([]Listing, error) {
	if c == nil || c.entries == nil {
		return nil, domain.E(domain.CodeInternal, "exportcache.ListAll", "cache not initialized", nil)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Listing, 0, len(c.entries))
	for uri, entry := range c.entries {
		out = append(out, Listing{URI: uri, Entry: entry.clone()})
	}
	return out, nil
}

// Get returns a copy of the entry for uri.
func (c *Cache) Get(uri string) (Entry, bool) {
	if c == nil || c.entries == nil {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[uri]
	if !ok {
		return Entry{}, false
	}
	return entry.clone(), true
}

// UpdateCachedData stores downloaded bytes on an existing entry.
func (c *Cache) UpdateCachedData(uri string, data []byte) error {
	if c == nil || c.entries == nil {
		return domain.E(domain.CodeInternal, "exportcache.UpdateCachedData", "cache not initialized", nil)
	}
	if data == nil {
		data = []byte{}
	}
	stored := copyBytes(data)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[uri]
	if !ok {
		return domain.E(domain.CodeNotFound, "exportcache.UpdateCachedData", "resource not found: "+uri, domain.ErrResourceNotFound)
	}
	entry.Data = stored
	return nil
}

// storeDownloaded sets data on uri only while it still holds the registration
// described by from. It reports whether the bytes were stored.
func (c *Cache) storeDownloaded(uri string, from Entry, data []byte) (bool, error) {
	if c == nil || c.entries == nil {
		return false, domain.E(domain.CodeInternal, "exportcache.storeDownloaded", "cache not initialized", nil)
	}
	stored := copyBytes(data)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[uri]
	if !ok {
		return false, domain.E(domain.CodeNotFound, "exportcache.storeDownloaded", "resource not found: "+uri, domain.ErrResourceNotFound)
	}
	if entry.SourceURL != from.SourceURL || !entry.CreatedAt.Equal(from.CreatedAt) {
		return false, nil
	}
	entry.Data = stored
	return true, nil
}

// IsExpired reports whether the entry's source URL is past the TTL. An
// unusable clock reading counts as expired.
func (c *Cache) IsExpired(entry Entry) bool {
	if entry.CreatedAt.IsZero() {
		return true
	}
	now := c.now()
	if now.Before(entry.CreatedAt) {
		return true
	}
	return now.Sub(entry.CreatedAt) > c.ttl
}

// TTL returns the source URL lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MIMETypeFor maps an export format to a MIME type.
func MIMETypeFor(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "svg":
		return "image/svg+xml"
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// FormatScale renders a scale the way it appears in descriptions.
func FormatScale(scale float64) string {
	return strconv.FormatFloat(scale, 'f', -1, 64)
}

func copyBytes(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
