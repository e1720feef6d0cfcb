package exportcache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"figmamcp/internal/domain"
	"figmamcp/internal/infra/telemetry"
)

// Fetch returns the entry for uri with its bytes, downloading them on first use.
//
// No lock is held while downloading. Two concurrent fetches of the same
// unmaterialized entry may both download; the later write wins. Bytes are
// dropped if the URI was registered again while they were downloading.
func (c *Cache) Fetch(ctx context.Context, uri string, downloader Downloader) (Entry, error) {
	const op = "exportcache.Fetch"
	start := time.Now()

	entry, ok := c.Get(uri)
	if !ok {
		c.metrics.ObserveResourceFetch(domain.FetchResultNotFound, time.Since(start))
		return Entry{}, domain.E(domain.CodeNotFound, op, "resource not found: "+uri, domain.ErrResourceNotFound)
	}
	if entry.Materialized() {
		c.metrics.ObserveResourceFetch(domain.FetchResultCacheHit, time.Since(start))
		return entry, nil
	}
	if c.IsExpired(entry) {
		c.metrics.ObserveResourceFetch(domain.FetchResultExpired, time.Since(start))
		return Entry{}, domain.E(domain.CodeExpired, op, "figma url has expired, please re-export the image", domain.ErrResourceExpired)
	}
	if downloader == nil {
		c.metrics.ObserveResourceFetch(domain.FetchResultError, time.Since(start))
		return Entry{}, domain.E(domain.CodeInternal, op, "no downloader configured", nil)
	}

	logger := telemetry.LoggerWithRequest(ctx, c.logger)
	data, err := downloader.Download(ctx, entry.SourceURL)
	if err != nil {
		c.metrics.ObserveResourceFetch(domain.FetchResultError, time.Since(start))
		logger.Warn("export download failed", telemetry.URIField(uri), zap.Error(err))
		return Entry{}, domain.Wrap(domain.CodeNetwork, op, err)
	}
	if data == nil {
		data = []byte{}
	}

	stored, err := c.storeDownloaded(uri, entry, data)
	switch {
	case err != nil:
		// The entry vanished between lookup and persist; serve the bytes anyway.
		logger.Warn("persist downloaded export failed", telemetry.URIField(uri), zap.Error(err))
	case !stored:
		logger.Info("export re-registered during download, bytes not stored", telemetry.URIField(uri))
	}
	entry.Data = copyBytes(data)
	c.metrics.ObserveResourceFetch(domain.FetchResultDownloaded, time.Since(start))
	logger.Debug("export materialized",
		telemetry.URIField(uri),
		zap.Int("bytes", len(data)),
		telemetry.DurationField(time.Since(start)),
	)
	return entry, nil
}
