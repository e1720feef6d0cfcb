package domain

import "time"

// FetchResult classifies a resource read.
type FetchResult string

const (
	FetchResultCacheHit   FetchResult = "cache_hit"
	FetchResultDownloaded FetchResult = "downloaded"
	FetchResultExpired    FetchResult = "expired"
	FetchResultNotFound   FetchResult = "not_found"
	FetchResultError      FetchResult = "error"
)

// Metrics records cache and API observations.
type Metrics interface {
	ObserveAPIRequest(endpoint string, status int, duration time.Duration, err error)
	ObserveExportRegistered(format string)
	ObserveResourceFetch(result FetchResult, duration time.Duration)
	SetCachedResources(count int)
}
