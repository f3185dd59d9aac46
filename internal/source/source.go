// Package source fetches raw comment records for a video URL from the
// supported platforms.
package source

import (
	"context"
	stderrors "errors"
	"fmt"

	"seedwatch/internal/ingest"
	"seedwatch/pkg/logger"
)

// ErrNotConfigured is returned when the platform has no credentials
var ErrNotConfigured = stderrors.New("comment source is not configured")

// Fetcher retrieves the comments of one video
type Fetcher interface {
	Platform() Platform
	Configured() bool
	Fetch(ctx context.Context, target Target) ([]ingest.Record, error)
}

// FetchObserver records fetch outcomes
type FetchObserver interface {
	ObserveSourceFetch(platform string, err error)
}

// Registry dispatches a target to the fetcher for its platform
type Registry struct {
	fetchers map[Platform]Fetcher
	observer FetchObserver
	logger   *logger.Logger
}

// NewRegistry creates a registry. observer may be nil.
func NewRegistry(log *logger.Logger, observer FetchObserver, fetchers ...Fetcher) *Registry {
	r := &Registry{
		fetchers: make(map[Platform]Fetcher, len(fetchers)),
		observer: observer,
		logger:   log,
	}
	for _, f := range fetchers {
		r.fetchers[f.Platform()] = f
	}
	return r
}

// Fetch returns the raw comment records for target
func (r *Registry) Fetch(ctx context.Context, target Target) ([]ingest.Record, error) {
	f, ok := r.fetchers[target.Platform]
	if !ok || !f.Configured() {
		return nil, fmt.Errorf("%s: %w", target.Platform, ErrNotConfigured)
	}

	records, err := f.Fetch(ctx, target)
	if r.observer != nil {
		r.observer.ObserveSourceFetch(string(target.Platform), err)
	}
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"platform": target.Platform,
			"url":      target.URL,
		}).WithError(err).Warn("Failed to fetch comments")
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"platform": target.Platform,
		"video_id": target.VideoID,
		"count":    len(records),
	}).Info("Fetched comments")
	return records, nil
}

// Status reports, per platform, whether a fetcher is configured
func (r *Registry) Status() map[Platform]bool {
	status := make(map[Platform]bool, len(r.fetchers))
	for p, f := range r.fetchers {
		status[p] = f.Configured()
	}
	return status
}
