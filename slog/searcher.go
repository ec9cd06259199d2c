// Package slog provides log/slog decorators for dentdir services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/dentdir"
)

// Ensure LoggingSearcher implements dentdir.Searcher.
var _ dentdir.Searcher = (*LoggingSearcher)(nil)

// LoggingSearcher wraps a Searcher with logging.
type LoggingSearcher struct {
	next   dentdir.Searcher
	logger *slog.Logger
}

// NewLoggingSearcher creates a new LoggingSearcher.
func NewLoggingSearcher(next dentdir.Searcher, logger *slog.Logger) *LoggingSearcher {
	return &LoggingSearcher{next: next, logger: logger}
}

// Search delegates to the wrapped searcher and logs the call.
func (s *LoggingSearcher) Search(ctx context.Context, query string) (clinics []*dentdir.Clinic, err error) {
	defer func(begin time.Time) {
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "search",
			"query", query,
			"count", len(clinics),
			"duration", time.Since(begin),
			"code", dentdir.ErrorCode(err),
			"err", err,
		)
	}(time.Now())
	return s.next.Search(ctx, query)
}
