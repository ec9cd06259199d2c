package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/dentdir"
)

// Ensure LoggingKVStore implements dentdir.KVStore.
var _ dentdir.KVStore = (*LoggingKVStore)(nil)

// LoggingKVStore wraps a KVStore with debug logging. Values are never
// logged, only their size.
type LoggingKVStore struct {
	next   dentdir.KVStore
	logger *slog.Logger
}

// NewLoggingKVStore creates a new LoggingKVStore.
func NewLoggingKVStore(next dentdir.KVStore, logger *slog.Logger) *LoggingKVStore {
	return &LoggingKVStore{next: next, logger: logger}
}

// Get delegates to the wrapped store and logs the read.
func (s *LoggingKVStore) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	defer func(begin time.Time) {
		s.logger.Debug("kv get",
			"key", key,
			"found", ok,
			"bytes", len(value),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Get(ctx, key)
}

// Set delegates to the wrapped store and logs the write.
func (s *LoggingKVStore) Set(ctx context.Context, key, value string) (err error) {
	defer func(begin time.Time) {
		level := slog.LevelDebug
		if err != nil {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "kv set",
			"key", key,
			"bytes", len(value),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Set(ctx, key, value)
}
