package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"registra/internal/registry/models"
	"registra/internal/registry/store"
	"registra/pkg/domain"
)

// fromCache loads and decodes a cached lookup. Any cache trouble (backend
// failure, corrupt entry) degrades to a miss: a broken cache must slow
// lookups down, never break them.
func fromCache[T any](ctx context.Context, s *Service, key string, kind domain.Kind) *models.Lookup[T] {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.WarnContext(ctx, "cache read failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(string(kind))
		}
		return nil
	}

	var cached models.Lookup[T]
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.WarnContext(ctx, "cache entry corrupt, refetching",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(string(kind))
		}
		return nil
	}

	if s.metrics != nil {
		s.metrics.RecordCacheHit(string(kind))
	}
	cached.FromCache = true
	return &cached
}

// saveCache writes a completed lookup back with its TTL. A write failure is
// logged and swallowed: the caller already has its answer.
func (s *Service) saveCache(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.ErrorContext(ctx, "cache encode failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Save(ctx, key, data, ttl); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
