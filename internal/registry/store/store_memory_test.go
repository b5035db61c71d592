package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type InMemoryCacheSuite struct {
	suite.Suite
	cache *InMemoryCache
}

func (s *InMemoryCacheSuite) SetupTest() {
	s.cache = NewInMemoryCache()
}

func TestInMemoryCacheSuite(t *testing.T) {
	suite.Run(t, new(InMemoryCacheSuite))
}

func (s *InMemoryCacheSuite) TestSave() {
	ctx := context.Background()

	s.Run("saves and retrieves an entry", func() {
		err := s.cache.Save(ctx, "mf_lookup_nip_1234563218", []byte(`{"status":"found"}`), time.Minute)
		s.Require().NoError(err)

		value, err := s.cache.Get(ctx, "mf_lookup_nip_1234563218")
		s.Require().NoError(err)
		s.Equal([]byte(`{"status":"found"}`), value)
	})

	s.Run("overwrites an existing entry under the same key", func() {
		_ = s.cache.Save(ctx, "key", []byte("one"), time.Minute)
		_ = s.cache.Save(ctx, "key", []byte("two"), time.Minute)

		value, err := s.cache.Get(ctx, "key")
		s.Require().NoError(err)
		s.Equal([]byte("two"), value)
	})

	s.Run("each entry carries its own TTL", func() {
		_ = s.cache.Save(ctx, "short", []byte("a"), time.Millisecond)
		_ = s.cache.Save(ctx, "long", []byte("b"), time.Minute)

		time.Sleep(5 * time.Millisecond)

		_, err := s.cache.Get(ctx, "short")
		s.ErrorIs(err, ErrNotFound)
		_, err = s.cache.Get(ctx, "long")
		s.NoError(err)
	})

	s.Run("handles concurrent saves without race conditions", func() {
		cache := NewInMemoryCache()
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				key := fmt.Sprintf("key-%d", idx%10)
				_ = cache.Save(ctx, key, []byte("v"), time.Minute)
				_, _ = cache.Get(ctx, key)
			}(i)
		}
		wg.Wait()
	})
}

func (s *InMemoryCacheSuite) TestGet() {
	ctx := context.Background()

	s.Run("returns ErrNotFound when the entry does not exist", func() {
		_, err := s.cache.Get(ctx, "absent")
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("returns ErrNotFound when the entry expired", func() {
		_ = s.cache.Save(ctx, "key", []byte("v"), time.Millisecond)
		time.Sleep(5 * time.Millisecond)

		_, err := s.cache.Get(ctx, "key")
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *InMemoryCacheSuite) TestEviction() {
	ctx := context.Background()

	s.Run("evicts the least recently accessed entry at capacity", func() {
		cache := NewInMemoryCache(WithMaxSize(3))

		for i := 1; i <= 3; i++ {
			_ = cache.Save(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Minute)
			time.Sleep(time.Millisecond)
		}

		// Touch key-2 and key-3 so key-1 becomes the eviction candidate.
		_, _ = cache.Get(ctx, "key-2")
		_, _ = cache.Get(ctx, "key-3")

		_ = cache.Save(ctx, "key-4", []byte("v"), time.Minute)

		_, err := cache.Get(ctx, "key-1")
		s.ErrorIs(err, ErrNotFound)
		for _, key := range []string{"key-2", "key-3", "key-4"} {
			_, err := cache.Get(ctx, key)
			s.NoError(err)
		}
	})

	s.Run("overwriting at capacity does not evict", func() {
		cache := NewInMemoryCache(WithMaxSize(2))
		_ = cache.Save(ctx, "a", []byte("1"), time.Minute)
		_ = cache.Save(ctx, "b", []byte("2"), time.Minute)
		_ = cache.Save(ctx, "a", []byte("3"), time.Minute)

		s.Equal(2, cache.Size())
		value, err := cache.Get(ctx, "a")
		s.Require().NoError(err)
		s.Equal([]byte("3"), value)
	})
}

func (s *InMemoryCacheSuite) TestCleanupExpired() {
	ctx := context.Background()

	s.Run("removes expired entries", func() {
		cache := NewInMemoryCache()
		_ = cache.Save(ctx, "stale", []byte("v"), time.Millisecond)
		_ = cache.Save(ctx, "fresh", []byte("v"), time.Minute)

		time.Sleep(5 * time.Millisecond)
		cache.CleanupExpired()

		s.Equal(1, cache.Size())
		_, err := cache.Get(ctx, "fresh")
		s.NoError(err)
	})
}
