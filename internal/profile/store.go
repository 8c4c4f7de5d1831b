package profile

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store combines the cache and the remote. Reads prefer a fresh cache
// entry; when the remote cannot answer, a stale entry still wins over an
// error so the app keeps working offline.
type Store struct {
	cache  *Cache
	remote RemoteStore
}

// NewStore creates a profile store with the given cache TTL.
func NewStore(remote RemoteStore, ttl time.Duration) *Store {
	return &Store{
		cache:  NewCache(ttl),
		remote: remote,
	}
}

// Get returns the profile for uid. A fresh cached entry short-circuits the
// remote. Otherwise the remote is tried with a budget of MaxRetries
// retries; on success the cache is refreshed. On failure — or an
// authoritative remote miss — any cached entry, expired or not, is
// returned. ErrNotFound means no cached entry ever existed and the remote
// has none either.
func (s *Store) Get(ctx context.Context, uid string) (*Profile, error) {
	cached, fresh, ok := s.cache.Get(uid)
	if ok && fresh {
		return &cached, nil
	}

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		p, err := s.remote.Fetch(ctx, uid)
		if err == nil {
			s.cache.Put(uid, *p)
			return p, nil
		}
		if errors.Is(err, ErrNotFound) {
			lastErr = nil
			break // retrying an authoritative miss is pointless
		}
		lastErr = err
	}

	if ok {
		return &cached, nil
	}
	if lastErr == nil {
		return nil, fmt.Errorf("profile %s: %w", uid, ErrNotFound)
	}
	return nil, lastErr
}

// Put writes through to the remote and refreshes the cache. The cache is
// updated even when the remote write fails, so the local app sees its own
// edit; the error is still returned for the caller to surface.
func (s *Store) Put(ctx context.Context, uid string, p Profile) error {
	p.UID = uid
	p.UpdatedAt = time.Now().UTC()
	s.cache.Put(uid, p)

	if err := s.remote.Save(ctx, uid, p); err != nil {
		return fmt.Errorf("save profile %s: %w", uid, err)
	}
	return nil
}
