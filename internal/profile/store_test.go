package profile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var errRemoteDown = errors.New("remote unreachable")

// mockRemote implements RemoteStore with injectable behavior.
type mockRemote struct {
	FetchFunc  func(ctx context.Context, uid string) (*Profile, error)
	SaveFunc   func(ctx context.Context, uid string, p Profile) error
	fetchCalls int
}

func (m *mockRemote) Fetch(ctx context.Context, uid string) (*Profile, error) {
	m.fetchCalls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, uid)
	}
	return nil, fmt.Errorf("uid %s: %w", uid, ErrNotFound)
}

func (m *mockRemote) Save(ctx context.Context, uid string, p Profile) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, uid, p)
	}
	return nil
}

func TestStore_GetFetchesAndCaches(t *testing.T) {
	remote := &mockRemote{
		FetchFunc: func(ctx context.Context, uid string) (*Profile, error) {
			return &Profile{UID: uid, DisplayName: "Ada"}, nil
		},
	}
	store := NewStore(remote, time.Minute)

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.DisplayName != "Ada" {
		t.Errorf("unexpected profile: %+v", p)
	}

	// Second read is served from the cache.
	if _, err := store.Get(context.Background(), "u1"); err != nil {
		t.Fatalf("cached Get failed: %v", err)
	}
	if remote.fetchCalls != 1 {
		t.Errorf("expected 1 remote fetch, got %d", remote.fetchCalls)
	}
}

func TestStore_GetRetriesOnce(t *testing.T) {
	calls := 0
	remote := &mockRemote{
		FetchFunc: func(ctx context.Context, uid string) (*Profile, error) {
			calls++
			if calls == 1 {
				return nil, errRemoteDown
			}
			return &Profile{UID: uid, DisplayName: "second try"}, nil
		},
	}
	store := NewStore(remote, time.Minute)

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.DisplayName != "second try" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestStore_GetRetryBudgetExhausted(t *testing.T) {
	remote := &mockRemote{
		FetchFunc: func(ctx context.Context, uid string) (*Profile, error) {
			return nil, errRemoteDown
		},
	}
	store := NewStore(remote, time.Minute)

	_, err := store.Get(context.Background(), "u1")
	if !errors.Is(err, errRemoteDown) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if remote.fetchCalls != MaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", MaxRetries+1, remote.fetchCalls)
	}
}

func TestStore_StaleFallbackOnFailure(t *testing.T) {
	healthy := true
	remote := &mockRemote{
		FetchFunc: func(ctx context.Context, uid string) (*Profile, error) {
			if !healthy {
				return nil, errRemoteDown
			}
			return &Profile{UID: uid, DisplayName: "cached me"}, nil
		},
	}
	store := NewStore(remote, 10*time.Millisecond)

	if _, err := store.Get(context.Background(), "u1"); err != nil {
		t.Fatalf("priming Get failed: %v", err)
	}

	// Entry expires, remote goes down: the stale entry still wins.
	time.Sleep(30 * time.Millisecond)
	healthy = false

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if p.DisplayName != "cached me" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestStore_StaleFallbackOnRemoteMiss(t *testing.T) {
	deleted := false
	remote := &mockRemote{
		FetchFunc: func(ctx context.Context, uid string) (*Profile, error) {
			if deleted {
				return nil, fmt.Errorf("uid %s: %w", uid, ErrNotFound)
			}
			return &Profile{UID: uid, DisplayName: "still here"}, nil
		},
	}
	store := NewStore(remote, 10*time.Millisecond)

	store.Get(context.Background(), "u1")
	time.Sleep(30 * time.Millisecond)
	deleted = true

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected cached entry despite remote miss, got %v", err)
	}
	if p.DisplayName != "still here" {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestStore_NotFound(t *testing.T) {
	remote := &mockRemote{} // default Fetch: not found
	store := NewStore(remote, time.Minute)

	_, err := store.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	// No retry for an authoritative miss.
	if remote.fetchCalls != 1 {
		t.Errorf("expected 1 attempt, got %d", remote.fetchCalls)
	}
}

func TestStore_PutWriteThrough(t *testing.T) {
	var saved Profile
	remote := &mockRemote{
		SaveFunc: func(ctx context.Context, uid string, p Profile) error {
			saved = p
			return nil
		},
	}
	store := NewStore(remote, time.Minute)

	if err := store.Put(context.Background(), "u1", Profile{DisplayName: "Ada"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if saved.UID != "u1" {
		t.Errorf("expected uid stamped on save, got %q", saved.UID)
	}
	if saved.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt stamped")
	}

	// Subsequent read comes from the cache, not the remote.
	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get after Put failed: %v", err)
	}
	if p.DisplayName != "Ada" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if remote.fetchCalls != 0 {
		t.Errorf("expected no remote fetch after Put, got %d", remote.fetchCalls)
	}
}

func TestStore_PutCachesEvenWhenRemoteFails(t *testing.T) {
	remote := &mockRemote{
		SaveFunc: func(ctx context.Context, uid string, p Profile) error {
			return errRemoteDown
		},
	}
	store := NewStore(remote, time.Minute)

	err := store.Put(context.Background(), "u1", Profile{DisplayName: "offline edit"})
	if !errors.Is(err, errRemoteDown) {
		t.Fatalf("expected remote error surfaced, got %v", err)
	}

	p, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.DisplayName != "offline edit" {
		t.Errorf("local edit must be visible, got %+v", p)
	}
}
