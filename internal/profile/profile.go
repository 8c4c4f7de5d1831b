// Package profile serves user profiles through a TTL cache backed by a
// remote store, trading freshness for availability when the remote is
// unreachable.
package profile

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no profile exists locally or remotely for the uid.
var ErrNotFound = errors.New("profile not found")

// DefaultCacheTTL is the fixed lifetime of a cached profile entry.
const DefaultCacheTTL = 5 * time.Minute

// MaxRetries is the retry budget for a remote fetch, on top of the
// initial attempt.
const MaxRetries = 1

// Profile is a user's account profile.
type Profile struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RemoteStore is the authoritative profile backend.
type RemoteStore interface {
	Fetch(ctx context.Context, uid string) (*Profile, error)
	Save(ctx context.Context, uid string, p Profile) error
}
