package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPRemote talks to a Firebase-style REST backend:
// GET/PUT {baseURL}/profiles/{uid}.json with an optional auth token.
type HTTPRemote struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPRemote creates a remote client for the given backend.
func NewHTTPRemote(baseURL, apiKey string, timeout time.Duration) *HTTPRemote {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the profile for uid. A 404 maps to ErrNotFound.
func (r *HTTPRemote) Fetch(ctx context.Context, uid string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.profileURL(uid), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", uid, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("profile %s: %w", uid, ErrNotFound)
	default:
		return nil, fmt.Errorf("fetch profile %s: unexpected status %d", uid, resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", uid, err)
	}
	// Firebase-style endpoints return "null" for absent documents.
	if p.UID == "" {
		return nil, fmt.Errorf("profile %s: %w", uid, ErrNotFound)
	}
	return &p, nil
}

// Save writes the profile for uid.
func (r *HTTPRemote) Save(ctx context.Context, uid string, p Profile) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", uid, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.profileURL(uid), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build save request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", uid, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("save profile %s: unexpected status %d", uid, resp.StatusCode)
	}
	return nil
}

func (r *HTTPRemote) profileURL(uid string) string {
	u := fmt.Sprintf("%s/profiles/%s.json", r.baseURL, url.PathEscape(uid))
	if r.apiKey != "" {
		u += "?auth=" + url.QueryEscape(r.apiKey)
	}
	return u
}
