package jwtx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// minRefreshInterval caps how often an unknown kid can trigger a remote
// JWKS fetch, so a flood of bad tokens can't hammer the provider.
const minRefreshInterval = time.Minute

// RemoteKeySet is a KeySet backed by a JWKS endpoint. Keys are fetched on
// demand and re-fetched when a token arrives with an unknown kid, which is
// how provider-side key rotation shows up from our end.
type RemoteKeySet struct {
	URL        string
	HTTPClient *http.Client

	keys *KeySet

	mu        sync.Mutex
	lastFetch time.Time
}

// NewRemoteKeySet builds a RemoteKeySet for the given JWKS URL.
func NewRemoteKeySet(url string, client *http.Client) *RemoteKeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteKeySet{
		URL:        url,
		HTTPClient: client,
		keys:       NewKeySet(),
	}
}

// Get returns the public key for the given kid, refreshing from the remote
// endpoint if the kid is unknown and a refresh is not already rate-limited.
func (r *RemoteKeySet) Get(kid string) (any, error) {
	if pk, err := r.keys.Get(kid); err == nil {
		return pk, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.refresh(ctx); err != nil {
		return nil, err
	}

	return r.keys.Get(kid)
}

// IsReady reports whether at least one key has been loaded.
func (r *RemoteKeySet) IsReady() bool { return r.keys.IsReady() }

// Refresh forces a fetch from the JWKS endpoint. Called once at startup so
// readiness can reflect provider connectivity.
func (r *RemoteKeySet) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.lastFetch = time.Time{} // bypass the rate limit
	r.mu.Unlock()
	return r.refresh(ctx)
}

func (r *RemoteKeySet) refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.lastFetch) < minRefreshInterval {
		return ErrNoKey
	}
	r.lastFetch = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return fmt.Errorf("jwtx: build jwks request: %w", err)
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("jwtx: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwtx: jwks endpoint returned %d", resp.StatusCode)
	}

	var doc JWKS
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("jwtx: decode jwks: %w", err)
	}

	return r.keys.ResetFromJWKS(doc)
}
