package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/rcmate/rcmate/internal/config/store"
	"github.com/rcmate/rcmate/internal/remotes"
)

// providersCacheKey is the per-connection state key holding the last
// provider list fetched from the backend.
const providersCacheKey = "providers"

// cacheProviders stores the provider list for the connection so a later
// run can show it while the backend is unreachable. Cache failures only
// warn; the fetched data was already delivered.
func cacheProviders(ctx context.Context, s *store.Store, connName string, providers []remotes.Provider) {
	if s == nil {
		return
	}
	raw, err := json.Marshal(providers)
	if err != nil {
		return
	}
	if err := s.SaveState(ctx, connName, map[string]string{providersCacheKey: string(raw)}); err != nil {
		log.Printf("[CLI] WARNING: could not cache provider list: %v", err)
	}
}

// cachedProviders returns the last cached provider list for the
// connection, if one exists.
func cachedProviders(ctx context.Context, s *store.Store, connName string) ([]remotes.Provider, bool) {
	if s == nil {
		return nil, false
	}
	values, err := s.LoadState(ctx, connName, providersCacheKey)
	if err != nil {
		return nil, false
	}
	raw, ok := values[providersCacheKey]
	if !ok {
		return nil, false
	}
	var providers []remotes.Provider
	if err := json.Unmarshal([]byte(raw), &providers); err != nil {
		return nil, false
	}
	return providers, len(providers) > 0
}

// dropCachedProviders discards the cached provider list so the next
// fetch starts clean.
func dropCachedProviders(ctx context.Context, s *store.Store, connName string) {
	if s == nil {
		return
	}
	if err := s.DeleteState(ctx, connName, providersCacheKey); err != nil {
		log.Printf("[CLI] WARNING: could not drop cached provider list: %v", err)
	}
}
