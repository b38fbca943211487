// Package store implements component G: the process-wide catalog
// store. It holds the latest validated catalog per client and swaps
// the whole set atomically on reload, grounded in the reload
// coordinator's atomic-pointer pattern, adapted from a single
// configuration object to a per-hostname map.
package store

import (
	"sync/atomic"

	"pullconf/internal/catalog"
)

// ClientEntry is what the store holds for one client: its resolved
// catalog and the hash the API authenticates requests against.
type ClientEntry struct {
	Catalog    catalog.Catalog
	APIKeyHash string
}

// Store holds the current, validated generation of every client's
// catalog. The zero value is not usable; construct with New.
type Store struct {
	current atomic.Pointer[map[string]ClientEntry]
}

// New returns an empty Store, ready to be published to.
func New() *Store {
	s := &Store{}
	empty := make(map[string]ClientEntry)
	s.current.Store(&empty)
	return s
}

// Lookup returns the client entry for hostname, and whether it
// exists. The returned value is an immutable snapshot: a reload in
// flight never mutates it out from under the caller.
func (s *Store) Lookup(hostname string) (ClientEntry, bool) {
	entries := *s.current.Load()
	e, ok := entries[hostname]
	return e, ok
}

// Len reports how many clients the current generation holds.
func (s *Store) Len() int {
	return len(*s.current.Load())
}

// Hostnames returns every hostname in the current generation, in no
// particular order.
func (s *Store) Hostnames() []string {
	entries := *s.current.Load()
	out := make([]string, 0, len(entries))
	for hostname := range entries {
		out = append(out, hostname)
	}
	return out
}

// Publish atomically replaces the whole client set. Call sites must
// have already validated every entry in entries — the store performs
// no validation of its own; a reload that fails validation must never
// reach Publish, per spec.md §4.G ("the store is left untouched").
func (s *Store) Publish(entries map[string]ClientEntry) {
	snapshot := make(map[string]ClientEntry, len(entries))
	for k, v := range entries {
		snapshot[k] = v
	}
	s.current.Store(&snapshot)
}
