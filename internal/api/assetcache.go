package api

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"pullconf/internal/store"
)

// assetCacheSize bounds how many clients' source-path sets are kept
// warm at once; a fleet larger than this still works, it just falls
// back to rebuilding the set on a miss.
const assetCacheSize = 256

// assetIndex answers assetAuthorized without re-scanning every entry
// in a client's catalog on each asset request. It's keyed on the
// catalog version, not just the hostname, so a reload that changes a
// client's resources invalidates its entry for free instead of
// serving a stale authorization decision.
type assetIndex struct {
	cache *lru.Cache[assetIndexKey, map[string]struct{}]
}

type assetIndexKey struct {
	hostname string
	version  string
}

func newAssetIndex() *assetIndex {
	cache, err := lru.New[assetIndexKey, map[string]struct{}](assetCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// assetCacheSize never is.
		panic(err)
	}
	return &assetIndex{cache: cache}
}

// authorized reports whether requestedPath is the `source` attribute
// of some file resource in entry's catalog.
func (a *assetIndex) authorized(entry store.ClientEntry, requestedPath string) bool {
	key := assetIndexKey{hostname: entry.Catalog.Hostname, version: entry.Catalog.Version}

	paths, ok := a.cache.Get(key)
	if !ok {
		paths = sourcePaths(entry)
		a.cache.Add(key, paths)
	}

	_, ok = paths[requestedPath]
	return ok
}

func sourcePaths(entry store.ClientEntry) map[string]struct{} {
	paths := make(map[string]struct{})
	for _, res := range entry.Catalog.Entries {
		if res.ID.Kind != "file" {
			continue
		}
		if source, ok := res.Attributes["source"].(string); ok {
			paths[source] = struct{}{}
		}
	}
	return paths
}
