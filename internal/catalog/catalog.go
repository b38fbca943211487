// Package catalog defines the wire representation of a client's
// resolved, ordered catalog: what the server serializes and the API
// returns, and what the agent decodes and schedules.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"pullconf/internal/resource"
)

// Entry is one resource's wire form: its identity, desired state, and
// dependency edges (both explicit and inferred), plus its typed
// attributes rendered as a plain JSON-able map.
type Entry struct {
	ID               IdentityJSON           `json:"id"`
	Ensure           string                 `json:"ensure"`
	Attributes       map[string]interface{} `json:"attributes"`
	Requires         []IdentityJSON         `json:"requires,omitempty"`
	ImplicitRequires []IdentityJSON         `json:"implicit_requires,omitempty"`
	PurgeChildren    []string               `json:"purge_children,omitempty"`
}

// IdentityJSON is Identity's wire form (spec.md §6: catalog wire shape).
type IdentityJSON struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
}

// Catalog is one client's fully resolved, dependency-validated set of
// resources, ready to serialize and serve.
type Catalog struct {
	Hostname string  `json:"hostname"`
	Version  string  `json:"version"`
	Entries  []Entry `json:"resources"`
}

func toIdentityJSON(id resource.Identity) IdentityJSON {
	return IdentityJSON{Kind: string(id.Kind), Key: id.Key}
}

func toIdentityJSONList(ids []resource.Identity) []IdentityJSON {
	if len(ids) == 0 {
		return nil
	}
	out := make([]IdentityJSON, len(ids))
	for i, id := range ids {
		out[i] = toIdentityJSON(id)
	}
	return out
}

// FromResources renders a client's validated resource set into its
// wire catalog form. version is a content hash identifying this
// catalog generation, as produced by ComputeVersion.
func FromResources(hostname, version string, resources []*resource.Resource) Catalog {
	entries := make([]Entry, len(resources))
	for i, r := range resources {
		entries[i] = Entry{
			ID:               toIdentityJSON(r.ID),
			Ensure:           string(r.Ensure),
			Attributes:       attributesToMap(r.Attributes),
			Requires:         toIdentityJSONList(r.Requires),
			ImplicitRequires: toIdentityJSONList(r.ImplicitRequires),
			PurgeChildren:    r.PurgeChildren,
		}
	}
	return Catalog{Hostname: hostname, Version: version, Entries: entries}
}

// ComputeVersion derives a stable content hash for a resolved resource
// set, so the store and the API can report a catalog version without
// clients needing to diff the full body themselves.
func ComputeVersion(resources []*resource.Resource) string {
	entries := make([]Entry, len(resources))
	for i, r := range resources {
		entries[i] = Entry{
			ID:               toIdentityJSON(r.ID),
			Ensure:           string(r.Ensure),
			Attributes:       attributesToMap(r.Attributes),
			Requires:         toIdentityJSONList(r.Requires),
			ImplicitRequires: toIdentityJSONList(r.ImplicitRequires),
			PurgeChildren:    r.PurgeChildren,
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID.Kind+":"+entries[i].ID.Key < entries[j].ID.Kind+":"+entries[j].ID.Key
	})
	// Marshaling errors can't occur here: every field is a plain,
	// already-validated string/bool/int/slice/map.
	body, _ := json.Marshal(entries)
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// attributesToMap flattens a kind's typed attribute struct into a
// plain map for JSON serialization. Pointer fields are omitted when
// nil rather than serialized as null.
func attributesToMap(attrs resource.Attributes) map[string]interface{} {
	out := make(map[string]interface{})
	switch a := attrs.(type) {
	case resource.FileAttributes:
		out["path"] = a.Path
		if a.Content != nil {
			out["content"] = *a.Content
		}
		if a.Source != nil {
			out["source"] = *a.Source
		}
		out["mode"] = a.Mode
		out["owner"] = a.Owner
		out["group"] = a.Group
	case resource.DirectoryAttributes:
		out["path"] = a.Path
		out["mode"] = a.Mode
		out["owner"] = a.Owner
		out["group"] = a.Group
		out["purge"] = a.Purge
	case resource.SymlinkAttributes:
		out["path"] = a.Path
		out["target"] = a.Target
	case resource.HostAttributes:
		out["ip_address"] = a.IPAddress
		out["hostnames"] = a.Hostnames
	case resource.UserAttributes:
		out["name"] = a.Name
		if a.UID != nil {
			out["uid"] = *a.UID
		}
		out["group"] = a.PrimaryGroup
		out["groups"] = a.SupplementaryGroups
		out["shell"] = a.Shell
		out["home"] = a.Home
	case resource.GroupAttributes:
		out["name"] = a.Name
		if a.GID != nil {
			out["gid"] = *a.GID
		}
	case resource.AptPackageAttributes:
		out["name"] = a.Name
		out["version"] = a.Version
		out["allow_downgrade"] = a.AllowDowngrade
	case resource.AptPreferenceAttributes:
		out["package"] = a.Package
		out["pin"] = a.Pin
		out["priority"] = a.Priority
	case resource.CronJobAttributes:
		out["name"] = a.Name
		out["command"] = a.Command
		out["schedule"] = a.Schedule
		out["user"] = a.User
	case resource.ResolvConfAttributes:
		out["nameservers"] = a.Nameservers
		out["search"] = a.Search
	}
	return out
}
