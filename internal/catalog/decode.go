package catalog

import (
	"fmt"

	"pullconf/internal/resource"
)

// ToResources reconstructs typed resources from a Catalog's wire
// entries. It accepts both attribute maps produced in-process by
// FromResources and maps decoded from JSON (where numbers arrive as
// float64 and string arrays as []interface{}), since the agent always
// goes through the latter after fetching a catalog over HTTPS.
func ToResources(cat Catalog) ([]*resource.Resource, error) {
	out := make([]*resource.Resource, 0, len(cat.Entries))
	for _, entry := range cat.Entries {
		r, err := toResource(entry)
		if err != nil {
			return nil, fmt.Errorf("decoding %s:%s: %w", entry.ID.Kind, entry.ID.Key, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func toResource(entry Entry) (*resource.Resource, error) {
	kind := resource.Kind(entry.ID.Kind)
	attrs, err := attributesFromMap(kind, entry.Attributes)
	if err != nil {
		return nil, err
	}

	return &resource.Resource{
		ID:               resource.Identity{Kind: kind, Key: entry.ID.Key},
		Ensure:           resource.Ensure(entry.Ensure),
		Requires:         fromIdentityJSONList(entry.Requires),
		ImplicitRequires: fromIdentityJSONList(entry.ImplicitRequires),
		PurgeChildren:    entry.PurgeChildren,
		Attributes:       attrs,
	}, nil
}

func fromIdentityJSONList(ids []IdentityJSON) []resource.Identity {
	if ids == nil {
		return nil
	}
	out := make([]resource.Identity, 0, len(ids))
	for _, id := range ids {
		out = append(out, resource.Identity{Kind: resource.Kind(id.Kind), Key: id.Key})
	}
	return out
}

func attributesFromMap(kind resource.Kind, m map[string]interface{}) (resource.Attributes, error) {
	switch kind {
	case resource.KindFile:
		return resource.FileAttributes{
			Path:    asString(m["path"]),
			Content: asStringPtr(m["content"]),
			Source:  asStringPtr(m["source"]),
			Mode:    asString(m["mode"]),
			Owner:   asString(m["owner"]),
			Group:   asString(m["group"]),
		}, nil
	case resource.KindDirectory:
		return resource.DirectoryAttributes{
			Path:  asString(m["path"]),
			Mode:  asString(m["mode"]),
			Owner: asString(m["owner"]),
			Group: asString(m["group"]),
			Purge: asBool(m["purge"]),
		}, nil
	case resource.KindSymlink:
		return resource.SymlinkAttributes{
			Path:   asString(m["path"]),
			Target: asString(m["target"]),
		}, nil
	case resource.KindHost:
		return resource.HostAttributes{
			IPAddress: asString(m["ip_address"]),
			Hostnames: asStringSlice(m["hostnames"]),
		}, nil
	case resource.KindUser:
		return resource.UserAttributes{
			Name:                asString(m["name"]),
			UID:                 asInt64Ptr(m["uid"]),
			PrimaryGroup:        asString(m["group"]),
			SupplementaryGroups: asStringSlice(m["groups"]),
			Shell:               asString(m["shell"]),
			Home:                asString(m["home"]),
		}, nil
	case resource.KindGroup:
		return resource.GroupAttributes{
			Name: asString(m["name"]),
			GID:  asInt64Ptr(m["gid"]),
		}, nil
	case resource.KindAptPackage:
		return resource.AptPackageAttributes{
			Name:           asString(m["name"]),
			Version:        asString(m["version"]),
			AllowDowngrade: asBool(m["allow_downgrade"]),
		}, nil
	case resource.KindAptPreference:
		return resource.AptPreferenceAttributes{
			Package:  asString(m["package"]),
			Pin:      asString(m["pin"]),
			Priority: asInt64(m["priority"]),
		}, nil
	case resource.KindCronJob:
		return resource.CronJobAttributes{
			Name:     asString(m["name"]),
			Command:  asString(m["command"]),
			Schedule: asString(m["schedule"]),
			User:     asString(m["user"]),
		}, nil
	case resource.KindResolvConf:
		return resource.ResolvConfAttributes{
			Nameservers: asStringSlice(m["nameservers"]),
			Search:      asStringSlice(m["search"]),
		}, nil
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asInt64Ptr(v interface{}) *int64 {
	if v == nil {
		return nil
	}
	n := asInt64(v)
	return &n
}

func asStringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
