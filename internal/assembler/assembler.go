// Package assembler implements component D: for each client, it unions
// the client's own resources with resources inherited from its groups,
// applying client-wins precedence on identity collision and enforcing
// the cross-kind path-namespace uniqueness invariants.
package assembler

import (
	"fmt"

	"pullconf/internal/resource"
)

// CompositionError reports a problem found while assembling a client's
// candidate catalog: a duplicate identity key, or a cross-kind path
// collision, at either the client or group level.
type CompositionError struct {
	Hostname string
	Reason   string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("client %q: %s", e.Hostname, e.Reason)
}

// pathNamespace is the shared identity space file/directory/symlink
// occupy on their `path` attribute (spec.md §3 invariant 2).
const pathNamespace = "path"

// namespaceOf returns the uniqueness namespace a resource's identity
// key participates in: "path" for file/directory/symlink (who must
// not collide with each other), or the resource's own kind otherwise.
func namespaceOf(k resource.Kind) string {
	switch k {
	case resource.KindFile, resource.KindDirectory, resource.KindSymlink:
		return pathNamespace
	default:
		return string(k)
	}
}

type namespacedKey struct {
	namespace string
	key       string
}

// Assemble computes the candidate catalog for one client: its own
// resources plus those contributed by groupResources (already
// collected across the client's declared groups, in group order).
func Assemble(hostname string, clientResources []*resource.Resource, groupResources []*resource.Resource) ([]*resource.Resource, error) {
	clientByKey := make(map[namespacedKey]*resource.Resource, len(clientResources))
	for _, r := range clientResources {
		nk := namespacedKey{namespaceOf(r.ID.Kind), r.ID.Key}
		if existing, ok := clientByKey[nk]; ok {
			return nil, &CompositionError{Hostname: hostname, Reason: fmt.Sprintf(
				"duplicate resource %s and %s at client level (both key %q)", existing.ID, r.ID, nk.key)}
		}
		clientByKey[nk] = r
	}

	groupByKey := make(map[namespacedKey]*resource.Resource, len(groupResources))
	for _, r := range groupResources {
		nk := namespacedKey{namespaceOf(r.ID.Kind), r.ID.Key}
		if existing, ok := groupByKey[nk]; ok {
			if _, wins := clientByKey[nk]; wins {
				// The client-level copy will win regardless; a
				// collision between two inherited group copies of a
				// resource the client also overrides is not fatal.
				continue
			}
			return nil, &CompositionError{Hostname: hostname, Reason: fmt.Sprintf(
				"duplicate resource %s and %s across groups (both key %q)", existing.ID, r.ID, nk.key)}
		}
		groupByKey[nk] = r
	}

	catalog := make([]*resource.Resource, 0, len(clientByKey)+len(groupByKey))
	for nk, r := range groupByKey {
		if _, overridden := clientByKey[nk]; overridden {
			continue
		}
		catalog = append(catalog, r)
	}
	for _, r := range clientByKey {
		catalog = append(catalog, r)
	}

	return catalog, nil
}

// CollectGroupResources gathers the resources contributed by a
// client's declared groups, in declaration order, looking each group
// up in byName.
func CollectGroupResources(groupNames []string, byName map[string][]*resource.Resource) []*resource.Resource {
	var out []*resource.Resource
	for _, name := range groupNames {
		out = append(out, byName[name]...)
	}
	return out
}
