package resource

import "fmt"

// Identity is a resource's stable identity key: kind plus its
// primary-parameter value (spec.md §3), e.g. "file:/etc/hosts" or
// "resolv.conf:·". It is what `requires` references, dependency edges,
// and the catalog's uniqueness invariants are keyed on.
type Identity struct {
	Kind Kind
	Key  string
}

// singletonKey is the primary-parameter placeholder for kinds that
// carry no identifying attribute of their own (resolv.conf), matching
// the "·" notation used in spec.md §3.
const singletonKey = "·"

func (id Identity) String() string {
	return fmt.Sprintf("%s:%s", id.Kind, id.Key)
}

// ResolvConfIdentity is the one well-known identity for the singleton
// resolv.conf resource.
func ResolvConfIdentity() Identity {
	return Identity{Kind: KindResolvConf, Key: singletonKey}
}
