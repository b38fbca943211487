// Package resource defines Pullconf's resource data model: the tagged
// variant described in the catalog data model, its per-kind attribute
// records, and the validators each kind carries.
package resource

// Kind identifies a resource variant. Kinds are compared and hashed as
// plain strings; the set is closed (dispatch tables key on these
// constants, never on arbitrary strings from the wire).
type Kind string

const (
	KindFile          Kind = "file"
	KindDirectory     Kind = "directory"
	KindSymlink       Kind = "symlink"
	KindHost          Kind = "host"
	KindUser          Kind = "user"
	KindGroup         Kind = "group"
	KindAptPackage    Kind = "apt::package"
	KindAptPreference Kind = "apt::preference"
	KindCronJob       Kind = "cron::job"
	KindResolvConf    Kind = "resolv.conf"
)

// kindPriority orders kinds for the scheduler's deterministic ready-queue
// pop order (spec.md §4.I): directories before files before symlinks
// before hosts before users before groups before apt::package before
// cron::job before resolv.conf.
var kindPriority = map[Kind]int{
	KindDirectory:     0,
	KindFile:          1,
	KindSymlink:       2,
	KindHost:          3,
	KindUser:          4,
	KindGroup:         5,
	KindAptPackage:    6,
	KindAptPreference: 7,
	KindCronJob:       8,
	KindResolvConf:    9,
}

// Priority returns the kind's position in the scheduler's tie-break
// order. Unknown kinds sort last.
func (k Kind) Priority() int {
	if p, ok := kindPriority[k]; ok {
		return p
	}
	return len(kindPriority)
}

// Valid reports whether k is one of the closed set of supported kinds.
func (k Kind) Valid() bool {
	_, ok := kindPriority[k]
	return ok
}

// AllKinds returns every supported kind, in scheduler priority order.
func AllKinds() []Kind {
	return []Kind{
		KindDirectory, KindFile, KindSymlink, KindHost, KindUser, KindGroup,
		KindAptPackage, KindAptPreference, KindCronJob, KindResolvConf,
	}
}
