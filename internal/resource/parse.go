package resource

import (
	"fmt"

	"pullconf/internal/variables"
)

// RawResource is one entry decoded straight out of a client or group
// TOML document, before variable substitution or typed parsing.
type RawResource struct {
	Name     string // "name" attribute if given, else a positional fallback
	Type     string
	Ensure   string
	Requires []string
	Fields   map[string]variables.Value // everything except type/ensure/requires
}

// Parse dispatches on raw.Type, substitutes variables into raw.Fields
// via resolver, and produces a typed, validated Resource. The
// "type" and "requires" meta-parameters are never passed through the
// resolver (spec.md §4.B).
func Parse(file, resName string, raw RawResource, resolver *variables.Resolver) (*Resource, error) {
	kind := Kind(raw.Type)
	if !kind.Valid() {
		return nil, newConfigError(file, resName, "type", fmt.Sprintf("unknown resource type %q", raw.Type))
	}

	fs := newFieldSet(file, resName, raw.Fields, resolver)

	parser, ok := parsers[kind]
	if !ok {
		return nil, newConfigError(file, resName, "type", fmt.Sprintf("no parser registered for %q", raw.Type))
	}

	attrs, primaryKey, allowPurgedEnsure, err := parser(fs)
	if err != nil {
		return nil, err
	}

	ensureStr := raw.Ensure
	if ensureStr == "" {
		ensureStr = string(EnsurePresent)
	}
	ensure, ok := parseEnsure(ensureStr, allowPurgedEnsure)
	if !ok {
		return nil, newConfigError(file, resName, "ensure", fmt.Sprintf("invalid ensure value %q", ensureStr))
	}

	requires := make([]Identity, 0, len(raw.Requires))
	for _, ref := range raw.Requires {
		id, err := parseRequiresRef(ref)
		if err != nil {
			return nil, newConfigError(file, resName, "requires", err.Error())
		}
		requires = append(requires, id)
	}

	return &Resource{
		ID:         Identity{Kind: kind, Key: primaryKey},
		Ensure:     ensure,
		Requires:   requires,
		Attributes: attrs,
		Origin:     Origin{File: file, Name: resName},
	}, nil
}

// parseRequiresRef parses a `requires` entry of the form "kind:key"
// into an Identity reference (spec.md §4.E: "Explicit requires edges
// reference targets by {type, primary-parameter}").
func parseRequiresRef(ref string) (Identity, error) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			kind := Kind(ref[:i])
			if !kind.Valid() {
				break
			}
			return Identity{Kind: kind, Key: ref[i+1:]}, nil
		}
	}
	return Identity{}, fmt.Errorf("malformed requires reference %q, expected \"kind:key\"", ref)
}

// kindParser parses a field set into a kind's typed attributes,
// returning the attributes, the resource's primary-parameter identity
// key, and whether `ensure = "purged"` is legal for this kind.
type kindParser func(fs *fieldSet) (Attributes, string, bool, error)

var parsers = map[Kind]kindParser{
	KindFile:          parseFile,
	KindDirectory:     parseDirectory,
	KindSymlink:       parseSymlink,
	KindHost:          parseHost,
	KindUser:          parseUser,
	KindGroup:         parseGroup,
	KindAptPackage:    parseAptPackage,
	KindAptPreference: parseAptPreference,
	KindCronJob:       parseCronJob,
	KindResolvConf:    parseResolvConf,
}

func parseFile(fs *fieldSet) (Attributes, string, bool, error) {
	path, err := fs.requiredString("path")
	if err != nil {
		return nil, "", false, err
	}
	if path == "" || path[0] != '/' {
		return nil, "", false, newConfigError(fs.file, fs.resName, "path", "must be an absolute path")
	}
	path = NormalizePath(path)
	if !ValidAbsolutePath(path) {
		return nil, "", false, newConfigError(fs.file, fs.resName, "path", "must not contain \".\" or \"..\" segments")
	}

	content, err := fs.optionalStringPtr("content")
	if err != nil {
		return nil, "", false, err
	}
	source, err := fs.optionalStringPtr("source")
	if err != nil {
		return nil, "", false, err
	}
	if content != nil && source != nil {
		return nil, "", false, newConfigError(fs.file, fs.resName, "content", "a file carries at most one of {content, source}")
	}

	mode, err := fs.optionalString("mode", "0644")
	if err != nil {
		return nil, "", false, err
	}
	if !ValidMode(mode) {
		return nil, "", false, newConfigError(fs.file, fs.resName, "mode", "must be 3-4 octal digits")
	}

	owner, err := fs.optionalString("owner", "root")
	if err != nil {
		return nil, "", false, err
	}
	group, err := fs.optionalString("group", "root")
	if err != nil {
		return nil, "", false, err
	}

	return FileAttributes{Path: path, Content: content, Source: source, Mode: mode, Owner: owner, Group: group}, path, false, nil
}

func parseDirectory(fs *fieldSet) (Attributes, string, bool, error) {
	path, err := fs.requiredString("path")
	if err != nil {
		return nil, "", false, err
	}
	if path == "" || path[0] != '/' {
		return nil, "", false, newConfigError(fs.file, fs.resName, "path", "must be an absolute path")
	}
	path = NormalizePath(path)
	if !ValidAbsolutePath(path) {
		return nil, "", false, newConfigError(fs.file, fs.resName, "path", "must not contain \".\" or \"..\" segments")
	}

	mode, err := fs.optionalString("mode", "0755")
	if err != nil {
		return nil, "", false, err
	}
	if !ValidMode(mode) {
		return nil, "", false, newConfigError(fs.file, fs.resName, "mode", "must be 3-4 octal digits")
	}

	owner, err := fs.optionalString("owner", "root")
	if err != nil {
		return nil, "", false, err
	}
	group, err := fs.optionalString("group", "root")
	if err != nil {
		return nil, "", false, err
	}
	purge, err := fs.optionalBool("purge", false)
	if err != nil {
		return nil, "", false, err
	}

	return DirectoryAttributes{Path: path, Mode: mode, Owner: owner, Group: group, Purge: purge}, path, false, nil
}

func parseSymlink(fs *fieldSet) (Attributes, string, bool, error) {
	path, err := fs.requiredString("path")
	if err != nil {
		return nil, "", false, err
	}
	if path == "" || path[0] != '/' {
		return nil, "", false, newConfigError(fs.file, fs.resName, "path", "must be an absolute path")
	}
	path = NormalizePath(path)
	if !ValidAbsolutePath(path) {
		return nil, "", false, newConfigError(fs.file, fs.resName, "path", "must not contain \".\" or \"..\" segments")
	}

	target, err := fs.requiredString("target")
	if err != nil {
		return nil, "", false, err
	}

	return SymlinkAttributes{Path: path, Target: target}, path, false, nil
}

func parseHost(fs *fieldSet) (Attributes, string, bool, error) {
	ip, err := fs.requiredString("ip_address")
	if err != nil {
		return nil, "", false, err
	}
	if !ValidIPAddress(ip) {
		return nil, "", false, newConfigError(fs.file, fs.resName, "ip_address", "must be a valid IPv4 or IPv6 address")
	}

	hostnames, err := fs.optionalStringArray("hostnames")
	if err != nil {
		return nil, "", false, err
	}
	if len(hostnames) == 0 {
		return nil, "", false, newConfigError(fs.file, fs.resName, "hostnames", "must list at least one hostname")
	}
	for _, h := range hostnames {
		if !ValidHostname(h) {
			return nil, "", false, newConfigError(fs.file, fs.resName, "hostnames", fmt.Sprintf("%q is not a valid hostname", h))
		}
	}

	return HostAttributes{IPAddress: ip, Hostnames: hostnames}, ip, false, nil
}

func parseUser(fs *fieldSet) (Attributes, string, bool, error) {
	name, err := fs.requiredString("name")
	if err != nil {
		return nil, "", false, err
	}
	uid, err := fs.optionalIntPtr("uid")
	if err != nil {
		return nil, "", false, err
	}
	primaryGroup, err := fs.optionalString("group", "")
	if err != nil {
		return nil, "", false, err
	}
	suppGroups, err := fs.optionalStringArray("groups")
	if err != nil {
		return nil, "", false, err
	}
	shell, err := fs.optionalString("shell", "/bin/bash")
	if err != nil {
		return nil, "", false, err
	}
	home, err := fs.optionalString("home", "")
	if err != nil {
		return nil, "", false, err
	}

	return UserAttributes{
		Name:                name,
		UID:                 uid,
		PrimaryGroup:        primaryGroup,
		SupplementaryGroups: suppGroups,
		Shell:               shell,
		Home:                home,
	}, name, false, nil
}

func parseGroup(fs *fieldSet) (Attributes, string, bool, error) {
	name, err := fs.requiredString("name")
	if err != nil {
		return nil, "", false, err
	}
	gid, err := fs.optionalIntPtr("gid")
	if err != nil {
		return nil, "", false, err
	}
	return GroupAttributes{Name: name, GID: gid}, name, false, nil
}

func parseAptPackage(fs *fieldSet) (Attributes, string, bool, error) {
	name, err := fs.requiredString("name")
	if err != nil {
		return nil, "", false, err
	}
	version, err := fs.optionalString("version", "")
	if err != nil {
		return nil, "", false, err
	}
	allowDowngrade, err := fs.optionalBool("allow_downgrade", false)
	if err != nil {
		return nil, "", false, err
	}
	return AptPackageAttributes{Name: name, Version: version, AllowDowngrade: allowDowngrade}, name, true, nil
}

func parseAptPreference(fs *fieldSet) (Attributes, string, bool, error) {
	pkg, err := fs.requiredString("package")
	if err != nil {
		return nil, "", false, err
	}
	pin, err := fs.requiredString("pin")
	if err != nil {
		return nil, "", false, err
	}
	priority, err := fs.requiredInt("priority")
	if err != nil {
		return nil, "", false, err
	}
	return AptPreferenceAttributes{Package: pkg, Pin: pin, Priority: priority}, pkg, false, nil
}

func parseCronJob(fs *fieldSet) (Attributes, string, bool, error) {
	name, err := fs.requiredString("name")
	if err != nil {
		return nil, "", false, err
	}
	command, err := fs.requiredString("command")
	if err != nil {
		return nil, "", false, err
	}
	schedule, err := fs.requiredString("schedule")
	if err != nil {
		return nil, "", false, err
	}
	user, err := fs.optionalString("user", "root")
	if err != nil {
		return nil, "", false, err
	}
	return CronJobAttributes{Name: name, Command: command, Schedule: schedule, User: user}, name, false, nil
}

func parseResolvConf(fs *fieldSet) (Attributes, string, bool, error) {
	nameservers, err := fs.optionalStringArray("nameservers")
	if err != nil {
		return nil, "", false, err
	}
	search, err := fs.optionalStringArray("search")
	if err != nil {
		return nil, "", false, err
	}
	return ResolvConfAttributes{Nameservers: nameservers, Search: search}, singletonKey, false, nil
}
