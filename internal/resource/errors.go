package resource

import "fmt"

// ConfigError reports a problem found while parsing or validating a
// single resource: a malformed value, a missing mandatory field, or an
// out-of-range value (spec.md §7). It names the offending client/group
// file, the resource's position within it, and the field at fault, so
// the loader can fail just that file without losing context.
type ConfigError struct {
	File     string
	Resource string // the resource's "name" attribute if given, else "<document>[<index>]"
	Field    string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: resource %q: field %q: %s", e.File, e.Resource, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: resource %q: %s", e.File, e.Resource, e.Reason)
}

func newConfigError(file, res, field, reason string) *ConfigError {
	return &ConfigError{File: file, Resource: res, Field: field, Reason: reason}
}
