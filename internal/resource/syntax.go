package resource

import (
	"net"
	"strconv"
	"strings"
)

// NormalizePath collapses redundant separators and strips a trailing
// slash (except for the root itself), matching the normalization the
// config loader/validator performs before uniqueness checks (spec.md
// §4.C). It does not resolve "." or ".." segments — those are rejected
// outright by ValidAbsolutePath, not silently collapsed.
func NormalizePath(p string) string {
	if p == "" {
		return p
	}
	segments := strings.Split(p, "/")
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	normalized := "/" + strings.Join(out, "/")
	return normalized
}

// ValidAbsolutePath reports whether p is syntactically absolute and
// normalized: starts with "/", contains no "." or ".." segments, and
// (besides the root) carries no trailing slash.
func ValidAbsolutePath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if p != "/" && strings.HasSuffix(p, "/") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// IsAncestorPath reports whether ancestor is a proper ancestor
// directory of p (both already normalized absolute paths).
func IsAncestorPath(ancestor, p string) bool {
	if ancestor == p {
		return false
	}
	if ancestor == "/" {
		return p != "/"
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// ParentPath returns the immediate parent directory of an absolute,
// normalized path. ParentPath("/") returns "/".
func ParentPath(p string) string {
	if p == "/" {
		return "/"
	}
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

// ValidMode reports whether mode is 3 or 4 octal digits.
func ValidMode(mode string) bool {
	if len(mode) != 3 && len(mode) != 4 {
		return false
	}
	_, err := strconv.ParseUint(mode, 8, 32)
	return err == nil
}

// ValidIPAddress reports whether s parses as an IPv4 or IPv6 address.
func ValidIPAddress(s string) bool {
	return net.ParseIP(s) != nil
}

// ValidAPIKeyHash reports whether s is 64 lowercase hex characters —
// the wire shape of a SHA-256 digest (spec.md §3: api_key_hash is
// "64 lowercase hex chars (SHA-256 of the shared secret)").
func ValidAPIKeyHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, r := range s {
		isLowerHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isLowerHex {
			return false
		}
	}
	return true
}

// ValidHostname reports whether s is a syntactically valid hostname:
// at most 253 characters, dot-separated segments of at most 63
// characters, matching [A-Za-z0-9.-]+, not empty, and not starting
// with '-'.
func ValidHostname(s string) bool {
	if s == "" || len(s) > 253 {
		return false
	}
	if s[0] == '-' {
		return false
	}
	for _, r := range s {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '.' && r != '-' {
			return false
		}
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" || len(seg) > 63 {
			return false
		}
	}
	return true
}
