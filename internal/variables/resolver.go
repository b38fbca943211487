package variables

import "strings"

const refPrefix = "$pullconf::"

// parseRef reports whether s is, in its entirety, a "$pullconf::NAME"
// reference, returning NAME. Partial occurrences ("prefix$pullconf::x")
// are treated as opaque strings per spec.md §4.B — no detection, no
// error.
func parseRef(s string) (string, bool) {
	if !strings.HasPrefix(s, refPrefix) {
		return "", false
	}
	if s == refPrefix {
		return "", false
	}
	return strings.TrimPrefix(s, refPrefix), true
}

// Resolver resolves "$pullconf::name" references against a client's
// variables map and a reserved map (currently just {hostname}),
// memoizing results and detecting cycles across the variable
// definitions themselves.
type Resolver struct {
	vars       map[string]Value
	reserved   map[string]Value
	resolved   map[string]Value
	inProgress map[string]bool
	stack      []string
}

// NewResolver builds a Resolver over a client's variables map and the
// reserved names (e.g. "hostname") available to every client.
func NewResolver(vars, reserved map[string]Value) *Resolver {
	return &Resolver{
		vars:       vars,
		reserved:   reserved,
		resolved:   make(map[string]Value),
		inProgress: make(map[string]bool),
	}
}

// Resolve substitutes every "$pullconf::name" reference within tree,
// recursively. Meta-parameters (the resource's "type" and "requires"
// fields) must not be passed through Resolve — the caller is
// responsible for exempting them per spec.md §4.B.
func (r *Resolver) Resolve(tree Value) (Value, error) {
	switch tree.kind {
	case KindString:
		name, ok := parseRef(tree.str)
		if !ok {
			return tree, nil
		}
		return r.resolveName(name)
	case KindArray:
		items := make([]Value, len(tree.arr))
		for i, e := range tree.arr {
			rv, err := r.Resolve(e)
			if err != nil {
				return Value{}, err
			}
			items[i] = rv
		}
		return Array(items), nil
	case KindTable:
		fields := make(map[string]Value, len(tree.table))
		for k, e := range tree.table {
			rv, err := r.Resolve(e)
			if err != nil {
				return Value{}, err
			}
			fields[k] = rv
		}
		return Table(fields), nil
	default:
		return tree, nil
	}
}

func (r *Resolver) resolveName(name string) (Value, error) {
	if v, ok := r.resolved[name]; ok {
		return v, nil
	}
	if v, ok := r.reserved[name]; ok {
		// Reserved names are literal; they never themselves contain
		// references, so no cycle bookkeeping is needed.
		return v, nil
	}
	if r.inProgress[name] {
		chain := append(append([]string{}, r.stack...), name)
		return Value{}, &CycleError{Chain: chain}
	}

	raw, ok := r.vars[name]
	if !ok {
		return Value{}, &UnknownVariableError{Name: name}
	}

	r.inProgress[name] = true
	r.stack = append(r.stack, name)
	resolved, err := r.Resolve(raw)
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.inProgress, name)
	if err != nil {
		return Value{}, err
	}

	r.resolved[name] = resolved
	return resolved, nil
}

// ResolveTyped resolves tree and checks the result's kind against
// expected, surfacing TypeMismatchError if they disagree. The name
// passed is used only for the error message (e.g. the attribute name
// the value was bound to).
func ResolveTyped(r *Resolver, name string, tree Value, expected ValueKind) (Value, error) {
	resolved, err := r.Resolve(tree)
	if err != nil {
		return Value{}, err
	}
	if resolved.kind != expected {
		return Value{}, &TypeMismatchError{Name: name, Expected: expected, Got: resolved.kind}
	}
	return resolved, nil
}
