package resource

import (
	"pullconf/internal/variables"
)

// fieldSet resolves and type-checks attribute fields out of a raw,
// decoded TOML table, applying variable substitution to each field in
// turn. It is the bridge between the generic variables.Value tree
// (component B's output) and a kind's typed Go attribute struct
// (component C).
type fieldSet struct {
	table    map[string]variables.Value
	resolver *variables.Resolver
	file     string
	resName  string
}

func newFieldSet(file, resName string, table map[string]variables.Value, resolver *variables.Resolver) *fieldSet {
	return &fieldSet{table: table, resolver: resolver, file: file, resName: resName}
}

func (fs *fieldSet) has(name string) bool {
	_, ok := fs.table[name]
	return ok
}

func (fs *fieldSet) resolve(name string, expected variables.ValueKind) (variables.Value, error) {
	raw, ok := fs.table[name]
	if !ok {
		return variables.Value{}, nil
	}
	v, err := variables.ResolveTyped(fs.resolver, name, raw, expected)
	if err != nil {
		return variables.Value{}, newConfigError(fs.file, fs.resName, name, err.Error())
	}
	return v, nil
}

func (fs *fieldSet) requiredString(name string) (string, error) {
	if !fs.has(name) {
		return "", newConfigError(fs.file, fs.resName, name, "missing required field")
	}
	v, err := fs.resolve(name, variables.KindString)
	if err != nil {
		return "", err
	}
	s, _ := v.AsString()
	return s, nil
}

func (fs *fieldSet) optionalString(name, def string) (string, error) {
	if !fs.has(name) {
		return def, nil
	}
	v, err := fs.resolve(name, variables.KindString)
	if err != nil {
		return "", err
	}
	s, _ := v.AsString()
	return s, nil
}

func (fs *fieldSet) optionalStringPtr(name string) (*string, error) {
	if !fs.has(name) {
		return nil, nil
	}
	v, err := fs.resolve(name, variables.KindString)
	if err != nil {
		return nil, err
	}
	s, _ := v.AsString()
	return &s, nil
}

func (fs *fieldSet) optionalBool(name string, def bool) (bool, error) {
	if !fs.has(name) {
		return def, nil
	}
	v, err := fs.resolve(name, variables.KindBool)
	if err != nil {
		return false, err
	}
	b, _ := v.AsBool()
	return b, nil
}

func (fs *fieldSet) optionalInt(name string, def int64) (int64, error) {
	if !fs.has(name) {
		return def, nil
	}
	v, err := fs.resolve(name, variables.KindInt)
	if err != nil {
		return 0, err
	}
	n, _ := v.AsInt()
	return n, nil
}

func (fs *fieldSet) optionalIntPtr(name string) (*int64, error) {
	if !fs.has(name) {
		return nil, nil
	}
	v, err := fs.resolve(name, variables.KindInt)
	if err != nil {
		return nil, err
	}
	n, _ := v.AsInt()
	return &n, nil
}

func (fs *fieldSet) requiredInt(name string) (int64, error) {
	if !fs.has(name) {
		return 0, newConfigError(fs.file, fs.resName, name, "missing required field")
	}
	v, err := fs.resolve(name, variables.KindInt)
	if err != nil {
		return 0, err
	}
	n, _ := v.AsInt()
	return n, nil
}

func (fs *fieldSet) optionalStringArray(name string) ([]string, error) {
	if !fs.has(name) {
		return nil, nil
	}
	v, err := fs.resolve(name, variables.KindArray)
	if err != nil {
		return nil, err
	}
	items, _ := v.AsArray()
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.AsString()
		if !ok {
			return nil, newConfigError(fs.file, fs.resName, name, "array elements must be strings")
		}
		out = append(out, s)
	}
	return out, nil
}
