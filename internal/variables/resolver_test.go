package variables

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservedHostname(name string) map[string]Value {
	return map[string]Value{"hostname": String(name)}
}

func TestResolve_PlainValuesPassThrough(t *testing.T) {
	r := NewResolver(nil, reservedHostname("h1"))
	v, err := r.Resolve(String("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", v.str)
}

func TestResolve_SimpleReference(t *testing.T) {
	vars := map[string]Value{"greeting": String("hello")}
	r := NewResolver(vars, reservedHostname("h1"))

	v, err := r.Resolve(String("$pullconf::greeting"))
	require.NoError(t, err)
	got, ok := v.AsString()
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestResolve_ReservedHostname(t *testing.T) {
	r := NewResolver(nil, reservedHostname("web-01"))
	v, err := r.Resolve(String("$pullconf::hostname"))
	require.NoError(t, err)
	got, _ := v.AsString()
	assert.Equal(t, "web-01", got)
}

func TestResolve_UnknownVariable(t *testing.T) {
	r := NewResolver(nil, reservedHostname("h1"))
	_, err := r.Resolve(String("$pullconf::missing"))
	require.Error(t, err)
	var unknown *UnknownVariableError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "missing", unknown.Name)
}

func TestResolve_ArrayWithNestedReference(t *testing.T) {
	// Concrete scenario 3 from spec.md §8.
	vars := map[string]Value{"x": String("b")}
	r := NewResolver(vars, reservedHostname("h1"))

	tree := Array([]Value{String("a"), String("$pullconf::x")})
	v, err := r.Resolve(tree)
	require.NoError(t, err)

	items, ok := v.AsArray()
	require.True(t, ok)
	require.Len(t, items, 2)
	a, _ := items[0].AsString()
	b, _ := items[1].AsString()
	assert.Equal(t, "a", a)
	assert.Equal(t, "b", b)
}

func TestResolve_TableWithNestedReference(t *testing.T) {
	vars := map[string]Value{"inner": Bool(true)}
	r := NewResolver(vars, reservedHostname("h1"))

	tree := Table(map[string]Value{"flag": String("$pullconf::inner")})
	v, err := r.Resolve(tree)
	require.NoError(t, err)

	fields, ok := v.AsTable()
	require.True(t, ok)
	got, _ := fields["flag"].AsBool()
	assert.True(t, got)
}

func TestResolve_VariableReferencingAnotherVariable(t *testing.T) {
	vars := map[string]Value{
		"a": String("$pullconf::b"),
		"b": String("leaf"),
	}
	r := NewResolver(vars, reservedHostname("h1"))

	v, err := r.Resolve(String("$pullconf::a"))
	require.NoError(t, err)
	got, _ := v.AsString()
	assert.Equal(t, "leaf", got)
}

func TestResolve_Cycle(t *testing.T) {
	vars := map[string]Value{
		"a": String("$pullconf::b"),
		"b": String("$pullconf::a"),
	}
	r := NewResolver(vars, reservedHostname("h1"))

	_, err := r.Resolve(String("$pullconf::a"))
	require.Error(t, err)
	var cycle *CycleError
	require.True(t, errors.As(err, &cycle))
}

func TestResolve_PartialStringIsOpaque(t *testing.T) {
	r := NewResolver(nil, reservedHostname("h1"))
	v, err := r.Resolve(String("prefix$pullconf::x"))
	require.NoError(t, err)
	got, _ := v.AsString()
	assert.Equal(t, "prefix$pullconf::x", got)
}

func TestResolveTyped_Mismatch(t *testing.T) {
	vars := map[string]Value{"flag": String("not-a-bool")}
	r := NewResolver(vars, reservedHostname("h1"))

	_, err := ResolveTyped(r, "enabled", String("$pullconf::flag"), KindBool)
	require.Error(t, err)
	var mismatch *TypeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, KindBool, mismatch.Expected)
	assert.Equal(t, KindString, mismatch.Got)
}

func TestResolve_Idempotent(t *testing.T) {
	vars := map[string]Value{"x": String("b")}
	tree := Array([]Value{String("a"), String("$pullconf::x")})

	r1 := NewResolver(vars, reservedHostname("h1"))
	first, err := r1.Resolve(tree)
	require.NoError(t, err)

	r2 := NewResolver(vars, reservedHostname("h1"))
	second, err := r2.Resolve(first)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestValueEqual(t *testing.T) {
	a := Table(map[string]Value{"k": Array([]Value{Int(1), Bool(true)})})
	b := Table(map[string]Value{"k": Array([]Value{Int(1), Bool(true)})})
	assert.True(t, a.Equal(b))

	c := Table(map[string]Value{"k": Array([]Value{Int(2), Bool(true)})})
	assert.False(t, a.Equal(c))
}
