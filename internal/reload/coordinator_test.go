package reload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pullconf/internal/store"
)

func writeResourceTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "clients"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "groups"), 0o755))
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestReload_PublishesOnSuccess(t *testing.T) {
	root := writeResourceTree(t, map[string]string{
		"clients/web01.toml": `
api_key_hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
groups = ["web"]

[[resources]]
type = "file"
path = "/etc/motd"
content = "hi"
`,
		"groups/web.toml": `
[[resources]]
type = "directory"
path = "/srv/app"
`,
	})

	st := store.New()
	c := New(root, t.TempDir(), st, nil, false)
	require.NoError(t, c.Reload())

	entry, ok := st.Lookup("web01")
	require.True(t, ok)
	assert.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", entry.APIKeyHash)
	assert.Len(t, entry.Catalog.Entries, 2)
}

func TestReload_LeavesStoreUntouchedOnClientFailure(t *testing.T) {
	root := writeResourceTree(t, map[string]string{
		"clients/web01.toml": `
api_key_hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

[[resources]]
type = "file"
path = "/etc/motd"
content = "hi"
`,
	})

	st := store.New()
	c := New(root, t.TempDir(), st, nil, false)
	require.NoError(t, c.Reload())
	_, ok := st.Lookup("web01")
	require.True(t, ok)

	// Break the tree: reference an undeclared group.
	require.NoError(t, os.WriteFile(filepath.Join(root, "clients", "web01.toml"), []byte(`
api_key_hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
groups = ["missing"]

[[resources]]
type = "file"
path = "/etc/motd"
content = "hi"
`), 0o644))

	err := c.Reload()
	require.Error(t, err)

	entry, ok := st.Lookup("web01")
	require.True(t, ok)
	assert.Len(t, entry.Catalog.Entries, 1, "prior catalog must survive a failed reload")
}

func TestReload_FailsOnDependencyCycle(t *testing.T) {
	root := writeResourceTree(t, map[string]string{
		"clients/web01.toml": `
api_key_hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

[[resources]]
name = "a"
type = "file"
path = "/etc/a"
content = "a"
requires = ["file:/etc/b"]

[[resources]]
name = "b"
type = "file"
path = "/etc/b"
content = "b"
requires = ["file:/etc/a"]
`,
	})

	st := store.New()
	c := New(root, t.TempDir(), st, nil, false)
	err := c.Reload()
	require.Error(t, err)
	_, ok := st.Lookup("web01")
	assert.False(t, ok)
}

func TestReload_RejectsSourceOutsideAssetDir(t *testing.T) {
	root := writeResourceTree(t, map[string]string{
		"clients/web01.toml": `
api_key_hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

[[resources]]
type = "file"
path = "/etc/motd"
source = "../../etc/shadow"
`,
	})

	st := store.New()
	c := New(root, t.TempDir(), st, nil, false)
	err := c.Reload()
	require.Error(t, err)
	_, ok := st.Lookup("web01")
	assert.False(t, ok)
}

func TestReload_AllowsSourceUnderAssetDir(t *testing.T) {
	assetDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(assetDir, "motd.d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "motd.d", "motd.tmpl"), []byte("hi"), 0o644))

	root := writeResourceTree(t, map[string]string{
		"clients/web01.toml": `
api_key_hash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

[[resources]]
type = "file"
path = "/etc/motd"
source = "motd.d/motd.tmpl"
`,
	})

	st := store.New()
	c := New(root, assetDir, st, nil, false)
	require.NoError(t, c.Reload())
	_, ok := st.Lookup("web01")
	require.True(t, ok)
}
