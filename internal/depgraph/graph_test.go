package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pullconf/internal/resource"
)

func dir(path string) *resource.Resource {
	return &resource.Resource{ID: resource.Identity{Kind: resource.KindDirectory, Key: path}, Attributes: resource.DirectoryAttributes{Path: path}}
}

func file(path string) *resource.Resource {
	return &resource.Resource{ID: resource.Identity{Kind: resource.KindFile, Key: path}, Attributes: resource.FileAttributes{Path: path}}
}

func user(name, primaryGroup string, suppGroups ...string) *resource.Resource {
	return &resource.Resource{
		ID:         resource.Identity{Kind: resource.KindUser, Key: name},
		Attributes: resource.UserAttributes{Name: name, PrimaryGroup: primaryGroup, SupplementaryGroups: suppGroups},
	}
}

func group(name string) *resource.Resource {
	return &resource.Resource{ID: resource.Identity{Kind: resource.KindGroup, Key: name}, Attributes: resource.GroupAttributes{Name: name}}
}

func TestBuild_FilesystemAncestry(t *testing.T) {
	srv := dir("/srv")
	app := dir("/srv/app")
	cfg := file("/srv/app/config.yml")

	g, err := Build([]*resource.Resource{srv, app, cfg})
	require.NoError(t, err)

	cfgIdx, _ := g.IndexOf(cfg.ID)
	deps := g.Dependencies(cfgIdx)
	require.Len(t, deps, 2)

	var depIDs []resource.Identity
	for _, d := range deps {
		depIDs = append(depIDs, g.Nodes[d].ID)
	}
	assert.Contains(t, depIDs, srv.ID)
	assert.Contains(t, depIDs, app.ID)
}

func TestBuild_UserGroupCoupling(t *testing.T) {
	g1 := group("admins")
	u := user("alice", "alice", "admins")
	g2 := group("alice")

	g, err := Build([]*resource.Resource{g1, u, g2})
	require.NoError(t, err)

	uIdx, _ := g.IndexOf(u.ID)
	var depIDs []resource.Identity
	for _, d := range g.Dependencies(uIdx) {
		depIDs = append(depIDs, g.Nodes[d].ID)
	}
	assert.Contains(t, depIDs, g1.ID)

	g2Idx, _ := g.IndexOf(g2.ID)
	var g2Deps []resource.Identity
	for _, d := range g.Dependencies(g2Idx) {
		g2Deps = append(g2Deps, g.Nodes[d].ID)
	}
	assert.Contains(t, g2Deps, u.ID)
}

func TestBuild_HostDependsOnEtcHostsFile(t *testing.T) {
	hostsFile := file("/etc/hosts")
	host := &resource.Resource{ID: resource.Identity{Kind: resource.KindHost, Key: "10.0.0.1"}, Attributes: resource.HostAttributes{IPAddress: "10.0.0.1", Hostnames: []string{"db"}}}

	g, err := Build([]*resource.Resource{hostsFile, host})
	require.NoError(t, err)
	hostIdx, _ := g.IndexOf(host.ID)
	deps := g.Dependencies(hostIdx)
	require.Len(t, deps, 1)
	assert.Equal(t, hostsFile.ID, g.Nodes[deps[0]].ID)
}

func TestBuild_ExplicitRequires(t *testing.T) {
	a := file("/etc/a")
	b := &resource.Resource{ID: resource.Identity{Kind: resource.KindFile, Key: "/etc/b"}, Attributes: resource.FileAttributes{Path: "/etc/b"}, Requires: []resource.Identity{a.ID}}

	g, err := Build([]*resource.Resource{a, b})
	require.NoError(t, err)
	bIdx, _ := g.IndexOf(b.ID)
	deps := g.Dependencies(bIdx)
	require.Len(t, deps, 1)
	assert.Equal(t, a.ID, g.Nodes[deps[0]].ID)
}

func TestBuild_UnresolvedRequiresFails(t *testing.T) {
	b := &resource.Resource{ID: resource.Identity{Kind: resource.KindFile, Key: "/etc/b"}, Attributes: resource.FileAttributes{Path: "/etc/b"}, Requires: []resource.Identity{{Kind: resource.KindFile, Key: "/etc/missing"}}}

	_, err := Build([]*resource.Resource{b})
	require.Error(t, err)
}

func TestBuild_CycleDetected(t *testing.T) {
	a := &resource.Resource{ID: resource.Identity{Kind: resource.KindFile, Key: "/etc/a"}, Attributes: resource.FileAttributes{Path: "/etc/a"}}
	b := &resource.Resource{ID: resource.Identity{Kind: resource.KindFile, Key: "/etc/b"}, Attributes: resource.FileAttributes{Path: "/etc/b"}}
	a.Requires = []resource.Identity{b.ID}
	b.Requires = []resource.Identity{a.ID}

	_, err := Build([]*resource.Resource{a, b})
	require.Error(t, err)
	var gerr *GraphError
	require.ErrorAs(t, err, &gerr)
	assert.NotEmpty(t, gerr.Chain)
}

func TestBuild_IllogicalAncestorDependsOnDescendantRejected(t *testing.T) {
	parent := dir("/srv")
	child := file("/srv/app.conf")
	parent.Requires = []resource.Identity{child.ID}

	_, err := Build([]*resource.Resource{parent, child})
	require.Error(t, err)
}

func TestBuild_AptPreferenceDependsOnAncestorDirectory(t *testing.T) {
	aptDir := dir("/etc/apt/preferences.d")
	pref := &resource.Resource{ID: resource.Identity{Kind: resource.KindAptPreference, Key: "nginx"}, Attributes: resource.AptPreferenceAttributes{Package: "nginx", Pin: "release o=Debian", Priority: 900}}

	g, err := Build([]*resource.Resource{aptDir, pref})
	require.NoError(t, err)
	prefIdx, _ := g.IndexOf(pref.ID)
	deps := g.Dependencies(prefIdx)
	require.Len(t, deps, 1)
	assert.Equal(t, aptDir.ID, g.Nodes[deps[0]].ID)
}

func TestBuild_DependentsIsReverseOfDependencies(t *testing.T) {
	srv := dir("/srv")
	app := dir("/srv/app")

	g, err := Build([]*resource.Resource{srv, app})
	require.NoError(t, err)
	srvIdx, _ := g.IndexOf(srv.ID)
	appIdx, _ := g.IndexOf(app.ID)
	assert.Contains(t, g.Dependents(srvIdx), appIdx)
}
