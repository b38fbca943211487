package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pullconf/internal/applier"
	"pullconf/internal/depgraph"
	"pullconf/internal/resource"
)

func dir(path string) *resource.Resource {
	return &resource.Resource{ID: resource.Identity{Kind: resource.KindDirectory, Key: path}, Attributes: resource.DirectoryAttributes{Path: path}}
}

func file(path string) *resource.Resource {
	return &resource.Resource{ID: resource.Identity{Kind: resource.KindFile, Key: path}, Attributes: resource.FileAttributes{Path: path}}
}

func TestRun_AppliesInDependencyOrder(t *testing.T) {
	srv := dir("/srv")
	app := dir("/srv/app")
	cfg := file("/srv/app/config.yml")

	g, err := depgraph.Build([]*resource.Resource{cfg, app, srv})
	require.NoError(t, err)

	results := Run(g, applier.AlwaysApplied)
	require.Len(t, results, 3)

	order := make(map[resource.Identity]int, 3)
	for i, r := range results {
		order[r.Resource.ID] = i
	}
	assert.Less(t, order[srv.ID], order[app.ID])
	assert.Less(t, order[app.ID], order[cfg.ID])

	for _, r := range results {
		assert.Equal(t, Applied, r.State)
	}
}

func TestRun_FailurePropagatesSkipToDependents(t *testing.T) {
	srv := dir("/srv")
	app := dir("/srv/app")
	cfg := file("/srv/app/config.yml")

	g, err := depgraph.Build([]*resource.Resource{cfg, app, srv})
	require.NoError(t, err)

	failing := applier.Func(func(r *resource.Resource) applier.Result {
		if r.ID == app.ID {
			return applier.Result{Outcome: applier.Failed, Err: errors.New("boom")}
		}
		return applier.Result{Outcome: applier.Applied}
	})

	results := Run(g, failing)
	byID := make(map[resource.Identity]Result, len(results))
	for _, r := range results {
		byID[r.Resource.ID] = r
	}

	assert.Equal(t, Applied, byID[srv.ID].State)
	assert.Equal(t, Failed, byID[app.ID].State)
	assert.Equal(t, Skipped, byID[cfg.ID].State)
}

func TestRun_IndependentResourcesBothProcessed(t *testing.T) {
	a := file("/etc/a")
	b := file("/etc/b")

	g, err := depgraph.Build([]*resource.Resource{a, b})
	require.NoError(t, err)

	results := Run(g, applier.AlwaysNoChange)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, NoChange, r.State)
	}
}

func TestRun_KindPriorityOrdersTiedReadyResources(t *testing.T) {
	f := file("/etc/motd")
	d := dir("/srv")

	g, err := depgraph.Build([]*resource.Resource{f, d})
	require.NoError(t, err)

	results := Run(g, applier.AlwaysApplied)
	require.Len(t, results, 2)
	assert.Equal(t, d.ID, results[0].Resource.ID)
	assert.Equal(t, f.ID, results[1].Resource.ID)
}
