// Package depgraph implements components E and F: it infers implicit
// dependency edges from domain rules, resolves explicit `requires`
// references, and confirms the resulting graph is a DAG.
package depgraph

import (
	"fmt"
	"sort"

	"pullconf/internal/resource"
)

const (
	etcHosts             = "/etc/hosts"
	etcResolvConf        = "/etc/resolv.conf"
	etcAptPreferencesDir = "/etc/apt/preferences.d"
	etcCronDir           = "/etc/cron.d"
)

// GraphError reports a cycle or an illogical edge found while
// validating the dependency graph (component F).
type GraphError struct {
	Reason string
	Chain  []resource.Identity
}

func (e *GraphError) Error() string {
	if len(e.Chain) == 0 {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, formatChain(e.Chain))
}

func formatChain(chain []resource.Identity) string {
	out := ""
	for i, id := range chain {
		if i > 0 {
			out += " -> "
		}
		out += id.String()
	}
	return out
}

// Graph is an arena-indexed representation of a client's candidate
// catalog after dependency inference: nodes are stored once in a
// slice, edges reference nodes by index rather than by pointer.
type Graph struct {
	Nodes   []*resource.Resource
	index   map[resource.Identity]int
	deps    [][]int // deps[i] = indices of nodes i depends on (must apply after)
	depends [][]int // reverse of deps: depends[i] = indices that depend on i
}

// Build infers implicit edges, resolves explicit `requires` edges, and
// validates the result is a DAG with no illogical ancestor/descendant
// edges. The returned Graph's Nodes are in the same order as catalog.
func Build(catalog []*resource.Resource) (*Graph, error) {
	g := &Graph{
		Nodes: catalog,
		index: make(map[resource.Identity]int, len(catalog)),
		deps:  make([][]int, len(catalog)),
	}
	for i, r := range catalog {
		g.index[r.ID] = i
	}

	for i, r := range catalog {
		implicit, err := g.inferImplicit(i, r)
		if err != nil {
			return nil, err
		}
		g.addDeps(i, implicit)
		r.ImplicitRequires = make([]resource.Identity, len(implicit))
		for k, j := range implicit {
			r.ImplicitRequires[k] = g.Nodes[j].ID
		}

		for _, ref := range r.Requires {
			j, ok := g.index[ref]
			if !ok {
				return nil, &GraphError{Reason: fmt.Sprintf("resource %s requires unresolved reference %s", r.ID, ref)}
			}
			g.addDep(i, j)
		}
	}

	g.populatePurgeChildren()

	if err := g.checkIllogicalEdges(); err != nil {
		return nil, err
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	g.buildReverse()
	return g, nil
}

func (g *Graph) addDep(i, j int) {
	if i == j {
		return
	}
	for _, existing := range g.deps[i] {
		if existing == j {
			return
		}
	}
	g.deps[i] = append(g.deps[i], j)
}

func (g *Graph) addDeps(i int, targets []int) {
	for _, j := range targets {
		g.addDep(i, j)
	}
}

func (g *Graph) buildReverse() {
	g.depends = make([][]int, len(g.Nodes))
	for i, targets := range g.deps {
		for _, j := range targets {
			g.depends[j] = append(g.depends[j], i)
		}
	}
}

// Dependencies returns the indices of the nodes node i must be applied
// after.
func (g *Graph) Dependencies(i int) []int { return g.deps[i] }

// Dependents returns the indices of nodes that depend on node i.
func (g *Graph) Dependents(i int) []int { return g.depends[i] }

// IndexOf returns the node index for an identity, or false if absent.
func (g *Graph) IndexOf(id resource.Identity) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// pathOf extracts the path attribute for the kinds that carry one.
func pathOf(r *resource.Resource) (string, bool) {
	switch a := r.Attributes.(type) {
	case resource.FileAttributes:
		return a.Path, true
	case resource.DirectoryAttributes:
		return a.Path, true
	case resource.SymlinkAttributes:
		return a.Path, true
	default:
		return "", false
	}
}

func isDirLike(k resource.Kind) bool {
	return k == resource.KindDirectory || k == resource.KindSymlink
}

func (g *Graph) inferImplicit(i int, r *resource.Resource) ([]int, error) {
	var out []int

	if p, ok := pathOf(r); ok {
		for j, other := range g.Nodes {
			if j == i || !isDirLike(other.ID.Kind) {
				continue
			}
			op, _ := pathOf(other)
			if resource.IsAncestorPath(op, p) {
				out = append(out, j)
			}
		}
	}

	switch a := r.Attributes.(type) {
	case resource.UserAttributes:
		for j, other := range g.Nodes {
			if other.ID.Kind != resource.KindGroup {
				continue
			}
			ga := other.Attributes.(resource.GroupAttributes)
			if containsString(a.SupplementaryGroups, ga.Name) {
				out = append(out, j)
			}
		}
	case resource.GroupAttributes:
		for j, other := range g.Nodes {
			if other.ID.Kind != resource.KindUser {
				continue
			}
			ua := other.Attributes.(resource.UserAttributes)
			if ua.PrimaryGroup == a.Name {
				out = append(out, j)
			}
		}
	case resource.HostAttributes:
		if j, ok := g.findFileOrSymlinkAt(etcHosts); ok {
			out = append(out, j)
		}
	case resource.ResolvConfAttributes:
		if j, ok := g.findFileOrSymlinkAt(etcResolvConf); ok {
			out = append(out, j)
		}
	case resource.AptPreferenceAttributes:
		out = append(out, g.findAncestorDirectories(etcAptPreferencesDir)...)
	case resource.CronJobAttributes:
		out = append(out, g.findAncestorDirectories(etcCronDir)...)
	}

	return out, nil
}

func (g *Graph) findFileOrSymlinkAt(path string) (int, bool) {
	for j, other := range g.Nodes {
		if other.ID.Kind != resource.KindFile && other.ID.Kind != resource.KindSymlink {
			continue
		}
		if p, _ := pathOf(other); p == path {
			return j, true
		}
	}
	return 0, false
}

// findAncestorDirectories returns directory/symlink nodes whose path
// is fixedDir itself or a proper ancestor of it.
func (g *Graph) findAncestorDirectories(fixedDir string) []int {
	var out []int
	for j, other := range g.Nodes {
		if !isDirLike(other.ID.Kind) {
			continue
		}
		p, _ := pathOf(other)
		if p == fixedDir || resource.IsAncestorPath(p, fixedDir) {
			out = append(out, j)
		}
	}
	return out
}

// populatePurgeChildren records, for each directory with purge = true,
// the set of managed children whose path's immediate parent is that
// directory's path (spec.md §4.E). This does not add graph edges; the
// applier uses it to compute which on-disk entries are unmanaged and
// eligible for removal.
func (g *Graph) populatePurgeChildren() {
	for _, r := range g.Nodes {
		dirAttrs, ok := r.Attributes.(resource.DirectoryAttributes)
		if !ok || !dirAttrs.Purge {
			continue
		}
		var children []string
		for _, other := range g.Nodes {
			p, ok := pathOf(other)
			if !ok || other == r {
				continue
			}
			if resource.ParentPath(p) == dirAttrs.Path {
				children = append(children, p)
			}
		}
		sort.Strings(children)
		r.PurgeChildren = children
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// checkIllogicalEdges rejects a directory/file/symlink depending
// (directly or transitively) on a resource whose path is a descendant
// of its own path (spec.md §4.F).
func (g *Graph) checkIllogicalEdges() error {
	for i, r := range g.Nodes {
		p, ok := pathOf(r)
		if !ok {
			continue
		}
		for _, j := range g.reachableFrom(i) {
			op, ok := pathOf(g.Nodes[j])
			if !ok {
				continue
			}
			if resource.IsAncestorPath(p, op) {
				return &GraphError{Reason: fmt.Sprintf(
					"%s depends on %s, whose path is a descendant of its own", r.ID, g.Nodes[j].ID)}
			}
		}
	}
	return nil
}

func (g *Graph) reachableFrom(start int) []int {
	visited := make(map[int]bool)
	var stack []int
	stack = append(stack, g.deps[start]...)
	var out []int
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, cur)
		stack = append(stack, g.deps[cur]...)
	}
	return out
}

// checkAcyclic runs a depth-first search over the dependency edges to
// confirm the graph is a DAG, reporting the participating identities
// on failure.
func (g *Graph) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.Nodes))
	var stack []resource.Identity

	var visit func(i int) error
	visit = func(i int) error {
		color[i] = gray
		stack = append(stack, g.Nodes[i].ID)
		for _, j := range g.deps[i] {
			switch color[j] {
			case white:
				if err := visit(j); err != nil {
					return err
				}
			case gray:
				cycleStart := indexOfIdentity(stack, g.Nodes[j].ID)
				chain := append(append([]resource.Identity{}, stack[cycleStart:]...), g.Nodes[j].ID)
				return &GraphError{Reason: "dependency cycle detected", Chain: chain}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	order := make([]int, len(g.Nodes))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return g.Nodes[order[a]].ID.String() < g.Nodes[order[b]].ID.String() })

	for _, i := range order {
		if color[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func indexOfIdentity(chain []resource.Identity, id resource.Identity) int {
	for i, c := range chain {
		if c == id {
			return i
		}
	}
	return 0
}
