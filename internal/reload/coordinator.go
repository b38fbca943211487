// Package reload implements component M: the signal-handling and
// filesystem-watch paths that drive a validating reload of the
// catalog store, grounded in the teacher's SignalHandler (debounce
// via atomic timestamp, a signal-listener/reload-worker goroutine
// pair feeding a buffered request channel).
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"pullconf/internal/assembler"
	"pullconf/internal/catalog"
	"pullconf/internal/depgraph"
	"pullconf/internal/loader"
	"pullconf/internal/metrics"
	"pullconf/internal/resource"
	"pullconf/internal/store"
	"pullconf/internal/variables"
)

// fsnotifyDebounce coalesces bursts of filesystem events (a `toml`
// save is often a write plus a rename) into a single reload, per
// SPEC_FULL.md's pinned answer to spec.md's watcher Open Question.
const fsnotifyDebounce = 300 * time.Millisecond

// signalDebounce prevents back-to-back SIGHUPs from each re-running
// the full pipeline.
const signalDebounce = 1 * time.Second

// Coordinator owns the reload pipeline's triggers: SIGHUP, always
// active, and an optional fsnotify watch on the resource directory.
// Exactly one reload runs at a time; the store is only ever swapped
// after every client has compiled successfully.
type Coordinator struct {
	resourceDir string
	assetDir    string
	watch       bool
	store       *store.Store
	logger      *slog.Logger

	lastReload atomic.Value // time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sigChan chan os.Signal
	reqChan chan struct{}

	watcher *fsnotify.Watcher
}

// New constructs a Coordinator. watchResourceDir mirrors
// serverconfig.Config.WatchResourceDir. assetDir bounds every file
// resource's source attribute (spec.md §3 invariant 6).
func New(resourceDir, assetDir string, st *store.Store, logger *slog.Logger, watchResourceDir bool) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		resourceDir: resourceDir,
		assetDir:    assetDir,
		watch:       watchResourceDir,
		store:       st,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		sigChan:     make(chan os.Signal, 1),
		reqChan:     make(chan struct{}, 1),
	}
}

// Start performs an initial synchronous reload, then begins listening
// for SIGHUP and, if configured, filesystem-change triggers.
func (c *Coordinator) Start() error {
	if err := c.Reload(); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}

	signal.Notify(c.sigChan, syscall.SIGHUP)
	c.wg.Add(1)
	go c.signalListener()
	c.wg.Add(1)
	go c.reloadWorker()

	if c.watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("starting resource directory watcher: %w", err)
		}
		if err := addRecursive(watcher, c.resourceDir); err != nil {
			watcher.Close()
			return fmt.Errorf("watching %s: %w", c.resourceDir, err)
		}
		c.watcher = watcher
		c.wg.Add(1)
		go c.watchListener()
	}

	c.logger.Info("reload coordinator started",
		"resource_dir", c.resourceDir,
		"watch_enabled", c.watch,
	)
	return nil
}

// Stop ends signal and filesystem-watch handling and waits for
// in-flight goroutines to exit.
func (c *Coordinator) Stop() {
	signal.Stop(c.sigChan)
	close(c.sigChan)
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.cancel()
	c.wg.Wait()
}

func (c *Coordinator) signalListener() {
	defer c.wg.Done()
	for {
		select {
		case sig, ok := <-c.sigChan:
			if !ok {
				return
			}
			c.logger.Info("received signal", "signal", sig.String())
			c.requestReload()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Coordinator) watchListener() {
	defer c.wg.Done()
	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(fsnotifyDebounce, c.requestReload)
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("resource directory watch error", "error", err)
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Coordinator) requestReload() {
	select {
	case c.reqChan <- struct{}{}:
	default:
		c.logger.Warn("reload already queued, dropping duplicate trigger")
	}
}

func (c *Coordinator) reloadWorker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.reqChan:
			if c.shouldDebounce() {
				c.logger.Debug("reload debounced")
				continue
			}
			c.lastReload.Store(time.Now())
			if err := c.Reload(); err != nil {
				c.logger.Error("reload failed, catalog store left unchanged", "error", err)
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Coordinator) shouldDebounce() bool {
	last, ok := c.lastReload.Load().(time.Time)
	if !ok {
		return false
	}
	return time.Since(last) < signalDebounce
}

// Reload runs the full loader/resolver/assembler/depgraph pipeline
// and, only if every client compiles, publishes the resulting
// catalogs to the store. It is synchronous and safe to call directly
// for the process's initial load.
func (c *Coordinator) Reload() (err error) {
	start := time.Now()
	defer func() {
		metrics.ReloadDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ReloadTotal.WithLabelValues("error").Inc()
			return
		}
		metrics.ReloadTotal.WithLabelValues("success").Inc()
	}()

	clients, groups, err := loader.Load(c.resourceDir)
	if err != nil {
		return fmt.Errorf("loading resource tree: %w", err)
	}

	groupsByName := make(map[string]loader.GroupDocument, len(groups))
	for _, g := range groups {
		groupsByName[g.Name] = g
	}

	entries := make(map[string]store.ClientEntry, len(clients))
	var failures []string

	for _, client := range clients {
		entry, err := CompileClient(client, groupsByName, c.assetDir)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", client.Hostname, err))
			continue
		}
		entries[client.Hostname] = *entry
	}

	if len(failures) > 0 {
		sort.Strings(failures)
		return fmt.Errorf("%d client(s) failed to compile: %s", len(failures), joinSemicolon(failures))
	}

	c.store.Publish(entries)
	metrics.ReloadClientsTotal.Set(float64(len(entries)))
	c.logger.Info("reload succeeded",
		"clients", len(entries),
		"duration", time.Since(start),
	)
	return nil
}

// CompileClient runs one client through B (variable resolution) and
// C (typed parsing) for its own resources and those of every group it
// declares, then D (assembly), E+F (dependency graph validation), and
// the asset-root check for every file resource's source (spec.md §3
// invariant 6).
func CompileClient(client loader.ClientDocument, groupsByName map[string]loader.GroupDocument, assetDir string) (*store.ClientEntry, error) {
	reserved := map[string]variables.Value{
		"hostname": variables.String(client.Hostname),
	}
	resolver := variables.NewResolver(client.Variables, reserved)

	clientResources, err := parseAll(client.File, client.Resources, resolver)
	if err != nil {
		return nil, err
	}

	groupResourcesByName := make(map[string][]*resource.Resource, len(client.Groups))
	for _, name := range client.Groups {
		group, ok := groupsByName[name]
		if !ok {
			return nil, fmt.Errorf("unknown group %q", name)
		}
		parsed, err := parseAll(group.File, group.Resources, resolver)
		if err != nil {
			return nil, err
		}
		groupResourcesByName[name] = parsed
	}
	groupResources := assembler.CollectGroupResources(client.Groups, groupResourcesByName)

	assembled, err := assembler.Assemble(client.Hostname, clientResources, groupResources)
	if err != nil {
		return nil, err
	}

	if _, err := depgraph.Build(assembled); err != nil {
		return nil, err
	}

	if err := validateSourcePaths(assetDir, assembled); err != nil {
		return nil, err
	}

	version := catalog.ComputeVersion(assembled)
	cat := catalog.FromResources(client.Hostname, version, assembled)

	return &store.ClientEntry{Catalog: cat, APIKeyHash: client.APIKeyHash}, nil
}

// validateSourcePaths enforces spec.md §3 invariant 6: a file
// resource's source, if present, must resolve under assetDir with no
// traversal outside it. An empty assetDir rejects every source
// outright, since there is then no root for it to resolve under.
func validateSourcePaths(assetDir string, resources []*resource.Resource) error {
	cleanRoot := filepath.Clean(assetDir)
	for _, r := range resources {
		if r.ID.Kind != resource.KindFile {
			continue
		}
		attrs, ok := r.Attributes.(resource.FileAttributes)
		if !ok || attrs.Source == nil {
			continue
		}
		if assetDir == "" {
			return fmt.Errorf("file %s: source %q requires an asset directory to resolve under", r.ID.Key, *attrs.Source)
		}
		full := filepath.Join(cleanRoot, *attrs.Source)
		if full != cleanRoot && !strings.HasPrefix(full, cleanRoot+string(filepath.Separator)) {
			return fmt.Errorf("file %s: source %q escapes the asset directory", r.ID.Key, *attrs.Source)
		}
	}
	return nil
}

func parseAll(file string, raw []resource.RawResource, resolver *variables.Resolver) ([]*resource.Resource, error) {
	parsed := make([]*resource.Resource, 0, len(raw))
	for _, r := range raw {
		res, err := resource.Parse(file, r.Name, r, resolver)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, res)
	}
	return parsed, nil
}

func joinSemicolon(items []string) string {
	out := items[0]
	for _, item := range items[1:] {
		out += "; " + item
	}
	return out
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	dirs := []string{filepath.Join(root, "clients"), filepath.Join(root, "groups")}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
	}
	return nil
}
