package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pullconf/internal/agentclient"
	"pullconf/internal/agentconfig"
	"pullconf/internal/applier"
	"pullconf/internal/catalog"
	"pullconf/internal/depgraph"
	"pullconf/internal/logging"
	"pullconf/internal/metrics"
	"pullconf/internal/scheduler"
)

var once bool
var configFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the server and converge this host's catalog",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&once, "once", false, "run a single convergence cycle and exit")
	runCmd.Flags().StringVar(&configFile, "config", "", "optional config file read before environment variables (local testing convenience)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := agentconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})
	logger.Info("starting pullconf-agent", "config", cfg.Sanitize())

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("resolving local hostname: %w", err)
	}

	client, err := agentclient.New(cfg.ServerURL, cfg.APIKey, cfg.TLSCACertificate, 30*time.Second)
	if err != nil {
		return fmt.Errorf("building server client: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	converge(hostname, client, logger)
	if once {
		return nil
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			logger.Info("shutdown signal received, exiting after in-progress cycle")
			return nil
		case <-ticker.C:
			converge(hostname, client, logger)
		}
	}
}

// converge runs one fetch-build-schedule cycle and logs its outcome.
// A cycle's own failures (fetch errors, an invalid catalog) are logged
// and swallowed so a single bad poll never brings the agent down; only
// the next tick or signal changes its control flow.
func converge(hostname string, client *agentclient.Client, logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}) {
	cat, err := client.FetchCatalog(hostname)
	if err != nil {
		logger.Error("fetching catalog", "hostname", hostname, "error", err)
		return
	}

	resources, err := catalog.ToResources(*cat)
	if err != nil {
		logger.Error("decoding catalog", "hostname", hostname, "version", cat.Version, "error", err)
		return
	}

	graph, err := depgraph.Build(resources)
	if err != nil {
		logger.Error("building dependency graph", "hostname", hostname, "version", cat.Version, "error", err)
		return
	}

	runStart := time.Now()
	results := scheduler.Run(graph, applier.AlwaysNoChange)
	metrics.SchedulerRunDuration.Observe(time.Since(runStart).Seconds())
	for _, r := range results {
		metrics.SchedulerResourceTotal.WithLabelValues(string(r.Resource.ID.Kind), r.State.String()).Inc()
		if r.Err != nil {
			logger.Error("applying resource", "kind", r.Resource.ID.Kind, "key", r.Resource.ID.Key, "state", r.State.String(), "error", r.Err)
			continue
		}
		logger.Info("applied resource", "kind", r.Resource.ID.Kind, "key", r.Resource.ID.Key, "state", r.State.String())
	}
	logger.Info("convergence cycle complete", "hostname", hostname, "version", cat.Version, "resources", len(results))
}
