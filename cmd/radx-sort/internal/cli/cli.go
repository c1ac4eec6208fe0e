// Package cli wires the kong command line for radx-sort, grounded on the
// teacher's cmd/radx/internal/cli/cli.go (kong.Parse + logger setup
// shape) and spec §4.9-§4.12 for the four-step state machine this binary
// drives end to end.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/config"
	"github.com/codeninja55/go-radx/internal/jobctl"
	"github.com/codeninja55/go-radx/internal/obs"
	"github.com/codeninja55/go-radx/internal/sortpipe"
)

const (
	appName        = "radx-sort"
	appDescription = "Checkup -> Fingerprint -> Classification -> Completion sorting pipeline"
)

// CLI is the flag surface for one sorting run, mirroring
// config.SortConfig.
type CLI struct {
	config.GlobalConfig

	CohortID           int64  `help:"Cohort id to sort (matches the id radx-ingest reported)" required:""`
	SkipClassified     bool   `help:"Skip series already present in series_classification_cache" default:"true"`
	ForceReprocess     bool   `help:"Reprocess series even if already classified"`
	Profile            bool   `help:"Sets the sort config's profile field; the sorting steps do not read it"`
	SelectedModalities string `help:"Comma-separated modality filter" default:"MR,CT,PT"`
	SSE                bool   `help:"Emit each step's progress event to stdout as Server-Sent Events"`
}

// Run parses arguments and executes Steps 1-4 against the given cohort.
func Run(version, commit, date string) error {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name(appName),
		kong.Description(appDescription),
		kong.UsageOnError(),
		kong.Vars{"version": version, "commit": commit, "date": date},
	)

	logger := obs.NewLogger(obs.Options{Level: cliArgs.LogLevel, Pretty: cliArgs.Pretty, Debug: cliArgs.Debug})

	cfg := config.SortConfig{
		CohortID:           cliArgs.CohortID,
		SkipClassified:     cliArgs.SkipClassified && !cliArgs.ForceReprocess,
		ForceReprocess:     cliArgs.ForceReprocess,
		Profile:            cliArgs.Profile,
		SelectedModalities: splitModalities(cliArgs.SelectedModalities),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cliArgs.DatabaseURL)
	if err != nil {
		return fmt.Errorf("radx-sort: connect to database: %w", err)
	}
	defer pool.Close()

	jc := jobctl.New(time.Now().UnixNano())

	emit1 := jobctl.NewEmitter("checkup")
	h1, err := sortpipe.Checkup(ctx, pool, cfg, emit1)
	if err != nil {
		reportEvent(cliArgs.SSE, emit1.Event(jobctl.StatusError, 0, err.Error(), nil))
		return fmt.Errorf("radx-sort: checkup: %w", err)
	}
	logStep(logger, "checkup", h1.Metrics.Warnings, metricsMap(h1.Metrics))
	reportEvent(cliArgs.SSE, emit1.Event(statusFor(h1.Metrics.Warnings), 25, "checkup complete", metricsMap(h1.Metrics)))
	if len(h1.SeriesToProcess) == 0 {
		logger.Warn("no series in scope for sorting; stopping before fingerprinting")
		return nil
	}

	emit2 := jobctl.NewEmitter("fingerprint")
	h2, err := sortpipe.Fingerprint(ctx, pool, jc, h1, emit2)
	if err != nil {
		reportEvent(cliArgs.SSE, emit2.Event(jobctl.StatusError, 25, err.Error(), nil))
		return fmt.Errorf("radx-sort: fingerprint: %w", err)
	}
	logStep(logger, "fingerprint", nil, metricsMap(h2.Metrics))
	reportEvent(cliArgs.SSE, emit2.Event(jobctl.StatusComplete, 50, "fingerprint complete", metricsMap(h2.Metrics)))

	emit3 := jobctl.NewEmitter("classification")
	h3, err := sortpipe.Classify(ctx, pool, jc, h2, emit3)
	if err != nil {
		reportEvent(cliArgs.SSE, emit3.Event(jobctl.StatusError, 50, err.Error(), nil))
		return fmt.Errorf("radx-sort: classification: %w", err)
	}
	logStep(logger, "classification", nil, metricsMap(h3.Metrics))
	reportEvent(cliArgs.SSE, emit3.Event(jobctl.StatusComplete, 75, "classification complete", metricsMap(h3.Metrics)))

	emit4 := jobctl.NewEmitter("completion")
	h4, err := sortpipe.Complete(ctx, pool, jc, h3, emit4)
	if err != nil {
		reportEvent(cliArgs.SSE, emit4.Event(jobctl.StatusError, 75, err.Error(), nil))
		return fmt.Errorf("radx-sort: completion: %w", err)
	}
	logStep(logger, "completion", nil, metricsMap(h4.Metrics))
	reportEvent(cliArgs.SSE, emit4.Event(jobctl.StatusComplete, 100, "completion complete", metricsMap(h4.Metrics)))

	logger.Info("sorting pipeline complete",
		"total_completed", h4.TotalCompleted,
		"gaps_filled", h4.GapsFilled,
		"misc_resolved", h4.MiscResolved,
		"requires_review", len(h4.StacksRequiringReview),
	)
	return nil
}

func splitModalities(csv string) []string {
	var out []string
	for _, m := range strings.Split(csv, ",") {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

func statusFor(warnings []string) jobctl.Status {
	if len(warnings) > 0 {
		return jobctl.StatusWarning
	}
	return jobctl.StatusComplete
}

func logStep(logger *log.Logger, step string, warnings []string, metrics map[string]any) {
	kv := []any{"step", step}
	for k, v := range metrics {
		kv = append(kv, k, v)
	}
	if len(warnings) > 0 {
		kv = append(kv, "warnings", warnings)
		logger.Warn("step finished with warnings", kv...)
		return
	}
	logger.Info("step complete", kv...)
}

// metricsMap converts a step's typed Metrics struct into the
// map[string]any a ProgressEvent carries, via its JSON encoding (spec §6
// "Job control and progress").
func metricsMap(metrics any) map[string]any {
	data, err := json.Marshal(metrics)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func reportEvent(enabled bool, ev jobctl.ProgressEvent) {
	if !enabled {
		return
	}
	_ = jobctl.EncodeSSE(os.Stdout, ev)
}
