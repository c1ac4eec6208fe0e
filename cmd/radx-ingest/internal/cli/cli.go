// Package cli wires the kong command line for radx-ingest, grounded on
// the teacher's cmd/radx/internal/cli/cli.go (kong.Parse + logger setup
// shape) and original_source/backend/src/extract/config.py for the flag
// surface.
package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/config"
	"github.com/codeninja55/go-radx/internal/extract"
	"github.com/codeninja55/go-radx/internal/extract/resume"
	"github.com/codeninja55/go-radx/internal/jobctl"
	"github.com/codeninja55/go-radx/internal/obs"
	"github.com/codeninja55/go-radx/internal/store"
)

const (
	appName        = "radx-ingest"
	appDescription = "Parallel DICOM extraction engine"
)

// CLI is the full flag surface for one extraction run. Most fields mirror
// config.ExtractionConfig directly; ConfigFile, when set, loads the
// config from YAML instead; of the extraction flags only --cohort-name and
// --raw-root, when non-empty, still override the file.
type CLI struct {
	config.GlobalConfig

	ConfigFile string `help:"Load extraction config from a YAML file instead of flags" type:"existingfile"`

	CohortName string `help:"Cohort name (created if it does not exist)" required:""`
	RawRoot    string `help:"Root directory whose immediate children are subject folders" required:"" type:"existingdir"`

	MaxWorkers           int    `help:"Subjects processed concurrently" default:"4"`
	BatchSize            int    `help:"Initial batch size per writer call" default:"100"`
	QueueSize            int    `help:"Reserved for the async queue depth (spec §4.7)" default:"10"`
	ExtensionMode        string `help:"File extension filter" enum:"dcm,DCM,all_dcm,no_ext,all" default:"all"`
	DuplicatePolicy      string `help:"Duplicate SOPInstanceUID policy" enum:"skip,overwrite,append_series" default:"skip"`
	Resume               bool   `help:"Skip instances already logged as non-inserted conflicts" default:"true"`
	ResumeByPath         bool   `help:"Resume by comparing file paths already stored for this cohort"`
	SeriesWorkersPerSubj int    `help:"Internal per-subject file parse concurrency multiplier" default:"1"`
	AdaptiveBatching     bool   `help:"Enable the adaptive batch size controller"`
	TargetTxMillis       int    `help:"Target write-batch latency for adaptive batching" default:"200"`
	MinBatchSize         int    `help:"Adaptive batching lower bound" default:"50"`
	MaxBatchSize         int    `help:"Adaptive batching upper bound" default:"1000"`
	DBWriterPoolSize     int    `help:"Number of concurrent DB writers" default:"1"`
	SubjectIDTypeID      int64  `help:"id_type_id to record alongside other subject identifiers (0 = none)"`

	SubjectCodeSeed      string `help:"Seed for the subject_code BLAKE2b hash (defaults to cohort name)"`
	SubjectCodeCSV       string `help:"Optional CSV mapping PatientID to a forced subject_code" type:"existingfile"`
	SubjectCodePatientCol string `help:"Patient ID column name in --subject-code-csv" default:"patient_id"`
	SubjectCodeSubjectCol string `help:"subject_code column name in --subject-code-csv" default:"subject_code"`
}

// Run parses arguments, wires the extraction engine, and executes one run.
func Run(version, commit, date string) error {
	cliArgs := &CLI{}
	kong.Parse(cliArgs,
		kong.Name(appName),
		kong.Description(appDescription),
		kong.UsageOnError(),
		kong.Vars{"version": version, "commit": commit, "date": date},
	)

	logger := obs.NewLogger(obs.Options{Level: cliArgs.LogLevel, Pretty: cliArgs.Pretty, Debug: cliArgs.Debug})

	cfg, err := cliArgs.extractionConfig()
	if err != nil {
		return err
	}

	subjectCodeMap := map[string]string(nil)
	if cliArgs.SubjectCodeCSV != "" {
		subjectCodeMap, err = config.LoadSubjectCodeCSV(cliArgs.SubjectCodeCSV, cliArgs.SubjectCodePatientCol, cliArgs.SubjectCodeSubjectCol)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cliArgs.DatabaseURL)
	if err != nil {
		return fmt.Errorf("radx-ingest: connect to database: %w", err)
	}
	defer pool.Close()

	if err := store.Bootstrap(ctx, pool); err != nil {
		return err
	}

	numWriters := cfg.DBWriterPoolSize
	if numWriters < 1 {
		numWriters = 1
	}
	writers := make([]*store.Writer, numWriters)
	for i := range writers {
		w, err := store.NewWriter(ctx, pool, cfg)
		if err != nil {
			return fmt.Errorf("radx-ingest: open writer %d: %w", i, err)
		}
		writers[i] = w
	}

	var pathIndex *resume.ExistingPathIndex
	if cfg.ResumeByPath {
		pathIndex, err = store.LoadExistingPaths(ctx, pool, writers[0].CohortID(), cfg.RawRoot)
		if err != nil {
			return fmt.Errorf("radx-ingest: build resume path index: %w", err)
		}
		logger.Info("loaded resume path index", "total_paths", pathIndex.TotalPaths())
	}

	jc := jobctl.New(time.Now().UnixNano())

	dispatch := func(ctx context.Context, writerIdx int, batch extract.Batch) error {
		return writers[writerIdx%len(writers)].WriteBatch(ctx, writerIdx, batch)
	}

	opts := []extract.EngineOption{extract.WithLogger(logger)}
	if pathIndex != nil {
		opts = append(opts, extract.WithResumeIndex(pathIndex))
	}
	engine := extract.NewEngine(cfg, jc, subjectCodeMap, numWriters, dispatch, opts...)

	logger.Info("starting extraction", "cohort", cfg.CohortName, "raw_root", cfg.RawRoot, "max_workers", cfg.MaxWorkers)
	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("radx-ingest: run: %w", err)
	}

	var total store.Metrics
	for _, w := range writers {
		m := w.Metrics()
		total.Subjects += m.Subjects
		total.Studies += m.Studies
		total.Series += m.Series
		total.Stacks += m.Stacks
		total.Instances += m.Instances
	}

	logger.Info("extraction complete",
		"subjects_processed", result.SubjectsProcessed,
		"instances_written", result.InstancesWritten,
		"duration", result.Duration,
		"db_subjects", total.Subjects,
		"db_studies", total.Studies,
		"db_series", total.Series,
		"db_stacks", total.Stacks,
		"db_instances", total.Instances,
	)
	return nil
}

func (c *CLI) extractionConfig() (config.ExtractionConfig, error) {
	if c.ConfigFile != "" {
		cfg, err := config.LoadExtractionConfig(c.ConfigFile)
		if err != nil {
			return cfg, err
		}
		if c.CohortName != "" {
			cfg.CohortName = c.CohortName
		}
		if c.RawRoot != "" {
			cfg.RawRoot = c.RawRoot
		}
		return cfg, nil
	}

	cfg := config.DefaultExtractionConfig()
	cfg.CohortName = c.CohortName
	cfg.RawRoot = c.RawRoot
	cfg.MaxWorkers = c.MaxWorkers
	cfg.BatchSize = c.BatchSize
	cfg.QueueSize = c.QueueSize
	cfg.ExtensionMode = config.ExtensionMode(c.ExtensionMode)
	cfg.DuplicatePolicy = config.DuplicatePolicy(c.DuplicatePolicy)
	cfg.Resume = c.Resume
	cfg.ResumeByPath = c.ResumeByPath
	cfg.SeriesWorkersPerSubj = c.SeriesWorkersPerSubj
	cfg.AdaptiveBatching = c.AdaptiveBatching
	cfg.TargetTxMillis = c.TargetTxMillis
	cfg.MinBatchSize = c.MinBatchSize
	cfg.MaxBatchSize = c.MaxBatchSize
	cfg.DBWriterPoolSize = c.DBWriterPoolSize
	if c.SubjectIDTypeID != 0 {
		id := c.SubjectIDTypeID
		cfg.SubjectIDTypeID = &id
	}
	cfg.SubjectCodeSeed = c.SubjectCodeSeed
	return cfg, nil
}
