// Package store is the bulk writer (spec §4.8): a pgx-based merge of
// InstancePayload batches into the subject/study/series/stack/instance
// relational model, grounded on
// original_source/backend/src/extract/writer.py.
package store

import (
	_ "embed"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/config"
	"github.com/codeninja55/go-radx/internal/extract"
)

//go:embed schema.sql
var schemaSQL string

// Bootstrap applies the schema DDL. Idempotent: every statement is
// `CREATE ... IF NOT EXISTS`.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("store: bootstrap schema: %w", err)
	}
	return nil
}

// Writer owns one pooled connection's worth of in-memory caches and merges
// batches for whichever subjects are routed to it (spec §4.8). A Writer is
// not safe for concurrent use by itself — the engine's sticky
// subject→writer routing guarantees one goroutine drives it at a time
// (spec §5 "Ordering guarantees").
type Writer struct {
	pool *pgxpool.Pool
	cfg  config.ExtractionConfig

	cohortID             int64
	normalizedCohortName string

	mu                 sync.Mutex
	subjectCache       map[string]int64 // patient_id -> subject_id
	studyCache         map[string]int64 // study_instance_uid -> study_id
	seriesCache        map[string]int64 // series_instance_uid -> series_id
	seriesIDToUID      map[int64]string
	stackCache         map[string]int64 // sig.Signature.Key() -> series_stack_id
	nextStackIndex     map[string]int   // series_instance_uid -> next stack_index
	subjectIdentified  map[int64]struct{}
	modalityFallbackLogged map[string]struct{}

	subjectsInserted, studiesInserted, seriesInserted, stacksInserted, instancesInserted int64
}

// NewWriter opens a Writer bound to one ExtractionConfig, ensuring the
// cohort row exists. Mirrors writer.py's Writer.__aenter__.
func NewWriter(ctx context.Context, pool *pgxpool.Pool, cfg config.ExtractionConfig) (*Writer, error) {
	w := &Writer{
		pool:                   pool,
		cfg:                    cfg,
		normalizedCohortName:   strings.ToLower(strings.TrimSpace(cfg.CohortName)),
		subjectCache:           make(map[string]int64),
		studyCache:             make(map[string]int64),
		seriesCache:            make(map[string]int64),
		seriesIDToUID:          make(map[int64]string),
		stackCache:             make(map[string]int64),
		nextStackIndex:         make(map[string]int),
		subjectIdentified:      make(map[int64]struct{}),
		modalityFallbackLogged: make(map[string]struct{}),
	}

	cohortID, err := w.ensureCohort(ctx)
	if err != nil {
		return nil, err
	}
	w.cohortID = cohortID
	return w, nil
}

// WriteBatch implements extract.WriteBatchFunc: the callback the parallel
// extraction engine invokes for every batch it produces. writerIdx is
// accepted to satisfy the signature; this Writer handles whichever
// subjects were routed to it regardless of index.
func (w *Writer) WriteBatch(ctx context.Context, _ int, batch extract.Batch) error {
	if len(batch.Payloads) == 0 {
		return nil
	}
	return withRetry(ctx, func() error {
		return w.writeBatchTx(ctx, batch.Payloads)
	})
}

func (w *Writer) writeBatchTx(ctx context.Context, payloads []extract.InstancePayload) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin batch tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	subjectIDs, err := w.bulkEnsureSubjects(ctx, tx, payloads)
	if err != nil {
		return err
	}
	studyIDs, err := w.bulkEnsureStudies(ctx, tx, payloads, subjectIDs)
	if err != nil {
		return err
	}
	seriesIDs, err := w.bulkEnsureSeries(ctx, tx, payloads, subjectIDs, studyIDs)
	if err != nil {
		return err
	}
	stackIDs, err := w.bulkEnsureStacks(ctx, tx, payloads, seriesIDs)
	if err != nil {
		return err
	}
	if err := w.bulkEnsureInstances(ctx, tx, payloads, seriesIDs, stackIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit batch tx: %w", err)
	}
	return nil
}

// CohortID returns the resolved cohort_id this writer ensured on open.
func (w *Writer) CohortID() int64 { return w.cohortID }

// Metrics is the snapshot of entity rows this writer has inserted,
// mirroring writer.py's snapshot_metrics.
type Metrics struct {
	Subjects, Studies, Series, Stacks, Instances int64
	SafeBatchRows                                int
}

func (w *Writer) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Metrics{
		Subjects:      w.subjectsInserted,
		Studies:       w.studiesInserted,
		Series:        w.seriesInserted,
		Stacks:        w.stacksInserted,
		Instances:     w.instancesInserted,
		SafeBatchRows: extract.CalculateSafeInstanceBatchRows(),
	}
}

func (w *Writer) ensureCohort(ctx context.Context) (int64, error) {
	const selectStmt = `SELECT cohort_id, path FROM cohort WHERE lower(name) = $1`
	var cohortID int64
	var path *string
	err := w.pool.QueryRow(ctx, selectStmt, w.normalizedCohortName).Scan(&cohortID, &path)
	if err == nil {
		if path == nil || *path != w.cfg.RawRoot {
			if _, updErr := w.pool.Exec(ctx, `UPDATE cohort SET path = $1 WHERE cohort_id = $2`, w.cfg.RawRoot, cohortID); updErr != nil {
				return 0, fmt.Errorf("store: update cohort path: %w", updErr)
			}
		}
		return cohortID, nil
	}

	const insertStmt = `
		INSERT INTO cohort (name, owner, path) VALUES ($1, 'system', $2)
		ON CONFLICT (lower(name)) DO NOTHING
		RETURNING cohort_id`
	if err := w.pool.QueryRow(ctx, insertStmt, w.normalizedCohortName, w.cfg.RawRoot).Scan(&cohortID); err == nil {
		return cohortID, nil
	}

	// Lost the insert race: re-query.
	if err := w.pool.QueryRow(ctx, selectStmt, w.normalizedCohortName).Scan(&cohortID, &path); err != nil {
		return 0, fmt.Errorf("store: resolve cohort %q: %w", w.normalizedCohortName, err)
	}
	return cohortID, nil
}

func (w *Writer) logConflict(ctx context.Context, tx pgxTx, scope, uid, message, filePath string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ingest_conflict (cohort_id, scope, uid, message, file_path)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cohort_id, scope, uid) DO NOTHING`,
		w.cohortID, scope, uid, message, filePath)
	if err != nil {
		return fmt.Errorf("store: log conflict (%s %s): %w", scope, uid, err)
	}
	return nil
}
