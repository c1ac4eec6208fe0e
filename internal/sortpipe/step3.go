package sortpipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/classify"
	"github.com/codeninja55/go-radx/internal/detect"
	"github.com/codeninja55/go-radx/internal/jobctl"
	"github.com/codeninja55/go-radx/internal/sortpipe/frame"
)

// classifyBatchSize is the spec §4.11 sub-step 2 in-memory classification
// batch bound ("process fingerprints in batches of 1000").
const classifyBatchSize = 1000

// classifyUpsertChunkSize is the spec §4.11 sub-step 4 bulk-write chunk
// bound ("bulk upsert in batches of <=10000 rows").
const classifyUpsertChunkSize = 10000

// Step3Metrics mirrors the histogram block step3_classification.py reports
// after a run, computed from the in-memory results rather than re-querying.
type Step3Metrics struct {
	TotalClassified       int
	DirectoryTypeCounts   map[string]int
	ProvenanceCounts      map[string]int
	BaseCounts            map[string]int
	TechniqueCounts       map[string]int
	ReviewReasonCounts    map[string]int
	ManualReviewCount     int
	LocalizerCount        int
	PostContrastTrueCount int
	SpinalCordTrueCount   int
	ClassificationErrors  int
}

// Step3Handover carries the classified fingerprint ids forward to Step 4.
type Step3Handover struct {
	CohortID       int64
	FingerprintIDs []int64
	Metrics        Step3Metrics
}

type classifiedRow struct {
	seriesStackID int64
	result        classify.Result
}

// Classify runs Step 3 (spec §4.11): build a detect.Context for every
// fingerprint handed over by Step 2, run it through the 9-stage
// classification pipeline, and bulk-upsert the results into
// series_classification_cache.
func Classify(ctx context.Context, pool *pgxpool.Pool, jc *jobctl.JobControl, handover *Step2Handover, emit *jobctl.Emitter) (*Step3Handover, error) {
	if len(handover.FingerprintIDs) == 0 {
		emit.Log("classify: no fingerprints to classify")
		return &Step3Handover{CohortID: handover.CohortID, Metrics: newStep3Metrics()}, nil
	}

	reg, err := detect.LoadDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("sortpipe: load detector registry: %w", err)
	}
	pipeline := classify.NewPipeline(reg)

	ids := handover.FingerprintIDs
	emit.Log("classifying %d stacks in batches of %d", len(ids), classifyBatchSize)

	results := make([]classifiedRow, 0, len(ids))
	for start := 0; start < len(ids); start += classifyBatchSize {
		end := start + classifyBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		if err := jc.Checkpoint(ctx); err != nil {
			return nil, err
		}

		batch, err := loadFingerprints(ctx, pool, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("sortpipe: load fingerprints: %w", err)
		}
		for _, f := range batch {
			results = append(results, classifyOne(pipeline, f))
		}
	}
	emit.Log("classified %d/%d stacks", len(results), len(ids))

	emit.Log("upserting classification results in batches of %d", classifyUpsertChunkSize)
	for start := 0; start < len(results); start += classifyUpsertChunkSize {
		end := start + classifyUpsertChunkSize
		if end > len(results) {
			end = len(results)
		}
		if err := jc.Checkpoint(ctx); err != nil {
			return nil, err
		}
		if err := upsertClassificationChunk(ctx, pool, results[start:end]); err != nil {
			return nil, fmt.Errorf("sortpipe: upsert classification chunk: %w", err)
		}
		emit.Log("committed classification batch [%d,%d)", start, end)
	}

	metrics := computeStep3Metrics(results)
	emit.Log("classify: %d classified, %d flagged for manual review", metrics.TotalClassified, metrics.ManualReviewCount)

	outIDs := make([]int64, len(results))
	for i, r := range results {
		outIDs[i] = r.seriesStackID
	}
	return &Step3Handover{CohortID: handover.CohortID, FingerprintIDs: outIDs, Metrics: metrics}, nil
}

func newStep3Metrics() Step3Metrics {
	return Step3Metrics{
		DirectoryTypeCounts: map[string]int{},
		ProvenanceCounts:    map[string]int{},
		BaseCounts:          map[string]int{},
		TechniqueCounts:     map[string]int{},
		ReviewReasonCounts:  map[string]int{},
	}
}

// classifyOne runs the classification pipeline against one fingerprint,
// isolating a panicking detector into the classification:error fallback
// result (spec §4.11 sub-step 3: "a single stack's failure must not abort
// the batch").
func classifyOne(pipeline *classify.Pipeline, f frame.Frame) (row classifiedRow) {
	row.seriesStackID = f.SeriesStackID
	defer func() {
		if r := recover(); r != nil {
			row.result = classificationErrorResult()
		}
	}()
	dctx := classify.BuildContext(f)
	row.result = pipeline.Classify(dctx)
	return row
}

func classificationErrorResult() classify.Result {
	var res classify.Result
	res.DirectoryType = "misc"
	res.AddReviewReason("classification", "error")
	res.Finalize()
	return res
}

const fingerprintSelectSQL = `
SELECT series_stack_id, cohort_id, subject_id, study_id, series_id, coalesce(modality, ''),
       coalesce(manufacturer, ''), coalesce(manufacturer_model_name, ''), coalesce(body_part_examined, ''),
       coalesce(sequence_name, ''), coalesce(search_blob, ''), coalesce(contrast_blob, ''),
       coalesce(contrast_bolus_agent, ''), coalesce(token_vector, ARRAY[]::text[]),
       tr, te, ti, flip_angle, etl, b_value, fov, aspect_ratio,
       coalesce(is_3d, false), coalesce(is_2d, false), coalesce(orientation, ''),
       coalesce(orientation_confidence, 0), coalesce(slice_count, 0), coalesce(mr_acquisition_type, '')
FROM stack_fingerprint
WHERE series_stack_id = ANY($1::bigint[])`

func loadFingerprints(ctx context.Context, pool *pgxpool.Pool, ids []int64) ([]frame.Frame, error) {
	rows, err := pool.Query(ctx, fingerprintSelectSQL, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]frame.Frame, 0, len(ids))
	for rows.Next() {
		var f frame.Frame
		if err := rows.Scan(
			&f.SeriesStackID, &f.CohortID, &f.SubjectID, &f.StudyID, &f.SeriesID, &f.Modality,
			&f.Manufacturer, &f.ManufacturerModel, &f.BodyPartExamined, &f.SequenceName,
			&f.SearchBlob, &f.ContrastBlob, &f.ContrastBolusAgent, &f.TokenVector,
			&f.TR, &f.TE, &f.TI, &f.FlipAngle, &f.ETL, &f.BValue, &f.FOV, &f.AspectRatio,
			&f.Is3D, &f.Is2D, &f.Orientation, &f.OrientationConfidence, &f.SliceCount, &f.MRAcquisitionType,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// upsertClassificationChunk implements spec §4.11 sub-step 4: COPY the
// chunk into a temp table, then INSERT ... SELECT ... ON CONFLICT DO
// UPDATE into series_classification_cache, same shape as Step 2's
// fingerprint upsert.
func upsertClassificationChunk(ctx context.Context, pool *pgxpool.Pool, rows []classifiedRow) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sortpipe: begin classification chunk tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE tmp_series_classification_cache (
			series_stack_id bigint, base text, technique text, modifier_csv text, construct_csv text,
			provenance text, acceleration_csv text, directory_type text, post_contrast text, spinal_cord text,
			localizer int, manual_review_required int, manual_review_reasons_csv text
		) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("sortpipe: create temp classification table: %w", err)
	}

	rowsSource := make([][]any, 0, len(rows))
	for _, r := range rows {
		res := r.result
		rowsSource = append(rowsSource, []any{
			r.seriesStackID, nullIfEmpty(res.Base), nullIfEmpty(res.Technique), nullIfEmpty(res.ModifierCSV),
			nullIfEmpty(res.ConstructCSV), nullIfEmpty(res.Provenance), nullIfEmpty(res.AccelerationCSV),
			nullIfEmpty(res.DirectoryType), boolToTristate(res.PostContrast), boolToTristate(res.SpinalCord),
			boolToInt(res.Localizer), boolToInt(res.ManualReviewRequired), nullIfEmpty(res.ReviewReasonsCSV()),
		})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_series_classification_cache"}, classificationTempColumns, pgx.CopyFromRows(rowsSource)); err != nil {
		return fmt.Errorf("sortpipe: copy into tmp_series_classification_cache: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO series_classification_cache (
			series_stack_id, base, technique, modifier_csv, construct_csv, provenance, acceleration_csv,
			directory_type, post_contrast, spinal_cord, localizer, manual_review_required, manual_review_reasons_csv
		)
		SELECT series_stack_id, base, technique, modifier_csv, construct_csv, provenance, acceleration_csv,
			directory_type, post_contrast, spinal_cord, localizer, manual_review_required, manual_review_reasons_csv
		FROM tmp_series_classification_cache
		ON CONFLICT (series_stack_id) DO UPDATE SET
			base = EXCLUDED.base, technique = EXCLUDED.technique, modifier_csv = EXCLUDED.modifier_csv,
			construct_csv = EXCLUDED.construct_csv, provenance = EXCLUDED.provenance,
			acceleration_csv = EXCLUDED.acceleration_csv, directory_type = EXCLUDED.directory_type,
			post_contrast = EXCLUDED.post_contrast, spinal_cord = EXCLUDED.spinal_cord,
			localizer = EXCLUDED.localizer, manual_review_required = EXCLUDED.manual_review_required,
			manual_review_reasons_csv = EXCLUDED.manual_review_reasons_csv, updated_at = now()`); err != nil {
		return fmt.Errorf("sortpipe: upsert series_classification_cache from temp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sortpipe: commit classification chunk: %w", err)
	}
	return nil
}

var classificationTempColumns = []string{
	"series_stack_id", "base", "technique", "modifier_csv", "construct_csv",
	"provenance", "acceleration_csv", "directory_type", "post_contrast", "spinal_cord",
	"localizer", "manual_review_required", "manual_review_reasons_csv",
}

func boolToTristate(b *bool) *string {
	if b == nil {
		return nil
	}
	if *b {
		v := "true"
		return &v
	}
	v := "false"
	return &v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func computeStep3Metrics(rows []classifiedRow) Step3Metrics {
	m := newStep3Metrics()
	m.TotalClassified = len(rows)
	for _, r := range rows {
		res := r.result
		m.DirectoryTypeCounts[res.DirectoryType]++
		if res.Provenance != "" {
			m.ProvenanceCounts[res.Provenance]++
		}
		if res.Base != "" {
			m.BaseCounts[res.Base]++
		}
		if res.Technique != "" {
			m.TechniqueCounts[res.Technique]++
		}
		if res.HasReviewReason("classification", "error") {
			m.ClassificationErrors++
		}
		if csv := res.ReviewReasonsCSV(); csv != "" {
			for _, reason := range strings.Split(csv, ",") {
				m.ReviewReasonCounts[reason]++
			}
		}
		if res.ManualReviewRequired {
			m.ManualReviewCount++
		}
		if res.Localizer {
			m.LocalizerCount++
		}
		if res.PostContrast != nil && *res.PostContrast {
			m.PostContrastTrueCount++
		}
		if res.SpinalCord != nil && *res.SpinalCord {
			m.SpinalCordTrueCount++
		}
	}
	return m
}

