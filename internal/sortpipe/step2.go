package sortpipe

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/jobctl"
	"github.com/codeninja55/go-radx/internal/normalize"
	"github.com/codeninja55/go-radx/internal/sig"
	"github.com/codeninja55/go-radx/internal/sortpipe/frame"
	"github.com/codeninja55/go-radx/internal/sortpipe/gapfill"
)

// fingerprintChunkSize is the spec §4.10 step 5 batch bound ("for each
// batch of <=50000 rows").
const fingerprintChunkSize = 50000

// Step2Metrics mirrors step2_stack_fingerprint_polars.py's metrics block,
// computed from the materialized frame rather than re-querying (spec
// §4.10 sub-step 7).
type Step2Metrics struct {
	TotalFingerprints      int
	ModalityCounts         map[string]int
	ManufacturerCounts     map[string]int
	MultiStackSeriesCount  int
	OrientationConfMean    float64
	OrientationConfMin     float64
	LowOrientationConfidence int
}

// Step2Handover carries the fingerprint ids (== series_stack_id) Step 3
// processes next.
type Step2Handover struct {
	CohortID       int64
	FingerprintIDs []int64
	Metrics        Step2Metrics
}

// Fingerprint runs Step 2 (spec §4.10): materialize one stack_fingerprint
// row per existing stack belonging to the series handed over by Step 1.
func Fingerprint(ctx context.Context, pool *pgxpool.Pool, jc *jobctl.JobControl, handover *Step1Handover, emit *jobctl.Emitter) (*Step2Handover, error) {
	seriesIDs := make([]int64, len(handover.SeriesToProcess))
	for i, s := range handover.SeriesToProcess {
		seriesIDs[i] = s.SeriesID
	}

	stackCount, err := countStacksForSeries(ctx, pool, seriesIDs)
	if err != nil {
		return nil, err
	}
	if stackCount == 0 {
		return nil, fmt.Errorf("sortpipe: no stacks exist for the %d input series; stacks must be created during extraction", len(seriesIDs))
	}

	emit.Log("updating stack_n_instances for %d series", len(seriesIDs))
	if err := updateStackInstanceCounts(ctx, pool, seriesIDs); err != nil {
		return nil, err
	}

	emit.Log("computing stack_key for multi-stack series")
	if err := persistStackKeys(ctx, pool, seriesIDs); err != nil {
		return nil, err
	}

	normalizer, err := normalize.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("sortpipe: build default normalizer: %w", err)
	}

	cols := frame.NewColumns(stackCount)
	for _, modality := range []string{"MR", "CT", "PT"} {
		if err := loadWideJoin(ctx, pool, modality, seriesIDs, normalizer, cols); err != nil {
			return nil, err
		}
	}

	emit.Log("materialized %d fingerprint rows, writing in batches of %d", cols.Len(), fingerprintChunkSize)
	for _, bounds := range frame.Chunk(cols.Len(), fingerprintChunkSize) {
		if err := jc.Checkpoint(ctx); err != nil {
			return nil, err
		}
		if err := copyUpsertFingerprintChunk(ctx, pool, handover.CohortID, cols, bounds[0], bounds[1]); err != nil {
			return nil, err
		}
		emit.Log("committed fingerprint batch [%d,%d)", bounds[0], bounds[1])
	}

	metrics := computeStep2Metrics(cols)
	ids := make([]int64, cols.Len())
	copy(ids, cols.SeriesStackID)

	return &Step2Handover{CohortID: handover.CohortID, FingerprintIDs: ids, Metrics: metrics}, nil
}

func countStacksForSeries(ctx context.Context, pool *pgxpool.Pool, seriesIDs []int64) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT count(*) FROM series_stack WHERE series_id = ANY($1::bigint[])`, seriesIDs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sortpipe: count stacks for series: %w", err)
	}
	return n, nil
}

func updateStackInstanceCounts(ctx context.Context, pool *pgxpool.Pool, seriesIDs []int64) error {
	_, err := pool.Exec(ctx, `
		UPDATE series_stack ss
		SET stack_n_instances = s.n
		FROM (
			SELECT series_stack_id, count(*) AS n
			FROM instance
			WHERE series_id = ANY($1::bigint[])
			GROUP BY series_stack_id
		) s
		WHERE s.series_stack_id = ss.series_stack_id`, seriesIDs)
	if err != nil {
		return fmt.Errorf("sortpipe: update stack_n_instances: %w", err)
	}
	return nil
}

// persistStackKeys computes and writes stack_key for every multi-stack
// series in seriesIDs (spec §4.2, §4.10 sub-step 3), grouping existing
// series_stack rows by series and running sig.GenerateStackKey over each
// group's stack-defining columns.
func persistStackKeys(ctx context.Context, pool *pgxpool.Pool, seriesIDs []int64) error {
	rows, err := pool.Query(ctx, `
		SELECT series_stack_id, series_id, stack_echo_time, stack_echo_numbers, stack_inversion_time,
		       stack_repetition_time, stack_flip_angle, stack_receive_coil_name, stack_image_type,
		       stack_xray_exposure, stack_kvp, stack_tube_current, stack_pet_bed_index, stack_pet_frame_type
		FROM series_stack WHERE series_id = ANY($1::bigint[])`, seriesIDs)
	if err != nil {
		return fmt.Errorf("sortpipe: query stacks for stack_key: %w", err)
	}

	type stackRow struct {
		id       int64
		seriesID int64
		cols     sig.StackColumns
	}
	bySeries := map[int64][]stackRow{}
	for rows.Next() {
		var sr stackRow
		var echoTime, inversionTime, repetitionTime, flipAngle, xrayExposure, kvp, tubeCurrent *float64
		var echoNumbers, petBedIndex *int64
		var receiveCoil, imageType, petFrameType *string
		if err := rows.Scan(&sr.id, &sr.seriesID, &echoTime, &echoNumbers, &inversionTime,
			&repetitionTime, &flipAngle, &receiveCoil, &imageType,
			&xrayExposure, &kvp, &tubeCurrent, &petBedIndex, &petFrameType); err != nil {
			rows.Close()
			return fmt.Errorf("sortpipe: scan stack for stack_key: %w", err)
		}
		sr.cols = sig.StackColumns{
			EchoTime: deref(echoTime), EchoNumbers: deref(echoNumbers), InversionTime: deref(inversionTime),
			RepetitionTime: deref(repetitionTime), FlipAngle: deref(flipAngle), ReceiveCoilName: deref(receiveCoil),
			ImageType: deref(imageType), XRayExposure: deref(xrayExposure), KVP: deref(kvp), TubeCurrent: deref(tubeCurrent),
			PETBedIndex: deref(petBedIndex), PETFrameType: deref(petFrameType),
		}
		bySeries[sr.seriesID] = append(bySeries[sr.seriesID], sr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sortpipe: iterate stacks for stack_key: %w", err)
	}

	batch := &pgx.Batch{}
	queued := 0
	for _, stacks := range bySeries {
		if len(stacks) <= 1 {
			continue
		}
		cols := make([]sig.StackColumns, len(stacks))
		for i, s := range stacks {
			cols[i] = s.cols
		}
		key := sig.GenerateStackKey(cols)
		for _, s := range stacks {
			batch.Queue(`UPDATE series_stack SET stack_key = $1 WHERE series_stack_id = $2`, nullIfEmpty(key), s.id)
			queued++
		}
	}
	if queued == 0 {
		return nil
	}
	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := 0; i < queued; i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("sortpipe: persist stack_key: %w", err)
		}
	}
	return nil
}

// deref unboxes a typed pointer into the comparable-by-value interface{}
// sig.StackColumns expects: a nil pointer becomes a nil interface (equal
// to every other nil across stacks), and a non-nil pointer's pointee
// value is boxed directly, so two stacks with the same TE compare equal
// even though they were scanned into distinct *float64s.
func deref[T comparable](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func computeStep2Metrics(cols *frame.Columns) Step2Metrics {
	m := Step2Metrics{
		ModalityCounts:      map[string]int{},
		ManufacturerCounts:  map[string]int{},
		OrientationConfMin:  1,
	}
	m.TotalFingerprints = cols.Len()
	stacksPerSeries := map[int64]int{}
	var confSum float64
	for i := 0; i < cols.Len(); i++ {
		m.ModalityCounts[cols.Modality[i]]++
		if cols.Manufacturer[i] != "" {
			m.ManufacturerCounts[cols.Manufacturer[i]]++
		}
		stacksPerSeries[cols.SeriesID[i]]++
		confSum += cols.OrientationConfidence[i]
		if cols.OrientationConfidence[i] < m.OrientationConfMin {
			m.OrientationConfMin = cols.OrientationConfidence[i]
		}
		if cols.OrientationConfidence[i] < 0.85 {
			m.LowOrientationConfidence++
		}
	}
	for _, n := range stacksPerSeries {
		if n > 1 {
			m.MultiStackSeriesCount++
		}
	}
	if cols.Len() > 0 {
		m.OrientationConfMean = confSum / float64(cols.Len())
	} else {
		m.OrientationConfMin = 0
	}
	return m
}

// loadWideJoin executes the single wide JOIN query for one modality
// (series_stack x series x study x subject x <modality> details) and
// appends every row to cols, text-normalizing in the same pass (spec
// §4.10 sub-step 4). Three modality-specific joins stand in for the
// spec's "single wide JOIN query" since MR/CT/PET detail tables have
// disjoint column sets; each is still one bulk query, not a per-row loop.
func loadWideJoin(ctx context.Context, pool *pgxpool.Pool, modality string, seriesIDs []int64, normalizer *normalize.Normalizer, cols *frame.Columns) error {
	query, scan := wideJoinQuery(modality)
	rows, err := pool.Query(ctx, query, seriesIDs)
	if err != nil {
		return fmt.Errorf("sortpipe: wide join query (%s): %w", modality, err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return fmt.Errorf("sortpipe: scan wide join row (%s): %w", modality, err)
		}
		cols.Append(buildFrameRow(r, normalizer))
	}
	return rows.Err()
}

// wideJoinRow is the raw, un-normalized row shape shared across the three
// modality queries; fields that don't apply to a modality are left zero.
type wideJoinRow struct {
	seriesStackID, subjectID, studyID, seriesID int64
	modality                                    string
	manufacturer, manufacturerModel             string
	bodyPartExamined                            string
	seriesDescription, protocolName             string
	scanningSequence, sequenceVariant, scanOpts string
	contrastBolusAgent, contrastBolusRoute      string
	mrAcquisitionType                           string

	tr, te, ti, flipAngle *float64
	etl                   *int64
	bValue                *float64

	orientation   string
	orientConf    float64
	sliceCount    int
	imageType     *string

	pxSpacing, avgRows, avgColumns *float64
}

func wideJoinQuery(modality string) (string, func(pgx.Rows) (wideJoinRow, error)) {
	switch modality {
	case "MR":
		return mrWideJoinSQL, scanMRRow
	case "CT":
		return ctWideJoinSQL, scanCTRow
	default:
		return petWideJoinSQL, scanPETRow
	}
}

const geomCTE = `
WITH stack_geom AS (
	SELECT series_stack_id,
	       AVG(pixel_spacing[1]) AS px_spacing,
	       AVG(rows)::float8 AS avg_rows,
	       AVG(columns)::float8 AS avg_columns
	FROM instance
	WHERE series_id = ANY($1::bigint[])
	GROUP BY series_stack_id
)`

const mrWideJoinSQL = geomCTE + `
SELECT ss.series_stack_id, se.subject_id, se.study_id, se.series_id, se.modality,
       coalesce(se.manufacturer, ''), coalesce(se.manufacturer_model_name, ''),
       coalesce(se.body_part_examined, ''), coalesce(se.series_description, ''), coalesce(se.protocol_name, ''),
       coalesce(m.scanning_sequence_csv, ''), coalesce(m.sequence_variant_csv, ''), coalesce(m.scan_options_csv, ''),
       coalesce(m.contrast_bolus_agent, ''), coalesce(m.contrast_bolus_route, ''), coalesce(m.mr_acquisition_type, ''),
       ss.stack_repetition_time, ss.stack_echo_time, ss.stack_inversion_time, ss.stack_flip_angle, ss.stack_echo_train_length,
       m.diffusion_b_value,
       ss.stack_orientation, ss.stack_orientation_confidence, ss.stack_n_instances, ss.stack_image_type,
       g.px_spacing, g.avg_rows, g.avg_columns
FROM series_stack ss
JOIN series se ON se.series_id = ss.series_id
LEFT JOIN mri_series_details m ON m.series_id = se.series_id
LEFT JOIN stack_geom g ON g.series_stack_id = ss.series_stack_id
WHERE se.series_id = ANY($1::bigint[]) AND se.modality = 'MR'`

func scanMRRow(rows pgx.Rows) (wideJoinRow, error) {
	var r wideJoinRow
	err := rows.Scan(&r.seriesStackID, &r.subjectID, &r.studyID, &r.seriesID, &r.modality,
		&r.manufacturer, &r.manufacturerModel, &r.bodyPartExamined, &r.seriesDescription, &r.protocolName,
		&r.scanningSequence, &r.sequenceVariant, &r.scanOpts,
		&r.contrastBolusAgent, &r.contrastBolusRoute, &r.mrAcquisitionType,
		&r.tr, &r.te, &r.ti, &r.flipAngle, &r.etl,
		&r.bValue,
		&r.orientation, &r.orientConf, &r.sliceCount, &r.imageType,
		&r.pxSpacing, &r.avgRows, &r.avgColumns)
	return r, err
}

const ctWideJoinSQL = geomCTE + `
SELECT ss.series_stack_id, se.subject_id, se.study_id, se.series_id, se.modality,
       coalesce(se.manufacturer, ''), coalesce(se.manufacturer_model_name, ''),
       coalesce(se.body_part_examined, ''), coalesce(se.series_description, ''), coalesce(se.protocol_name, ''),
       '', '', '',
       '', '', '',
       NULL::double precision, NULL::double precision, NULL::double precision, NULL::double precision, NULL::bigint,
       NULL::double precision,
       ss.stack_orientation, ss.stack_orientation_confidence, ss.stack_n_instances, ss.stack_image_type,
       g.px_spacing, g.avg_rows, g.avg_columns
FROM series_stack ss
JOIN series se ON se.series_id = ss.series_id
LEFT JOIN stack_geom g ON g.series_stack_id = ss.series_stack_id
WHERE se.series_id = ANY($1::bigint[]) AND se.modality = 'CT'`

func scanCTRow(rows pgx.Rows) (wideJoinRow, error) {
	var r wideJoinRow
	err := rows.Scan(&r.seriesStackID, &r.subjectID, &r.studyID, &r.seriesID, &r.modality,
		&r.manufacturer, &r.manufacturerModel, &r.bodyPartExamined, &r.seriesDescription, &r.protocolName,
		&r.scanningSequence, &r.sequenceVariant, &r.scanOpts,
		&r.contrastBolusAgent, &r.contrastBolusRoute, &r.mrAcquisitionType,
		&r.tr, &r.te, &r.ti, &r.flipAngle, &r.etl,
		&r.bValue,
		&r.orientation, &r.orientConf, &r.sliceCount, &r.imageType,
		&r.pxSpacing, &r.avgRows, &r.avgColumns)
	return r, err
}

const petWideJoinSQL = geomCTE + `
SELECT ss.series_stack_id, se.subject_id, se.study_id, se.series_id, se.modality,
       coalesce(se.manufacturer, ''), coalesce(se.manufacturer_model_name, ''),
       coalesce(se.body_part_examined, ''), coalesce(se.series_description, ''), coalesce(se.protocol_name, ''),
       '', '', '',
       '', '', '',
       NULL::double precision, NULL::double precision, NULL::double precision, NULL::double precision, NULL::bigint,
       NULL::double precision,
       ss.stack_orientation, ss.stack_orientation_confidence, ss.stack_n_instances, ss.stack_image_type,
       g.px_spacing, g.avg_rows, g.avg_columns
FROM series_stack ss
JOIN series se ON se.series_id = ss.series_id
LEFT JOIN stack_geom g ON g.series_stack_id = ss.series_stack_id
WHERE se.series_id = ANY($1::bigint[]) AND se.modality = 'PT'`

func scanPETRow(rows pgx.Rows) (wideJoinRow, error) {
	var r wideJoinRow
	err := rows.Scan(&r.seriesStackID, &r.subjectID, &r.studyID, &r.seriesID, &r.modality,
		&r.manufacturer, &r.manufacturerModel, &r.bodyPartExamined, &r.seriesDescription, &r.protocolName,
		&r.scanningSequence, &r.sequenceVariant, &r.scanOpts,
		&r.contrastBolusAgent, &r.contrastBolusRoute, &r.mrAcquisitionType,
		&r.tr, &r.te, &r.ti, &r.flipAngle, &r.etl,
		&r.bValue,
		&r.orientation, &r.orientConf, &r.sliceCount, &r.imageType,
		&r.pxSpacing, &r.avgRows, &r.avgColumns)
	return r, err
}

// buildFrameRow normalizes text fields and derives the boolean flag
// columns, geometry, and token vector for one row (spec §4.10 sub-step 4:
// "All text fields are normalized in vectorized form").
func buildFrameRow(r wideJoinRow, normalizer *normalize.Normalizer) frame.Frame {
	rawBlob := strings.Join([]string{
		r.seriesDescription, r.protocolName, r.scanningSequence, r.sequenceVariant, r.scanOpts,
	}, " ")
	searchBlob, _ := normalizer.Normalize(rawBlob)

	rawContrast := strings.Join([]string{r.contrastBolusAgent, r.contrastBolusRoute}, " ")
	contrastBlob, _ := normalizer.Normalize(rawContrast)

	var tokens []string
	if searchBlob != "" {
		tokens = strings.Split(searchBlob, " ")
	}

	var imageType string
	if r.imageType != nil {
		imageType = *r.imageType
	}
	is3D, is2D := gapfill.InferAcquisitionType(imageType, r.scanningSequence)

	var fov, aspect *float64
	if r.pxSpacing != nil && r.avgColumns != nil && *r.avgColumns != 0 {
		v := *r.pxSpacing * *r.avgColumns
		fov = &v
	}
	if r.avgRows != nil && r.avgColumns != nil && *r.avgColumns != 0 {
		v := *r.avgRows / *r.avgColumns
		aspect = &v
	}

	return frame.Frame{
		SeriesStackID:      r.seriesStackID,
		SubjectID:          r.subjectID,
		StudyID:            r.studyID,
		SeriesID:           r.seriesID,
		Modality:           r.modality,
		Manufacturer:       strings.ToLower(strings.TrimSpace(r.manufacturer)),
		ManufacturerModel:  r.manufacturerModel,
		BodyPartExamined:   r.bodyPartExamined,
		SequenceName:       r.protocolName,
		SearchBlob:         searchBlob,
		ContrastBlob:       contrastBlob,
		ContrastBolusAgent: r.contrastBolusAgent,
		TokenVector:        tokens,
		TR:                 r.tr,
		TE:                 r.te,
		TI:                 r.ti,
		FlipAngle:          r.flipAngle,
		ETL:                r.etl,
		BValue:             r.bValue,
		FOV:                fov,
		AspectRatio:        aspect,
		Is3D:               is3D,
		Is2D:               is2D,
		Orientation:        canonicalOrientation(r.orientation),
		OrientationConfidence: r.orientConf,
		SliceCount:         r.sliceCount,
		MRAcquisitionType:  r.mrAcquisitionType,
	}
}

func canonicalOrientation(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// copyUpsertFingerprintChunk implements spec §4.10 sub-step 5: COPY the
// chunk into a temp table, then INSERT ... SELECT ... ON CONFLICT DO
// UPDATE into stack_fingerprint, committing once per chunk.
func copyUpsertFingerprintChunk(ctx context.Context, pool *pgxpool.Pool, cohortID int64, cols *frame.Columns, start, end int) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sortpipe: begin fingerprint chunk tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE tmp_stack_fingerprint (
			series_stack_id bigint, cohort_id bigint, subject_id bigint, study_id bigint, series_id bigint,
			modality text, manufacturer text, manufacturer_model_name text, body_part_examined text, sequence_name text,
			search_blob text, contrast_blob text, contrast_bolus_agent text, token_vector text[],
			tr double precision, te double precision, ti double precision, flip_angle double precision,
			etl bigint, b_value double precision, fov double precision, aspect_ratio double precision,
			is_3d boolean, is_2d boolean, orientation text, orientation_confidence double precision,
			slice_count int, mr_acquisition_type text
		) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("sortpipe: create temp fingerprint table: %w", err)
	}

	rowsSource := make([][]any, 0, end-start)
	for i := start; i < end; i++ {
		rowsSource = append(rowsSource, []any{
			cols.SeriesStackID[i], cohortID, cols.SubjectID[i], cols.StudyID[i], cols.SeriesID[i],
			cols.Modality[i], cols.Manufacturer[i], cols.ManufacturerModel[i], cols.BodyPartExamined[i], cols.SequenceName[i],
			cols.SearchBlob[i], cols.ContrastBlob[i], cols.ContrastBolusAgent[i], cols.TokenVector[i],
			cols.TR[i], cols.TE[i], cols.TI[i], cols.FlipAngle[i],
			cols.ETL[i], cols.BValue[i], cols.FOV[i], cols.AspectRatio[i],
			cols.Is3D[i], cols.Is2D[i], cols.Orientation[i], cols.OrientationConfidence[i],
			cols.SliceCount[i], cols.MRAcquisitionType[i],
		})
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_stack_fingerprint"}, fingerprintTempColumns, pgx.CopyFromRows(rowsSource)); err != nil {
		return fmt.Errorf("sortpipe: copy into tmp_stack_fingerprint: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stack_fingerprint (
			series_stack_id, cohort_id, subject_id, study_id, series_id, modality, manufacturer,
			manufacturer_model_name, body_part_examined, sequence_name, search_blob, contrast_blob,
			contrast_bolus_agent, token_vector, tr, te, ti, flip_angle, etl, b_value, fov, aspect_ratio,
			is_3d, is_2d, orientation, orientation_confidence, slice_count, mr_acquisition_type
		)
		SELECT series_stack_id, cohort_id, subject_id, study_id, series_id, modality, manufacturer,
			manufacturer_model_name, body_part_examined, sequence_name, search_blob, contrast_blob,
			contrast_bolus_agent, token_vector, tr, te, ti, flip_angle, etl, b_value, fov, aspect_ratio,
			is_3d, is_2d, orientation, orientation_confidence, slice_count, mr_acquisition_type
		FROM tmp_stack_fingerprint
		ON CONFLICT (series_stack_id) DO UPDATE SET
			cohort_id = EXCLUDED.cohort_id, subject_id = EXCLUDED.subject_id, study_id = EXCLUDED.study_id,
			series_id = EXCLUDED.series_id, modality = EXCLUDED.modality, manufacturer = EXCLUDED.manufacturer,
			manufacturer_model_name = EXCLUDED.manufacturer_model_name, body_part_examined = EXCLUDED.body_part_examined,
			sequence_name = EXCLUDED.sequence_name, search_blob = EXCLUDED.search_blob, contrast_blob = EXCLUDED.contrast_blob,
			contrast_bolus_agent = EXCLUDED.contrast_bolus_agent, token_vector = EXCLUDED.token_vector,
			tr = EXCLUDED.tr, te = EXCLUDED.te, ti = EXCLUDED.ti, flip_angle = EXCLUDED.flip_angle,
			etl = EXCLUDED.etl, b_value = EXCLUDED.b_value, fov = EXCLUDED.fov, aspect_ratio = EXCLUDED.aspect_ratio,
			is_3d = EXCLUDED.is_3d, is_2d = EXCLUDED.is_2d, orientation = EXCLUDED.orientation,
			orientation_confidence = EXCLUDED.orientation_confidence, slice_count = EXCLUDED.slice_count,
			mr_acquisition_type = EXCLUDED.mr_acquisition_type, updated_at = now()`); err != nil {
		return fmt.Errorf("sortpipe: upsert stack_fingerprint from temp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sortpipe: commit fingerprint chunk: %w", err)
	}
	return nil
}

var fingerprintTempColumns = []string{
	"series_stack_id", "cohort_id", "subject_id", "study_id", "series_id",
	"modality", "manufacturer", "manufacturer_model_name", "body_part_examined", "sequence_name",
	"search_blob", "contrast_blob", "contrast_bolus_agent", "token_vector",
	"tr", "te", "ti", "flip_angle",
	"etl", "b_value", "fov", "aspect_ratio",
	"is_3d", "is_2d", "orientation", "orientation_confidence",
	"slice_count", "mr_acquisition_type",
}
