package sortpipe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/config"
	"github.com/codeninja55/go-radx/internal/jobctl"
)

// SeriesForProcessing is one series in scope for sorting, denormalized to
// avoid repeated JOINs downstream (spec §4.9, original_source's
// SeriesForProcessing dataclass).
type SeriesForProcessing struct {
	SeriesID          int64
	SeriesInstanceUID string
	Modality          string
	StudyID           int64
	SubjectID         int64
	StudyInstanceUID  string
	StudyDate         *string
	SubjectCode       string
}

// Step1Metrics mirrors Step1Metrics in original_source/backend/src/sort/models.py.
type Step1Metrics struct {
	SubjectsInCohort       int
	TotalStudies           int
	StudiesWithValidDate   int
	StudiesDateImputed     int
	StudiesExcludedNoDate  int
	TotalSeries            int
	SeriesAlreadyClassified int
	SeriesToProcessCount   int
	SeriesByModality       map[string]int
	SelectedModalities     []string
	ExcludedStudyUIDs      []string
	SkippedSeriesUIDs      []string
	Warnings               []string
}

// Step1Handover is Step 1's output: the set of series in scope for Step 2.
type Step1Handover struct {
	SeriesToProcess []SeriesForProcessing
	CohortID        int64
	CohortName      string
	ProcessingMode  string
	Metrics         Step1Metrics
}

// Checkup runs Step 1 (spec §4.9): resolve cohort scope, repair or
// exclude studies with missing dates, filter by modality, and drop
// already-classified series when skip_classified is set.
func Checkup(ctx context.Context, pool *pgxpool.Pool, cfg config.SortConfig, emit *jobctl.Emitter) (*Step1Handover, error) {
	metrics := Step1Metrics{SeriesByModality: map[string]int{}, SelectedModalities: cfg.SelectedModalities}

	var cohortName string
	if err := pool.QueryRow(ctx, `SELECT name FROM cohort WHERE cohort_id = $1`, cfg.CohortID).Scan(&cohortName); err != nil {
		return nil, fmt.Errorf("sortpipe: load cohort %d: %w", cfg.CohortID, err)
	}

	emit.Log("resolving cohort subjects")
	subjectIDs, err := cohortSubjects(ctx, pool, cfg.CohortID)
	if err != nil {
		return nil, err
	}
	metrics.SubjectsInCohort = len(subjectIDs)
	if len(subjectIDs) == 0 {
		return nil, fmt.Errorf("sortpipe: no subjects found in cohort %d", cfg.CohortID)
	}

	studies, err := studiesForSubjects(ctx, pool, subjectIDs)
	if err != nil {
		return nil, err
	}
	metrics.TotalStudies = len(studies)
	if len(studies) == 0 {
		return nil, fmt.Errorf("sortpipe: no studies found for cohort subjects")
	}

	validStudyIDs, excludedUIDs, imputed, err := validateStudyDates(ctx, pool, studies)
	if err != nil {
		return nil, err
	}
	metrics.StudiesWithValidDate = len(validStudyIDs)
	metrics.StudiesDateImputed = imputed
	metrics.StudiesExcludedNoDate = len(excludedUIDs)
	metrics.ExcludedStudyUIDs = excludedUIDs
	if len(excludedUIDs) > 0 {
		metrics.Warnings = append(metrics.Warnings, fmt.Sprintf("%d studies excluded due to missing dates", len(excludedUIDs)))
	}
	if len(validStudyIDs) == 0 {
		return nil, fmt.Errorf("sortpipe: all studies excluded due to missing dates")
	}

	seriesRows, err := seriesForStudies(ctx, pool, validStudyIDs)
	if err != nil {
		return nil, err
	}
	metrics.TotalSeries = len(seriesRows)
	if len(seriesRows) == 0 {
		return nil, fmt.Errorf("sortpipe: no series found in valid studies")
	}

	seriesRows, modalityCounts := filterByModality(seriesRows, cfg.SelectedModalities)
	metrics.SeriesByModality = modalityCounts
	metrics.TotalSeries = len(seriesRows)

	processingMode := "full_reprocess"
	if cfg.SkipClassified {
		processingMode = "incremental"
	}

	if len(seriesRows) == 0 {
		metrics.Warnings = append(metrics.Warnings, "no series found matching selected modalities")
		return &Step1Handover{CohortID: cfg.CohortID, CohortName: cohortName, ProcessingMode: processingMode, Metrics: metrics}, nil
	}

	toProcess, skipped, err := filterByClassification(ctx, pool, seriesRows, cfg.SkipClassified)
	if err != nil {
		return nil, err
	}
	metrics.SeriesAlreadyClassified = len(skipped)
	metrics.SeriesToProcessCount = len(toProcess)
	for _, s := range skipped {
		metrics.SkippedSeriesUIDs = append(metrics.SkippedSeriesUIDs, s.SeriesInstanceUID)
	}
	if cfg.SkipClassified && len(skipped) > 0 {
		metrics.Warnings = append(metrics.Warnings, fmt.Sprintf("%d series skipped (already classified)", len(skipped)))
	}

	return &Step1Handover{
		SeriesToProcess: toProcess,
		CohortID:        cfg.CohortID,
		CohortName:      cohortName,
		ProcessingMode:  processingMode,
		Metrics:         metrics,
	}, nil
}

func cohortSubjects(ctx context.Context, pool *pgxpool.Pool, cohortID int64) ([]int64, error) {
	rows, err := pool.Query(ctx, `SELECT subject_id FROM subject_cohorts WHERE cohort_id = $1`, cohortID)
	if err != nil {
		return nil, fmt.Errorf("sortpipe: query cohort subjects: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type studyRow struct {
	studyID          int64
	studyInstanceUID string
	studyDate        *string
}

func studiesForSubjects(ctx context.Context, pool *pgxpool.Pool, subjectIDs []int64) ([]studyRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT study_id, study_instance_uid, study_date
		FROM study WHERE subject_id = ANY($1::bigint[])`, subjectIDs)
	if err != nil {
		return nil, fmt.Errorf("sortpipe: query studies: %w", err)
	}
	defer rows.Close()
	var out []studyRow
	for rows.Next() {
		var r studyRow
		if err := rows.Scan(&r.studyID, &r.studyInstanceUID, &r.studyDate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// validateStudyDates repairs null study_date from series/instance dates,
// in priority order, persisting the imputed value; still-null studies
// are excluded, not deleted (spec §4.9 sub-step 3).
func validateStudyDates(ctx context.Context, pool *pgxpool.Pool, studies []studyRow) (validIDs []int64, excludedUIDs []string, imputed int, err error) {
	for _, s := range studies {
		if s.studyDate != nil {
			validIDs = append(validIDs, s.studyID)
			continue
		}

		date, lookupErr := imputeStudyDate(ctx, pool, s.studyID)
		if lookupErr != nil {
			return nil, nil, 0, lookupErr
		}
		if date == "" {
			excludedUIDs = append(excludedUIDs, s.studyInstanceUID)
			continue
		}
		if _, execErr := pool.Exec(ctx, `UPDATE study SET study_date = $1 WHERE study_id = $2`, date, s.studyID); execErr != nil {
			return nil, nil, 0, fmt.Errorf("sortpipe: persist imputed study_date for study %d: %w", s.studyID, execErr)
		}
		validIDs = append(validIDs, s.studyID)
		imputed++
	}
	return validIDs, excludedUIDs, imputed, nil
}

func imputeStudyDate(ctx context.Context, pool *pgxpool.Pool, studyID int64) (string, error) {
	var date *string
	err := pool.QueryRow(ctx, `
		SELECT series_date FROM series
		WHERE study_id = $1 AND series_date IS NOT NULL
		ORDER BY series_id LIMIT 1`, studyID).Scan(&date)
	if err == nil && date != nil {
		return *date, nil
	}

	err = pool.QueryRow(ctx, `
		SELECT i.acquisition_date FROM instance i
		JOIN series s ON s.series_id = i.series_id
		WHERE s.study_id = $1 AND i.acquisition_date IS NOT NULL
		ORDER BY i.instance_id LIMIT 1`, studyID).Scan(&date)
	if err == nil && date != nil {
		return *date, nil
	}

	err = pool.QueryRow(ctx, `
		SELECT i.content_date FROM instance i
		JOIN series s ON s.series_id = i.series_id
		WHERE s.study_id = $1 AND i.content_date IS NOT NULL
		ORDER BY i.instance_id LIMIT 1`, studyID).Scan(&date)
	if err == nil && date != nil {
		return *date, nil
	}

	return "", nil
}

type seriesRow struct {
	seriesID          int64
	seriesInstanceUID string
	modality          string
	studyID           int64
	subjectID         int64
	studyInstanceUID  string
	studyDate         *string
	subjectCode       string
}

func seriesForStudies(ctx context.Context, pool *pgxpool.Pool, studyIDs []int64) ([]seriesRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT se.series_id, se.series_instance_uid, se.modality, se.study_id, se.subject_id,
		       st.study_instance_uid, st.study_date, su.subject_code
		FROM series se
		JOIN study st ON st.study_id = se.study_id
		JOIN subject su ON su.subject_id = se.subject_id
		WHERE se.study_id = ANY($1::bigint[])`, studyIDs)
	if err != nil {
		return nil, fmt.Errorf("sortpipe: query series for studies: %w", err)
	}
	defer rows.Close()
	var out []seriesRow
	for rows.Next() {
		var r seriesRow
		if err := rows.Scan(&r.seriesID, &r.seriesInstanceUID, &r.modality, &r.studyID, &r.subjectID,
			&r.studyInstanceUID, &r.studyDate, &r.subjectCode); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func filterByModality(rows []seriesRow, selected []string) ([]seriesRow, map[string]int) {
	allowed := make(map[string]bool, len(selected))
	for _, m := range selected {
		allowed[m] = true
	}
	counts := map[string]int{}
	var out []seriesRow
	for _, r := range rows {
		if len(allowed) == 0 || allowed[r.modality] {
			out = append(out, r)
			counts[r.modality]++
		}
	}
	return out, counts
}

func filterByClassification(ctx context.Context, pool *pgxpool.Pool, rows []seriesRow, skipClassified bool) ([]SeriesForProcessing, []SeriesForProcessing, error) {
	all := make([]SeriesForProcessing, len(rows))
	for i, r := range rows {
		all[i] = SeriesForProcessing{
			SeriesID: r.seriesID, SeriesInstanceUID: r.seriesInstanceUID, Modality: r.modality,
			StudyID: r.studyID, SubjectID: r.subjectID, StudyInstanceUID: r.studyInstanceUID,
			StudyDate: r.studyDate, SubjectCode: r.subjectCode,
		}
	}
	if !skipClassified {
		return all, nil, nil
	}

	seriesIDs := make([]int64, len(all))
	for i, s := range all {
		seriesIDs[i] = s.SeriesID
	}

	classifiedSeriesIDs, err := classifiedSeriesIDs(ctx, pool, seriesIDs)
	if err != nil {
		return nil, nil, err
	}

	var toProcess, skipped []SeriesForProcessing
	for _, s := range all {
		if classifiedSeriesIDs[s.SeriesID] {
			skipped = append(skipped, s)
		} else {
			toProcess = append(toProcess, s)
		}
	}
	return toProcess, skipped, nil
}

// classifiedSeriesIDs returns the subset of seriesIDs that have at least
// one fully-classified stack recorded in series_classification_cache,
// joined through series_stack (spec §4.9 sub-step 6).
func classifiedSeriesIDs(ctx context.Context, pool *pgxpool.Pool, seriesIDs []int64) (map[int64]bool, error) {
	rows, err := pool.Query(ctx, `
		SELECT DISTINCT ss.series_id
		FROM series_stack ss
		JOIN series_classification_cache scc ON scc.series_stack_id = ss.series_stack_id
		WHERE ss.series_id = ANY($1::bigint[])`, seriesIDs)
	if err != nil {
		return nil, fmt.Errorf("sortpipe: query classified series: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
