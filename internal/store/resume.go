package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/extract"
	"github.com/codeninja55/go-radx/internal/extract/resume"
)

// LoadExistingPaths builds an ExistingPathIndex from every dicom_file_path
// already stored for a cohort, grounded on
// original_source/backend/src/extract/resume_index.py's
// ExistingPathIndex.from_db loader. rawRoot is used to recover each file's
// subject-relative path from its stored absolute path.
func LoadExistingPaths(ctx context.Context, pool *pgxpool.Pool, cohortID int64, rawRoot string, opts ...resume.Option) (*resume.ExistingPathIndex, error) {
	absRoot, err := filepath.Abs(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("store: resolve raw root: %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT i.dicom_file_path
		FROM instance i
		JOIN series s ON s.series_id = i.series_id
		JOIN study st ON st.study_id = s.study_id
		JOIN subject_cohorts sc ON sc.subject_id = st.subject_id
		WHERE sc.cohort_id = $1`, cohortID)
	if err != nil {
		return nil, fmt.Errorf("store: query existing instance paths: %w", err)
	}
	defer rows.Close()

	idx := resume.NewExistingPathIndex(opts...)
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("store: scan existing instance path: %w", err)
		}
		relative, err := filepath.Rel(absRoot, path)
		if err != nil {
			continue
		}
		subjectKey, subjectRelative := extract.SplitSubjectRelative(filepath.ToSlash(relative))
		if subjectKey == "" {
			continue
		}
		idx.Add(subjectKey, subjectRelative)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate existing instance paths: %w", err)
	}
	return idx, nil
}
