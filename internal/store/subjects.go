package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codeninja55/go-radx/internal/extract"
)

// bulkEnsureSubjects resolves/creates one subject row per distinct
// PatientID in the batch, following the cache → bulk-query → bulk-insert
// pattern (spec §4.8 "Entity merge discipline").
func (w *Writer) bulkEnsureSubjects(ctx context.Context, tx pgxTx, payloads []extract.InstancePayload) ([]int64, error) {
	subjectIDs := make([]int64, len(payloads))
	type pending struct {
		indices []int
		code    string
		name    string
	}
	byPatientID := make(map[string]*pending)

	for idx, p := range payloads {
		key := subjectCacheKey(p)
		if key == "" {
			return nil, fmt.Errorf("store: payload %d has no PatientID or subject code", idx)
		}
		if cached, ok := w.subjectCache[key]; ok {
			subjectIDs[idx] = cached
			continue
		}
		entry, ok := byPatientID[key]
		if !ok {
			entry = &pending{code: p.Subject.SubjectCode, name: p.Raw.PatientName}
			byPatientID[key] = entry
		}
		entry.indices = append(entry.indices, idx)
	}

	if len(byPatientID) == 0 {
		return subjectIDs, nil
	}

	codes := make([]string, 0, len(byPatientID))
	codeToKey := make(map[string]string, len(byPatientID))
	for key, entry := range byPatientID {
		codes = append(codes, entry.code)
		codeToKey[entry.code] = key
	}

	rows, err := tx.Query(ctx, `SELECT subject_code, subject_id FROM subject WHERE subject_code = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("store: query existing subjects: %w", err)
	}
	found := make(map[string]int64)
	for rows.Next() {
		var code string
		var id int64
		if err := rows.Scan(&code, &id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan existing subject: %w", err)
		}
		found[code] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate existing subjects: %w", err)
	}

	for code, id := range found {
		key := codeToKey[code]
		entry := byPatientID[key]
		w.subjectCache[key] = id
		for _, idx := range entry.indices {
			subjectIDs[idx] = id
		}
		delete(byPatientID, key)
	}

	if len(byPatientID) > 0 {
		insertCodes := make([]string, 0, len(byPatientID))
		insertNames := make([]string, 0, len(byPatientID))
		keys := make([]string, 0, len(byPatientID))
		for key, entry := range byPatientID {
			insertCodes = append(insertCodes, entry.code)
			insertNames = append(insertNames, entry.name)
			keys = append(keys, key)
		}

		insRows, err := tx.Query(ctx, `
			INSERT INTO subject (subject_code, patient_name)
			SELECT * FROM unnest($1::text[], $2::text[])
			ON CONFLICT (subject_code) DO NOTHING
			RETURNING subject_code, subject_id`, insertCodes, insertNames)
		if err != nil {
			return nil, fmt.Errorf("store: insert subjects: %w", err)
		}
		inserted := make(map[string]int64)
		for insRows.Next() {
			var code string
			var id int64
			if err := insRows.Scan(&code, &id); err != nil {
				insRows.Close()
				return nil, fmt.Errorf("store: scan inserted subject: %w", err)
			}
			inserted[code] = id
		}
		insRows.Close()
		if err := insRows.Err(); err != nil {
			return nil, fmt.Errorf("store: iterate inserted subjects: %w", err)
		}
		w.subjectsInserted += int64(len(inserted))

		missing := make([]string, 0)
		for _, code := range insertCodes {
			if _, ok := inserted[code]; !ok {
				missing = append(missing, code)
			}
		}
		if len(missing) > 0 {
			strRows, err := tx.Query(ctx, `SELECT subject_code, subject_id FROM subject WHERE subject_code = ANY($1)`, missing)
			if err != nil {
				return nil, fmt.Errorf("store: re-select straggler subjects: %w", err)
			}
			for strRows.Next() {
				var code string
				var id int64
				if err := strRows.Scan(&code, &id); err != nil {
					strRows.Close()
					return nil, fmt.Errorf("store: scan straggler subject: %w", err)
				}
				inserted[code] = id
			}
			strRows.Close()
			if err := strRows.Err(); err != nil {
				return nil, fmt.Errorf("store: iterate straggler subjects: %w", err)
			}
		}

		for _, key := range keys {
			entry := byPatientID[key]
			id, ok := inserted[entry.code]
			if !ok {
				return nil, fmt.Errorf("store: failed to resolve subject_code %q", entry.code)
			}
			w.subjectCache[key] = id
			for _, idx := range entry.indices {
				subjectIDs[idx] = id
			}
		}
	}

	if err := w.ensureSubjectCohortLinks(ctx, tx, subjectIDs); err != nil {
		return nil, err
	}
	if err := w.ensureSubjectIdentifiers(ctx, tx, payloads, subjectIDs); err != nil {
		return nil, err
	}

	return subjectIDs, nil
}

func subjectCacheKey(p extract.InstancePayload) string {
	if p.Raw.PatientID != "" {
		return p.Raw.PatientID
	}
	return p.Subject.SubjectCode
}

func (w *Writer) ensureSubjectCohortLinks(ctx context.Context, tx pgxTx, subjectIDs []int64) error {
	unique := make(map[int64]struct{})
	for _, id := range subjectIDs {
		unique[id] = struct{}{}
	}
	ids := make([]int64, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO subject_cohorts (subject_id, cohort_id)
		SELECT unnest($1::bigint[]), $2
		ON CONFLICT (subject_id, cohort_id) DO NOTHING`, ids, w.cohortID)
	if err != nil {
		return fmt.Errorf("store: link subjects to cohort: %w", err)
	}
	return nil
}

func (w *Writer) ensureSubjectIdentifiers(ctx context.Context, tx pgxTx, payloads []extract.InstancePayload, subjectIDs []int64) error {
	if w.cfg.SubjectIDTypeID == nil {
		return nil
	}
	typeID := *w.cfg.SubjectIDTypeID

	for idx, p := range payloads {
		if p.Raw.PatientID == "" {
			continue
		}
		subjectID := subjectIDs[idx]
		if _, done := w.subjectIdentified[subjectID]; done {
			continue
		}
		w.subjectIdentified[subjectID] = struct{}{}

		var existing string
		err := tx.QueryRow(ctx, `
			SELECT other_identifier FROM subject_other_identifiers
			WHERE subject_id = $1 AND id_type_id = $2`, subjectID, typeID).Scan(&existing)
		switch {
		case err == nil:
			if existing != p.Raw.PatientID {
				if err := w.logConflict(ctx, tx, "subject_identifier", p.Subject.SubjectCode,
					"Conflicting patient identifier for subject", p.Raw.FilePath); err != nil {
					return err
				}
				if _, err := tx.Exec(ctx, `
					UPDATE subject_other_identifiers SET other_identifier = $1
					WHERE subject_id = $2 AND id_type_id = $3`, p.Raw.PatientID, subjectID, typeID); err != nil {
					return fmt.Errorf("store: update subject identifier: %w", err)
				}
			}
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx, `
				INSERT INTO subject_other_identifiers (subject_id, id_type_id, other_identifier)
				VALUES ($1, $2, $3)
				ON CONFLICT (id_type_id, other_identifier) DO NOTHING`, subjectID, typeID, p.Raw.PatientID); err != nil {
				return fmt.Errorf("store: insert subject identifier: %w", err)
			}
		default:
			return fmt.Errorf("store: lookup subject identifier: %w", err)
		}
	}
	return nil
}
