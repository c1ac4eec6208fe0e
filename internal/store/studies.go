package store

import (
	"context"
	"fmt"

	"github.com/codeninja55/go-radx/internal/extract"
)

// bulkEnsureStudies resolves/creates one study row per distinct
// StudyInstanceUID, re-parenting to the subject seen in the current batch
// when an existing study links to a different subject (spec §3 "Conflict
// policy").
func (w *Writer) bulkEnsureStudies(ctx context.Context, tx pgxTx, payloads []extract.InstancePayload, subjectIDs []int64) ([]int64, error) {
	studyIDs := make([]int64, len(payloads))
	type pending struct {
		indices   []int
		subjectID int64
		payload   extract.InstancePayload
	}
	byUID := make(map[string]*pending)

	for idx, p := range payloads {
		uid := p.Raw.StudyInstanceUID
		if cached, ok := w.studyCache[uid]; ok {
			studyIDs[idx] = cached
			continue
		}
		entry, ok := byUID[uid]
		if !ok {
			entry = &pending{subjectID: subjectIDs[idx], payload: p}
			byUID[uid] = entry
		}
		entry.indices = append(entry.indices, idx)
	}
	if len(byUID) == 0 {
		return studyIDs, nil
	}

	uids := make([]string, 0, len(byUID))
	for uid := range byUID {
		uids = append(uids, uid)
	}

	rows, err := tx.Query(ctx, `SELECT study_instance_uid, study_id, subject_id FROM study WHERE study_instance_uid = ANY($1)`, uids)
	if err != nil {
		return nil, fmt.Errorf("store: query existing studies: %w", err)
	}
	type existingRow struct {
		id, subjectID int64
	}
	existing := make(map[string]existingRow)
	for rows.Next() {
		var uid string
		var row existingRow
		if err := rows.Scan(&uid, &row.id, &row.subjectID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan existing study: %w", err)
		}
		existing[uid] = row
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate existing studies: %w", err)
	}

	for uid, row := range existing {
		entry := byUID[uid]
		if row.subjectID != entry.subjectID {
			if err := w.logConflict(ctx, tx, "study", uid,
				"Study assigned to a different subject; re-linking based on DICOM tags", entry.payload.Raw.FilePath); err != nil {
				return nil, err
			}
			if _, err := tx.Exec(ctx, `UPDATE study SET subject_id = $1 WHERE study_id = $2`, entry.subjectID, row.id); err != nil {
				return nil, fmt.Errorf("store: re-parent study %s: %w", uid, err)
			}
		}
		w.studyCache[uid] = row.id
		for _, idx := range entry.indices {
			studyIDs[idx] = row.id
		}
		delete(byUID, uid)
	}

	if len(byUID) > 0 {
		uidsIn := make([]string, 0, len(byUID))
		subjectIDsIn := make([]int64, 0, len(byUID))
		dates := make([]*string, 0, len(byUID))
		times := make([]*string, 0, len(byUID))
		descs := make([]*string, 0, len(byUID))
		accessions := make([]*string, 0, len(byUID))
		for uid, entry := range byUID {
			r := entry.payload.Raw
			uidsIn = append(uidsIn, uid)
			subjectIDsIn = append(subjectIDsIn, entry.subjectID)
			dates = append(dates, nilIfEmpty(r.StudyDate))
			times = append(times, nilIfEmpty(r.StudyTime))
			descs = append(descs, nilIfEmpty(r.StudyDescription))
			accessions = append(accessions, nilIfEmpty(r.AccessionNumber))
		}

		insRows, err := tx.Query(ctx, `
			INSERT INTO study (study_instance_uid, subject_id, study_date, study_time, study_description, accession_number)
			SELECT * FROM unnest($1::text[], $2::bigint[], $3::text[], $4::text[], $5::text[], $6::text[])
			ON CONFLICT (study_instance_uid) DO NOTHING
			RETURNING study_instance_uid, study_id`,
			uidsIn, subjectIDsIn, dates, times, descs, accessions)
		if err != nil {
			return nil, fmt.Errorf("store: insert studies: %w", err)
		}
		inserted := make(map[string]int64)
		for insRows.Next() {
			var uid string
			var id int64
			if err := insRows.Scan(&uid, &id); err != nil {
				insRows.Close()
				return nil, fmt.Errorf("store: scan inserted study: %w", err)
			}
			inserted[uid] = id
		}
		insRows.Close()
		if err := insRows.Err(); err != nil {
			return nil, fmt.Errorf("store: iterate inserted studies: %w", err)
		}
		w.studiesInserted += int64(len(inserted))

		remaining := make([]string, 0)
		for _, uid := range uidsIn {
			if _, ok := inserted[uid]; !ok {
				remaining = append(remaining, uid)
			}
		}
		if len(remaining) > 0 {
			strRows, err := tx.Query(ctx, `SELECT study_instance_uid, study_id FROM study WHERE study_instance_uid = ANY($1)`, remaining)
			if err != nil {
				return nil, fmt.Errorf("store: re-select straggler studies: %w", err)
			}
			for strRows.Next() {
				var uid string
				var id int64
				if err := strRows.Scan(&uid, &id); err != nil {
					strRows.Close()
					return nil, fmt.Errorf("store: scan straggler study: %w", err)
				}
				inserted[uid] = id
			}
			strRows.Close()
			if err := strRows.Err(); err != nil {
				return nil, fmt.Errorf("store: iterate straggler studies: %w", err)
			}
		}

		for uid, entry := range byUID {
			id, ok := inserted[uid]
			if !ok {
				return nil, fmt.Errorf("store: failed to resolve study_instance_uid %q", uid)
			}
			w.studyCache[uid] = id
			for _, idx := range entry.indices {
				studyIDs[idx] = id
			}
		}
	}

	return studyIDs, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
