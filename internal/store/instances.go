package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/codeninja55/go-radx/internal/config"
	"github.com/codeninja55/go-radx/internal/extract"
)

// instanceColumns lists every column the instance insert writes, in
// positional order, matching extract.EstimateInstanceParamsPerRow's column
// count (spec §4.8 "Parameter budget").
var instanceColumns = []string{
	"sop_instance_uid", "series_id", "series_stack_id", "series_instance_uid", "dicom_file_path",
	"instance_number", "acquisition_number", "acquisition_date", "acquisition_time",
	"content_date", "content_time", "image_position_patient", "image_orientation_patient",
	"rows", "columns", "pixel_spacing",
}

// bulkEnsureInstances inserts the batch's instance rows, chunked to the
// PostgreSQL parameter budget, honoring the configured duplicate policy
// (spec §4.8 "Duplicate policy"). Rows carry array-typed columns
// (image_position_patient, ...) alongside scalars, so each chunk is sent
// as a pipelined pgx.Batch of per-row statements rather than a single
// unnest()-based multi-row insert: unnest flattens multi-dimensional array
// arguments across all rows instead of handing each row its own
// sub-array, which would misalign the geometry columns.
func (w *Writer) bulkEnsureInstances(ctx context.Context, tx pgxTx, payloads []extract.InstancePayload, seriesIDs, stackIDs []int64) error {
	if w.cfg.DuplicatePolicy == config.DuplicateAppendSeries {
		return fmt.Errorf("store: duplicate_policy append_series is forbidden in the core path")
	}
	if len(payloads) == 0 {
		return nil
	}

	chunks, _, _ := extract.BuildParameterChunkPlan(payloads, extract.EstimateInstanceParamsPerRow(), extract.PGParamMargin)

	offset := 0
	for _, chunk := range chunks {
		chunkSeriesIDs := seriesIDs[offset : offset+len(chunk)]
		chunkStackIDs := stackIDs[offset : offset+len(chunk)]
		offset += len(chunk)
		if err := w.insertInstanceChunk(ctx, tx, chunk, chunkSeriesIDs, chunkStackIDs); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) insertInstanceChunk(ctx context.Context, tx pgxTx, chunk []extract.InstancePayload, seriesIDs, stackIDs []int64) error {
	overwrite := w.cfg.DuplicatePolicy == config.DuplicateOverwrite

	updateSet := ""
	if overwrite {
		for _, col := range instanceColumns {
			if col == "sop_instance_uid" {
				continue
			}
			updateSet += fmt.Sprintf("%s = EXCLUDED.%s, ", col, col)
		}
		updateSet = updateSet[:len(updateSet)-2]
	}

	stmt := `
		INSERT INTO instance (
			sop_instance_uid, series_id, series_stack_id, series_instance_uid, dicom_file_path,
			instance_number, acquisition_number, acquisition_date, acquisition_time,
			content_date, content_time, image_position_patient, image_orientation_patient,
			rows, columns, pixel_spacing
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	if overwrite {
		stmt += fmt.Sprintf(" ON CONFLICT (sop_instance_uid) DO UPDATE SET %s", updateSet)
	} else {
		stmt += " ON CONFLICT (sop_instance_uid) DO NOTHING"
	}

	batch := &pgx.Batch{}
	for i, p := range chunk {
		r := p.Raw
		batch.Queue(stmt,
			r.SOPInstanceUID, seriesIDs[i], stackIDs[i], r.SeriesInstanceUID, r.FilePath,
			r.InstanceNumber, r.AcquisitionNumber, nilIfEmpty(r.AcquisitionDate), nilIfEmpty(r.AcquisitionTime),
			nilIfEmpty(r.ContentDate), nilIfEmpty(r.ContentTime), nilSliceIfEmpty(r.ImagePositionPatient), nilSliceIfEmpty(r.ImageOrientationPatient),
			r.Rows, r.Columns, nilSliceIfEmpty(r.PixelSpacing),
		)
	}

	results := tx.SendBatch(ctx, batch)

	inserted := 0
	logConflictUIDs := make([]int, 0)
	for i := range chunk {
		tag, err := results.Exec()
		if err != nil {
			return fmt.Errorf("store: insert instance %s: %w", chunk[i].Raw.SOPInstanceUID, err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		} else if !overwrite {
			logConflictUIDs = append(logConflictUIDs, i)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("store: close instance batch: %w", err)
	}
	w.instancesInserted += int64(inserted)

	if !overwrite && !w.cfg.Resume {
		for _, i := range logConflictUIDs {
			p := chunk[i]
			if err := w.logConflict(ctx, tx, "instance", p.Raw.SOPInstanceUID, "Duplicate SOP Instance", p.Raw.FilePath); err != nil {
				return err
			}
		}
	}
	return nil
}

func nilSliceIfEmpty(v []float64) []float64 {
	if len(v) == 0 {
		return nil
	}
	return v
}
