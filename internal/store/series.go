package store

import (
	"context"
	"fmt"

	"github.com/codeninja55/go-radx/internal/dcmio"
	"github.com/codeninja55/go-radx/internal/extract"
)

// bulkEnsureSeries resolves/creates one series row per distinct
// SeriesInstanceUID, re-parenting its subject/study FKs on conflict, then
// upserts the modality-specific detail row once per unique series (spec
// §4.8 "Modality detail tables").
func (w *Writer) bulkEnsureSeries(ctx context.Context, tx pgxTx, payloads []extract.InstancePayload, subjectIDs, studyIDs []int64) ([]int64, error) {
	seriesIDs := make([]int64, len(payloads))
	type pending struct {
		indices   []int
		subjectID int64
		studyID   int64
		payload   extract.InstancePayload
	}
	byUID := make(map[string]*pending)

	for idx, p := range payloads {
		uid := p.Raw.SeriesInstanceUID
		if cached, ok := w.seriesCache[uid]; ok {
			seriesIDs[idx] = cached
			continue
		}
		entry, ok := byUID[uid]
		if !ok {
			entry = &pending{subjectID: subjectIDs[idx], studyID: studyIDs[idx], payload: p}
			byUID[uid] = entry
		}
		entry.indices = append(entry.indices, idx)
	}

	if len(byUID) > 0 {
		uids := make([]string, 0, len(byUID))
		for uid := range byUID {
			uids = append(uids, uid)
		}
		rows, err := tx.Query(ctx, `
			SELECT series_instance_uid, series_id, subject_id, study_id
			FROM series WHERE series_instance_uid = ANY($1)`, uids)
		if err != nil {
			return nil, fmt.Errorf("store: query existing series: %w", err)
		}
		type existingRow struct{ id, subjectID, studyID int64 }
		existing := make(map[string]existingRow)
		for rows.Next() {
			var uid string
			var row existingRow
			if err := rows.Scan(&uid, &row.id, &row.subjectID, &row.studyID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("store: scan existing series: %w", err)
			}
			existing[uid] = row
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("store: iterate existing series: %w", err)
		}

		for uid, row := range existing {
			entry := byUID[uid]
			if row.subjectID != entry.subjectID || row.studyID != entry.studyID {
				if err := w.logConflict(ctx, tx, "series", uid,
					"Series metadata linked to a different subject/study; re-linking", entry.payload.Raw.FilePath); err != nil {
					return nil, err
				}
				if _, err := tx.Exec(ctx, `UPDATE series SET subject_id = $1, study_id = $2 WHERE series_id = $3`,
					entry.subjectID, entry.studyID, row.id); err != nil {
					return nil, fmt.Errorf("store: re-parent series %s: %w", uid, err)
				}
			}
			w.seriesCache[uid] = row.id
			w.seriesIDToUID[row.id] = uid
			for _, idx := range entry.indices {
				seriesIDs[idx] = row.id
			}
			delete(byUID, uid)
		}

		if len(byUID) > 0 {
			uidsIn := make([]string, 0, len(byUID))
			studyIDsIn := make([]int64, 0, len(byUID))
			subjectIDsIn := make([]int64, 0, len(byUID))
			modalities := make([]string, 0, len(byUID))
			numbers := make([]*int64, 0, len(byUID))
			descs := make([]*string, 0, len(byUID))
			seriesDates := make([]*string, 0, len(byUID))
			seriesTimes := make([]*string, 0, len(byUID))
			protocols := make([]*string, 0, len(byUID))
			bodyParts := make([]*string, 0, len(byUID))
			manufacturers := make([]*string, 0, len(byUID))
			models := make([]*string, 0, len(byUID))
			institutions := make([]*string, 0, len(byUID))
			for uid, entry := range byUID {
				r := entry.payload.Raw
				uidsIn = append(uidsIn, uid)
				studyIDsIn = append(studyIDsIn, entry.studyID)
				subjectIDsIn = append(subjectIDsIn, entry.subjectID)
				modalities = append(modalities, w.resolveSeriesModality(entry.payload))
				numbers = append(numbers, r.SeriesNumber)
				descs = append(descs, nilIfEmpty(r.SeriesDescription))
				seriesDates = append(seriesDates, nilIfEmpty(r.SeriesDate))
				seriesTimes = append(seriesTimes, nilIfEmpty(r.SeriesTime))
				protocols = append(protocols, nilIfEmpty(r.ProtocolName))
				bodyParts = append(bodyParts, nilIfEmpty(r.BodyPartExamined))
				manufacturers = append(manufacturers, nilIfEmpty(r.Manufacturer))
				models = append(models, nilIfEmpty(r.ManufacturerModelName))
				institutions = append(institutions, nilIfEmpty(r.InstitutionName))
			}

			insRows, err := tx.Query(ctx, `
				INSERT INTO series (
					series_instance_uid, study_id, subject_id, modality, series_number,
					series_description, series_date, series_time, protocol_name,
					body_part_examined, manufacturer, manufacturer_model_name, institution_name
				)
				SELECT * FROM unnest(
					$1::text[], $2::bigint[], $3::bigint[], $4::text[], $5::bigint[],
					$6::text[], $7::text[], $8::text[], $9::text[],
					$10::text[], $11::text[], $12::text[], $13::text[]
				)
				ON CONFLICT (series_instance_uid) DO NOTHING
				RETURNING series_instance_uid, series_id`,
				uidsIn, studyIDsIn, subjectIDsIn, modalities, numbers,
				descs, seriesDates, seriesTimes, protocols,
				bodyParts, manufacturers, models, institutions)
			if err != nil {
				return nil, fmt.Errorf("store: insert series: %w", err)
			}
			inserted := make(map[string]int64)
			for insRows.Next() {
				var uid string
				var id int64
				if err := insRows.Scan(&uid, &id); err != nil {
					insRows.Close()
					return nil, fmt.Errorf("store: scan inserted series: %w", err)
				}
				inserted[uid] = id
			}
			insRows.Close()
			if err := insRows.Err(); err != nil {
				return nil, fmt.Errorf("store: iterate inserted series: %w", err)
			}
			w.seriesInserted += int64(len(inserted))

			remaining := make([]string, 0)
			for _, uid := range uidsIn {
				if _, ok := inserted[uid]; !ok {
					remaining = append(remaining, uid)
				}
			}
			if len(remaining) > 0 {
				strRows, err := tx.Query(ctx, `SELECT series_instance_uid, series_id FROM series WHERE series_instance_uid = ANY($1)`, remaining)
				if err != nil {
					return nil, fmt.Errorf("store: re-select straggler series: %w", err)
				}
				for strRows.Next() {
					var uid string
					var id int64
					if err := strRows.Scan(&uid, &id); err != nil {
						strRows.Close()
						return nil, fmt.Errorf("store: scan straggler series: %w", err)
					}
					inserted[uid] = id
				}
				strRows.Close()
				if err := strRows.Err(); err != nil {
					return nil, fmt.Errorf("store: iterate straggler series: %w", err)
				}
			}

			for uid, entry := range byUID {
				id, ok := inserted[uid]
				if !ok {
					return nil, fmt.Errorf("store: failed to resolve series_instance_uid %q", uid)
				}
				w.seriesCache[uid] = id
				w.seriesIDToUID[id] = uid
				for _, idx := range entry.indices {
					seriesIDs[idx] = id
				}
			}
		}
	}

	uniqueSeries := make(map[int64]extract.InstancePayload)
	for idx, p := range payloads {
		id := seriesIDs[idx]
		if _, ok := uniqueSeries[id]; !ok {
			uniqueSeries[id] = p
		}
	}
	for seriesID, p := range uniqueSeries {
		if err := w.upsertModalityDetails(ctx, tx, seriesID, p); err != nil {
			return nil, err
		}
	}

	return seriesIDs, nil
}

func (w *Writer) resolveSeriesModality(p extract.InstancePayload) string {
	if p.Raw.Modality != "" {
		return string(p.Raw.Modality)
	}
	if _, logged := w.modalityFallbackLogged[p.Raw.SeriesInstanceUID]; !logged {
		w.modalityFallbackLogged[p.Raw.SeriesInstanceUID] = struct{}{}
	}
	return "OT"
}

func (w *Writer) upsertModalityDetails(ctx context.Context, tx pgxTx, seriesID int64, p extract.InstancePayload) error {
	r := p.Raw
	switch r.Modality {
	case dcmio.ModalityMR:
		_, err := tx.Exec(ctx, `
			INSERT INTO mri_series_details (
				series_id, series_instance_uid, scanning_sequence_csv, sequence_variant_csv,
				scan_options_csv, mr_acquisition_type, magnetic_field_strength, pixel_bandwidth,
				diffusion_b_value, contrast_bolus_agent, contrast_bolus_route, contrast_bolus_volume,
				number_of_averages
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (series_id) DO UPDATE SET
				scanning_sequence_csv = EXCLUDED.scanning_sequence_csv,
				sequence_variant_csv = EXCLUDED.sequence_variant_csv,
				scan_options_csv = EXCLUDED.scan_options_csv,
				mr_acquisition_type = EXCLUDED.mr_acquisition_type,
				magnetic_field_strength = EXCLUDED.magnetic_field_strength,
				pixel_bandwidth = EXCLUDED.pixel_bandwidth,
				diffusion_b_value = EXCLUDED.diffusion_b_value,
				contrast_bolus_agent = EXCLUDED.contrast_bolus_agent,
				contrast_bolus_route = EXCLUDED.contrast_bolus_route,
				contrast_bolus_volume = EXCLUDED.contrast_bolus_volume,
				number_of_averages = EXCLUDED.number_of_averages`,
			seriesID, r.SeriesInstanceUID, csvJoin(r.ScanningSequence), csvJoin(r.SequenceVariant),
			csvJoin(r.ScanOptions), nilIfEmpty(r.MRAcquisitionType), r.MagneticFieldStrength, r.PixelBandwidth,
			r.DiffusionBValue, nilIfEmpty(r.ContrastBolusAgent), nilIfEmpty(r.ContrastBolusRoute), r.ContrastBolusVolume,
			r.NumberOfAverages)
		if err != nil {
			return fmt.Errorf("store: upsert mri_series_details for series %d: %w", seriesID, err)
		}
	case dcmio.ModalityCT:
		_, err := tx.Exec(ctx, `
			INSERT INTO ct_series_details (series_id, series_instance_uid, kvp, xray_tube_current, exposure_time, exposure, ctdi_vol)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (series_id) DO UPDATE SET
				kvp = EXCLUDED.kvp, xray_tube_current = EXCLUDED.xray_tube_current,
				exposure_time = EXCLUDED.exposure_time, exposure = EXCLUDED.exposure, ctdi_vol = EXCLUDED.ctdi_vol`,
			seriesID, r.SeriesInstanceUID, r.KVP, r.XRayTubeCurrent, r.ExposureTime, r.Exposure, r.CTDIvol)
		if err != nil {
			return fmt.Errorf("store: upsert ct_series_details for series %d: %w", seriesID, err)
		}
	case dcmio.ModalityPET:
		_, err := tx.Exec(ctx, `
			INSERT INTO pet_series_details (series_id, series_instance_uid, units, decay_correction, radiopharmaceutical_start_time, radionuclide_total_dose)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (series_id) DO UPDATE SET
				units = EXCLUDED.units, decay_correction = EXCLUDED.decay_correction,
				radiopharmaceutical_start_time = EXCLUDED.radiopharmaceutical_start_time,
				radionuclide_total_dose = EXCLUDED.radionuclide_total_dose`,
			seriesID, r.SeriesInstanceUID, nilIfEmpty(r.Units), nilIfEmpty(r.DecayCorrection),
			nilIfEmpty(r.RadiopharmaceuticalStartTime), r.RadionuclideTotalDose)
		if err != nil {
			return fmt.Errorf("store: upsert pet_series_details for series %d: %w", seriesID, err)
		}
	}
	return nil
}
