package store

import (
	"context"
	"fmt"

	"github.com/codeninja55/go-radx/internal/dcmio"
	"github.com/codeninja55/go-radx/internal/extract"
	"github.com/codeninja55/go-radx/internal/sig"
)

// stackRow is the full set of stack-defining columns, used both to build
// INSERT rows and to reconstruct a Signature from an existing DB row for
// cache-miss comparison (spec §4.8 "Stack reconciliation").
type stackRow struct {
	seriesID         int64
	stackIndex       int
	orientation      string
	orientationConf  float64
	imageType        *string
	echoTime         *float64
	inversionTime    *float64
	echoNumbers      *int64
	echoTrainLength  *int64
	repetitionTime   *float64
	flipAngle        *float64
	receiveCoilName  *string
	xrayExposure     *float64
	kvp              *float64
	tubeCurrent      *float64
	petBedIndex      *int64
	petFrameType     *string
}

// bulkEnsureStacks resolves/creates one series_stack row per distinct
// signature within each series, maintaining a per-series next_stack_index
// counter that advances past any index already observed in the DB.
func (w *Writer) bulkEnsureStacks(ctx context.Context, tx pgxTx, payloads []extract.InstancePayload, seriesIDs []int64) ([]int64, error) {
	stackIDs := make([]int64, len(payloads))
	type pending struct {
		indices  []int
		seriesID int64
		seriesUID string
		payload  extract.InstancePayload
	}
	bySig := make(map[string]*pending)

	for idx, p := range payloads {
		key := p.Signature.Key()
		if cached, ok := w.stackCache[key]; ok {
			stackIDs[idx] = cached
			continue
		}
		entry, ok := bySig[key]
		if !ok {
			entry = &pending{seriesID: seriesIDs[idx], seriesUID: p.Raw.SeriesInstanceUID, payload: p}
			bySig[key] = entry
		}
		entry.indices = append(entry.indices, idx)
	}
	if len(bySig) == 0 {
		return stackIDs, nil
	}

	seriesIDSet := make(map[int64]struct{})
	for _, entry := range bySig {
		seriesIDSet[entry.seriesID] = struct{}{}
	}
	seriesIDsIn := make([]int64, 0, len(seriesIDSet))
	for id := range seriesIDSet {
		seriesIDsIn = append(seriesIDsIn, id)
	}

	rows, err := tx.Query(ctx, `
		SELECT series_stack_id, series_id, stack_index, stack_orientation, stack_orientation_confidence,
			stack_image_type, stack_echo_time, stack_inversion_time, stack_echo_numbers, stack_echo_train_length,
			stack_repetition_time, stack_flip_angle, stack_receive_coil_name, stack_xray_exposure, stack_kvp,
			stack_tube_current, stack_pet_bed_index, stack_pet_frame_type
		FROM series_stack WHERE series_id = ANY($1)`, seriesIDsIn)
	if err != nil {
		return nil, fmt.Errorf("store: query existing stacks: %w", err)
	}
	for rows.Next() {
		var stackID, seriesID int64
		var r stackRow
		if err := rows.Scan(&stackID, &seriesID, &r.stackIndex, &r.orientation, &r.orientationConf,
			&r.imageType, &r.echoTime, &r.inversionTime, &r.echoNumbers, &r.echoTrainLength,
			&r.repetitionTime, &r.flipAngle, &r.receiveCoilName, &r.xrayExposure, &r.kvp,
			&r.tubeCurrent, &r.petBedIndex, &r.petFrameType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan existing stack: %w", err)
		}

		seriesUID := w.seriesIDToUID[seriesID]
		if next := r.stackIndex + 1; next > w.nextStackIndex[seriesUID] {
			w.nextStackIndex[seriesUID] = next
		}

		modality := dcmio.Modality("")
		for _, entry := range bySig {
			if entry.seriesID == seriesID {
				modality = entry.payload.Raw.Modality
				break
			}
		}
		dbSig := reconstructSignature(modality, r)
		dbKey := dbSig.Key()
		if entry, ok := bySig[dbKey]; ok {
			w.stackCache[dbKey] = stackID
			for _, idx := range entry.indices {
				stackIDs[idx] = stackID
			}
			delete(bySig, dbKey)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate existing stacks: %w", err)
	}

	if len(bySig) == 0 {
		return stackIDs, nil
	}

	type insertRow struct {
		key   string
		row   stackRow
	}
	toInsert := make([]insertRow, 0, len(bySig))
	for key, entry := range bySig {
		stackIndex := w.nextStackIndex[entry.seriesUID]
		w.nextStackIndex[entry.seriesUID] = stackIndex + 1
		toInsert = append(toInsert, insertRow{key: key, row: buildStackRow(entry.seriesID, stackIndex, entry.payload)})
	}

	seriesIDsCol := make([]int64, 0, len(toInsert))
	stackIndexCol := make([]int32, 0, len(toInsert))
	orientationCol := make([]string, 0, len(toInsert))
	orientConfCol := make([]float64, 0, len(toInsert))
	imageTypeCol := make([]*string, 0, len(toInsert))
	echoTimeCol := make([]*float64, 0, len(toInsert))
	inversionTimeCol := make([]*float64, 0, len(toInsert))
	echoNumbersCol := make([]*int64, 0, len(toInsert))
	echoTrainLengthCol := make([]*int64, 0, len(toInsert))
	repetitionTimeCol := make([]*float64, 0, len(toInsert))
	flipAngleCol := make([]*float64, 0, len(toInsert))
	coilCol := make([]*string, 0, len(toInsert))
	exposureCol := make([]*float64, 0, len(toInsert))
	kvpCol := make([]*float64, 0, len(toInsert))
	tubeCurrentCol := make([]*float64, 0, len(toInsert))
	bedIndexCol := make([]*int64, 0, len(toInsert))
	frameTypeCol := make([]*string, 0, len(toInsert))

	for _, ins := range toInsert {
		r := ins.row
		seriesIDsCol = append(seriesIDsCol, r.seriesID)
		stackIndexCol = append(stackIndexCol, int32(r.stackIndex))
		orientationCol = append(orientationCol, r.orientation)
		orientConfCol = append(orientConfCol, r.orientationConf)
		imageTypeCol = append(imageTypeCol, r.imageType)
		echoTimeCol = append(echoTimeCol, r.echoTime)
		inversionTimeCol = append(inversionTimeCol, r.inversionTime)
		echoNumbersCol = append(echoNumbersCol, r.echoNumbers)
		echoTrainLengthCol = append(echoTrainLengthCol, r.echoTrainLength)
		repetitionTimeCol = append(repetitionTimeCol, r.repetitionTime)
		flipAngleCol = append(flipAngleCol, r.flipAngle)
		coilCol = append(coilCol, r.receiveCoilName)
		exposureCol = append(exposureCol, r.xrayExposure)
		kvpCol = append(kvpCol, r.kvp)
		tubeCurrentCol = append(tubeCurrentCol, r.tubeCurrent)
		bedIndexCol = append(bedIndexCol, r.petBedIndex)
		frameTypeCol = append(frameTypeCol, r.petFrameType)
	}

	insRows, err := tx.Query(ctx, `
		INSERT INTO series_stack (
			series_id, stack_index, stack_orientation, stack_orientation_confidence, stack_image_type,
			stack_echo_time, stack_inversion_time, stack_echo_numbers, stack_echo_train_length,
			stack_repetition_time, stack_flip_angle, stack_receive_coil_name, stack_xray_exposure,
			stack_kvp, stack_tube_current, stack_pet_bed_index, stack_pet_frame_type
		)
		SELECT * FROM unnest(
			$1::bigint[], $2::int[], $3::text[], $4::float8[], $5::text[],
			$6::float8[], $7::float8[], $8::bigint[], $9::bigint[],
			$10::float8[], $11::float8[], $12::text[], $13::float8[],
			$14::float8[], $15::float8[], $16::bigint[], $17::text[]
		)
		ON CONFLICT (series_id, stack_index) DO NOTHING
		RETURNING series_id, stack_index, series_stack_id`,
		seriesIDsCol, stackIndexCol, orientationCol, orientConfCol, imageTypeCol,
		echoTimeCol, inversionTimeCol, echoNumbersCol, echoTrainLengthCol,
		repetitionTimeCol, flipAngleCol, coilCol, exposureCol,
		kvpCol, tubeCurrentCol, bedIndexCol, frameTypeCol)
	if err != nil {
		return nil, fmt.Errorf("store: insert stacks: %w", err)
	}
	type stackKey struct {
		seriesID   int64
		stackIndex int
	}
	insertedLookup := make(map[stackKey]int64)
	for insRows.Next() {
		var seriesID int64
		var stackIndex int32
		var stackID int64
		if err := insRows.Scan(&seriesID, &stackIndex, &stackID); err != nil {
			insRows.Close()
			return nil, fmt.Errorf("store: scan inserted stack: %w", err)
		}
		insertedLookup[stackKey{seriesID, int(stackIndex)}] = stackID
	}
	insRows.Close()
	if err := insRows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate inserted stacks: %w", err)
	}
	w.stacksInserted += int64(len(insertedLookup))

	remainingKeys := make([]string, 0)
	for _, ins := range toInsert {
		if _, ok := insertedLookup[stackKey{ins.row.seriesID, ins.row.stackIndex}]; !ok {
			remainingKeys = append(remainingKeys, ins.key)
		}
	}

	for _, ins := range toInsert {
		id, ok := insertedLookup[stackKey{ins.row.seriesID, ins.row.stackIndex}]
		if ok {
			w.stackCache[ins.key] = id
			for _, idx := range bySig[ins.key].indices {
				stackIDs[idx] = id
			}
		}
	}

	if len(remainingKeys) > 0 {
		remainingSeriesSet := make(map[int64]struct{})
		for _, key := range remainingKeys {
			remainingSeriesSet[bySig[key].seriesID] = struct{}{}
		}
		remainingSeriesIDs := make([]int64, 0, len(remainingSeriesSet))
		for id := range remainingSeriesSet {
			remainingSeriesIDs = append(remainingSeriesIDs, id)
		}
		strRows, err := tx.Query(ctx, `
			SELECT series_stack_id, series_id, stack_index, stack_orientation, stack_orientation_confidence,
				stack_image_type, stack_echo_time, stack_inversion_time, stack_echo_numbers, stack_echo_train_length,
				stack_repetition_time, stack_flip_angle, stack_receive_coil_name, stack_xray_exposure, stack_kvp,
				stack_tube_current, stack_pet_bed_index, stack_pet_frame_type
			FROM series_stack WHERE series_id = ANY($1)`, remainingSeriesIDs)
		if err != nil {
			return nil, fmt.Errorf("store: re-select straggler stacks: %w", err)
		}
		for strRows.Next() {
			var stackID, seriesID int64
			var r stackRow
			if err := strRows.Scan(&stackID, &seriesID, &r.stackIndex, &r.orientation, &r.orientationConf,
				&r.imageType, &r.echoTime, &r.inversionTime, &r.echoNumbers, &r.echoTrainLength,
				&r.repetitionTime, &r.flipAngle, &r.receiveCoilName, &r.xrayExposure, &r.kvp,
				&r.tubeCurrent, &r.petBedIndex, &r.petFrameType); err != nil {
				strRows.Close()
				return nil, fmt.Errorf("store: scan straggler stack: %w", err)
			}
			modality := dcmio.Modality("")
			for _, key := range remainingKeys {
				if bySig[key].seriesID == seriesID {
					modality = bySig[key].payload.Raw.Modality
					break
				}
			}
			dbKey := reconstructSignature(modality, r).Key()
			if _, ok := w.stackCache[dbKey]; ok {
				continue
			}
			if entry, ok := bySig[dbKey]; ok {
				w.stackCache[dbKey] = stackID
				for _, idx := range entry.indices {
					stackIDs[idx] = stackID
				}
			}
		}
		strRows.Close()
		if err := strRows.Err(); err != nil {
			return nil, fmt.Errorf("store: iterate straggler stacks: %w", err)
		}
	}

	for idx, id := range stackIDs {
		if id == 0 {
			return nil, fmt.Errorf("store: failed to resolve stack id for instance %d", idx)
		}
	}

	return stackIDs, nil
}

func buildStackRow(seriesID int64, stackIndex int, p extract.InstancePayload) stackRow {
	s := p.Signature
	return stackRow{
		seriesID:        seriesID,
		stackIndex:      stackIndex,
		orientation:     string(s.Orientation),
		orientationConf: orientationConfidence(p),
		imageType:       nilIfEmpty(s.ImageType),
		echoTime:        s.EchoTime,
		inversionTime:   s.InversionTime,
		echoNumbers:     s.EchoNumbers,
		echoTrainLength: s.EchoTrainLength,
		repetitionTime:  s.RepetitionTime,
		flipAngle:       s.FlipAngle,
		receiveCoilName: nilIfEmpty(s.ReceiveCoilName),
		xrayExposure:    s.Exposure,
		kvp:             s.KVP,
		tubeCurrent:     s.TubeCurrent,
		petBedIndex:     s.BedIndex,
		petFrameType:    nilIfEmpty(s.FrameType),
	}
}

// orientationConfidence re-derives the confidence value from the raw
// ImageOrientationPatient, since Signature only carries the categorized
// orientation label, not its confidence.
func orientationConfidence(p extract.InstancePayload) float64 {
	return sig.CategorizeOrientation(p.Raw.ImageOrientationPatient).Confidence
}

func reconstructSignature(modality dcmio.Modality, r stackRow) sig.Signature {
	s := sig.Signature{
		Modality:    modality,
		Orientation: sig.Orientation(r.orientation),
	}
	if r.imageType != nil {
		s.ImageType = *r.imageType
	}
	switch modality {
	case dcmio.ModalityMR:
		s.EchoTime = r.echoTime
		s.InversionTime = r.inversionTime
		s.EchoNumbers = r.echoNumbers
		s.EchoTrainLength = r.echoTrainLength
		s.RepetitionTime = r.repetitionTime
		s.FlipAngle = r.flipAngle
		if r.receiveCoilName != nil {
			s.ReceiveCoilName = *r.receiveCoilName
		}
	case dcmio.ModalityCT:
		s.KVP = r.kvp
		s.Exposure = r.xrayExposure
		s.TubeCurrent = r.tubeCurrent
	case dcmio.ModalityPET:
		s.BedIndex = r.petBedIndex
		if r.petFrameType != nil {
			s.FrameType = *r.petFrameType
		}
	}
	return s
}
