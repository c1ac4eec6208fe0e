package sortpipe

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeninja55/go-radx/internal/branch"
	"github.com/codeninja55/go-radx/internal/classify"
	"github.com/codeninja55/go-radx/internal/detect"
	"github.com/codeninja55/go-radx/internal/jobctl"
	"github.com/codeninja55/go-radx/internal/sortpipe/gapfill"
)

// orientationConfidenceThreshold is the spec §4.12 Phase 1 bound.
const orientationConfidenceThreshold = 0.85

// standardFieldStrengths are the Phase 0 normalization targets, in
// ascending order (spec §4.12 Phase 0).
var standardFieldStrengths = []float64{0.5, 1.0, 1.5, 3.0, 7.0}

// fieldStrengthTolerances is the per-standard tolerance band Phase 0 uses
// before falling back to nearest-by-distance.
var fieldStrengthTolerances = map[float64]float64{
	0.5: 0.15, 1.0: 0.15, 1.5: 0.15, 3.0: 0.3, 7.0: 0.5,
}

// branchProvenances are the provenance ids whose classification is
// branch-determined, not subject to Phase 3's similarity fill (spec
// §4.12 Phase 3: "SyMRI, SWIRecon, EPIMix, BOLDRecon").
var branchProvenances = map[string]bool{
	"symri": true, "swi_recon": true, "epimix": true, "bold_recon": true,
}

// Step4Metrics mirrors step4_completion.py's metrics block.
type Step4Metrics struct {
	FieldStrengthNormalizedCount int
	OrientationFlaggedCount      int
	AcquisitionTypeFilledCount   int
	AcquisitionTypeByMethod      map[string]int
	BaseFilledCount              int
	TechniqueFilledCount         int
	StacksWithNoMatch            int
	SWIReroutedCount             int
	MiscInitialCount             int
	MiscResolvedCount            int
	MiscRemainingCount           int
	ContrastConflictCount        int
	StacksNewlyFlagged           int
}

// Step4Handover is the terminal handover: every stack the sorting
// pipeline touched, plus the subset still requiring manual review.
type Step4Handover struct {
	CohortID              int64
	CompletedStackIDs     []int64
	StacksRequiringReview []int64
	TotalCompleted        int
	GapsFilled            int
	MiscResolved          int
	Metrics               Step4Metrics
}

// completionRow is the per-stack working state threaded through every
// Phase; it starts as a join of series_classification_cache,
// stack_fingerprint, series_stack, series and study, and Phases 0-4B
// mutate it in place before Phase 5 persists whatever changed.
type completionRow struct {
	seriesStackID int64

	base, technique, constructCSV, provenance, directoryType string
	localizer                                                bool
	postContrast                                             *bool
	reviewReasons                                             string

	modality          string
	mrAcquisitionType string
	tr, te, ti, fa    *float64
	sliceCount        int
	searchBlob        string
	sequenceName      string
	orientation       string
	orientConf        float64
	is3D, is2D        bool

	seriesInstanceUID string
	studyID           int64
	studyDate         *string
	subjectID         int64

	touched bool
}

// Complete runs Step 4 (spec §4.12): field-strength normalization,
// orientation-confidence flagging, acquisition-type gap filling,
// physics-similarity base/technique filling with SWI re-routing, misc
// intent re-synthesis, contrast-conflict detection, and a single
// persisting transaction.
func Complete(ctx context.Context, pool *pgxpool.Pool, jc *jobctl.JobControl, handover *Step3Handover, emit *jobctl.Emitter) (*Step4Handover, error) {
	metrics := Step4Metrics{AcquisitionTypeByMethod: map[string]int{}}

	if len(handover.FingerprintIDs) == 0 {
		emit.Log("completion: no stacks to complete")
		return &Step4Handover{CohortID: handover.CohortID, Metrics: metrics}, nil
	}

	emit.Log("Phase 0: normalizing MR field strength")
	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	normalized, err := normalizeFieldStrengths(ctx, pool)
	if err != nil {
		return nil, err
	}
	metrics.FieldStrengthNormalizedCount = normalized
	emit.Log("Phase 0 complete: %d distinct field strength values normalized", normalized)

	rows, err := loadCompletionRows(ctx, pool, handover.FingerprintIDs)
	if err != nil {
		return nil, err
	}

	emit.Log("Phase 1: checking orientation confidence")
	for i := range rows {
		r := &rows[i]
		if r.modality == "MR" && r.orientConf < orientationConfidenceThreshold {
			addReviewReason(r, "orientation", "low_confidence")
			metrics.OrientationFlaggedCount++
		}
	}
	emit.Log("Phase 1 complete: %d stacks flagged for orientation", metrics.OrientationFlaggedCount)

	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	emit.Log("Phase 2: filling acquisition type gaps")
	for i := range rows {
		r := &rows[i]
		if r.modality != "MR" || r.mrAcquisitionType != "" {
			continue
		}
		value, method, ok := inferAcquisitionType(r)
		if !ok {
			continue
		}
		r.mrAcquisitionType = value
		r.touched = true
		metrics.AcquisitionTypeByMethod[method]++
		metrics.AcquisitionTypeFilledCount++
		addReviewReason(r, "acquisition_type", "inferred")
	}
	emit.Log("Phase 2 complete: %d acquisition types filled", metrics.AcquisitionTypeFilledCount)

	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	emit.Log("Phase 3: building reference database")
	refEntries, refKeys, err := loadReferenceStacks(ctx, pool)
	if err != nil {
		return nil, err
	}
	refDB := gapfill.BuildReferenceDatabase(refEntries, refKeys)
	emit.Log("Phase 3: reference database holds %d stacks", len(refEntries))

	baseFilledThisRun := make(map[int64]bool)
	for i := range rows {
		r := &rows[i]
		if !needsBaseTechniqueFill(r) {
			continue
		}
		if fillBaseTechnique(r, refDB, &metrics) {
			baseFilledThisRun[r.seriesStackID] = true
		}
	}
	emit.Log("Phase 3 complete: %d base, %d technique filled (%d unresolved)",
		metrics.BaseFilledCount, metrics.TechniqueFilledCount, metrics.StacksWithNoMatch)

	emit.Log("Phase 3B: re-routing SWI stacks")
	for i := range rows {
		r := &rows[i]
		if !baseFilledThisRun[r.seriesStackID] || r.base != "SWI" || branchProvenances[strings.ToLower(r.provenance)] {
			continue
		}
		rerouteSWI(r)
		metrics.SWIReroutedCount++
	}
	emit.Log("Phase 3B complete: %d stacks re-routed to SWI branch", metrics.SWIReroutedCount)

	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	emit.Log("Phase 4: re-synthesizing misc intent")
	for i := range rows {
		r := &rows[i]
		if r.directoryType != "misc" || !r.touched {
			continue
		}
		metrics.MiscInitialCount++
		newIntent := resynthesizeIntent(r)
		if newIntent != "misc" {
			r.directoryType = newIntent
			metrics.MiscResolvedCount++
		} else {
			metrics.MiscRemainingCount++
			addReviewReason(r, "intent", "unresolved")
		}
	}
	emit.Log("Phase 4 complete: %d misc resolved, %d remaining", metrics.MiscResolvedCount, metrics.MiscRemainingCount)

	emit.Log("Phase 4B: checking contrast conflicts")
	conflicted := detectContrastConflicts(rows)
	for _, i := range conflicted {
		addReviewReason(&rows[i], "contrast", "duplicate_prediction")
	}
	metrics.ContrastConflictCount = len(conflicted)
	emit.Log("Phase 4B complete: %d contrast conflicts detected", metrics.ContrastConflictCount)

	touched := make([]*completionRow, 0, len(rows))
	for i := range rows {
		if rows[i].touched {
			touched = append(touched, &rows[i])
		}
	}

	if err := jc.Checkpoint(ctx); err != nil {
		return nil, err
	}
	emit.Log("Phase 5: persisting %d updates", len(touched))
	if err := persistCompletionUpdates(ctx, pool, touched); err != nil {
		return nil, err
	}
	emit.Log("Phase 5 complete")

	metrics.StacksNewlyFlagged = len(touched)
	completedIDs := make([]int64, len(rows))
	reviewIDs := make([]int64, 0, len(touched))
	for i, r := range rows {
		completedIDs[i] = r.seriesStackID
		if r.touched {
			reviewIDs = append(reviewIDs, r.seriesStackID)
		}
	}

	handoverOut := &Step4Handover{
		CohortID:              handover.CohortID,
		CompletedStackIDs:     completedIDs,
		StacksRequiringReview: reviewIDs,
		TotalCompleted:        len(completedIDs),
		GapsFilled:            metrics.BaseFilledCount + metrics.TechniqueFilledCount,
		MiscResolved:          metrics.MiscResolvedCount,
		Metrics:               metrics,
	}
	emit.Log("completion: %d stacks completed, %d gaps filled, %d requiring review",
		handoverOut.TotalCompleted, handoverOut.GapsFilled, len(reviewIDs))
	return handoverOut, nil
}

func addReviewReason(r *completionRow, axis, mode string) {
	token := axis + ":" + mode
	for _, existing := range strings.Split(r.reviewReasons, ",") {
		if existing == token {
			r.touched = true
			return
		}
	}
	tokens := []string{}
	if r.reviewReasons != "" {
		tokens = strings.Split(r.reviewReasons, ",")
	}
	tokens = append(tokens, token)
	r.reviewReasons = strings.Join(dedupeSortedReasons(tokens), ",")
	r.touched = true
}

func removeReviewReason(r *completionRow, axis, mode string) {
	token := axis + ":" + mode
	if r.reviewReasons == "" {
		return
	}
	var kept []string
	for _, existing := range strings.Split(r.reviewReasons, ",") {
		if existing != token {
			kept = append(kept, existing)
		}
	}
	r.reviewReasons = strings.Join(kept, ",")
}

// dedupeSortedReasons matches classify.Result.ReviewReasonsCSV's output
// shape (sorted, deduplicated) so Step 4's edits stay consistent with the
// CSV classify.Pipeline produced in Step 3.
func dedupeSortedReasons(tokens []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// normalizeFieldStrength maps a raw MR field strength reading to the
// nearest standard value (spec §4.12 Phase 0).
func normalizeFieldStrength(value float64) float64 {
	v := value
	if v > 100 {
		v /= 10000
	}
	for _, standard := range standardFieldStrengths {
		if math.Abs(v-standard) <= fieldStrengthTolerances[standard] {
			return standard
		}
	}
	nearest := standardFieldStrengths[0]
	bestDist := math.Abs(v - nearest)
	for _, standard := range standardFieldStrengths[1:] {
		if d := math.Abs(v - standard); d < bestDist {
			nearest, bestDist = standard, d
		}
	}
	return nearest
}

// normalizeFieldStrengths rewrites every distinct raw
// mri_series_details.magnetic_field_strength value to its normalized
// standard value, grounded on step4_completion.py's
// _normalize_field_strength (update by distinct value, not by row).
func normalizeFieldStrengths(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	rows, err := pool.Query(ctx, `SELECT DISTINCT magnetic_field_strength FROM mri_series_details WHERE magnetic_field_strength IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("sortpipe: query distinct field strengths: %w", err)
	}
	var raw []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, fmt.Errorf("sortpipe: scan field strength: %w", err)
		}
		raw = append(raw, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sortpipe: iterate field strengths: %w", err)
	}

	updated := 0
	for _, v := range raw {
		normalized := normalizeFieldStrength(v)
		if math.Abs(v-normalized) <= 0.001 {
			continue
		}
		tag, err := pool.Exec(ctx, `UPDATE mri_series_details SET magnetic_field_strength = $1 WHERE magnetic_field_strength = $2`, normalized, v)
		if err != nil {
			return updated, fmt.Errorf("sortpipe: normalize field strength %v: %w", v, err)
		}
		updated += int(tag.RowsAffected())
	}
	return updated, nil
}

const completionSelectSQL = `
SELECT scc.series_stack_id, coalesce(scc.base, ''), coalesce(scc.technique, ''), coalesce(scc.construct_csv, ''),
       coalesce(scc.provenance, ''), coalesce(scc.directory_type, ''), scc.localizer != 0, scc.post_contrast,
       coalesce(scc.manual_review_reasons_csv, ''),
       fp.modality, coalesce(fp.mr_acquisition_type, ''), fp.tr, fp.te, fp.ti, fp.flip_angle,
       coalesce(fp.slice_count, 0), coalesce(fp.search_blob, ''), coalesce(fp.sequence_name, ''),
       coalesce(fp.orientation, ''), coalesce(ss.stack_orientation_confidence, 0),
       coalesce(fp.is_3d, false), coalesce(fp.is_2d, false),
       se.series_instance_uid, se.study_id, st.study_date, se.subject_id
FROM series_classification_cache scc
JOIN stack_fingerprint fp ON fp.series_stack_id = scc.series_stack_id
JOIN series_stack ss ON ss.series_stack_id = scc.series_stack_id
JOIN series se ON se.series_id = ss.series_id
JOIN study st ON st.study_id = se.study_id
WHERE scc.series_stack_id = ANY($1::bigint[])`

func loadCompletionRows(ctx context.Context, pool *pgxpool.Pool, ids []int64) ([]completionRow, error) {
	rows, err := pool.Query(ctx, completionSelectSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("sortpipe: query completion rows: %w", err)
	}
	defer rows.Close()

	out := make([]completionRow, 0, len(ids))
	for rows.Next() {
		var r completionRow
		var postContrastText *string
		if err := rows.Scan(
			&r.seriesStackID, &r.base, &r.technique, &r.constructCSV, &r.provenance, &r.directoryType,
			&r.localizer, &postContrastText, &r.reviewReasons,
			&r.modality, &r.mrAcquisitionType, &r.tr, &r.te, &r.ti, &r.fa,
			&r.sliceCount, &r.searchBlob, &r.sequenceName,
			&r.orientation, &r.orientConf,
			&r.is3D, &r.is2D,
			&r.seriesInstanceUID, &r.studyID, &r.studyDate, &r.subjectID,
		); err != nil {
			return nil, fmt.Errorf("sortpipe: scan completion row: %w", err)
		}
		r.postContrast = tristateToBool(postContrastText)
		out = append(out, r)
	}
	return out, rows.Err()
}

// tristateToBool mirrors Step 3's boolToTristate in reverse: the
// post_contrast column stores the three-state flag as "true"/"false"/NULL
// text (spec §4.4), so completion's in-memory comparisons need it back as
// a *bool.
func tristateToBool(v *string) *bool {
	if v == nil {
		return nil
	}
	b := *v == "true"
	return &b
}

// acquisitionTechniqueHints maps known 3D/2D-exclusive technique families
// to their acquisition type, grounded on internal/detect's
// technique-detection.yaml class names (MPRAGE/SPACE are 3D gradient/turbo
// spin echo families; TSE/FRFSE are conventionally 2D turbo spin echo).
var acquisitionTechniqueHints = map[string]string{
	"MPRAGE": "3D", "SPACE": "3D",
	"TSE": "2D", "FRFSE": "2D",
}

// inferAcquisitionType fills a missing mr_acquisition_type using the
// three-tier ladder from spec §4.12 Phase 2: exclusive is_3d/is_2d flags,
// then text patterns in the search blob, then technique-family inference.
func inferAcquisitionType(r *completionRow) (value, method string, ok bool) {
	switch {
	case r.is3D && !r.is2D:
		return "3D", "exclusive_flag", true
	case r.is2D && !r.is3D:
		return "2D", "exclusive_flag", true
	}

	switch {
	case strings.Contains(r.searchBlob, "3d"):
		return "3D", "text_pattern", true
	case strings.Contains(r.searchBlob, "2d"):
		return "2D", "text_pattern", true
	}

	if hint, found := acquisitionTechniqueHints[r.technique]; found {
		return hint, "technique_inference", true
	}
	return "", "", false
}

func needsBaseTechniqueFill(r *completionRow) bool {
	if r.modality != "MR" || r.directoryType == "excluded" {
		return false
	}
	if branchProvenances[strings.ToLower(r.provenance)] {
		return false
	}
	return isMissingOrUnknown(r.base) || isMissingOrUnknown(r.technique)
}

func isMissingOrUnknown(v string) bool {
	if v == "" {
		return true
	}
	return strings.ToLower(strings.TrimSpace(v)) == "unknown"
}

func loadReferenceStacks(ctx context.Context, pool *pgxpool.Pool) ([]gapfill.ReferenceEntry, []gapfill.PhysicsKey, error) {
	rows, err := pool.Query(ctx, `
		SELECT scc.base, scc.technique, fp.tr, fp.te, fp.ti, fp.flip_angle
		FROM series_classification_cache scc
		JOIN stack_fingerprint fp ON fp.series_stack_id = scc.series_stack_id
		WHERE scc.base IS NOT NULL AND lower(trim(scc.base)) != 'unknown'
		  AND scc.technique IS NOT NULL AND lower(trim(scc.technique)) != 'unknown'
		  AND coalesce(scc.directory_type, '') != 'excluded'
		  AND fp.modality = 'MR'`)
	if err != nil {
		return nil, nil, fmt.Errorf("sortpipe: query reference stacks: %w", err)
	}
	defer rows.Close()

	var entries []gapfill.ReferenceEntry
	var keys []gapfill.PhysicsKey
	for rows.Next() {
		var e gapfill.ReferenceEntry
		if err := rows.Scan(&e.Base, &e.Technique, &e.TR, &e.TE, &e.TI, &e.FlipAngle); err != nil {
			return nil, nil, fmt.Errorf("sortpipe: scan reference stack: %w", err)
		}
		entries = append(entries, e)
		keys = append(keys, gapfill.ComputePhysicsKey(e.TR, e.TE, e.TI, e.FlipAngle))
	}
	return entries, keys, rows.Err()
}

// fillBaseTechnique fills r.base and/or r.technique from the best physics
// match and reports whether this call itself set r.base, so Phase 3B can
// restrict its SWI reroute to stacks Phase 3 actually just filled.
func fillBaseTechnique(r *completionRow, refDB gapfill.ReferenceDatabase, metrics *Step4Metrics) (filledBase bool) {
	target := gapfill.ReferenceEntry{TR: r.tr, TE: r.te, TI: r.ti, FlipAngle: r.fa}
	key := gapfill.ComputePhysicsKey(r.tr, r.te, r.ti, r.fa)
	match := gapfill.FindBestMatch(refDB, key, target, 0)

	if !match.Matched {
		metrics.StacksWithNoMatch++
		return false
	}

	if match.Base != "" && isMissingOrUnknown(r.base) {
		r.base = match.Base
		metrics.BaseFilledCount++
		removeReviewReason(r, "base", "missing")
		addReviewReason(r, "base", "low_confidence")
		filledBase = true
	}
	if match.Technique != "" && isMissingOrUnknown(r.technique) {
		r.technique = match.Technique
		metrics.TechniqueFilledCount++
		removeReviewReason(r, "technique", "missing")
		addReviewReason(r, "technique", "low_confidence")
	}
	return filledBase
}

// rerouteSWI re-runs the SWI branch (spec §4.5) against a stack that
// received base=SWI from Phase 3's similarity fill, so its
// construct/technique/directory_type match what the branch would have
// produced had provenance been recognized up front.
func rerouteSWI(r *completionRow) {
	dctx := buildCompletionContext(r)
	result := branch.SWI{}.Apply(dctx)
	r.provenance = "swi_recon"
	r.base = result.Base
	r.technique = result.Technique
	r.constructCSV = result.Construct
	r.directoryType = result.DirectoryType
	r.touched = true
}

func resynthesizeIntent(r *completionRow) string {
	dctx := buildCompletionContext(r)
	res := classify.Result{
		Base: r.base, Technique: r.technique, ConstructCSV: r.constructCSV, Provenance: r.provenance,
		Localizer: r.localizer,
	}
	br := branch.Resolve(r.provenance).Apply(dctx)
	return classify.SynthesizeIntent(dctx, res, br)
}

func buildCompletionContext(r *completionRow) *detect.Context {
	return &detect.Context{
		Modality:       r.modality,
		TextSearchBlob: r.searchBlob,
		SequenceName:   r.sequenceName,
		Flags:          classify.DeriveFlags(r.searchBlob),
		TR:             r.tr,
		TE:             r.te,
		TI:             r.ti,
		FlipAngle:      r.fa,
		SliceCount:     r.sliceCount,
		Orientation:    r.orientation,
		Technique:      r.technique,
		Provenance:     r.provenance,
	}
}

// fingerprintSignature implements spec §4.12 Phase 4B's identity
// signature: pipe-joined base/technique/orientation/te/tr, each
// component coerced to a string with empty standing in for missing.
func fingerprintSignature(r *completionRow) string {
	return strings.Join([]string{
		r.base, r.technique, r.orientation, formatFloatPtr(r.te), formatFloatPtr(r.tr),
	}, "|")
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

type sessionKey struct {
	subjectID int64
	studyDate string
	signature string
}

// detectContrastConflicts groups single-stack series by (subject,
// study_date, fingerprint signature) and flags every stack in a group of
// >=2 that share the same non-null post_contrast prediction (spec §4.12
// Phase 4B).
func detectContrastConflicts(rows []completionRow) []int {
	seriesStackCount := map[string]int{}
	for _, r := range rows {
		if r.postContrast == nil {
			continue
		}
		seriesStackCount[r.seriesInstanceUID]++
	}

	groups := map[sessionKey][]int{}
	for i, r := range rows {
		if r.postContrast == nil || r.studyDate == nil {
			continue
		}
		if seriesStackCount[r.seriesInstanceUID] != 1 {
			continue
		}
		key := sessionKey{subjectID: r.subjectID, studyDate: *r.studyDate, signature: fingerprintSignature(&rows[i])}
		groups[key] = append(groups[key], i)
	}

	var flagged []int
	for _, idxs := range groups {
		if len(idxs) < 2 {
			continue
		}
		first := *rows[idxs[0]].postContrast
		allSame := true
		for _, i := range idxs {
			if *rows[i].postContrast != first {
				allSame = false
				break
			}
		}
		if allSame {
			flagged = append(flagged, idxs...)
		}
	}
	return flagged
}

// persistCompletionUpdates writes every touched row's classification
// fields back to series_classification_cache, and mr_acquisition_type
// back to stack_fingerprint, in one transaction (spec §4.12 Phase 5).
func persistCompletionUpdates(ctx context.Context, pool *pgxpool.Pool, rows []*completionRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sortpipe: begin completion persist tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cacheBatch := &pgx.Batch{}
	fpBatch := &pgx.Batch{}
	for _, r := range rows {
		manualReviewRequired := 0
		if r.reviewReasons != "" {
			manualReviewRequired = 1
		}
		cacheBatch.Queue(`
			UPDATE series_classification_cache
			SET base = $1, technique = $2, construct_csv = $3, provenance = $4, directory_type = $5,
			    manual_review_required = $6, manual_review_reasons_csv = $7, updated_at = now()
			WHERE series_stack_id = $8`,
			nullIfEmpty(r.base), nullIfEmpty(r.technique), nullIfEmpty(r.constructCSV),
			nullIfEmpty(r.provenance), nullIfEmpty(r.directoryType), manualReviewRequired,
			nullIfEmpty(r.reviewReasons), r.seriesStackID)
		fpBatch.Queue(`UPDATE stack_fingerprint SET mr_acquisition_type = $1, updated_at = now() WHERE series_stack_id = $2`,
			nullIfEmpty(r.mrAcquisitionType), r.seriesStackID)
	}

	cacheResults := tx.SendBatch(ctx, cacheBatch)
	for range rows {
		if _, err := cacheResults.Exec(); err != nil {
			cacheResults.Close()
			return fmt.Errorf("sortpipe: persist classification cache update: %w", err)
		}
	}
	if err := cacheResults.Close(); err != nil {
		return fmt.Errorf("sortpipe: close classification cache batch: %w", err)
	}

	fpResults := tx.SendBatch(ctx, fpBatch)
	for range rows {
		if _, err := fpResults.Exec(); err != nil {
			fpResults.Close()
			return fmt.Errorf("sortpipe: persist fingerprint update: %w", err)
		}
	}
	if err := fpResults.Close(); err != nil {
		return fmt.Errorf("sortpipe: close fingerprint batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sortpipe: commit completion persist: %w", err)
	}
	return nil
}
