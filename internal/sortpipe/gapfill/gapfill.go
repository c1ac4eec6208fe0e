// Package gapfill implements the physics-binned nearest-match engine
// Step 4 Phase 3 uses to fill missing base/technique labels (spec §4.12
// Phase 3, "Supplemented: physics-key construction"). The original
// gap_filling.py module this is modeled on carried only its docstring
// and imports in the retrieval pack — no function bodies survived — so
// this package is built directly from SPEC_FULL.md's §4.12 narrative
// rather than transcribed (see DESIGN.md Open Question resolutions).
package gapfill

import (
	"math"
	"strconv"
	"strings"
)

// bin widths, per SPEC_FULL.md §4.12.
const (
	trBinWidth = 50.0
	tiBinWidth = 50.0
	faBinWidth = 5.0
	teBinWidth = 1.0

	// defaultMinMatches is the minimum bucket population before a match
	// is accepted without widening.
	defaultMinMatches = 3

	// modePlausibilityFloor is the minimum share of the winning mode
	// among matches; below this the match is reported no_compatible_match.
	modePlausibilityFloor = 0.34
)

// PhysicsKey buckets a stack's physics parameters into a comparable key.
// Missing components bucket into a dedicated "na" bin rather than being
// excluded, so TI-less sequences still bucket deterministically.
type PhysicsKey struct {
	TR, TE, TI, FA string
}

func binComponent(v *float64, width float64) string {
	if v == nil {
		return "na"
	}
	bin := math.Round(*v/width) * width
	return formatBin(bin)
}

func formatBin(v float64) string {
	// Bins are always multiples of the bin width, so a fixed-precision
	// representation is stable across platforms.
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ComputePhysicsKey derives a PhysicsKey from raw TR/TE/TI/FA values,
// rounding each to its bin width (TR/TI/FA: 50/50/5, TE: 1).
func ComputePhysicsKey(tr, te, ti, fa *float64) PhysicsKey {
	return PhysicsKey{
		TR: binComponent(tr, trBinWidth),
		TE: binComponent(te, teBinWidth),
		TI: binComponent(ti, tiBinWidth),
		FA: binComponent(fa, faBinWidth),
	}
}

// neighbors returns key and its 3x3x3x3 neighboring buckets (one step in
// each of TR/TE/TI/FA, using the doubled bin width for the widened
// search), including key itself.
func (k PhysicsKey) neighbors(tr, te, ti, fa *float64) []PhysicsKey {
	steps := []float64{-1, 0, 1}
	keys := make([]PhysicsKey, 0, 81)
	for _, dtr := range steps {
		for _, dte := range steps {
			for _, dti := range steps {
				for _, dfa := range steps {
					keys = append(keys, PhysicsKey{
						TR: shiftBin(tr, trBinWidth*2, dtr),
						TE: shiftBin(te, teBinWidth*2, dte),
						TI: shiftBin(ti, tiBinWidth*2, dti),
						FA: shiftBin(fa, faBinWidth*2, dfa),
					})
				}
			}
		}
	}
	return keys
}

func shiftBin(v *float64, width, steps float64) string {
	if v == nil {
		return "na"
	}
	bin := math.Round(*v/width)*width + steps*width
	return formatBin(bin)
}

// ReferenceEntry is one reference stack retained for mode selection and
// distance tie-breaking.
type ReferenceEntry struct {
	Base, Technique      string
	TR, TE, TI, FlipAngle *float64
}

// ReferenceDatabase buckets eligible reference stacks by PhysicsKey.
type ReferenceDatabase map[PhysicsKey][]ReferenceEntry

// BuildReferenceDatabase groups eligible reference stacks into buckets
// keyed by their physics key. Eligibility (non-null/non-Unknown base and
// technique, non-branch provenance) is the caller's responsibility.
func BuildReferenceDatabase(entries []ReferenceEntry, keys []PhysicsKey) ReferenceDatabase {
	db := make(ReferenceDatabase)
	for i, e := range entries {
		db[keys[i]] = append(db[keys[i]], e)
	}
	return db
}

// MatchMethod records how (or whether) FindBestMatch resolved a target.
type MatchMethod string

const (
	MatchExactBin           MatchMethod = "exact_bin"
	MatchExpandedSearch      MatchMethod = "expanded_search"
	MatchNoMatch             MatchMethod = "no_match"
	MatchInsufficientMatches MatchMethod = "insufficient_matches"
	MatchNoCompatibleMatch   MatchMethod = "no_compatible_match"
)

// MatchResult is the outcome of FindBestMatch.
type MatchResult struct {
	Method    MatchMethod
	Base      string
	Technique string
	Matched   bool
}

// FindBestMatch looks up key in db; if the bucket is smaller than
// minMatches (0 selects the default of 3), widens to key's doubled-width
// 3x3x3x3 neighborhood before giving up. Among sufficient matches, base
// and technique are each chosen by mode, tie-broken by frequency (already
// equal by definition of a tie) and then by Euclidean distance in
// (TR, TE, TI, FA) to target.
func FindBestMatch(db ReferenceDatabase, key PhysicsKey, target ReferenceEntry, minMatches int) MatchResult {
	if minMatches <= 0 {
		minMatches = defaultMinMatches
	}

	bucket, exists := db[key]
	if len(bucket) >= minMatches {
		return resolveFromBucket(bucket, target, MatchExactBin)
	}

	neighborKeys := key.neighbors(target.TR, target.TE, target.TI, target.FlipAngle)
	widened := append([]ReferenceEntry(nil), bucket...)
	seen := map[PhysicsKey]bool{key: true}
	for _, nk := range neighborKeys {
		if seen[nk] {
			continue
		}
		seen[nk] = true
		widened = append(widened, db[nk]...)
	}

	if len(widened) >= minMatches {
		return resolveFromBucket(widened, target, MatchExpandedSearch)
	}

	if !exists && len(widened) == 0 {
		return MatchResult{Method: MatchNoMatch}
	}
	return MatchResult{Method: MatchInsufficientMatches}
}

func resolveFromBucket(bucket []ReferenceEntry, target ReferenceEntry, method MatchMethod) MatchResult {
	base, baseShare := modeWithDistance(bucket, target, func(e ReferenceEntry) string { return e.Base })
	technique, techShare := modeWithDistance(bucket, target, func(e ReferenceEntry) string { return e.Technique })

	if baseShare < modePlausibilityFloor && techShare < modePlausibilityFloor {
		return MatchResult{Method: MatchNoCompatibleMatch}
	}

	return MatchResult{Method: method, Base: base, Technique: technique, Matched: true}
}

// modeWithDistance returns the most frequent value of field across
// bucket, tie-broken by the candidate closest (in normalized parameter
// distance) to target, plus that value's frequency share of the bucket.
func modeWithDistance(bucket []ReferenceEntry, target ReferenceEntry, field func(ReferenceEntry) string) (string, float64) {
	counts := map[string]int{}
	bestDist := map[string]float64{}
	for _, e := range bucket {
		v := field(e)
		if v == "" {
			continue
		}
		counts[v]++
		d := distance(e, target)
		if cur, ok := bestDist[v]; !ok || d < cur {
			bestDist[v] = d
		}
	}
	if len(counts) == 0 {
		return "", 0
	}

	var best string
	bestCount := -1
	for v, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount = v, c
		case c == bestCount && bestDist[v] < bestDist[best]:
			best = v
		}
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	return best, float64(bestCount) / float64(total)
}

func distance(a, b ReferenceEntry) float64 {
	d := 0.0
	d += sqDelta(a.TR, b.TR, trBinWidth)
	d += sqDelta(a.TE, b.TE, teBinWidth)
	d += sqDelta(a.TI, b.TI, tiBinWidth)
	d += sqDelta(a.FlipAngle, b.FlipAngle, faBinWidth)
	return math.Sqrt(d)
}

func sqDelta(a, b *float64, normBy float64) float64 {
	if a == nil || b == nil {
		return 0
	}
	delta := (*a - *b) / normBy
	return delta * delta
}

// InferAcquisitionType derives is_3d/is_2d flags from image_type and
// sequence_name, grounded on step4_completion.py's
// _build_minimal_unified_flags (SPEC_FULL.md §4.12 Phase 2 supplement).
func InferAcquisitionType(imageType, sequenceName string) (is3D, is2D bool) {
	upperImageType := strings.ToUpper(imageType)
	lowerSeq := strings.ToLower(sequenceName)

	is3D = strings.Contains(upperImageType, "DIS3D") || strings.Contains(upperImageType, "3D") ||
		strings.Contains(lowerSeq, "3d") || strings.Contains(lowerSeq, "spc") || strings.Contains(lowerSeq, "space")
	is2D = strings.Contains(upperImageType, "DIS2D") || strings.Contains(upperImageType, "2D") ||
		strings.Contains(lowerSeq, "2d")
	return is3D, is2D
}
