package extract

// MaxPGParams is PostgreSQL's hard limit on bind parameters per statement.
const MaxPGParams = 65535

// PGParamMargin reserves headroom so a chunk plan never flirts with the
// absolute ceiling.
const PGParamMargin = 512

// instanceInsertColumns is the set of columns written per instance row:
// routing/identity columns plus every RawInstance field that is not
// itself stack-defining (those live on series_stack, not instance).
// Counted, not enumerated by name, since only the column count drives the
// parameter budget (spec §4.8 "Parameter budget").
const instanceInsertColumns = 46

// SafeRowsForParams computes the maximum row count a single prepared
// statement can carry given paramsPerRow bind parameters per row,
// grounded on original_source/backend/src/extract/limits.py's
// safe_rows_for_params.
func SafeRowsForParams(paramsPerRow, margin int) int {
	if margin < 0 {
		margin = 0
	}
	budget := MaxPGParams - margin
	if budget < 1 {
		budget = 1
	}
	perRow := paramsPerRow
	if perRow < 1 {
		perRow = 1
	}
	rows := budget / perRow
	if rows < 1 {
		rows = 1
	}
	return rows
}

// EstimateInstanceParamsPerRow returns the number of bind parameters used
// per inserted instance row.
func EstimateInstanceParamsPerRow() int {
	return instanceInsertColumns
}

// CalculateSafeInstanceBatchRows returns a conservative safe batch size
// for instance inserts at the default margin.
func CalculateSafeInstanceBatchRows() int {
	return SafeRowsForParams(EstimateInstanceParamsPerRow(), PGParamMargin)
}

// BuildParameterChunkPlan splits rows into chunks that satisfy the
// parameter budget, returning the chunks, the params-per-row used to size
// them, and the max rows per chunk. Grounded on limits.py's
// build_parameter_chunk_plan; uses a uniform per-row column count rather
// than a union-of-keys scan since InstancePayload rows are homogeneous.
func BuildParameterChunkPlan(rows []InstancePayload, paramsPerRow, margin int) ([][]InstancePayload, int) {
	if len(rows) == 0 {
		return nil, SafeRowsForParams(1, margin)
	}
	maxRows := SafeRowsForParams(paramsPerRow, margin)
	if len(rows) <= maxRows {
		return [][]InstancePayload{rows}, maxRows
	}
	var chunks [][]InstancePayload
	for start := 0; start < len(rows); start += maxRows {
		end := start + maxRows
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks, maxRows
}
