package sig

// StackColumns is the set of stack-defining DB columns used to compute a
// stack_key, mirroring DB_COLUMN_TO_LOGICAL in
// original_source/backend/src/sort/stack_key.py but keyed directly by the
// logical name (this repo has no stack_* column prefix to strip).
type StackColumns struct {
	EchoTime              interface{}
	EchoNumbers           interface{}
	InversionTime         interface{}
	RepetitionTime        interface{}
	FlipAngle             interface{}
	ReceiveCoilName       interface{}
	ImageOrientationPatient interface{}
	ImageType             interface{}
	XRayExposure          interface{}
	KVP                   interface{}
	TubeCurrent           interface{}
	PETBedIndex           interface{}
	PETFrameType          interface{}
}

// GenerateStackKey returns the symbolic label for why a series split into
// multiple stacks, or "" (meaning null/no key) for a single-stack series.
// Grounded on generate_stack_key_from_db / find_varying_columns_db.
func GenerateStackKey(stacks []StackColumns) string {
	if len(stacks) <= 1 {
		return ""
	}
	varying := findVaryingColumns(stacks)

	switch {
	case varying["echo_time"] || varying["echo_numbers"]:
		return "multi_echo"
	case varying["image_type"]:
		return "image_type_variation"
	case varying["image_orientation_patient"]:
		return "multi_orientation"
	case varying["pet_bed_index"]:
		return "multi_bed"
	case varying["inversion_time"]:
		return "multi_ti"
	case varying["flip_angle"]:
		return "multi_flip_angle"
	case varying["receive_coil_name"]:
		return "multi_coil"
	}

	count := 0
	for _, v := range varying {
		if v {
			count++
		}
	}
	if count > 1 {
		return "multi_parameter"
	}
	return "multi_stack"
}

func findVaryingColumns(stacks []StackColumns) map[string]bool {
	logical := map[string][]interface{}{
		"echo_time":                 valuesOf(stacks, func(s StackColumns) interface{} { return s.EchoTime }),
		"echo_numbers":              valuesOf(stacks, func(s StackColumns) interface{} { return s.EchoNumbers }),
		"inversion_time":            valuesOf(stacks, func(s StackColumns) interface{} { return s.InversionTime }),
		"repetition_time":           valuesOf(stacks, func(s StackColumns) interface{} { return s.RepetitionTime }),
		"flip_angle":                valuesOf(stacks, func(s StackColumns) interface{} { return s.FlipAngle }),
		"receive_coil_name":         valuesOf(stacks, func(s StackColumns) interface{} { return s.ReceiveCoilName }),
		"image_orientation_patient": valuesOf(stacks, func(s StackColumns) interface{} { return s.ImageOrientationPatient }),
		"image_type":                valuesOf(stacks, func(s StackColumns) interface{} { return s.ImageType }),
		"xray_exposure":             valuesOf(stacks, func(s StackColumns) interface{} { return s.XRayExposure }),
		"kvp":                       valuesOf(stacks, func(s StackColumns) interface{} { return s.KVP }),
		"tube_current":              valuesOf(stacks, func(s StackColumns) interface{} { return s.TubeCurrent }),
		"pet_bed_index":             valuesOf(stacks, func(s StackColumns) interface{} { return s.PETBedIndex }),
		"pet_frame_type":            valuesOf(stacks, func(s StackColumns) interface{} { return s.PETFrameType }),
	}
	varying := make(map[string]bool, len(logical))
	for name, values := range logical {
		seen := map[interface{}]struct{}{}
		for _, v := range values {
			seen[v] = struct{}{}
		}
		varying[name] = len(seen) > 1
	}
	return varying
}

func valuesOf(stacks []StackColumns, get func(StackColumns) interface{}) []interface{} {
	out := make([]interface{}, len(stacks))
	for i, s := range stacks {
		out[i] = get(s)
	}
	return out
}
