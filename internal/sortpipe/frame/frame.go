// Package frame implements the columnar struct-of-slices representation
// the fingerprint materialization step (spec §4.10) builds its wide JOIN
// result into. No Arrow/dataframe library was retrievable with a working
// example in the pack (see DESIGN.md "Avoided / stdlib-only
// justifications"), so this is a hand-rolled column store: one slice per
// field, indexed in parallel by row position, mirroring the vectorized
// pandas/polars frame original_source/backend/src/sort/steps/
// step2_stack_fingerprint_polars.py builds before the COPY+UPSERT.
package frame

// Frame holds one row per series_stack, column-major. All slices share
// length Len(); row i's fields are read by indexing every slice at i.
type Frame struct {
	SeriesStackID int64
	CohortID      int64
	SubjectID     int64
	StudyID       int64
	SeriesID      int64
	Modality      string

	Manufacturer      string
	ManufacturerModel string
	BodyPartExamined  string
	SequenceName      string

	SearchBlob        string
	ContrastBlob      string
	ContrastBolusAgent string
	TokenVector       []string

	TR, TE, TI, FlipAngle *float64
	ETL                   *int64
	BValue                *float64

	FOV         *float64
	AspectRatio *float64

	Is3D bool
	Is2D bool

	Orientation           string
	OrientationConfidence float64
	SliceCount            int

	MRAcquisitionType string
}

// Columns is the column-major store itself: one slice per field, all the
// same length, indexed in parallel by row position.
type Columns struct {
	SeriesStackID []int64
	CohortID      []int64
	SubjectID     []int64
	StudyID       []int64
	SeriesID      []int64
	Modality      []string

	Manufacturer       []string
	ManufacturerModel  []string
	BodyPartExamined   []string
	SequenceName       []string

	SearchBlob         []string
	ContrastBlob       []string
	ContrastBolusAgent []string
	TokenVector        [][]string

	TR, TE, TI, FlipAngle []*float64
	ETL                   []*int64
	BValue                []*float64

	FOV         []*float64
	AspectRatio []*float64

	Is3D []bool
	Is2D []bool

	Orientation           []string
	OrientationConfidence []float64
	SliceCount            []int

	MRAcquisitionType []string
}

// NewColumns preallocates every column slice to capacity n.
func NewColumns(n int) *Columns {
	return &Columns{
		SeriesStackID:         make([]int64, 0, n),
		CohortID:              make([]int64, 0, n),
		SubjectID:             make([]int64, 0, n),
		StudyID:               make([]int64, 0, n),
		SeriesID:              make([]int64, 0, n),
		Modality:              make([]string, 0, n),
		Manufacturer:          make([]string, 0, n),
		ManufacturerModel:     make([]string, 0, n),
		BodyPartExamined:      make([]string, 0, n),
		SequenceName:          make([]string, 0, n),
		SearchBlob:            make([]string, 0, n),
		ContrastBlob:          make([]string, 0, n),
		ContrastBolusAgent:    make([]string, 0, n),
		TokenVector:           make([][]string, 0, n),
		TR:                    make([]*float64, 0, n),
		TE:                    make([]*float64, 0, n),
		TI:                    make([]*float64, 0, n),
		FlipAngle:             make([]*float64, 0, n),
		ETL:                   make([]*int64, 0, n),
		BValue:                make([]*float64, 0, n),
		FOV:                   make([]*float64, 0, n),
		AspectRatio:           make([]*float64, 0, n),
		Is3D:                  make([]bool, 0, n),
		Is2D:                  make([]bool, 0, n),
		Orientation:           make([]string, 0, n),
		OrientationConfidence: make([]float64, 0, n),
		SliceCount:            make([]int, 0, n),
		MRAcquisitionType:     make([]string, 0, n),
	}
}

// Len reports the number of rows.
func (c *Columns) Len() int { return len(c.SeriesStackID) }

// Append adds one row's worth of values across every column in lockstep.
func (c *Columns) Append(r Frame) {
	c.SeriesStackID = append(c.SeriesStackID, r.SeriesStackID)
	c.CohortID = append(c.CohortID, r.CohortID)
	c.SubjectID = append(c.SubjectID, r.SubjectID)
	c.StudyID = append(c.StudyID, r.StudyID)
	c.SeriesID = append(c.SeriesID, r.SeriesID)
	c.Modality = append(c.Modality, r.Modality)
	c.Manufacturer = append(c.Manufacturer, r.Manufacturer)
	c.ManufacturerModel = append(c.ManufacturerModel, r.ManufacturerModel)
	c.BodyPartExamined = append(c.BodyPartExamined, r.BodyPartExamined)
	c.SequenceName = append(c.SequenceName, r.SequenceName)
	c.SearchBlob = append(c.SearchBlob, r.SearchBlob)
	c.ContrastBlob = append(c.ContrastBlob, r.ContrastBlob)
	c.ContrastBolusAgent = append(c.ContrastBolusAgent, r.ContrastBolusAgent)
	c.TokenVector = append(c.TokenVector, r.TokenVector)
	c.TR = append(c.TR, r.TR)
	c.TE = append(c.TE, r.TE)
	c.TI = append(c.TI, r.TI)
	c.FlipAngle = append(c.FlipAngle, r.FlipAngle)
	c.ETL = append(c.ETL, r.ETL)
	c.BValue = append(c.BValue, r.BValue)
	c.FOV = append(c.FOV, r.FOV)
	c.AspectRatio = append(c.AspectRatio, r.AspectRatio)
	c.Is3D = append(c.Is3D, r.Is3D)
	c.Is2D = append(c.Is2D, r.Is2D)
	c.Orientation = append(c.Orientation, r.Orientation)
	c.OrientationConfidence = append(c.OrientationConfidence, r.OrientationConfidence)
	c.SliceCount = append(c.SliceCount, r.SliceCount)
	c.MRAcquisitionType = append(c.MRAcquisitionType, r.MRAcquisitionType)
}

// Row materializes row i as a value type, for callers that want to pass a
// single fingerprint around (detector context construction, per-row
// upsert batching) without re-deriving column layout.
func (c *Columns) Row(i int) Frame {
	return Frame{
		SeriesStackID:         c.SeriesStackID[i],
		CohortID:              c.CohortID[i],
		SubjectID:             c.SubjectID[i],
		StudyID:               c.StudyID[i],
		SeriesID:              c.SeriesID[i],
		Modality:              c.Modality[i],
		Manufacturer:          c.Manufacturer[i],
		ManufacturerModel:     c.ManufacturerModel[i],
		BodyPartExamined:      c.BodyPartExamined[i],
		SequenceName:          c.SequenceName[i],
		SearchBlob:            c.SearchBlob[i],
		ContrastBlob:          c.ContrastBlob[i],
		ContrastBolusAgent:    c.ContrastBolusAgent[i],
		TokenVector:           c.TokenVector[i],
		TR:                    c.TR[i],
		TE:                    c.TE[i],
		TI:                    c.TI[i],
		FlipAngle:             c.FlipAngle[i],
		ETL:                   c.ETL[i],
		BValue:                c.BValue[i],
		FOV:                   c.FOV[i],
		AspectRatio:           c.AspectRatio[i],
		Is3D:                  c.Is3D[i],
		Is2D:                  c.Is2D[i],
		Orientation:           c.Orientation[i],
		OrientationConfidence: c.OrientationConfidence[i],
		SliceCount:            c.SliceCount[i],
		MRAcquisitionType:     c.MRAcquisitionType[i],
	}
}

// Chunk splits the columns into row-index slices no larger than size,
// for batched COPY+UPSERT (spec §4.10 "for each batch of <=50000 rows").
func Chunk(n, size int) [][2]int {
	if size <= 0 || n == 0 {
		if n == 0 {
			return nil
		}
		return [][2]int{{0, n}}
	}
	var chunks [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, [2]int{start, end})
	}
	return chunks
}
