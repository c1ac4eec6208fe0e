package dcmio

import (
	"strconv"
	"strings"

	"github.com/codeninja55/go-radx/dicom"
	"github.com/codeninja55/go-radx/dicom/tag"
	"github.com/codeninja55/go-radx/dicom/value"
)

// RawInstance is the flat, typed projection of one DICOM instance's
// whitelisted tags (§6). It is the unit the extraction engine's workers
// produce and the only shape the bulk writer consumes — workers never touch
// the database, they only build RawInstance values.
type RawInstance struct {
	FilePath string

	SOPClassUID    string
	SOPInstanceUID string
	StudyInstanceUID string
	SeriesInstanceUID string

	Modality     Modality
	Manufacturer string
	ManufacturerModelName string
	InstitutionName string

	StudyDate, SeriesDate, AcquisitionDate, ContentDate string
	StudyTime, SeriesTime, AcquisitionTime, ContentTime string
	AccessionNumber string

	PatientID       string
	PatientName     string
	PatientBirthDate string
	PatientSex      string
	PatientAge      string

	StudyDescription  string
	SeriesDescription string
	ProtocolName      string
	SequenceName      string
	ImageType         []string
	BodyPartExamined  string

	ScanningSequence []string
	SequenceVariant  []string
	ScanOptions      []string
	MRAcquisitionType string

	EchoTime        *float64
	RepetitionTime  *float64
	InversionTime   *float64
	FlipAngle       *float64
	EchoNumbers     *int64
	EchoTrainLength *int64
	NumberOfAverages *float64
	MagneticFieldStrength *float64
	PixelBandwidth  *float64
	ReceiveCoilName string
	DiffusionBValue *float64

	ContrastBolusAgent  string
	ContrastBolusRoute  string
	ContrastBolusVolume *float64

	KVP            *float64
	XRayTubeCurrent *float64
	ExposureTime   *float64
	Exposure       *float64
	CTDIvol        *float64

	Units           string
	DecayCorrection string
	RadiopharmaceuticalStartTime string
	RadionuclideTotalDose *float64

	SeriesNumber      *int64
	AcquisitionNumber *int64
	InstanceNumber    *int64

	ImagePositionPatient    []float64
	ImageOrientationPatient []float64

	Rows, Columns *int64
	PixelSpacing  []float64
}

// ExtractRawInstance builds a RawInstance from a parsed dataset, applying the
// acceptance filter (spec §3). Returns ErrDisallowedSOPClass /
// ErrUnsupportedModality / ErrMissingSOPInstanceUID / ErrMissingStudyOrSeriesUID
// for instances that must be silently skipped by the caller.
func ExtractRawInstance(ds *dicom.DataSet, filePath string) (*RawInstance, error) {
	sopClassUID := getString(ds, TagSOPClassUID)
	if !IsAllowedSOPClass(sopClassUID) {
		return nil, ErrDisallowedSOPClass
	}

	modality, ok := NormalizeModality(getString(ds, TagModality))
	if !ok {
		return nil, ErrUnsupportedModality
	}

	sopInstanceUID := getString(ds, TagSOPInstanceUID)
	if sopInstanceUID == "" {
		return nil, ErrMissingSOPInstanceUID
	}
	studyUID := getString(ds, TagStudyInstanceUID)
	seriesUID := getString(ds, TagSeriesInstanceUID)
	if studyUID == "" || seriesUID == "" {
		return nil, ErrMissingStudyOrSeriesUID
	}

	ri := &RawInstance{
		FilePath:          filePath,
		SOPClassUID:       sopClassUID,
		SOPInstanceUID:    sopInstanceUID,
		StudyInstanceUID:  studyUID,
		SeriesInstanceUID: seriesUID,
		Modality:          modality,

		Manufacturer:          getString(ds, TagManufacturer),
		ManufacturerModelName: getString(ds, TagManufacturerModelName),
		InstitutionName:       getString(ds, TagInstitutionName),

		StudyDate: getString(ds, TagStudyDate), SeriesDate: getString(ds, TagSeriesDate),
		AcquisitionDate: getString(ds, TagAcquisitionDate), ContentDate: getString(ds, TagContentDate),
		StudyTime: getString(ds, TagStudyTime), SeriesTime: getString(ds, TagSeriesTime),
		AcquisitionTime: getString(ds, TagAcquisitionTime), ContentTime: getString(ds, TagContentTime),
		AccessionNumber: getString(ds, TagAccessionNumber),

		PatientID: getString(ds, TagPatientID), PatientName: getString(ds, TagPatientName),
		PatientBirthDate: getString(ds, TagPatientBirthDate), PatientSex: getString(ds, TagPatientSex),
		PatientAge: getString(ds, TagPatientAge),

		StudyDescription: getString(ds, TagStudyDescription), SeriesDescription: getString(ds, TagSeriesDescription),
		ProtocolName: getString(ds, TagProtocolName), SequenceName: getString(ds, TagSequenceName),
		ImageType:        getStrings(ds, TagImageType),
		BodyPartExamined: getString(ds, TagBodyPartExamined),

		ScanningSequence:  getStrings(ds, TagScanningSequence),
		SequenceVariant:   getStrings(ds, TagSequenceVariant),
		ScanOptions:       getStrings(ds, TagScanOptions),
		MRAcquisitionType: getString(ds, TagMRAcquisitionType),

		EchoTime: getFloatPtr(ds, TagEchoTime), RepetitionTime: getFloatPtr(ds, TagRepetitionTime),
		InversionTime: getFloatPtr(ds, TagInversionTime), FlipAngle: getFloatPtr(ds, TagFlipAngle),
		EchoNumbers: getIntPtr(ds, TagEchoNumbers), EchoTrainLength: getIntPtr(ds, TagEchoTrainLength),
		NumberOfAverages: getFloatPtr(ds, TagNumberOfAverages),
		MagneticFieldStrength: getFloatPtr(ds, TagMagneticFieldStrength),
		PixelBandwidth:        getFloatPtr(ds, TagPixelBandwidth),
		ReceiveCoilName:       getString(ds, TagReceiveCoilName),
		DiffusionBValue:       getFloatPtr(ds, TagDiffusionBValue),

		ContrastBolusAgent:  getString(ds, TagContrastBolusAgent),
		ContrastBolusRoute:  getString(ds, TagContrastBolusRoute),
		ContrastBolusVolume: getFloatPtr(ds, TagContrastBolusVolume),

		KVP: getFloatPtr(ds, TagKVP), XRayTubeCurrent: getFloatPtr(ds, TagXRayTubeCurrent),
		ExposureTime: getFloatPtr(ds, TagExposureTime), Exposure: getFloatPtr(ds, TagExposure),
		CTDIvol: getFloatPtr(ds, TagCTDIvol),

		Units: getString(ds, TagUnits), DecayCorrection: getString(ds, TagDecayCorrection),
		RadiopharmaceuticalStartTime: getString(ds, TagRadiopharmaceuticalStartTime),
		RadionuclideTotalDose:        getFloatPtr(ds, TagRadionuclideTotalDose),

		SeriesNumber: getIntPtr(ds, TagSeriesNumber), AcquisitionNumber: getIntPtr(ds, TagAcquisitionNumber),
		InstanceNumber: getIntPtr(ds, TagInstanceNumber),

		ImagePositionPatient:    getFloats(ds, TagImagePositionPatient),
		ImageOrientationPatient: getFloats(ds, TagImageOrientationPatient),

		Rows: getIntPtr(ds, TagRows), Columns: getIntPtr(ds, TagColumns),
		PixelSpacing: getFloats(ds, TagPixelSpacing),
	}
	return ri, nil
}

func getString(ds *dicom.DataSet, t tag.Tag) string {
	elem, err := ds.Get(t)
	if err != nil {
		return ""
	}
	sv, ok := elem.Value().(*value.StringValue)
	if !ok {
		return ""
	}
	return strings.TrimSpace(sv.String())
}

func getStrings(ds *dicom.DataSet, t tag.Tag) []string {
	elem, err := ds.Get(t)
	if err != nil {
		return nil
	}
	sv, ok := elem.Value().(*value.StringValue)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(sv.Strings()))
	for _, s := range sv.Strings() {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getFloatPtr(ds *dicom.DataSet, t tag.Tag) *float64 {
	fs := getFloats(ds, t)
	if len(fs) == 0 {
		return nil
	}
	return &fs[0]
}

func getFloats(ds *dicom.DataSet, t tag.Tag) []float64 {
	elem, err := ds.Get(t)
	if err != nil {
		return nil
	}
	switch v := elem.Value().(type) {
	case *value.FloatValue:
		return append([]float64(nil), v.Floats()...)
	case *value.StringValue:
		out := make([]float64, 0, len(v.Strings()))
		for _, s := range v.Strings() {
			f, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if perr == nil {
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}

func getIntPtr(ds *dicom.DataSet, t tag.Tag) *int64 {
	elem, err := ds.Get(t)
	if err != nil {
		return nil
	}
	switch v := elem.Value().(type) {
	case *value.IntValue:
		if len(v.Ints()) == 0 {
			return nil
		}
		out := v.Ints()[0]
		return &out
	case *value.StringValue:
		if len(v.Strings()) == 0 {
			return nil
		}
		n, perr := strconv.ParseInt(strings.TrimSpace(v.Strings()[0]), 10, 64)
		if perr != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}
