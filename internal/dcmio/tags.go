// Package dcmio bridges the teacher's DICOM parsing primitives (dicom.DataSet,
// dicom/tag, dicom/value) to the flat RawInstance shape the extraction engine
// streams into the bulk writer.
package dcmio

import "github.com/codeninja55/go-radx/dicom/tag"

// Whitelist is the fixed set of DICOM tags read from every accepted instance.
// Kept narrow and named rather than driven by the full data dictionary so a
// reviewer can see exactly what physics and routing fields the extractor
// depends on.
var (
	TagSOPClassUID    = tag.New(0x0008, 0x0016)
	TagSOPInstanceUID = tag.New(0x0008, 0x0018)
	TagStudyDate      = tag.New(0x0008, 0x0020)
	TagSeriesDate     = tag.New(0x0008, 0x0021)
	TagAcquisitionDate = tag.New(0x0008, 0x0022)
	TagContentDate    = tag.New(0x0008, 0x0023)
	TagStudyTime      = tag.New(0x0008, 0x0030)
	TagSeriesTime     = tag.New(0x0008, 0x0031)
	TagAcquisitionTime = tag.New(0x0008, 0x0032)
	TagContentTime    = tag.New(0x0008, 0x0033)
	TagAccessionNumber = tag.New(0x0008, 0x0050)
	TagModality       = tag.New(0x0008, 0x0060)
	TagManufacturer   = tag.New(0x0008, 0x0070)
	TagInstitutionName = tag.New(0x0008, 0x0080)
	TagStudyDescription = tag.New(0x0008, 0x1030)
	TagSeriesDescription = tag.New(0x0008, 0x103E)
	TagManufacturerModelName = tag.New(0x0008, 0x1090)
	TagImageType      = tag.New(0x0008, 0x0008)

	TagPatientName    = tag.New(0x0010, 0x0010)
	TagPatientID      = tag.New(0x0010, 0x0020)
	TagPatientBirthDate = tag.New(0x0010, 0x0030)
	TagPatientSex     = tag.New(0x0010, 0x0040)
	TagPatientAge     = tag.New(0x0010, 0x1010)

	TagScanningSequence = tag.New(0x0018, 0x0020)
	TagSequenceVariant  = tag.New(0x0018, 0x0021)
	TagScanOptions      = tag.New(0x0018, 0x0022)
	TagMRAcquisitionType = tag.New(0x0018, 0x0023)
	TagSliceThickness   = tag.New(0x0018, 0x0050)
	TagKVP              = tag.New(0x0018, 0x0060)
	TagSequenceName     = tag.New(0x0018, 0x0024)
	TagRepetitionTime   = tag.New(0x0018, 0x0080)
	TagEchoTime         = tag.New(0x0018, 0x0081)
	TagNumberOfAverages = tag.New(0x0018, 0x0083)
	TagEchoNumbers      = tag.New(0x0018, 0x0086)
	TagMagneticFieldStrength = tag.New(0x0018, 0x0087)
	TagNumberOfPhaseEncodingSteps = tag.New(0x0018, 0x0089)
	TagEchoTrainLength  = tag.New(0x0018, 0x0091)
	TagPercentSampling  = tag.New(0x0018, 0x0093)
	TagPixelBandwidth   = tag.New(0x0018, 0x0095)
	TagContrastBolusAgent = tag.New(0x0018, 0x0010)
	TagXRayTubeCurrent  = tag.New(0x0018, 0x1151)
	TagExposureTime     = tag.New(0x0018, 0x1150)
	TagExposure         = tag.New(0x0018, 0x1152)
	TagBodyPartExamined = tag.New(0x0018, 0x0015)
	TagContrastBolusRoute = tag.New(0x0018, 0x1040)
	TagContrastBolusVolume = tag.New(0x0018, 0x1041)
	TagInversionTime    = tag.New(0x0018, 0x0082)
	TagReceiveCoilName  = tag.New(0x0018, 0x1250)
	TagFlipAngle        = tag.New(0x0018, 0x1314)
	TagProtocolName     = tag.New(0x0018, 0x1030)
	TagCTDIvol          = tag.New(0x0018, 0x9345)
	TagDiffusionBValue  = tag.New(0x0018, 0x9087)
	TagRadiopharmaceuticalStartTime = tag.New(0x0018, 0x1072)
	TagRadionuclideTotalDose = tag.New(0x0018, 0x1074)

	TagStudyInstanceUID  = tag.New(0x0020, 0x000D)
	TagSeriesInstanceUID = tag.New(0x0020, 0x000E)
	TagSeriesNumber      = tag.New(0x0020, 0x0011)
	TagAcquisitionNumber = tag.New(0x0020, 0x0012)
	TagInstanceNumber    = tag.New(0x0020, 0x0013)
	TagImagePositionPatient = tag.New(0x0020, 0x0032)
	TagImageOrientationPatient = tag.New(0x0020, 0x0037)

	TagRows             = tag.New(0x0028, 0x0010)
	TagColumns          = tag.New(0x0028, 0x0011)
	TagPixelSpacing     = tag.New(0x0028, 0x0030)

	TagUnits            = tag.New(0x0054, 0x1001)
	TagDecayCorrection  = tag.New(0x0054, 0x1102)
)

// Whitelist returns every tag this package reads, in a stable order. Used by
// Parser configuration when the underlying parser supports a specific_tags
// read; the teacher's Parser always reads the full default dataset, so this
// whitelist is applied as a post-parse filter (see ExtractRawInstance).
func Whitelist() []tag.Tag {
	return []tag.Tag{
		TagSOPClassUID, TagSOPInstanceUID, TagStudyDate, TagSeriesDate, TagAcquisitionDate,
		TagContentDate, TagStudyTime, TagSeriesTime, TagAcquisitionTime, TagContentTime,
		TagAccessionNumber, TagModality, TagManufacturer, TagInstitutionName,
		TagStudyDescription, TagSeriesDescription, TagManufacturerModelName, TagImageType,
		TagPatientName, TagPatientID, TagPatientBirthDate, TagPatientSex, TagPatientAge,
		TagScanningSequence, TagSequenceVariant, TagScanOptions, TagMRAcquisitionType,
		TagSliceThickness, TagKVP, TagSequenceName, TagRepetitionTime, TagEchoTime,
		TagNumberOfAverages, TagEchoNumbers, TagMagneticFieldStrength,
		TagNumberOfPhaseEncodingSteps, TagEchoTrainLength, TagPercentSampling,
		TagPixelBandwidth, TagContrastBolusAgent, TagXRayTubeCurrent, TagExposureTime,
		TagExposure, TagBodyPartExamined, TagContrastBolusRoute, TagContrastBolusVolume,
		TagInversionTime, TagReceiveCoilName, TagFlipAngle, TagProtocolName, TagCTDIvol,
		TagDiffusionBValue, TagRadiopharmaceuticalStartTime, TagRadionuclideTotalDose,
		TagStudyInstanceUID, TagSeriesInstanceUID, TagSeriesNumber, TagAcquisitionNumber,
		TagInstanceNumber, TagImagePositionPatient, TagImageOrientationPatient,
		TagRows, TagColumns, TagPixelSpacing, TagUnits, TagDecayCorrection,
	}
}
