package dcmio

import "github.com/codeninja55/go-radx/dicom/uid"

// AllowedSOPClasses is the acceptance filter from spec §3: only these Storage
// SOP Classes are ingested. The teacher's dicom/uid package already declares
// every one of these as a named constant.
var AllowedSOPClasses = map[string]struct{}{
	uid.CTImageStorage.String():                             {},
	uid.EnhancedCTImageStorage.String():                      {},
	uid.LegacyConvertedEnhancedCTImageStorage.String():       {},
	uid.MRImageStorage.String():                              {},
	uid.EnhancedMRImageStorage.String():                      {},
	uid.EnhancedMRColorImageStorage.String():                 {},
	uid.LegacyConvertedEnhancedMRImageStorage.String():       {},
	uid.PositronEmissionTomographyImageStorage.String():      {},
	uid.LegacyConvertedEnhancedPETImageStorage.String():      {},
	uid.EnhancedPETImageStorage.String():                     {},
}

// IsAllowedSOPClass reports whether sopClassUID is in the fixed allow-list.
func IsAllowedSOPClass(sopClassUID string) bool {
	_, ok := AllowedSOPClasses[sopClassUID]
	return ok
}

// Modality is a normalized modality value.
type Modality string

const (
	ModalityMR  Modality = "MR"
	ModalityCT  Modality = "CT"
	ModalityPET Modality = "PT"
)

// NormalizeModality canonicalizes PET's two DICOM spellings (PT, PET) to PT
// and rejects anything else.
func NormalizeModality(raw string) (Modality, bool) {
	switch raw {
	case "MR":
		return ModalityMR, true
	case "CT":
		return ModalityCT, true
	case "PT", "PET":
		return ModalityPET, true
	default:
		return "", false
	}
}
