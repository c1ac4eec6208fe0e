package dcmio

import "testing"

func TestIsAllowedSOPClass(t *testing.T) {
	cases := []struct {
		uid  string
		want bool
	}{
		{"1.2.840.10008.5.1.4.1.1.4", true},   // MRImageStorage
		{"1.2.840.10008.5.1.4.1.1.2", true},   // CTImageStorage
		{"1.2.840.10008.5.1.4.1.1.128", true}, // PET
		{"1.2.840.10008.5.1.4.1.1.7", false},  // Secondary Capture, not in allow-list
		{"", false},
	}
	for _, c := range cases {
		if got := IsAllowedSOPClass(c.uid); got != c.want {
			t.Errorf("IsAllowedSOPClass(%q) = %v, want %v", c.uid, got, c.want)
		}
	}
}

func TestNormalizeModality(t *testing.T) {
	cases := []struct {
		raw  string
		want Modality
		ok   bool
	}{
		{"MR", ModalityMR, true},
		{"CT", ModalityCT, true},
		{"PT", ModalityPET, true},
		{"PET", ModalityPET, true},
		{"US", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeModality(c.raw)
		if got != c.want || ok != c.ok {
			t.Errorf("NormalizeModality(%q) = (%v,%v), want (%v,%v)", c.raw, got, ok, c.want, c.ok)
		}
	}
}
