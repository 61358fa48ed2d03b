package report

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// clean trims surrounding whitespace and applies NFC so that visually equal
// identifiers typed on different keyboards compare equal.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// ParseCareLevel accepts a care level in any letter case ("als", "Bls").
func ParseCareLevel(s string) (CareLevel, error) {
	// cases.Caser is stateful, so one per call.
	c := CareLevel(cases.Upper(language.Und).String(clean(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown care level %q: must be one of %v", s, CareLevels)
	}
	return c, nil
}

func normalizeLevel(c CareLevel) CareLevel {
	if parsed, err := ParseCareLevel(string(c)); err == nil {
		return parsed
	}
	// Leave unknown values for validation to report.
	return CareLevel(clean(string(c)))
}

func normalizeInfo(ci ClinicalInfo) ClinicalInfo {
	return ClinicalInfo{Vitals: Vitals{
		BP:    clean(ci.Vitals.BP),
		Pulse: clean(ci.Vitals.Pulse),
		Temp:  clean(ci.Vitals.Temp),
		SpO2:  clean(ci.Vitals.SpO2),
	}}
}

// Normalize returns d with text fields cleaned and the care level upper-cased.
func (d Draft) Normalize() Draft {
	return Draft{
		PatientID:    clean(d.PatientID),
		CareLevel:    normalizeLevel(d.CareLevel),
		StaffID:      clean(d.StaffID),
		ClinicalInfo: normalizeInfo(d.ClinicalInfo),
	}
}

// Normalize returns p with present fields cleaned. Absent fields stay absent.
func (p Patch) Normalize() Patch {
	var out Patch
	if p.PatientID != nil {
		out.PatientID = String(clean(*p.PatientID))
	}
	if p.CareLevel != nil {
		out.CareLevel = Level(normalizeLevel(*p.CareLevel))
	}
	if p.StaffID != nil {
		out.StaffID = String(clean(*p.StaffID))
	}
	if p.ClinicalInfo != nil {
		ci := normalizeInfo(*p.ClinicalInfo)
		out.ClinicalInfo = &ci
	}
	return out
}
