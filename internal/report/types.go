package report

import (
	"fmt"
	"time"
)

// CareLevel is the level of care delivered during the encounter.
type CareLevel string

const (
	CareLevelALS CareLevel = "ALS"
	CareLevelILS CareLevel = "ILS"
	CareLevelBLS CareLevel = "BLS"
)

// CareLevels lists the accepted care levels in display order.
var CareLevels = []CareLevel{CareLevelALS, CareLevelILS, CareLevelBLS}

// Valid reports whether c is one of CareLevels.
func (c CareLevel) Valid() bool {
	for _, l := range CareLevels {
		if l == c {
			return true
		}
	}
	return false
}

// Description returns the long form shown on documents, e.g. "Advanced Life Support".
func (c CareLevel) Description() string {
	switch c {
	case CareLevelALS:
		return "Advanced Life Support"
	case CareLevelILS:
		return "Intermediate Life Support"
	case CareLevelBLS:
		return "Basic Life Support"
	default:
		return string(c)
	}
}

// Vitals holds free-text vital sign readings. All fields are optional.
type Vitals struct {
	BP    string `json:"bp,omitempty"`
	Pulse string `json:"pulse,omitempty"`
	Temp  string `json:"temp,omitempty"`
	SpO2  string `json:"spo2,omitempty"`
}

// IsZero reports whether no reading is recorded.
func (v Vitals) IsZero() bool {
	return v == Vitals{}
}

// ClinicalInfo groups clinical observations for a report.
type ClinicalInfo struct {
	Vitals Vitals `json:"vitals"`
}

// PatientReport is one patient encounter report.
//
// All fields are values, so a copy of a PatientReport shares nothing with
// the original.
type PatientReport struct {
	ID           string       `json:"id"`
	Timestamp    int64        `json:"timestamp"` // Unix milliseconds, set once at creation
	PatientID    string       `json:"patientId"`
	CareLevel    CareLevel    `json:"careLevel"`
	StaffID      string       `json:"staffId"`
	ClinicalInfo ClinicalInfo `json:"clinicalInfo"`
}

// CreatedAt returns Timestamp as a UTC time.
func (r PatientReport) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// String returns a short identification used in log lines.
func (r PatientReport) String() string {
	return fmt.Sprintf("report %s (patient %s, %s)", r.ID, r.PatientID, r.CareLevel)
}

// Draft is the caller-supplied content of a new report.
type Draft struct {
	PatientID    string       `json:"patientId"`
	CareLevel    CareLevel    `json:"careLevel"`
	StaffID      string       `json:"staffId,omitempty"`
	ClinicalInfo ClinicalInfo `json:"clinicalInfo"`
}

// New builds a complete report from a draft. The id and creation time come
// from the caller's generator and clock, never from the draft.
func New(id string, at time.Time, d Draft) PatientReport {
	return PatientReport{
		ID:           id,
		Timestamp:    at.UnixMilli(),
		PatientID:    d.PatientID,
		CareLevel:    d.CareLevel,
		StaffID:      d.StaffID,
		ClinicalInfo: d.ClinicalInfo,
	}
}
