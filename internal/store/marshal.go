package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/epcr/internal/report"
)

// marshalClinicalInfo converts ClinicalInfo to JSON TEXT for the
// clinical_info column.
func marshalClinicalInfo(ci report.ClinicalInfo) (string, error) {
	data, err := json.Marshal(ci)
	if err != nil {
		return "", fmt.Errorf("marshal clinical info: %w", err)
	}
	return string(data), nil
}

// unmarshalClinicalInfo parses the clinical_info column.
func unmarshalClinicalInfo(data string) (report.ClinicalInfo, error) {
	var ci report.ClinicalInfo
	if data == "" || data == "{}" {
		return ci, nil
	}
	if err := json.Unmarshal([]byte(data), &ci); err != nil {
		return ci, fmt.Errorf("unmarshal clinical info: %w", err)
	}
	return ci, nil
}

// marshalReport encodes a whole report for key/value media.
func marshalReport(r report.PatientReport) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// unmarshalReport decodes a report written by marshalReport.
func unmarshalReport(data []byte) (report.PatientReport, error) {
	var r report.PatientReport
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("unmarshal report: %w", err)
	}
	if r.ID == "" {
		return r, fmt.Errorf("unmarshal report: missing id")
	}
	return r, nil
}
