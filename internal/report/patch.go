package report

// Patch is a partial report. A nil field is absent and leaves the existing
// value alone; a non-nil field replaces it.
//
// ClinicalInfo is replaced as a whole: a patch carrying only a new pulse
// clears any bp, temp and spo2 readings. Callers that want to keep readings
// must send the full vitals set.
type Patch struct {
	PatientID    *string       `json:"patientId,omitempty"`
	CareLevel    *CareLevel    `json:"careLevel,omitempty"`
	StaffID      *string       `json:"staffId,omitempty"`
	ClinicalInfo *ClinicalInfo `json:"clinicalInfo,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.PatientID == nil && p.CareLevel == nil && p.StaffID == nil && p.ClinicalInfo == nil
}

// Fields returns the JSON names of the fields present in the patch.
func (p Patch) Fields() []string {
	var fields []string
	if p.PatientID != nil {
		fields = append(fields, "patientId")
	}
	if p.CareLevel != nil {
		fields = append(fields, "careLevel")
	}
	if p.StaffID != nil {
		fields = append(fields, "staffId")
	}
	if p.ClinicalInfo != nil {
		fields = append(fields, "clinicalInfo")
	}
	return fields
}

// Apply overlays p on r and returns the result. r is not modified.
// ID and Timestamp always come from r.
func (p Patch) Apply(r PatientReport) PatientReport {
	out := r
	if p.PatientID != nil {
		out.PatientID = *p.PatientID
	}
	if p.CareLevel != nil {
		out.CareLevel = *p.CareLevel
	}
	if p.StaffID != nil {
		out.StaffID = *p.StaffID
	}
	if p.ClinicalInfo != nil {
		out.ClinicalInfo = *p.ClinicalInfo
	}
	return out
}

// String, Level and Info return pointers for building patches inline.
func String(s string) *string { return &s }

func Level(c CareLevel) *CareLevel { return &c }

func Info(v Vitals) *ClinicalInfo { return &ClinicalInfo{Vitals: v} }
