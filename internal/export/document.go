// Package export renders patient reports for hand-off: a plain text document
// per report and an XLSX workbook for a list of reports.
//
// Export never mutates the reports it is given and never calls back into the
// store.
package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/roach88/epcr/internal/report"
)

// Date and time layouts used on documents and workbooks.
const (
	DateLayout = "02 Jan 2006"
	TimeLayout = "15:04"
)

// blank stands in for empty fields on documents.
const blank = "-"

// Renderer formats report times in a fixed location.
type Renderer struct {
	loc *time.Location
}

// NewRenderer returns a renderer for loc. A nil loc renders in UTC.
func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc}
}

// CreatedAt returns the creation time of r in the renderer's location.
func (x *Renderer) CreatedAt(r report.PatientReport) time.Time {
	return r.CreatedAt().In(x.loc)
}

// FileName is the file name a document for r is saved under.
func FileName(r report.PatientReport) string {
	return fmt.Sprintf("patient-report-%s.txt", r.ID)
}

// RenderDocument writes the text document for r to w.
func (x *Renderer) RenderDocument(w io.Writer, r report.PatientReport) error {
	created := x.CreatedAt(r)
	v := r.ClinicalInfo.Vitals

	var buf bytes.Buffer
	buf.WriteString("Patient Report\n\n")
	field(&buf, "Patient ID:", r.PatientID)
	field(&buf, "Care Level:", fmt.Sprintf("%s (%s)", r.CareLevel, r.CareLevel.Description()))
	field(&buf, "Staff:", r.StaffID)
	field(&buf, "Date:", created.Format(DateLayout))
	field(&buf, "Time:", created.Format(TimeLayout))
	field(&buf, "Report ID:", r.ID)
	buf.WriteString("\nVitals\n")
	field(&buf, "BP:", v.BP)
	field(&buf, "Pulse:", v.Pulse)
	field(&buf, "Temp:", v.Temp)
	field(&buf, "SpO2:", v.SpO2)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write document for %s: %w", r.ID, err)
	}
	return nil
}

func field(buf *bytes.Buffer, label, value string) {
	if value == "" {
		value = blank
	}
	fmt.Fprintf(buf, "%-12s%s\n", label, value)
}
