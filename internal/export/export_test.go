package export

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/epcr/internal/report"
)

var created = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func fullReport() report.PatientReport {
	return report.New("rpt-0001", created, report.Draft{
		PatientID: "P1",
		CareLevel: report.CareLevelALS,
		StaffID:   "1",
		ClinicalInfo: report.ClinicalInfo{
			Vitals: report.Vitals{BP: "120/80", Pulse: "72", Temp: "37.1", SpO2: "98%"},
		},
	})
}

func sparseReport() report.PatientReport {
	return report.New("rpt-0002", created.Add(26*time.Hour), report.Draft{
		PatientID: "P2",
		CareLevel: report.CareLevelBLS,
	})
}

func assertGolden(t *testing.T, name string, got []byte) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, got)
}

func TestRenderDocument_Golden(t *testing.T) {
	tests := []struct {
		name   string
		report report.PatientReport
	}{
		{"document_full", fullReport()},
		{"document_sparse", sparseReport()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewRenderer(nil).RenderDocument(&buf, tt.report))
			assertGolden(t, tt.name, buf.Bytes())
		})
	}
}

func TestRenderDocument_UsesLocation(t *testing.T) {
	cet := time.FixedZone("CET", 60*60)

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(cet).RenderDocument(&buf, fullReport()))

	assert.Contains(t, buf.String(), "Time:       15:30\n")
}

func TestRenderDocument_DoesNotMutate(t *testing.T) {
	r := fullReport()
	before := r

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(nil).RenderDocument(&buf, r))
	assert.Equal(t, before, r)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRenderDocument_WriteError(t *testing.T) {
	err := NewRenderer(nil).RenderDocument(failingWriter{}, fullReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpt-0001")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "patient-report-rpt-0001.txt", FileName(fullReport()))
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	reports := []report.PatientReport{fullReport(), sparseReport()}
	require.NoError(t, NewRenderer(nil).WriteWorkbook(&buf, reports))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, WorkbookHeaders, rows[0])
	assert.Equal(t, []string{
		"rpt-0001", "01 Mar 2024", "14:30", "P1", "ALS", "1",
		"120/80", "72", "37.1", "98%",
	}, rows[1])
	// GetRows drops trailing empty cells.
	assert.Equal(t, []string{"rpt-0002", "02 Mar 2024", "16:30", "P2", "BLS"}, rows[2])

	styleID, err := f.GetCellStyle(SheetName, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(nil).WriteWorkbook(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, WorkbookHeaders, rows[0])
}
