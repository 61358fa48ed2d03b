package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/roach88/epcr/internal/report"
)

// testEnv is a config file pointing every path into a temp dir.
type testEnv struct {
	dir        string
	configPath string

	// stderr holds the log output of the last run.
	stderr string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "epcr.yaml")

	cfg := fmt.Sprintf(`storage:
  driver: sqlite
  path: %s
snapshot:
  path: %s
log:
  level: error
export:
  dir: %s
`,
		filepath.Join(dir, "epcr.db"),
		filepath.Join(dir, "snapshot.json"),
		filepath.Join(dir, "out"),
	)
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))

	return &testEnv{dir: dir, configPath: configPath}
}

// run executes the CLI with the env's config and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.Execute()
	e.stderr = stderr.String()
	return stdout.String(), err
}

// add creates a report through the CLI and returns it.
func (e *testEnv) add(t *testing.T, args ...string) report.PatientReport {
	t.Helper()
	out, err := e.run(t, append([]string{"--format", "json", "add"}, args...)...)
	require.NoError(t, err, out)
	return decodeData[report.PatientReport](t, out)
}

func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func decodeError(t *testing.T, out string) *CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func TestAdd(t *testing.T) {
	env := newTestEnv(t)

	r := env.add(t, "--patient", "P1", "--care-level", "als", "--bp", "120/80", "--pulse", "72")

	assert.NotEmpty(t, r.ID)
	assert.NotZero(t, r.Timestamp)
	assert.Equal(t, "P1", r.PatientID)
	assert.Equal(t, report.CareLevelALS, r.CareLevel)
	assert.Equal(t, "1", r.StaffID, "staff defaults to the logged-in user")
	assert.Equal(t, report.Vitals{BP: "120/80", Pulse: "72"}, r.ClinicalInfo.Vitals)
}

func TestAdd_Text(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "add", "--patient", "P1", "--care-level", "BLS", "--staff", "42")
	require.NoError(t, err)
	assert.Contains(t, out, "Added report ")
}

func TestAdd_InvalidCareLevel(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "add", "--patient", "P1", "--care-level", "XLS")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	cliErr := decodeError(t, out)
	assert.Equal(t, ErrCodeInvalidInput, cliErr.Code)

	// Nothing was opened, so nothing was written.
	_, statErr := os.Stat(filepath.Join(env.dir, "epcr.db"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAdd_MissingRequiredFlag(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "add", "--patient", "P1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "care-level")
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "--patient", "P1", "--care-level", "ALS")
	b := env.add(t, "--patient", "P2", "--care-level", "ILS")

	out, err := env.run(t, "--format", "json", "list")
	require.NoError(t, err)
	list := decodeData[[]report.PatientReport](t, out)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)

	out, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "PATIENT")
	assert.Contains(t, out, a.ID)
	assert.Contains(t, out, "ILS")
}

func TestList_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No reports.\n", out)
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "--patient", "P1", "--care-level", "ALS", "--spo2", "97%")

	out, err := env.run(t, "show", r.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Patient Report\n"))
	assert.Contains(t, out, "Care Level: ALS (Advanced Life Support)")
	assert.Contains(t, out, "SpO2:       97%")
}

func TestShow_NotFound(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "show", "missing")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeError(t, out).Code)
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "--patient", "P1", "--care-level", "ALS", "--bp", "120/80")

	out, err := env.run(t, "--format", "json", "update", r.ID, "--care-level", "BLS")
	require.NoError(t, err)
	updated := decodeData[report.PatientReport](t, out)

	want := r
	want.CareLevel = report.CareLevelBLS
	assert.Equal(t, want, updated)

	out, err = env.run(t, "--format", "json", "show", r.ID)
	require.NoError(t, err)
	assert.Equal(t, want, decodeData[report.PatientReport](t, out))
}

func TestUpdate_VitalsReplacedWholesale(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "--patient", "P1", "--care-level", "ALS", "--bp", "120/80", "--pulse", "72")

	out, err := env.run(t, "--format", "json", "update", r.ID, "--pulse", "90")
	require.NoError(t, err)

	updated := decodeData[report.PatientReport](t, out)
	assert.Equal(t, report.Vitals{Pulse: "90"}, updated.ClinicalInfo.Vitals)
}

func TestUpdate_NotFound(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "update", "missing", "--care-level", "BLS")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decodeError(t, out).Code)
}

func TestUpdate_NothingToUpdate(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "--patient", "P1", "--care-level", "ALS")

	_, err := env.run(t, "update", r.ID)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	a := env.add(t, "--patient", "P1", "--care-level", "ALS")
	b := env.add(t, "--patient", "P2", "--care-level", "BLS")

	out, err := env.run(t, "delete", a.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Deleted report %s\n", a.ID), out)

	out, err = env.run(t, "--format", "json", "list")
	require.NoError(t, err)
	list := decodeData[[]report.PatientReport](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestExport_Documents(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "--patient", "P1", "--care-level", "ALS")

	out, err := env.run(t, "--format", "json", "export", r.ID)
	require.NoError(t, err)

	result := decodeData[ExportResult](t, out)
	want := filepath.Join(env.dir, "out", "patient-report-"+r.ID+".txt")
	assert.Equal(t, []string{want}, result.Files)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Patient ID: P1")
}

func TestExport_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "export", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExport_Workbook(t *testing.T) {
	env := newTestEnv(t)
	env.add(t, "--patient", "P1", "--care-level", "ALS")
	env.add(t, "--patient", "P2", "--care-level", "BLS")
	path := filepath.Join(env.dir, "reports.xlsx")

	out, err := env.run(t, "export", "--xlsx", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Patient Reports")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSnapshotWrittenAfterChanges(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "--patient", "P1", "--care-level", "ALS")

	data, err := os.ReadFile(filepath.Join(env.dir, "snapshot.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), r.ID)
}

func TestCorruptSnapshotIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	r := env.add(t, "--patient", "P1", "--care-level", "ALS")
	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "snapshot.json"), []byte("garbage"), 0o600))

	out, err := env.run(t, "--format", "json", "list")
	require.NoError(t, err)
	list := decodeData[[]report.PatientReport](t, out)
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)
}

func TestMemoryDriverOverride(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "--driver", "memory", "add", "--patient", "P1", "--care-level", "ALS")
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(env.dir, "epcr.db"))
	assert.True(t, os.IsNotExist(statErr), "memory driver does not touch the sqlite file")
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.configPath, []byte("storage:\n  driver: floppy\n"), 0o600))

	out, err := env.run(t, "--format", "json", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeConfig, decodeError(t, out).Code)
}

func TestDefaultEncryptionKeyIsReported(t *testing.T) {
	env := newTestEnv(t)
	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	cfg := strings.Replace(string(data), "level: error", "level: warn", 1)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))

	_, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, env.stderr, "level=WARN")
	assert.Contains(t, env.stderr, "encryption_key is not set")

	cfg += "auth:\n  encryption_key: 3f9c1e7a\n"
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))

	_, err = env.run(t, "list")
	require.NoError(t, err)
	assert.NotContains(t, env.stderr, "encryption_key")
}
