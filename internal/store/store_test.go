package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Add(ctx, createTestReport("a", 1000)))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, ok, err := s2.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, createTestReport("a", 1000), got)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
		"idx_reports_patient_id",
	).Scan(&name)
	assert.NoError(t, err, "index missing after idempotent opens")
}

func TestOpen_MigratesUnversionedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO reports (id, timestamp, patient_id, care_level) VALUES ('old', 1, 'P1', 'ALS')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.pragma("user_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	var name string
	require.NoError(t, s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_reports_patient_id'",
	).Scan(&name))

	r, found, err := s.Get(context.Background(), "old")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "P1", r.PatientID)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &SQLite{db: nil}
	assert.NoError(t, s.Close())
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestSQLite(t)

	for name, want := range map[string]string{
		"journal_mode": "wal",
		"busy_timeout": "5000",
		"user_version": fmt.Sprint(len(migrations)),
	} {
		got, err := s.pragma(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestSQLite_ClosedDatabaseIsStorageError(t *testing.T) {
	s := createTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Close())

	err := s.Add(ctx, createTestReport("a", 1000))
	assert.True(t, IsStorageError(err))

	_, err = s.GetAll(ctx)
	assert.True(t, IsStorageError(err))

	_, _, err = s.Get(ctx, "a")
	assert.True(t, IsStorageError(err))

	assert.True(t, IsStorageError(s.Put(ctx, createTestReport("a", 1000))))
	assert.True(t, IsStorageError(s.Delete(ctx, "a")))
}

func TestSQLite_CorruptClinicalInfoIsStorageError(t *testing.T) {
	s := createTestSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, createTestReport("a", 1000)))

	_, err := s.db.Exec(`UPDATE reports SET clinical_info = '{not json' WHERE id = 'a'`)
	require.NoError(t, err)

	_, err = s.GetAll(ctx)
	assert.True(t, IsStorageError(err))
}

func TestStorageError_Format(t *testing.T) {
	cause := errors.New("disk full")

	withID := &StorageError{Op: "put", ID: "r1", Err: cause}
	assert.Equal(t, "storage: put reports/r1: disk full", withID.Error())
	assert.ErrorIs(t, withID, cause)

	collection := &StorageError{Op: "getAll", Err: cause}
	assert.Equal(t, "storage: getAll reports: disk full", collection.Error())

	assert.False(t, IsStorageError(cause))
}
