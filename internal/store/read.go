package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/epcr/internal/report"
)

const selectReport = `
	SELECT id, timestamp, patient_id, care_level, staff_id, clinical_info
	FROM reports
`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (report.PatientReport, error) {
	var (
		r     report.PatientReport
		level string
		info  string
	)
	if err := row.Scan(&r.ID, &r.Timestamp, &r.PatientID, &level, &r.StaffID, &info); err != nil {
		return r, err
	}
	r.CareLevel = report.CareLevel(level)

	ci, err := unmarshalClinicalInfo(info)
	if err != nil {
		return r, fmt.Errorf("report %s: %w", r.ID, err)
	}
	r.ClinicalInfo = ci
	return r, nil
}

// Get returns the report with the given id.
func (s *SQLite) Get(ctx context.Context, id string) (report.PatientReport, bool, error) {
	row := s.db.QueryRowContext(ctx, selectReport+`WHERE id = ?`, id)

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return report.PatientReport{}, false, nil
	}
	if err != nil {
		return report.PatientReport{}, false, storageErr("get", id, err)
	}
	return r, true, nil
}

// GetAll returns every report in insertion order.
func (s *SQLite) GetAll(ctx context.Context) ([]report.PatientReport, error) {
	rows, err := s.db.QueryContext(ctx, selectReport+`ORDER BY seq ASC`)
	if err != nil {
		return nil, storageErr("getAll", "", err)
	}
	defer rows.Close()

	reports := []report.PatientReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, storageErr("getAll", "", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("getAll", "", err)
	}
	return reports, nil
}
