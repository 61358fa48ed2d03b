package store

import (
	"context"

	"github.com/roach88/epcr/internal/report"
)

// Add inserts a new report. The UNIQUE constraint on id makes a duplicate
// fail here rather than being checked beforehand.
func (s *SQLite) Add(ctx context.Context, r report.PatientReport) error {
	info, err := marshalClinicalInfo(r.ClinicalInfo)
	if err != nil {
		return storageErr("add", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports
		(id, timestamp, patient_id, care_level, staff_id, clinical_info)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Timestamp,
		r.PatientID,
		string(r.CareLevel),
		r.StaffID,
		info,
	)
	if err != nil {
		return storageErr("add", r.ID, err)
	}

	return nil
}

// Put inserts or replaces the report with r.ID.
// An existing row keeps its seq, so GetAll order is unchanged by updates.
func (s *SQLite) Put(ctx context.Context, r report.PatientReport) error {
	info, err := marshalClinicalInfo(r.ClinicalInfo)
	if err != nil {
		return storageErr("put", r.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports
		(id, timestamp, patient_id, care_level, staff_id, clinical_info)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			timestamp = excluded.timestamp,
			patient_id = excluded.patient_id,
			care_level = excluded.care_level,
			staff_id = excluded.staff_id,
			clinical_info = excluded.clinical_info
	`,
		r.ID,
		r.Timestamp,
		r.PatientID,
		string(r.CareLevel),
		r.StaffID,
		info,
	)
	if err != nil {
		return storageErr("put", r.ID, err)
	}

	return nil
}

// Delete removes the report if present. Deleting an absent id is not an error.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id); err != nil {
		return storageErr("delete", id, err)
	}
	return nil
}
