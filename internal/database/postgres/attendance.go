package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/rollcall/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage.
// The (group_name, label) unique constraint makes AppendIfAbsent safe across processes.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// ListLabels returns the labels recorded for a group
func (r *AttendanceRepository) ListLabels(ctx context.Context, group string) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx, "SELECT label FROM attendance WHERE group_name = $1", group)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[string]struct{})
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels[label] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return labels, nil
}

// Append stores a record. A duplicate (group, label) is silently ignored.
func (r *AttendanceRepository) Append(ctx context.Context, rec database.AttendanceRecord) error {
	_, err := r.AppendIfAbsent(ctx, rec)
	return err
}

// AppendIfAbsent inserts rec unless the label is already recorded for the group
func (r *AttendanceRepository) AppendIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	query := `
		INSERT INTO attendance (group_name, label, recorded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_name, label) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query, rec.Group, rec.Label, rec.RecordedAt)
	if err != nil {
		return false, fmt.Errorf("insert attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert attendance rows affected: %w", err)
	}
	return n == 1, nil
}

// Records returns the group's records in insertion order
func (r *AttendanceRepository) Records(ctx context.Context, group string) ([]database.AttendanceRecord, error) {
	query := `
		SELECT group_name, label, recorded_at
		FROM attendance
		WHERE group_name = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, group)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.AttendanceRecord
	for rows.Next() {
		var rec database.AttendanceRecord
		if err := rows.Scan(&rec.Group, &rec.Label, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		rec.RecordedAt = rec.RecordedAt.Local()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}
