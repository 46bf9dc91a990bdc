// Package csvfile keeps one attendance file per group, Attendance_<GROUP>.csv,
// with rows of "LABEL,YYYY-MM-DD HH:MM:SS" and no header.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
)

// Store is a file-backed database.LedgerStorage. It does not lock files;
// writers must be serialized per group by the caller.
type Store struct {
	dir string
}

// New returns a store writing into dir, creating it if needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file holding a group's ledger
func (s *Store) Path(group string) (string, error) {
	if group == "" || strings.ContainsAny(group, `/\`) || group == "." || group == ".." {
		return "", fmt.Errorf("invalid group name %q", group)
	}
	return filepath.Join(s.dir, constants.AttendanceFilePrefix+group+".csv"), nil
}

func (s *Store) read(group string) ([][]string, error) {
	path, err := s.Path(group)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger %s: %w", filepath.Base(path), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ListLabels returns the first column of every row
func (s *Store) ListLabels(ctx context.Context, group string) (map[string]struct{}, error) {
	rows, err := s.read(group)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if len(row) > 0 && row[0] != "" {
			labels[row[0]] = struct{}{}
		}
	}
	return labels, nil
}

// Append writes one row and syncs the file
func (s *Store) Append(ctx context.Context, rec database.AttendanceRecord) error {
	path, err := s.Path(rec.Group)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger for append: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{rec.Label, rec.Timestamp()}); err != nil {
		f.Close()
		return fmt.Errorf("write ledger row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush ledger row: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}
	return nil
}

// Records parses all rows of a group's file. Rows without a valid timestamp
// are returned with a zero RecordedAt.
func (s *Store) Records(ctx context.Context, group string) ([]database.AttendanceRecord, error) {
	rows, err := s.read(group)
	if err != nil {
		return nil, err
	}
	records := make([]database.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		rec := database.AttendanceRecord{Group: group, Label: row[0]}
		if len(row) > 1 {
			if t, err := database.ParseTimestamp(row[1]); err == nil {
				rec.RecordedAt = t
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
