// Package cassandra keeps attendance ledgers in Cassandra, relying on
// lightweight transactions for first-write-wins inserts.
package cassandra

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/gocql/gocql"
	"github.com/kozaktomas/rollcall/internal/config"
	"github.com/kozaktomas/rollcall/internal/database"
)

var keyspaceName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)

// Store is a Cassandra-backed database.LedgerStorage
type Store struct {
	session *gocql.Session
}

func newCluster(hosts []string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.SerialConsistency = gocql.Serial
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	return cluster
}

// Connect creates the keyspace and table if needed and opens a session
func Connect(ctx context.Context, cfg *config.CassandraConfig) (*Store, error) {
	if !keyspaceName.MatchString(cfg.Keyspace) {
		return nil, fmt.Errorf("invalid keyspace name %q", cfg.Keyspace)
	}

	bootstrap, err := newCluster(cfg.Hosts).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}
	err = bootstrap.Query(fmt.Sprintf(`CREATE KEYSPACE IF NOT EXISTS %s
		WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`, cfg.Keyspace)).
		WithContext(ctx).Exec()
	bootstrap.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create keyspace: %w", err)
	}

	cluster := newCluster(cfg.Hosts)
	cluster.Keyspace = cfg.Keyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Cassandra: %w", err)
	}

	s := &Store{session: session}
	if err := s.migrate(ctx); err != nil {
		session.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS attendance (
		group_name  text,
		label       text,
		recorded_at timestamp,
		seq         timeuuid,
		PRIMARY KEY ((group_name), label)
	)`
	if err := s.session.Query(query).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create attendance table: %w", err)
	}
	return nil
}

// ListLabels returns the labels recorded for a group
func (s *Store) ListLabels(ctx context.Context, group string) (map[string]struct{}, error) {
	iter := s.session.Query(`SELECT label FROM attendance WHERE group_name = ?`, group).WithContext(ctx).Iter()

	labels := make(map[string]struct{})
	var label string
	for iter.Scan(&label) {
		labels[label] = struct{}{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error listing labels: %w", err)
	}
	return labels, nil
}

// Append stores a record. A label already present keeps its first timestamp.
func (s *Store) Append(ctx context.Context, rec database.AttendanceRecord) error {
	_, err := s.AppendIfAbsent(ctx, rec)
	return err
}

// AppendIfAbsent inserts rec with IF NOT EXISTS and reports whether it was applied
func (s *Store) AppendIfAbsent(ctx context.Context, rec database.AttendanceRecord) (bool, error) {
	query := `INSERT INTO attendance (group_name, label, recorded_at, seq)
	          VALUES (?, ?, ?, ?) IF NOT EXISTS`

	applied, err := s.session.Query(query, rec.Group, rec.Label, rec.RecordedAt, gocql.TimeUUID()).
		WithContext(ctx).
		MapScanCAS(map[string]any{})
	if err != nil {
		return false, fmt.Errorf("failed to insert attendance: %w", err)
	}
	return applied, nil
}

// Records returns the group's records in insertion order
func (s *Store) Records(ctx context.Context, group string) ([]database.AttendanceRecord, error) {
	iter := s.session.Query(`SELECT label, recorded_at, seq FROM attendance WHERE group_name = ?`, group).
		WithContext(ctx).Iter()

	type row struct {
		rec database.AttendanceRecord
		seq gocql.UUID
	}
	var rows []row
	var r row
	for iter.Scan(&r.rec.Label, &r.rec.RecordedAt, &r.seq) {
		r.rec.Group = group
		r.rec.RecordedAt = r.rec.RecordedAt.Local()
		rows = append(rows, r)
		r = row{}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("error fetching attendance: %w", err)
	}

	// Partition rows come back ordered by label; the timeuuid restores arrival order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].seq.Time().Before(rows[j].seq.Time())
	})

	records := make([]database.AttendanceRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].rec
	}
	return records, nil
}

// Close closes the Cassandra session
func (s *Store) Close() error {
	s.session.Close()
	return nil
}
