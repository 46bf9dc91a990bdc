// Package attendance records the first sighting of each person per group.
package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/rollcall/internal/database"
)

// Ledger is the single write path to attendance storage. All sessions of a
// process share one Ledger so that check-then-append runs under one lock per
// group; storages implementing database.ConditionalAppender additionally make
// the insert atomic across processes.
type Ledger struct {
	storage database.LedgerStorage
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	last  time.Time

	events broadcaster
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, used when Record is called with a zero time.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a ledger over storage.
func NewLedger(storage database.LedgerStorage, opts ...Option) *Ledger {
	l := &Ledger{
		storage: storage,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) groupLock(group string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[group]
	if !ok {
		m = &sync.Mutex{}
		l.locks[group] = m
	}
	return m
}

// stamp truncates at to whole seconds and never returns a time earlier than
// a previously issued stamp.
func (l *Ledger) stamp(at time.Time) time.Time {
	if at.IsZero() {
		at = l.now()
	}
	at = at.Truncate(time.Second)
	l.mu.Lock()
	defer l.mu.Unlock()
	if at.Before(l.last) {
		at = l.last
	}
	l.last = at
	return at
}

// Record inserts (group, label) at time at unless the label is already recorded
// for the group. It returns true when a new record was written. Storage
// failures are returned as *PersistenceError.
func (l *Ledger) Record(ctx context.Context, group, label string, at time.Time) (bool, error) {
	lock := l.groupLock(group)
	lock.Lock()
	defer lock.Unlock()

	rec := database.AttendanceRecord{Group: group, Label: label}

	if ca, ok := l.storage.(database.ConditionalAppender); ok {
		rec.RecordedAt = l.stamp(at)
		added, err := ca.AppendIfAbsent(ctx, rec)
		if err != nil {
			return false, &PersistenceError{Op: "append", Group: group, Label: label, Err: err}
		}
		if added {
			l.events.send(rec)
		}
		return added, nil
	}

	labels, err := l.storage.ListLabels(ctx, group)
	if err != nil {
		return false, &PersistenceError{Op: "list", Group: group, Label: label, Err: err}
	}
	if _, seen := labels[label]; seen {
		return false, nil
	}

	rec.RecordedAt = l.stamp(at)
	if err := l.storage.Append(ctx, rec); err != nil {
		return false, &PersistenceError{Op: "append", Group: group, Label: label, Err: err}
	}
	l.events.send(rec)
	return true, nil
}

// Records returns a group's records in the order they were written.
func (l *Ledger) Records(ctx context.Context, group string) ([]database.AttendanceRecord, error) {
	records, err := l.storage.Records(ctx, group)
	if err != nil {
		return nil, &PersistenceError{Op: "read", Group: group, Err: err}
	}
	return records, nil
}

// Subscribe returns a channel receiving records newly written for group, and
// a function that unsubscribes and closes the channel. Slow subscribers miss
// records rather than delaying writers.
func (l *Ledger) Subscribe(group string) (<-chan database.AttendanceRecord, func()) {
	ch := l.events.add(group)
	return ch, func() { l.events.remove(group, ch) }
}
