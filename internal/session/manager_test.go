package session

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/rollcall/internal/attendance"
	"github.com/kozaktomas/rollcall/internal/database/mock"
)

func TestManager(t *testing.T) {
	m := NewManager()
	ledger := attendance.NewLedger(mock.NewMockLedgerStorage())

	fv := &fakeVision{}
	first := New("CS101", newFakeSource(1), fakeBuilder{registry: aliceRegistry}, fv, fv, ledger, Options{Clock: func() time.Time { return t0 }})
	second := New("MATH200", newFakeSource(1), fakeBuilder{registry: aliceRegistry}, fv, fv, ledger, Options{Clock: func() time.Time { return t0.Add(time.Minute) }})

	untrackFirst := m.Track(first)
	untrackSecond := m.Track(second)

	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	if infos[0].Group != "CS101" || infos[1].Group != "MATH200" {
		t.Errorf("expected sessions ordered by start, got %+v", infos)
	}
	if infos[0].State != "initializing" {
		t.Errorf("expected initializing, got %s", infos[0].State)
	}

	collect(context.Background(), first)
	if got := m.List()[0]; got.State != "terminated" || got.Stats.Frames != 1 {
		t.Errorf("expected terminated session with 1 frame, got %+v", got)
	}

	untrackFirst()
	untrackSecond()
	if m.Len() != 0 {
		t.Errorf("expected no sessions, got %d", m.Len())
	}
}
