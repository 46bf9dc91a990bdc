package attendance

import (
	"sync"

	"github.com/kozaktomas/rollcall/internal/constants"
	"github.com/kozaktomas/rollcall/internal/database"
)

// broadcaster fans newly recorded attendance out to per-group listeners.
type broadcaster struct {
	mu        sync.RWMutex
	listeners map[string][]chan database.AttendanceRecord
}

func (b *broadcaster) add(group string) chan database.AttendanceRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[string][]chan database.AttendanceRecord)
	}
	ch := make(chan database.AttendanceRecord, constants.EventChannelBuffer)
	b.listeners[group] = append(b.listeners[group], ch)
	return ch
}

func (b *broadcaster) remove(group string, ch chan database.AttendanceRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.listeners[group]
	for i, listener := range list {
		if listener == ch {
			b.listeners[group] = append(list[:i], list[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *broadcaster) send(rec database.AttendanceRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners[rec.Group] {
		select {
		case listener <- rec:
		default:
			// Listener buffer full, skip.
		}
	}
}
