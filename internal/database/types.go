package database

import (
	"time"

	"github.com/kozaktomas/rollcall/internal/constants"
)

// AttendanceRecord is the first sighting of a person in a group.
type AttendanceRecord struct {
	Group      string
	Label      string
	RecordedAt time.Time
}

// Timestamp formats RecordedAt the way exports show it (second resolution, local time).
func (r AttendanceRecord) Timestamp() string {
	return r.RecordedAt.Format(constants.TimestampLayout)
}

// ParseTimestamp parses a timestamp produced by Timestamp in the local zone.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(constants.TimestampLayout, s, time.Local)
}

// CachedEmbedding is a reference embedding keyed by the content hash of its source image.
type CachedEmbedding struct {
	ContentHash string
	Model       string
	Embedding   []float32
	CreatedAt   time.Time
}
