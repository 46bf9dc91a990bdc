// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face matching constants
const (
	// DefaultDistanceThreshold is the maximum Euclidean distance (exclusive) for a
	// face to be identified. Lower values = stricter matching
	DefaultDistanceThreshold = 0.50

	// DefaultDetectionScale is the factor frames are shrunk by before detection.
	// Detected regions are scaled back by 1/DefaultDetectionScale
	DefaultDetectionScale = 0.25

	// IoUThreshold is the minimum Intersection over Union required to treat two
	// detections in consecutive frames as the same face
	IoUThreshold = 0.3

	// DefaultSmoothingWindow is the number of recent results kept per tracked face
	// when majority-vote smoothing is enabled
	DefaultSmoothingWindow = 5
)

// Label constants
const (
	// UnknownLabel is drawn on faces that did not match any reference
	UnknownLabel = "Unknown"
)

// Frame constants
const (
	// DefaultJPEGQuality is the quality used when encoding annotated frames
	DefaultJPEGQuality = 85

	// DefaultCaptureWidth and DefaultCaptureHeight are requested from camera devices
	DefaultCaptureWidth  = 640
	DefaultCaptureHeight = 480

	// LabelBarHeight is the height of the filled bar behind a face label
	LabelBarHeight = 35
)

// Storage constants
const (
	// TimestampLayout is the layout of attendance timestamps in exports
	TimestampLayout = "2006-01-02 15:04:05"

	// AttendanceFilePrefix is prepended to the group name for file-backed ledgers
	AttendanceFilePrefix = "Attendance_"
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for attendance event channels
	EventChannelBuffer = 100
)
