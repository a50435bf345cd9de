// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Web constants
const (
	// EventChannelBuffer is the buffer size of SSE listener channels
	EventChannelBuffer = 100

	// MaxUploadSize limits multipart uploads to the recognize endpoint
	MaxUploadSize = 32 << 20

	// JPEGQuality is used for rendered result images
	JPEGQuality = 90

	// SSEHeartbeatInterval is how often an idle event stream sends a comment line
	SSEHeartbeatInterval = 15 * time.Second
)

// Matching constants
const (
	// DefaultNearestLimit is the number of reference faces listed by nearest
	DefaultNearestLimit = 5

	// DefaultPalettePreview is how many slots the palette preview shows
	DefaultPalettePreview = 12

	// DefaultRunHistory is the number of training runs listed by default
	DefaultRunHistory = 10
)
