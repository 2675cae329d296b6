// Package vision holds the frame and detection types exchanged between the
// camera source, the smile detector and the session controller.
package vision

import (
	"errors"
	"time"
)

// ErrNoFrame is returned by a camera stream that has not captured anything yet.
var ErrNoFrame = errors.New("no frame available")

// Frame is one captured image.
type Frame struct {
	// Seq increases monotonically with every new capture of a stream.
	Seq uint64
	// Data is the encoded image.
	Data []byte
	// CapturedAt is when the source produced the image.
	CapturedAt time.Time
}

// IsZero reports whether the frame carries no image.
func (f Frame) IsZero() bool {
	return f.Seq == 0 && len(f.Data) == 0
}

// Detection is the verdict of the smile detector for one frame.
type Detection struct {
	// IsSmiling is the detector's binary verdict.
	IsSmiling bool
	// Confidence is the detector's score, e.g. a lip height to width ratio.
	Confidence float64
	// Annotated is the frame with detector overlays, if any.
	Annotated Frame
}

// Progress normalises confidence against threshold into [0, 1].
func (d Detection) Progress(threshold float64) float64 {
	if threshold <= 0 || d.Confidence <= 0 {
		return 0
	}

	return min(d.Confidence/threshold, 1)
}
