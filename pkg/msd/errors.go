package msd

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTrajectory is returned when there is no frame to work on.
	ErrEmptyTrajectory = errors.New("msd: empty trajectory")

	// ErrInconsistentFrameShape is wrapped by FrameShapeError.
	ErrInconsistentFrameShape = errors.New("msd: inconsistent frame shape")
)

// FrameShapeError reports the first frame whose particle count differs from
// the one of frame 0.
type FrameShapeError struct {
	Frame int
	Want  int
	Got   int
}

func (e *FrameShapeError) Error() string {
	return fmt.Sprintf("%v: frame %d has %d particles, expected %d", ErrInconsistentFrameShape, e.Frame, e.Got, e.Want)
}

func (e *FrameShapeError) Unwrap() error {
	return ErrInconsistentFrameShape
}
