package msd

import (
	"bufio"
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

// Frame is the set of xyz coordinates of every particle at one timestep. The
// index of a particle must be the same in every frame.
type Frame [][3]float64

// Trajectory is a rectangular buffer of frames. It can only be built through
// NewTrajectory, which checks that every frame holds the same number of
// particles.
type Trajectory struct {
	frames    int
	particles int

	xyz []float64 // frames*particles*3, row-major
}

// NewTrajectory copies frames into a fixed-shape buffer. It returns a
// *FrameShapeError if a frame does not have the particle count of frame 0.
func NewTrajectory(frames []Frame) (*Trajectory, error) {
	t := &Trajectory{frames: len(frames)}
	if len(frames) == 0 {
		return t, nil
	}

	t.particles = len(frames[0])
	for i, f := range frames {
		if len(f) != t.particles {
			return nil, &FrameShapeError{Frame: i, Want: t.particles, Got: len(f)}
		}
	}

	t.xyz = make([]float64, 0, t.frames*t.particles*3)
	for _, f := range frames {
		for _, p := range f {
			t.xyz = append(t.xyz, p[0], p[1], p[2])
		}
	}

	return t, nil
}

// Frames returns the number of frames.
func (t *Trajectory) Frames() int { return t.frames }

// Particles returns the number of particles per frame.
func (t *Trajectory) Particles() int { return t.particles }

// At returns the position of particle i in frame f.
func (t *Trajectory) At(f, i int) [3]float64 {
	o := (f*t.particles + i) * 3
	return [3]float64{t.xyz[o], t.xyz[o+1], t.xyz[o+2]}
}

// Frame returns a copy of frame f.
func (t *Trajectory) Frame(f int) Frame {
	fr := make(Frame, t.particles)
	for i := range fr {
		fr[i] = t.At(f, i)
	}
	return fr
}

// Compute performs the mean squared displacement of every frame with respect
// to the first one. MSD[0] is always 0.
func Compute(t *Trajectory) ([]float64, error) {
	if t == nil || t.frames == 0 {
		return nil, ErrEmptyTrajectory
	}
	if t.particles == 0 {
		return nil, fmt.Errorf("%w: frames hold no particle", ErrEmptyTrajectory)
	}

	res := make([]float64, t.frames)
	sq := make([]float64, t.particles)
	ref := t.xyz[:t.particles*3]

	for f := 1; f < t.frames; f++ {
		cur := t.xyz[f*t.particles*3 : (f+1)*t.particles*3]
		for i := 0; i < t.particles; i++ {
			var d2 float64
			for k := 0; k < 3; k++ {
				d := cur[i*3+k] - ref[i*3+k]
				d2 += d * d
			}
			sq[i] = d2
		}
		res[f] = stat.Mean(sq, nil)
	}

	return res, nil
}

// Write writes the mean squared displacement next to its time, one frame per
// line.
func Write(w io.Writer, msd, times []float64) error {
	if len(msd) != len(times) {
		return fmt.Errorf("msd: %d values for %d times", len(msd), len(times))
	}

	bw := bufio.NewWriter(w)
	for i := range msd {
		if _, err := fmt.Fprintln(bw, times[i], msd[i]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
