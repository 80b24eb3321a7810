// Package plot renders the mean squared displacement against time, either as
// a terminal chart or as an image file.
package plot

import (
	"fmt"
	"image/color"
	"io"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const caption = "MSD vs time"

// Terminal writes an ASCII chart of msd to w.
func Terminal(w io.Writer, msd, times []float64) error {
	if len(msd) == 0 {
		return fmt.Errorf("no data to plot")
	}

	c := caption
	if len(times) == len(msd) && len(times) > 0 {
		c = fmt.Sprintf("%s (t = %g .. %g)", caption, times[0], times[len(times)-1])
	}

	graph := asciigraph.Plot(msd,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(c),
	)
	_, err := fmt.Fprintln(w, graph)
	return err
}

// File saves a line and marker chart of msd into path. The format is given by
// the extension of path (png, svg, pdf, ...).
func File(path string, msd, times []float64) error {
	if len(msd) == 0 {
		return fmt.Errorf("no data to plot")
	}
	if len(msd) != len(times) {
		return fmt.Errorf("%d msd values for %d times", len(msd), len(times))
	}

	pts := make(plotter.XYs, len(msd))
	for i := range msd {
		pts[i].X = times[i]
		pts[i].Y = msd[i]
	}

	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = caption
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "MSD"
	p.Add(plotter.NewGrid())

	l, s, err := plotter.NewLinePoints(pts)
	if err != nil {
		return err
	}
	l.Color = color.RGBA{B: 255, A: 255}
	s.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	p.Add(l, s)

	return p.Save(5*vg.Inch, 4*vg.Inch, path)
}
