package lammpstrj

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/kpotier/lmpdiff/pkg/msd"
)

const (
	itemPrefix    = "ITEM:"
	itemTimestep  = "ITEM: TIMESTEP"
	itemAtoms     = "ITEM: ATOMS"
	minRecordCols = 5
)

// ErrColumnsNotFound is returned when the coordinate columns are looked up in
// the ITEM: ATOMS header and none of the known triples is there.
var ErrColumnsNotFound = errors.New("lammpstrj: cannot find the coordinate columns in the ITEM: ATOMS header")

// Header column triples, by order of preference. Unwrapped coordinates first.
var headerCols = [][3]string{
	{"xu", "yu", "zu"},
	{"x", "y", "z"},
	{"xs", "ys", "zs"},
}

// Stats holds counters filled while decoding a trajectory.
type Stats struct {
	Lines   int
	Records int
	Skipped int // malformed particle records
}

// Option modifies the way a trajectory is decoded.
type Option func(*decoder)

// WithColumns sets the 0-indexed columns holding x, y and z. The default is
// 2, 3 and 4 (id type x y z ...).
func WithColumns(x, y, z int) Option {
	return func(d *decoder) {
		d.cols = [3]int{x, y, z}
	}
}

// WithHeaderColumns resolves the coordinate columns from the ITEM: ATOMS line
// instead of using fixed positions.
func WithHeaderColumns() Option {
	return func(d *decoder) {
		d.header = true
	}
}

// WithStats stores the decoding counters into s.
func WithStats(s *Stats) Option {
	return func(d *decoder) {
		d.stats = s
	}
}

type decoder struct {
	cols   [3]int
	header bool
	stats  *Stats
}

// Read opens the Lammps Trajectory file at path and decodes it. Files ending
// in .gz, .zst or .zstd are decompressed on the fly.
func Read(path string, opts ...Option) (*msd.Trajectory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := decompress(path, f)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	defer r.Close()

	t, err := Decode(r, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode reads a Lammps Trajectory from r. A frame starts at every ITEM:
// TIMESTEP line. Other ITEM lines are skipped, and so are the particle lines
// that have less than 5 fields or non numeric coordinates.
func Decode(r io.Reader, opts ...Option) (*msd.Trajectory, error) {
	d := decoder{cols: [3]int{2, 3, 4}}
	for _, o := range opts {
		o(&d)
	}
	if d.stats == nil {
		d.stats = new(Stats)
	}

	var (
		frames []msd.Frame
		cur    msd.Frame
	)

	br := bufio.NewReader(r)
	for {
		l, err := readLine(br)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if l != "" {
			d.stats.Lines++
			if e := d.line(l, &frames, &cur); e != nil {
				return nil, e
			}
		}
		if err != nil {
			break
		}
	}

	if len(cur) > 0 {
		frames = append(frames, cur)
	}

	return msd.NewTrajectory(frames)
}

func (d *decoder) line(l string, frames *[]msd.Frame, cur *msd.Frame) error {
	switch {
	case strings.HasPrefix(l, itemTimestep):
		if len(*cur) > 0 {
			*frames = append(*frames, *cur)
		}
		*cur = nil
		return nil
	case strings.HasPrefix(l, itemAtoms):
		if d.header {
			return d.resolve(l)
		}
		return nil
	case strings.HasPrefix(l, itemPrefix):
		return nil
	}

	fields := strings.Fields(l)
	if len(fields) == 0 {
		return nil
	}

	xyz, ok := d.parse(fields)
	if !ok {
		d.stats.Skipped++
		return nil
	}
	d.stats.Records++
	*cur = append(*cur, xyz)
	return nil
}

func (d *decoder) parse(fields []string) (xyz [3]float64, ok bool) {
	if len(fields) < minRecordCols {
		return xyz, false
	}

	for k, c := range d.cols {
		if c < 0 || c >= len(fields) {
			return xyz, false
		}
		v, err := parseFloat(fields[c])
		if err != nil {
			return xyz, false
		}
		xyz[k] = v
	}
	return xyz, true
}

// parseFloat parses a decimal coordinate. Hexadecimal floats (0x1p3) are
// refused since Lammps never writes them.
func parseFloat(s string) (float64, error) {
	u := strings.TrimLeft(s, "+-")
	if len(u) > 1 && u[0] == '0' && (u[1] == 'x' || u[1] == 'X') {
		return 0, fmt.Errorf("hexadecimal float %q", s)
	}
	return strconv.ParseFloat(s, 64)
}

// resolve finds the position of the coordinates in the ITEM: ATOMS header.
func (d *decoder) resolve(l string) error {
	fields := strings.Fields(l)
	if len(fields) <= 2 {
		return fmt.Errorf("not enough columns in %q", l)
	}
	fields = fields[2:] // Omission of ITEM: ATOMS

	pos := make(map[string]int, len(fields))
	for k, v := range fields {
		pos[v] = k
	}

	for _, names := range headerCols {
		var cols [3]int
		found := 0
		for k, n := range names {
			if c, ok := pos[n]; ok {
				cols[k] = c
				found++
			}
		}
		if found == 3 {
			d.cols = cols
			return nil
		}
	}

	return ErrColumnsNotFound
}

// decompress wraps f with the decoder matching the extension of path.
func decompress(path string, f io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return gzip.NewReader(f)
	case ".zst", ".zstd":
		z, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		return z.IOReadCloser(), nil
	default:
		return io.NopCloser(f), nil
	}
}

// readLine reads ONE line and returns it without the trailing end of line.
func readLine(r *bufio.Reader) (string, error) {
	l, err := r.ReadString('\n')
	return strings.TrimRight(l, "\r\n"), err
}
