package lammpstrj

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpotier/lmpdiff/pkg/msd"
)

const dump = `ITEM: TIMESTEP
0
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 10
0 10
ITEM: ATOMS id type x y z
1 1 0 0 0
2 1 1 1 1
ITEM: TIMESTEP
1
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 10
0 10
ITEM: ATOMS id type x y z
1 1 1 0 0
2 1 1 1 2
ITEM: TIMESTEP
2
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 10
0 10
ITEM: ATOMS id type x y z
1 1 2 0 0
2 1 1 1 3
`

// dirty is dump with malformed records added between the valid ones.
const dirty = `ITEM: TIMESTEP
0
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 10
0 10
ITEM: ATOMS id type x y z
1 1 0 0 0
garbage
2 1 1 1 1

ITEM: TIMESTEP
1
ITEM: ATOMS id type x y z
1 1 1 0 0
3 1 a b c
4 1 1.0
2 1 1 1 2
ITEM: TIMESTEP
2
ITEM: ATOMS id type x y z
1 1 2 0 0
5 1 nan? 1 1
2 1 1 1 3
`

func frames(t *testing.T, traj *msd.Trajectory) []msd.Frame {
	t.Helper()
	res := make([]msd.Frame, traj.Frames())
	for i := range res {
		res[i] = traj.Frame(i)
	}
	return res
}

func TestDecode(t *testing.T) {
	var st Stats
	traj, err := Decode(strings.NewReader(dump), WithStats(&st))
	require.NoError(t, err)

	require.Equal(t, 3, traj.Frames())
	require.Equal(t, 2, traj.Particles())
	assert.Equal(t, []msd.Frame{
		{{0, 0, 0}, {1, 1, 1}},
		{{1, 0, 0}, {1, 1, 2}},
		{{2, 0, 0}, {1, 1, 3}},
	}, frames(t, traj))
	assert.Equal(t, 6, st.Records)
	assert.Equal(t, 33, st.Lines)
	assert.Equal(t, 15, st.Skipped)
}

func TestDecode_MalformedLines(t *testing.T) {
	clean, err := Decode(strings.NewReader(dump))
	require.NoError(t, err)

	var st Stats
	noisy, err := Decode(strings.NewReader(dirty), WithStats(&st))
	require.NoError(t, err)

	assert.Equal(t, frames(t, clean), frames(t, noisy))
	assert.Equal(t, 6, st.Records)
	assert.Greater(t, st.Skipped, 0)
}

func TestDecode_HexFloat(t *testing.T) {
	in := "ITEM: TIMESTEP\n0\nITEM: ATOMS id type x y z\n1 1 0x1p3 0 0\n2 1 1 -0X2 3\n3 1 1 2 3\n"

	var st Stats
	traj, err := Decode(strings.NewReader(in), WithStats(&st))
	require.NoError(t, err)
	require.Equal(t, 1, traj.Particles())
	assert.Equal(t, [3]float64{1, 2, 3}, traj.At(0, 0))
	assert.Equal(t, 3, st.Skipped) // two hex records and the timestep value
}

func TestDecode_Empty(t *testing.T) {
	traj, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, traj.Frames())
}

func TestDecode_NoTrailingNewline(t *testing.T) {
	traj, err := Decode(strings.NewReader("ITEM: TIMESTEP\n0\nITEM: ATOMS id type x y z\n1 1 1 2 3"))
	require.NoError(t, err)
	require.Equal(t, 1, traj.Frames())
	assert.Equal(t, [3]float64{1, 2, 3}, traj.At(0, 0))
}

func TestDecode_CRLF(t *testing.T) {
	in := strings.ReplaceAll(dump, "\n", "\r\n")
	traj, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, traj.Frames())
	assert.Equal(t, [3]float64{1, 1, 3}, traj.At(2, 1))
}

func TestDecode_ExtraColumns(t *testing.T) {
	in := "ITEM: TIMESTEP\n0\nITEM: ATOMS id type x y z vx vy vz\n1 1 1 2 3 9 9 9\n"
	traj, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, traj.At(0, 0))
}

func TestDecode_InconsistentShape(t *testing.T) {
	in := dump + "ITEM: TIMESTEP\n3\nITEM: ATOMS id type x y z\n1 1 3 0 0\n"
	_, err := Decode(strings.NewReader(in))
	require.Error(t, err)

	var shapeErr *msd.FrameShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Equal(t, 3, shapeErr.Frame)
}

func TestDecode_Columns(t *testing.T) {
	in := "ITEM: TIMESTEP\n0\nITEM: ATOMS id type vx x y z\n1 1 9 1 2 3\n"

	traj, err := Decode(strings.NewReader(in), WithColumns(3, 4, 5))
	require.NoError(t, err)
	assert.Equal(t, [3]float64{1, 2, 3}, traj.At(0, 0))
}

func TestDecode_HeaderColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
		line   string
	}{
		{"unwrapped", "id type x y z xu yu zu", "1 1 0 0 0 1 2 3"},
		{"wrapped", "id mol type z y x", "1 1 1 3 2 1"},
		{"scaled", "id type xs ys zs", "1 1 1 2 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "ITEM: TIMESTEP\n0\nITEM: ATOMS " + tt.header + "\n" + tt.line + "\n"
			traj, err := Decode(strings.NewReader(in), WithHeaderColumns())
			require.NoError(t, err)
			assert.Equal(t, [3]float64{1, 2, 3}, traj.At(0, 0))
		})
	}
}

func TestDecode_HeaderColumnsNotFound(t *testing.T) {
	in := "ITEM: TIMESTEP\n0\nITEM: ATOMS id type vx vy vz\n1 1 1 2 3\n"
	_, err := Decode(strings.NewReader(in), WithHeaderColumns())
	assert.ErrorIs(t, err, ErrColumnsNotFound)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "dump.lammpstrj")
	require.NoError(t, os.WriteFile(plain, []byte(dump), 0644))

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write([]byte(dump))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	gzPath := filepath.Join(dir, "dump.lammpstrj.gz")
	require.NoError(t, os.WriteFile(gzPath, gz.Bytes(), 0644))

	zw, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zst := zw.EncodeAll([]byte(dump), nil)
	require.NoError(t, zw.Close())
	zstPath := filepath.Join(dir, "dump.lammpstrj.zst")
	require.NoError(t, os.WriteFile(zstPath, zst, 0644))

	for _, p := range []string{plain, gzPath, zstPath} {
		t.Run(filepath.Base(p), func(t *testing.T) {
			traj, err := Read(p)
			require.NoError(t, err)
			assert.Equal(t, 3, traj.Frames())
			assert.Equal(t, [3]float64{2, 0, 0}, traj.At(2, 0))
		})
	}
}

func TestRead_NotFound(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.lammpstrj"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRead_BadGzip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "dump.gz")
	require.NoError(t, os.WriteFile(p, []byte(dump), 0644))

	_, err := Read(p)
	assert.Error(t, err)
}
