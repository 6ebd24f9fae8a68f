package render

import (
	"bytes"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hangxie/building-angles/angles"
)

func opaquePixels(t *testing.T, buf []byte) int {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(buf))
	require.NoError(t, err)
	require.Equal(t, Size, img.Bounds().Dx())
	require.Equal(t, Size, img.Bounds().Dy())

	var n int
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0 {
				n++
			}
		}
	}
	return n
}

func TestWritePNG(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	testCases := map[string]struct {
		summary angles.Summary
		opaque  bool
	}{
		"histogram": {
			angles.Summary{Zoom: 1, X: 1, Y: 0, Total: 10, Angles: []angles.AngleCount{{45, 1}, {90, 7}, {135, 2}}},
			true,
		},
		"single-angle": {
			angles.Summary{Zoom: 18, X: 139753, Y: 108228, Total: 4, Angles: []angles.AngleCount{{90, 4}}},
			true,
		},
		"empty": {
			angles.Summary{Zoom: 5, X: 1, Y: 1, Angles: []angles.AngleCount{}},
			false,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			require.NoError(t, r.WritePNG(&buf, tc.summary))
			n := opaquePixels(t, buf.Bytes())
			if tc.opaque {
				require.Positive(t, n)
			} else {
				require.Zero(t, n)
			}
		})
	}
}

func TestDrawPlotsPeak(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	dc, err := r.Draw(angles.Summary{Total: 4, Angles: []angles.AngleCount{{90, 4}}})
	require.NoError(t, err)
	defer func() {
		_ = dc.Close()
	}()

	// the peak of a 90 degree histogram sits straight above the centre on the outer ring
	x, y := polarPoint(90, plotRadius)
	_, _, _, a := dc.Image().At(int(math.Round(x)), int(math.Round(y))).RGBA()
	require.NotZero(t, a)
}

func TestCaption(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	defer func() {
		_ = r.Close()
	}()

	require.Equal(t, "3/4/5 Total: 1,234,567", r.Caption(angles.Summary{Zoom: 3, X: 4, Y: 5, Total: 1234567}))
	require.Equal(t, "18/139753/108228 Total: 4", r.Caption(angles.Summary{Zoom: 18, X: 139753, Y: 108228, Total: 4}))
}

func TestPolarPoint(t *testing.T) {
	testCases := map[string]struct {
		deg, radius float64
		x, y        float64
	}{
		"east":   {0, 10, plotCenterX + 10, plotCenterY},
		"north":  {90, 10, plotCenterX, plotCenterY - 10},
		"west":   {180, 10, plotCenterX - 10, plotCenterY},
		"centre": {45, 0, plotCenterX, plotCenterY},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			x, y := polarPoint(tc.deg, tc.radius)
			require.InDelta(t, tc.x, x, 1e-9)
			require.InDelta(t, tc.y, y, 1e-9)
		})
	}
}
