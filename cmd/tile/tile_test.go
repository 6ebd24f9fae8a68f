package tile

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hangxie/building-angles/cmd/internal/results"
	"github.com/hangxie/building-angles/cmd/internal/testutils"
	"github.com/hangxie/building-angles/render"
)

func TestCmd(t *testing.T) {
	tempDir := t.TempDir()
	csvFile := filepath.Join(tempDir, "angles.csv")
	parquetFile := filepath.Join(tempDir, "angles.parquet")
	csvNoExt := filepath.Join(tempDir, "angles")
	testutils.WriteCSVResult(t, csvFile, testutils.ResultRows)
	testutils.WriteCSVResult(t, csvNoExt, testutils.ResultRows)
	testutils.WriteParquetResult(t, parquetFile, testutils.ResultRows)

	auto := results.Option{Format: "auto"}
	testCases := map[string]struct {
		cmd    Cmd
		stdout string
	}{
		"csv-text":        {Cmd{Option: auto, URI: csvFile, Zoom: 1, X: 1, Y: 0}, "total 10\n45 1\n90 7\n135 2\n"},
		"csv-json":        {Cmd{Option: auto, URI: csvFile, Zoom: 0, X: 0, Y: 0, JSON: true}, `{"zoom":0,"x":0,"y":0,"total":15,"angles":[{"angle":45,"count":1},{"angle":90,"count":12},{"angle":135,"count":2}]}` + "\n"},
		"csv-explicit":    {Cmd{Option: results.Option{Format: "csv"}, URI: csvNoExt, Zoom: 1, X: 1, Y: 1}, "total 5\n90 5\n"},
		"parquet-text":    {Cmd{Option: auto, URI: parquetFile, Zoom: 1, X: 1, Y: 0}, "total 10\n45 1\n90 7\n135 2\n"},
		"parquet-json":    {Cmd{Option: results.Option{Format: "parquet"}, URI: parquetFile, Zoom: 1, X: 1, Y: 1, JSON: true}, `{"zoom":1,"x":1,"y":1,"total":5,"angles":[{"angle":90,"count":5}]}` + "\n"},
		"empty-tile-text": {Cmd{Option: auto, URI: csvFile, Zoom: 5, X: 1, Y: 1}, "total 0\n"},
		"empty-tile-json": {Cmd{Option: auto, URI: parquetFile, Zoom: 5, X: 1, Y: 1, JSON: true}, `{"zoom":5,"x":1,"y":1,"total":0,"angles":[]}` + "\n"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			stdout, stderr := testutils.CaptureStdoutStderr(func() {
				require.NoError(t, tc.cmd.Run())
			})
			require.Equal(t, tc.stdout, stdout)
			require.Equal(t, "", stderr)
		})
	}
}

func TestCmdPNG(t *testing.T) {
	tempDir := t.TempDir()
	csvFile := filepath.Join(tempDir, "angles.csv")
	testutils.WriteCSVResult(t, csvFile, testutils.ResultRows)

	countOpaque := func(t *testing.T, path string) int {
		t.Helper()
		f, err := os.Open(path)
		require.NoError(t, err)
		defer func() {
			_ = f.Close()
		}()
		img, err := png.Decode(f)
		require.NoError(t, err)
		require.Equal(t, render.Size, img.Bounds().Dx())
		require.Equal(t, render.Size, img.Bounds().Dy())
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

	t.Run("with-data", func(t *testing.T) {
		cmd := Cmd{Option: results.Option{Format: "auto"}, URI: csvFile, Zoom: 1, X: 1, Y: 0, PNG: filepath.Join(tempDir, "1-1-0.png")}
		stdout, _ := testutils.CaptureStdoutStderr(func() {
			require.NoError(t, cmd.Run())
		})
		require.Equal(t, "total 10\n45 1\n90 7\n135 2\n", stdout)
		require.Positive(t, countOpaque(t, cmd.PNG))
	})

	t.Run("empty-tile", func(t *testing.T) {
		cmd := Cmd{Option: results.Option{Format: "auto"}, URI: csvFile, Zoom: 7, X: 0, Y: 0, PNG: filepath.Join(tempDir, "7-0-0.png")}
		_, _ = testutils.CaptureStdoutStderr(func() {
			require.NoError(t, cmd.Run())
		})
		require.Zero(t, countOpaque(t, cmd.PNG))
	})

	t.Run("bad-target", func(t *testing.T) {
		cmd := Cmd{Option: results.Option{Format: "auto"}, URI: csvFile, Zoom: 1, X: 1, Y: 0, PNG: "https://domain.tld/tile.png"}
		err := cmd.Run()
		require.Error(t, err)
		require.Contains(t, err.Error(), "not currently supported")
	})
}

func TestCmdError(t *testing.T) {
	tempDir := t.TempDir()
	badCSV := filepath.Join(tempDir, "bad.csv")
	require.NoError(t, os.WriteFile(badCSV, []byte("zoom,x,y,angle,count\n0,0,0,90,many\n"), 0o644))

	testCases := map[string]struct {
		cmd    Cmd
		errMsg string
	}{
		"invalid-uri":   {Cmd{Option: results.Option{Format: "auto"}, URI: "://uri"}, "unable to parse file location"},
		"csv-not-found": {Cmd{Option: results.Option{Format: "csv"}, URI: filepath.Join(tempDir, "missing.csv")}, "no such file or directory"},
		"csv-bad-count": {Cmd{Option: results.Option{Format: "auto"}, URI: badCSV}, "line 2: invalid count [many]"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := tc.cmd.Run()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
