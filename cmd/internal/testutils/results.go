package testutils

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hangxie/building-angles/angles"
	pio "github.com/hangxie/building-angles/io"
)

// ResultRows is a small result spanning two zoom levels
var ResultRows = []angles.Row{
	{Zoom: 1, X: 1, Y: 0, Angle: 135, Count: 2},
	{Zoom: 1, X: 1, Y: 0, Angle: 90, Count: 7},
	{Zoom: 1, X: 1, Y: 1, Angle: 90, Count: 5},
	{Zoom: 1, X: 1, Y: 0, Angle: 45, Count: 1},
	{Zoom: 0, X: 0, Y: 0, Angle: 45, Count: 1},
	{Zoom: 0, X: 0, Y: 0, Angle: 90, Count: 12},
	{Zoom: 0, X: 0, Y: 0, Angle: 135, Count: 2},
}

// WriteCSVResult writes rows to path as a CSV result
func WriteCSVResult(t *testing.T, path string, rows []angles.Row) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := angles.NewCSVWriter(f)
	for _, row := range rows {
		require.NoError(t, w.Write(row))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, f.Close())
}

// WriteParquetResult writes rows to path as a Parquet result
func WriteParquetResult(t *testing.T, path string, rows []angles.Row) {
	t.Helper()
	pw, err := pio.NewGenericWriter(path, pio.WriteOption{Compression: "SNAPPY"}, new(angles.Row))
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, pw.Write(&row))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, pio.CloseWriter(pw.PFile))
}
