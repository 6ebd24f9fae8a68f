// Package angles turns building rings into per-tile corner angle histograms
// and folds them through the zoom pyramid.
package angles

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/paulmach/orb/maptile"
)

// Header is the first line of a CSV result file
var Header = []string{"zoom", "x", "y", "angle", "count"}

// Row is one line of the result
type Row struct {
	Zoom  int32 `parquet:"name=zoom, type=INT32" json:"zoom"`
	X     int64 `parquet:"name=x, type=INT64" json:"x"`
	Y     int64 `parquet:"name=y, type=INT64" json:"y"`
	Angle int32 `parquet:"name=angle, type=INT32" json:"angle"`
	Count int64 `parquet:"name=count, type=INT64" json:"count"`
}

func newRow(zoom maptile.Zoom, b Bucket, count uint64) Row {
	return Row{
		Zoom:  int32(zoom),
		X:     int64(b.Tile.X),
		Y:     int64(b.Tile.Y),
		Angle: int32(b.Angle),
		Count: int64(count),
	}
}

// CSVWriter writes rows in CSV with a header line
type CSVWriter struct {
	w             *csv.Writer
	record        []string
	headerWritten bool
}

// NewCSVWriter creates a CSVWriter on top of w
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		w:      csv.NewWriter(w),
		record: make([]string, len(Header)),
	}
}

func (c *CSVWriter) writeHeader() error {
	if c.headerWritten {
		return nil
	}
	c.headerWritten = true
	return c.w.Write(Header)
}

// Write writes one row, the header goes out before the first row
func (c *CSVWriter) Write(row Row) error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	c.record[0] = strconv.FormatInt(int64(row.Zoom), 10)
	c.record[1] = strconv.FormatInt(row.X, 10)
	c.record[2] = strconv.FormatInt(row.Y, 10)
	c.record[3] = strconv.FormatInt(int64(row.Angle), 10)
	c.record[4] = strconv.FormatInt(row.Count, 10)
	return c.w.Write(c.record)
}

// Flush writes the header if no row was written and flushes buffered data
func (c *CSVWriter) Flush() error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

// ReadCSV reads a CSV result and calls fn for every row
func ReadCSV(r io.Reader, fn func(Row) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("missing CSV header")
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range Header {
		if header[i] != Header[i] {
			return fmt.Errorf("unexpected CSV header %v, expect %v", header, Header)
		}
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		row, err := parseRecord(record)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func parseRecord(record []string) (Row, error) {
	var values [5]int64
	for i, field := range record {
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return Row{}, fmt.Errorf("invalid %s [%s]: %w", Header[i], field, err)
		}
		values[i] = v
	}
	return Row{
		Zoom:  int32(values[0]),
		X:     values[1],
		Y:     values[2],
		Angle: int32(values[3]),
		Count: values[4],
	}, nil
}
