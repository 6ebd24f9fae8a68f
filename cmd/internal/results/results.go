// Package results reads CSV and Parquet result files back into rows.
package results

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/hangxie/building-angles/angles"
	pio "github.com/hangxie/building-angles/io"
)

const readPageSize = 1000

// Option includes options to locate and decode a result file
type Option struct {
	pio.ReadOption
	Format string `help:"Result file format (auto/csv/parquet), auto picks Parquet for .parquet files." enum:"auto,csv,parquet" default:"auto"`
}

// Read calls fn for every row of the result at uri
func Read(uri string, option Option, fn func(angles.Row) error) error {
	parquetFormat := option.Format == "parquet"
	if option.Format == "" || option.Format == "auto" {
		ext, err := pio.Ext(uri)
		if err != nil {
			return err
		}
		parquetFormat = ext == ".parquet"
	}

	if parquetFormat {
		return readParquet(uri, option.ReadOption, fn)
	}
	return readCSV(uri, option.ReadOption, fn)
}

func readCSV(uri string, option pio.ReadOption, fn func(angles.Row) error) error {
	fileReader, err := pio.NewFileReader(uri, option)
	if err != nil {
		return err
	}
	defer func() {
		_ = fileReader.Close()
	}()

	if err := angles.ReadCSV(bufio.NewReader(fileReader), fn); err != nil {
		return fmt.Errorf("failed to read [%s]: %w", uri, err)
	}
	return nil
}

func readParquet(uri string, option pio.ReadOption, fn func(angles.Row) error) error {
	reader, err := pio.NewParquetFileReader(uri, option)
	if err != nil {
		return err
	}
	defer func() {
		_ = reader.PFile.Close()
	}()

	for {
		rows, err := reader.ReadByNumber(readPageSize)
		if err != nil {
			return fmt.Errorf("failed to read [%s]: %w", uri, err)
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			// rows come back as generated structs, JSON maps them onto Row by column name
			buf, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("failed to decode row of [%s]: %w", uri, err)
			}
			var r angles.Row
			if err := json.Unmarshal(buf, &r); err != nil {
				return fmt.Errorf("failed to decode row of [%s]: %w", uri, err)
			}
			if err := fn(r); err != nil {
				return err
			}
		}
	}
}
