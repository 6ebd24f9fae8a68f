package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/google/uuid"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"

	"github.com/hangxie/building-angles/angles"
	"github.com/hangxie/building-angles/coordstore"
	"github.com/hangxie/building-angles/corpus"
	"github.com/hangxie/building-angles/extract"
	"github.com/hangxie/building-angles/geo"
	"github.com/hangxie/building-angles/internal/logger"
	"github.com/hangxie/building-angles/internal/metrics"
	pio "github.com/hangxie/building-angles/io"
)

const (
	coordsFile    = "coords.bin"
	buildingsFile = "buildings.zst"

	formatAuto    = "auto"
	formatCSV     = "csv"
	formatParquet = "parquet"
	formatPBF     = "pbf"
	formatXML     = "xml"

	rowBuffer = 1024
)

// Cmd is a kong command for run
type Cmd struct {
	pio.ReadOption
	pio.WriteOption
	InputFormat string `help:"Input format (auto/pbf/xml), auto picks XML for .osm and .xml files." enum:"auto,pbf,xml" default:"auto"`
	Format      string `help:"Output format (auto/csv/parquet), auto picks Parquet for .parquet files." enum:"auto,csv,parquet" default:"auto"`
	WorkDir     string `help:"Directory for intermediate files, default to OS temp directory." env:"BUILDING_ANGLES_WORK_DIR" default:""`
	KeepWorkDir bool   `help:"Keep intermediate files after the run." default:"false"`
	MetricsFile string `help:"Write run metrics in Prometheus text format to this file." env:"BUILDING_ANGLES_METRICS_FILE" default:""`
	Input       string `arg:"" predictor:"file" help:"URI of OSM input (.osm.pbf or .osm)."`
	Output      string `arg:"" predictor:"file" help:"URI of result file."`
}

type scanner interface {
	extract.Scanner
	Close() error
}

// Run does actual run job
func (c Cmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx)
}

func (c Cmd) run(ctx context.Context) (err error) {
	log := logger.L()
	inputFormat, err := c.inputFormat()
	if err != nil {
		return err
	}
	outputFormat, err := c.outputFormat()
	if err != nil {
		return err
	}

	workDir, err := c.createWorkDir()
	if err != nil {
		return err
	}
	defer func() {
		if c.KeepWorkDir {
			log.Info("work_dir_kept", "path", workDir)
			return
		}
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("work_dir_cleanup_failed", "path", workDir, "error", err)
		}
	}()
	log.Info("run_start", "input", c.Input, "input_format", inputFormat, "output", c.Output, "format", outputFormat, "work_dir", workDir)

	m := metrics.New()
	coords, err := coordstore.Create(filepath.Join(workDir, coordsFile), coordstore.Option{})
	if err != nil {
		return err
	}
	defer closeJoin(&err, coords)

	corpusPath := filepath.Join(workDir, buildingsFile)
	extracted, err := c.extract(ctx, inputFormat, coords, corpusPath)
	if err != nil {
		return err
	}
	m.Nodes.Add(float64(extracted.Nodes))
	m.Ways.Add(float64(extracted.Ways))
	m.Buildings.Add(float64(extracted.Buildings))
	m.SkippedBuildings.Add(float64(extracted.SkippedBuildings))
	if err := coords.Flush(); err != nil {
		return err
	}

	hist, aggregated, err := aggregate(ctx, corpusPath, coords)
	if err != nil {
		return err
	}
	m.Corners.Add(float64(aggregated.Corners))
	m.DegenerateCorners.Add(float64(aggregated.DegenerateCorners))

	if err := c.write(ctx, outputFormat, hist, m); err != nil {
		return err
	}
	log.Info("run_done", "output", c.Output, "buildings", extracted.Buildings, "corners", aggregated.Corners)

	if c.MetricsFile != "" {
		return m.WriteTextfile(c.MetricsFile)
	}
	return nil
}

// closeJoin closes c and adds its error to *err
func closeJoin(err *error, c io.Closer) {
	*err = errors.Join(*err, c.Close())
}

func (c Cmd) inputFormat() (string, error) {
	if c.InputFormat != formatAuto {
		return c.InputFormat, nil
	}
	ext, err := pio.Ext(c.Input)
	if err != nil {
		return "", err
	}
	switch ext {
	case ".osm", ".xml", ".osm.xml":
		return formatXML, nil
	}
	return formatPBF, nil
}

func (c Cmd) outputFormat() (string, error) {
	if c.Format != formatAuto {
		return c.Format, nil
	}
	ext, err := pio.Ext(c.Output)
	if err != nil {
		return "", err
	}
	if ext == ".parquet" {
		return formatParquet, nil
	}
	return formatCSV, nil
}

func (c Cmd) createWorkDir() (string, error) {
	base := c.WorkDir
	if base == "" {
		base = os.TempDir()
	}
	workDir := filepath.Join(base, "building-angles-"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work directory [%s]: %w", workDir, err)
	}
	return workDir, nil
}

func newScanner(ctx context.Context, format string, r io.Reader) scanner {
	if format == formatXML {
		return osmxml.New(ctx, r)
	}
	s := osmpbf.New(ctx, r, runtime.NumCPU())
	s.SkipRelations = true
	return s
}

func (c Cmd) extract(ctx context.Context, format string, coords *coordstore.Store, corpusPath string) (extract.Stats, error) {
	fileReader, err := pio.NewFileReader(c.Input, c.ReadOption)
	if err != nil {
		return extract.Stats{}, err
	}
	defer func() {
		_ = fileReader.Close()
	}()

	buildings, err := corpus.Create(corpusPath)
	if err != nil {
		return extract.Stats{}, err
	}

	s := newScanner(ctx, format, bufio.NewReaderSize(fileReader, 1<<20))
	stats, err := extract.New(coords, buildings).Run(ctx, s)
	return stats, errors.Join(err, s.Close(), buildings.Close())
}

func aggregate(ctx context.Context, corpusPath string, coords *coordstore.Store) (*angles.Histogram, angles.Stats, error) {
	src, err := corpus.Open(corpusPath)
	if err != nil {
		return nil, angles.Stats{}, err
	}
	defer func() {
		_ = src.Close()
	}()
	return angles.Aggregate(ctx, src, coords, geo.MaxZoom)
}

type rowWriter struct {
	write  func(angles.Row) error
	finish func() error
}

func (c Cmd) newRowWriter(format string) (*rowWriter, error) {
	if format == formatParquet {
		pw, err := pio.NewGenericWriter(c.Output, c.WriteOption, new(angles.Row))
		if err != nil {
			return nil, err
		}
		return &rowWriter{
			write: func(row angles.Row) error {
				return pw.Write(&row)
			},
			finish: func() error {
				if err := pw.WriteStop(); err != nil {
					_ = pio.CloseWriter(pw.PFile)
					return fmt.Errorf("failed to close Parquet writer [%s]: %w", c.Output, err)
				}
				return pio.CloseWriter(pw.PFile)
			},
		}, nil
	}

	fileWriter, err := pio.NewFileWriter(c.Output)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(fileWriter)
	cw := angles.NewCSVWriter(buf)
	return &rowWriter{
		write: cw.Write,
		finish: func() error {
			err := cw.Flush()
			if err == nil {
				err = buf.Flush()
			}
			return errors.Join(err, pio.CloseWriter(fileWriter))
		},
	}, nil
}

func (c Cmd) write(ctx context.Context, format string, hist *angles.Histogram, m *metrics.Metrics) error {
	w, err := c.newRowWriter(format)
	if err != nil {
		return err
	}

	produce := func(ctx context.Context, out chan<- angles.Row) error {
		return angles.Reduce(ctx, hist, func(row angles.Row) error {
			return pio.Send(ctx, out, row)
		})
	}
	write := func(row angles.Row) error {
		m.ObserveRow(row.Zoom, row.Count)
		return w.write(row)
	}
	if err := pio.RunPipeline(ctx, produce, write, c.Output, rowBuffer); err != nil {
		_ = w.finish()
		return err
	}
	if err := w.finish(); err != nil {
		return fmt.Errorf("failed to close [%s]: %w", c.Output, err)
	}
	return nil
}
