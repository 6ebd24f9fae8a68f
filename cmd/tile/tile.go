package tile

import (
	"encoding/json"
	"fmt"

	"github.com/hangxie/building-angles/angles"
	"github.com/hangxie/building-angles/cmd/internal/results"
	pio "github.com/hangxie/building-angles/io"
	"github.com/hangxie/building-angles/render"
)

// Cmd is a kong command for tile
type Cmd struct {
	results.Option
	JSON bool   `short:"j" help:"Output in JSON format." default:"false"`
	PNG  string `help:"Also render the tile as a polar plot PNG to this URI." default:""`
	URI  string `arg:"" predictor:"file" help:"URI of result file."`
	Zoom int32  `arg:"" help:"Zoom level."`
	X    int64  `arg:"" help:"Tile column."`
	Y    int64  `arg:"" help:"Tile row, counted from the north."`
}

// Run does actual tile job
func (c Cmd) Run() error {
	summary, err := c.query()
	if err != nil {
		return err
	}

	if c.PNG != "" {
		if err := writePNG(c.PNG, summary); err != nil {
			return err
		}
	}

	if c.JSON {
		buf, _ := json.Marshal(summary)
		fmt.Println(string(buf))
		return nil
	}

	fmt.Printf("total %d\n", summary.Total)
	for _, a := range summary.Angles {
		fmt.Printf("%d %d\n", a.Angle, a.Count)
	}
	return nil
}

func (c Cmd) query() (angles.Summary, error) {
	key := angles.TileKey{Zoom: c.Zoom, X: c.X, Y: c.Y}
	idx := angles.NewIndex()
	err := results.Read(c.URI, c.Option, func(row angles.Row) error {
		if row.Zoom != key.Zoom || row.X != key.X || row.Y != key.Y {
			return nil
		}
		return idx.Add(row)
	})
	if err != nil {
		return angles.Summary{}, err
	}
	return idx.Summary(key), nil
}

func writePNG(uri string, summary angles.Summary) error {
	r, err := render.NewRenderer()
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close()
	}()

	fileWriter, err := pio.NewFileWriter(uri)
	if err != nil {
		return err
	}
	if err := r.WritePNG(fileWriter, summary); err != nil {
		_ = pio.CloseWriter(fileWriter)
		return fmt.Errorf("failed to write [%s]: %w", uri, err)
	}
	return pio.CloseWriter(fileWriter)
}
