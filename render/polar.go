// Package render draws the angle histogram of a tile as a polar plot image.
package render

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hangxie/building-angles/angles"
)

const (
	// Size is the width and height of a rendered tile in pixels
	Size = 256

	captionSize = 10
	plotCenterX = Size / 2
	plotCenterY = 144
	plotRadius  = 100
	gridRings   = 4
)

// Renderer draws tile summaries, it is safe for concurrent use
type Renderer struct {
	mu      sync.Mutex
	source  *text.FontSource
	face    text.Face
	printer *message.Printer
}

// NewRenderer loads the caption font
func NewRenderer() (*Renderer, error) {
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load caption font: %w", err)
	}
	return &Renderer{
		source:  source,
		face:    source.Face(captionSize),
		printer: message.NewPrinter(language.English),
	}, nil
}

// Close releases the font
func (r *Renderer) Close() error {
	return r.source.Close()
}

// Caption is the text drawn at the top of a tile, the total uses thousands separators
func (r *Renderer) Caption(s angles.Summary) string {
	return fmt.Sprintf("%d/%d/%d Total: %s", s.Zoom, s.X, s.Y, r.printer.Sprintf("%d", s.Total))
}

// Draw renders s onto a new Size x Size context. A tile without corners
// stays fully transparent.
func (r *Renderer) Draw(s angles.Summary) (*gg.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := gg.NewContext(Size, Size)
	dc.ClearWithColor(gg.Transparent)
	if s.Total <= 0 {
		return dc, nil
	}

	dc.SetLineWidth(1)
	dc.SetRGBA(0, 0, 0, 0x44/255.0)
	dc.DrawRectangle(0.5, 0.5, Size-1, Size-1)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}

	dc.SetFont(r.face)
	dc.SetRGB(0, 0, 0)
	dc.DrawString(r.Caption(s), 2, 9+captionSize)

	if err := drawGrid(dc); err != nil {
		return nil, err
	}
	if err := drawHistogram(dc, s.Angles); err != nil {
		return nil, err
	}
	return dc, nil
}

// WritePNG renders s and encodes it as PNG into w
func (r *Renderer) WritePNG(w io.Writer, s angles.Summary) error {
	dc, err := r.Draw(s)
	if err != nil {
		return fmt.Errorf("failed to draw tile %d/%d/%d: %w", s.Zoom, s.X, s.Y, err)
	}
	defer func() {
		_ = dc.Close()
	}()
	return dc.EncodePNG(w)
}

func drawGrid(dc *gg.Context) error {
	dc.SetRGBA(0, 0, 0, 0.25)
	for i := 1; i <= gridRings; i++ {
		dc.DrawCircle(plotCenterX, plotCenterY, plotRadius*float64(i)/gridRings)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	for deg := 0; deg < 360; deg += 45 {
		x, y := polarPoint(float64(deg), plotRadius)
		dc.DrawLine(plotCenterX, plotCenterY, x, y)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	return nil
}

// drawHistogram plots count against angle, the largest count touches the outer ring
func drawHistogram(dc *gg.Context, counts []angles.AngleCount) error {
	var peak int64
	for _, c := range counts {
		peak = max(peak, c.Count)
	}
	if peak <= 0 {
		return nil
	}

	dc.SetRGB(0.12, 0.47, 0.71)
	dc.SetLineWidth(1.5)
	if len(counts) > 1 {
		for i, c := range counts {
			x, y := polarPoint(float64(c.Angle), plotRadius*float64(c.Count)/float64(peak))
			if i == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		if err := dc.Stroke(); err != nil {
			return err
		}
	}

	for _, c := range counts {
		x, y := polarPoint(float64(c.Angle), plotRadius*float64(c.Count)/float64(peak))
		dc.DrawCircle(x, y, 2)
		if err := dc.Fill(); err != nil {
			return err
		}
	}
	return nil
}

// polarPoint places angle degrees counter-clockwise from east, image rows grow downwards
func polarPoint(deg, radius float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return plotCenterX + radius*math.Cos(rad), plotCenterY - radius*math.Sin(rad)
}
