package angles

import (
	"context"

	"github.com/hangxie/building-angles/internal/logger"
)

// Reduce emits every bucket of hist, then folds it into the next coarser
// level and repeats down to zoom 0. Rows come out most detailed level first.
// Only the current and the next level are held in memory.
func Reduce(ctx context.Context, hist *Histogram, emit func(Row) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.L().Debug("zoom_level", "zoom", hist.Zoom(), "buckets", hist.Len())
		for _, b := range hist.Buckets() {
			if err := emit(newRow(hist.Zoom(), b, hist.Count(b))); err != nil {
				return err
			}
		}
		if hist.Zoom() == 0 {
			return nil
		}
		hist = hist.Fold()
	}
}
