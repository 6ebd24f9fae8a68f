package angles

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/hangxie/building-angles/corpus"
	"github.com/hangxie/building-angles/geo"
	"github.com/hangxie/building-angles/internal/logger"
)

// BuildingSource yields buildings until io.EOF
type BuildingSource interface {
	Next() (corpus.Building, error)
}

// Locator resolves node IDs to projected coordinates
type Locator interface {
	Get(id uint64) (x, y float32, ok bool, err error)
}

// UnresolvedNodeError is returned when a building references a node with no
// recorded coordinate
type UnresolvedNodeError struct {
	BuildingID int64
	NodeID     uint64
}

func (e *UnresolvedNodeError) Error() string {
	return fmt.Sprintf("building %d references node %d which has no coordinate", e.BuildingID, e.NodeID)
}

// Stats summarizes one aggregation pass
type Stats struct {
	Buildings         uint64
	Corners           uint64
	DegenerateCorners uint64
}

// Aggregate counts the corner angles of every building from src into a
// histogram at zoom. Each corner is bucketed by the tile of its centre point.
func Aggregate(ctx context.Context, src BuildingSource, coords Locator, zoom maptile.Zoom) (*Histogram, Stats, error) {
	log := logger.L()
	hist := NewHistogram(zoom)
	var stats Stats
	var ring []orb.Point

	for {
		b, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("aggregation: %w", err)
		}
		if stats.Buildings%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		ring, err = resolve(ring[:0], b, coords)
		if err != nil {
			return nil, stats, fmt.Errorf("aggregation: %w", err)
		}

		n := len(ring)
		for i, centre := range ring {
			left := ring[(i+n-1)%n]
			right := ring[(i+1)%n]
			angle, err := geo.CornerAngle(centre, left, right)
			if errors.Is(err, geo.ErrDegenerateCorner) {
				stats.DegenerateCorners++
				continue
			}
			tile := geo.TileOf(float32(centre.X()), float32(centre.Y()), zoom)
			hist.Add(Bucket{Tile: tile, Angle: angle}, 1)
			stats.Corners++
		}
		stats.Buildings++
	}

	if stats.DegenerateCorners > 0 {
		log.Warn("degenerate_corners_skipped", "count", stats.DegenerateCorners)
	}
	log.Info("aggregation_done",
		"buildings", stats.Buildings,
		"corners", stats.Corners,
		"buckets", hist.Len(),
		"zoom", zoom)
	return hist, stats, nil
}

func resolve(ring []orb.Point, b corpus.Building, coords Locator) ([]orb.Point, error) {
	for _, id := range b.Nodes {
		x, y, ok, err := coords.Get(id)
		if err != nil {
			return nil, fmt.Errorf("building %d: %w", b.ID, err)
		}
		if !ok {
			return nil, &UnresolvedNodeError{BuildingID: b.ID, NodeID: id}
		}
		ring = append(ring, orb.Point{float64(x), float64(y)})
	}
	return ring, nil
}
