package geo

import (
	"math"

	"github.com/paulmach/orb/maptile"
)

// TileOf returns the tile containing projected point (x, y) at the given zoom.
// Rows are counted from the northern edge, points outside the world are
// clamped to the border tiles.
func TileOf(x, y float32, zoom maptile.Zoom) maptile.Tile {
	if zoom == 0 {
		return maptile.New(0, 0, 0)
	}

	n := float64(uint64(1) << zoom)
	tx := math.Floor(n * (float64(x) + WorldExtent) / (2 * WorldExtent))
	ty := math.Floor(n * (WorldExtent - float64(y)) / (2 * WorldExtent))
	return maptile.New(clampTile(tx, n), clampTile(ty, n), zoom)
}

func clampTile(v, n float64) uint32 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > n-1:
		return uint32(n - 1)
	}
	return uint32(v)
}
