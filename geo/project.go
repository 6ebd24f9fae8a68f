package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// WorldExtent is half the width of the web mercator plane in meters.
	WorldExtent = 20037508.34

	// MaxZoom is the zoom level buckets are built at before folding.
	MaxZoom = 18
)

// Project converts WGS84 degrees to web mercator meters. The math runs in
// float64, only the result is narrowed.
func Project(lat, lon float64) (x, y float32) {
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	return float32(p.X()), float32(p.Y())
}
