package angles

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb/maptile"
)

// Bucket is one (tile, angle) cell of the histogram
type Bucket struct {
	Tile  maptile.Tile
	Angle uint8
}

// Histogram counts corners per bucket at a single zoom level
type Histogram struct {
	zoom   maptile.Zoom
	counts map[Bucket]uint64
}

// NewHistogram creates an empty histogram at zoom
func NewHistogram(zoom maptile.Zoom) *Histogram {
	return &Histogram{
		zoom:   zoom,
		counts: make(map[Bucket]uint64),
	}
}

// Zoom returns the zoom level of every bucket
func (h *Histogram) Zoom() maptile.Zoom {
	return h.zoom
}

// Add increases the count of bucket by n, the bucket tile must be at the histogram's zoom
func (h *Histogram) Add(b Bucket, n uint64) {
	h.counts[b] += n
}

// Count returns the count of bucket
func (h *Histogram) Count(b Bucket) uint64 {
	return h.counts[b]
}

// Len returns the number of non-empty buckets
func (h *Histogram) Len() int {
	return len(h.counts)
}

// Total returns the sum of all counts
func (h *Histogram) Total() uint64 {
	var total uint64
	for _, n := range h.counts {
		total += n
	}
	return total
}

// Buckets returns all buckets ordered by x, y and angle
func (h *Histogram) Buckets() []Bucket {
	buckets := make([]Bucket, 0, len(h.counts))
	for b := range h.counts {
		buckets = append(buckets, b)
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		return cmp.Or(
			cmp.Compare(a.Tile.X, b.Tile.X),
			cmp.Compare(a.Tile.Y, b.Tile.Y),
			cmp.Compare(a.Angle, b.Angle),
		)
	})
	return buckets
}

// Fold returns the histogram one zoom level up, each tile merged into its
// parent. Folding a zoom 0 histogram returns h itself.
func (h *Histogram) Fold() *Histogram {
	if h.zoom == 0 {
		return h
	}
	parent := &Histogram{
		zoom:   h.zoom - 1,
		counts: make(map[Bucket]uint64, len(h.counts)/2),
	}
	for b, n := range h.counts {
		parent.counts[Bucket{Tile: b.Tile.Parent(), Angle: b.Angle}] += n
	}
	return parent
}
