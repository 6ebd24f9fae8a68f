package angles

import (
	"cmp"
	"slices"
)

// TileKey addresses one tile of a result
type TileKey struct {
	Zoom int32
	X    int64
	Y    int64
}

// AngleCount is the number of corners with one angle
type AngleCount struct {
	Angle int32 `json:"angle"`
	Count int64 `json:"count"`
}

// Summary is the angle histogram of one tile
type Summary struct {
	Zoom   int32        `json:"zoom"`
	X      int64        `json:"x"`
	Y      int64        `json:"y"`
	Total  int64        `json:"total"`
	Angles []AngleCount `json:"angles"`
}

// Index groups result rows by tile
type Index struct {
	tiles map[TileKey]map[int32]int64
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{tiles: map[TileKey]map[int32]int64{}}
}

// Add accounts one row, rows repeating a (tile, angle) pair are summed
func (i *Index) Add(row Row) error {
	key := TileKey{Zoom: row.Zoom, X: row.X, Y: row.Y}
	counts, found := i.tiles[key]
	if !found {
		counts = map[int32]int64{}
		i.tiles[key] = counts
	}
	counts[row.Angle] += row.Count
	return nil
}

// Len returns the number of tiles with at least one row
func (i *Index) Len() int {
	return len(i.tiles)
}

// Summary returns the histogram of one tile ordered by angle, a tile
// without rows has a zero total and no angles
func (i *Index) Summary(key TileKey) Summary {
	s := Summary{Zoom: key.Zoom, X: key.X, Y: key.Y, Angles: []AngleCount{}}
	for angle, count := range i.tiles[key] {
		s.Angles = append(s.Angles, AngleCount{Angle: angle, Count: count})
		s.Total += count
	}
	slices.SortFunc(s.Angles, func(a, b AngleCount) int {
		return cmp.Compare(a.Angle, b.Angle)
	})
	return s
}
