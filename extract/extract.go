// Package extract runs the single streaming pass over OSM objects that fills
// the coordinate store and the building corpus.
package extract

import (
	"context"
	"fmt"

	"github.com/paulmach/osm"

	"github.com/hangxie/building-angles/corpus"
	"github.com/hangxie/building-angles/geo"
	"github.com/hangxie/building-angles/internal/logger"
)

const progressEvery = 10_000_000

// Scanner is the part of osmpbf.Scanner and osmxml.Scanner the pass needs
type Scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
}

// CoordinateWriter records projected node coordinates
type CoordinateWriter interface {
	Set(id uint64, x, y float32) error
}

// BuildingWriter records building rings
type BuildingWriter interface {
	Append(b corpus.Building) error
}

// InvalidNodeIDError is returned for node IDs the coordinate store cannot index
type InvalidNodeIDError struct {
	WayID  osm.WayID
	NodeID osm.NodeID
}

func (e *InvalidNodeIDError) Error() string {
	if e.WayID != 0 {
		return fmt.Sprintf("way %d references node %d, negative node IDs are not supported", e.WayID, e.NodeID)
	}
	return fmt.Sprintf("node %d: negative node IDs are not supported", e.NodeID)
}

// Stats summarizes one extraction pass
type Stats struct {
	Nodes            uint64
	Ways             uint64
	Buildings        uint64
	SkippedBuildings uint64
}

// Extractor routes nodes to the coordinate store and buildings to the corpus
type Extractor struct {
	coords    CoordinateWriter
	buildings BuildingWriter
	stats     Stats
}

// New creates an extractor writing to coords and buildings
func New(coords CoordinateWriter, buildings BuildingWriter) *Extractor {
	return &Extractor{
		coords:    coords,
		buildings: buildings,
	}
}

// Run consumes scanner until it is exhausted
func (e *Extractor) Run(ctx context.Context, scanner Scanner) (Stats, error) {
	log := logger.L()
	var objects uint64
	for scanner.Scan() {
		objects++
		if objects%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return e.stats, err
			}
		}

		var err error
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			err = e.node(obj)
			if err == nil && e.stats.Nodes%progressEvery == 0 {
				log.Debug("extraction_progress", "nodes", e.stats.Nodes, "ways", e.stats.Ways, "buildings", e.stats.Buildings)
			}
		case *osm.Way:
			err = e.way(obj)
		}
		if err != nil {
			return e.stats, fmt.Errorf("extraction: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return e.stats, fmt.Errorf("extraction: failed to scan input: %w", err)
	}

	log.Info("extraction_done",
		"nodes", e.stats.Nodes,
		"ways", e.stats.Ways,
		"buildings", e.stats.Buildings,
		"skipped_buildings", e.stats.SkippedBuildings)
	return e.stats, nil
}

func (e *Extractor) node(n *osm.Node) error {
	if n.ID < 0 {
		return &InvalidNodeIDError{NodeID: n.ID}
	}
	x, y := geo.Project(n.Lat, n.Lon)
	if err := e.coords.Set(uint64(n.ID), x, y); err != nil {
		return err
	}
	e.stats.Nodes++
	return nil
}

func (e *Extractor) way(w *osm.Way) error {
	e.stats.Ways++
	if !IsBuilding(w.Tags) {
		return nil
	}

	ring := Ring(w.Nodes.NodeIDs())
	if len(ring) < 3 {
		e.stats.SkippedBuildings++
		logger.L().Debug("building_skipped", "way", w.ID, "nodes", len(w.Nodes))
		return nil
	}

	ids := make([]uint64, len(ring))
	for i, id := range ring {
		if id < 0 {
			return &InvalidNodeIDError{WayID: w.ID, NodeID: id}
		}
		ids[i] = uint64(id)
	}
	if err := e.buildings.Append(corpus.Building{ID: int64(w.ID), Nodes: ids}); err != nil {
		return fmt.Errorf("way %d: %w", w.ID, err)
	}
	e.stats.Buildings++
	return nil
}

// IsBuilding reports whether tags carry a building key with a value other than "no"
func IsBuilding(tags osm.Tags) bool {
	return tags.HasTag("building") && tags.Find("building") != "no"
}

// Ring drops the closing node of a closed way. The result is read cyclically,
// so an open way is closed implicitly.
func Ring(nodes []osm.NodeID) []osm.NodeID {
	if n := len(nodes); n > 1 && nodes[0] == nodes[n-1] {
		return nodes[:n-1]
	}
	return nodes
}
