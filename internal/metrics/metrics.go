// Package metrics collects run counters and writes them in the Prometheus
// text format for a node_exporter textfile collector.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one run
type Metrics struct {
	registry *prometheus.Registry

	Nodes             prometheus.Counter
	Ways              prometheus.Counter
	Buildings         prometheus.Counter
	SkippedBuildings  prometheus.Counter
	Corners           prometheus.Counter
	DegenerateCorners prometheus.Counter
	Rows              *prometheus.CounterVec
	LevelCorners      *prometheus.GaugeVec
}

// New creates a fresh set of counters in a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "building_angles_nodes_total",
			Help: "Nodes recorded in the coordinate store",
		}),
		Ways: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "building_angles_ways_total",
			Help: "Ways read from the input",
		}),
		Buildings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "building_angles_buildings_total",
			Help: "Building rings written to the corpus",
		}),
		SkippedBuildings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "building_angles_skipped_buildings_total",
			Help: "Buildings with fewer than three distinct ring nodes",
		}),
		Corners: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "building_angles_corners_total",
			Help: "Corners counted into the histogram",
		}),
		DegenerateCorners: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "building_angles_degenerate_corners_total",
			Help: "Corners skipped because two of their points coincide",
		}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "building_angles_rows_total",
			Help: "Rows written per zoom level",
		}, []string{"zoom"}),
		LevelCorners: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "building_angles_corner_count",
			Help: "Sum of corner counts written per zoom level",
		}, []string{"zoom"}),
	}
	m.registry.MustRegister(m.Nodes, m.Ways, m.Buildings, m.SkippedBuildings, m.Corners, m.DegenerateCorners, m.Rows, m.LevelCorners)
	return m
}

// ObserveRow accounts one output row
func (m *Metrics) ObserveRow(zoom int32, count int64) {
	label := strconv.Itoa(int(zoom))
	m.Rows.WithLabelValues(label).Inc()
	m.LevelCorners.WithLabelValues(label).Add(float64(count))
}

// Registry exposes the registry the counters live in
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all counters to path atomically
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to [%s]: %w", path, err)
	}
	return nil
}
