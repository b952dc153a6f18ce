// Copyright 2025 James Ross
// Package topology loads the static road graph from a configuration
// structure. The grid shape, entry/exit flags, and lane lengths are data,
// never hard-coded Go literals beyond the embedded reference default (spec
// §4.6).
package topology

import (
	"fmt"

	"github.com/trafficflow/trafficflow/internal/model"
	"gopkg.in/yaml.v3"
)

// NodeSpec describes one intersection row in a topology document.
type NodeSpec struct {
	Row     int    `yaml:"row"`
	Col     int    `yaml:"col"`
	Name    string `yaml:"name"`
	IsEntry bool   `yaml:"is_entry"`
	IsExit  bool   `yaml:"is_exit"`
	Control string `yaml:"control"` // "normal" | "traffic_light"
}

// LaneSpec describes one directed edge row in a topology document.
type LaneSpec struct {
	FromRow   int     `yaml:"from_row"`
	FromCol   int     `yaml:"from_col"`
	ToRow     int     `yaml:"to_row"`
	ToCol     int     `yaml:"to_col"`
	LengthM   float64 `yaml:"length_m"`
}

// Document is the full static topology: nodes plus the lane table.
type Document struct {
	Nodes []NodeSpec `yaml:"nodes"`
	Lanes []LaneSpec `yaml:"lanes"`
}

// Grid is the loaded, in-memory topology.
type Grid struct {
	Intersections []model.Intersection
	Lanes         []*model.Lane
}

// Load parses a topology document and builds the corresponding Grid.
func Load(doc *Document) (*Grid, error) {
	g := &Grid{}
	for _, n := range doc.Nodes {
		ctrl := model.Normal
		switch n.Control {
		case "", "normal":
			ctrl = model.Normal
		case "traffic_light":
			ctrl = model.TrafficLight
		default:
			return nil, fmt.Errorf("topology: unknown control %q for node (%d,%d)", n.Control, n.Row, n.Col)
		}
		g.Intersections = append(g.Intersections, model.Intersection{
			ID:      model.IntersectionId{Row: n.Row, Col: n.Col},
			Name:    n.Name,
			IsEntry: n.IsEntry,
			IsExit:  n.IsExit,
			Control: ctrl,
		})
	}
	for _, l := range doc.Lanes {
		if l.LengthM <= 0 {
			return nil, fmt.Errorf("topology: lane (%d,%d)->(%d,%d) must have positive length", l.FromRow, l.FromCol, l.ToRow, l.ToCol)
		}
		from := model.IntersectionId{Row: l.FromRow, Col: l.FromCol}
		to := model.IntersectionId{Row: l.ToRow, Col: l.ToCol}
		g.Lanes = append(g.Lanes, model.NewLane(from, to, l.LengthM))
	}
	return g, nil
}

// ParseYAML decodes a topology document from YAML bytes and loads it.
func ParseYAML(b []byte) (*Grid, error) {
	var doc Document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("topology: parse yaml: %w", err)
	}
	return Load(&doc)
}

// OutgoingLanes returns the lanes whose From matches id.
func (g *Grid) OutgoingLanes(id model.IntersectionId) []*model.Lane {
	var out []*model.Lane
	for _, l := range g.Lanes {
		if l.From == id {
			out = append(out, l)
		}
	}
	return out
}

// ByID indexes intersections by id for O(1) lookup.
func (g *Grid) ByID() map[model.IntersectionId]model.Intersection {
	out := make(map[model.IntersectionId]model.Intersection, len(g.Intersections))
	for _, i := range g.Intersections {
		out[i.ID] = i
	}
	return out
}

// EntryIDs returns the ids of all is_entry intersections.
func (g *Grid) EntryIDs() []model.IntersectionId {
	var out []model.IntersectionId
	for _, i := range g.Intersections {
		if i.IsEntry {
			out = append(out, i.ID)
		}
	}
	return out
}

// ExitIDs returns the ids of all is_exit intersections.
func (g *Grid) ExitIDs() []model.IntersectionId {
	var out []model.IntersectionId
	for _, i := range g.Intersections {
		if i.IsExit {
			out = append(out, i.ID)
		}
	}
	return out
}
