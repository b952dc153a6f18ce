// Copyright 2025 James Ross
// Package routing computes minimum-total-length paths over the lane graph
// (spec §4.5). It is a pure function of the lane set passed in — callers
// pre-filter accident and congested lanes before calling, exactly as the
// spec requires.
package routing

import (
	"fmt"

	"github.com/trafficflow/trafficflow/internal/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// node adapts an IntersectionId into a gonum graph.Node. Gonum wants a
// compact int64 id, so we assign a dense index per distinct intersection
// seen in the lane set.
type node struct {
	id  int64
	loc model.IntersectionId
}

func (n node) ID() int64 { return n.id }

// ShortestPath computes the minimum-total-length path from `from` to `to`
// over `lanes`, excluding any lane for which exclude returns true. It
// returns the ordered slice of lanes to traverse and true on success, or
// (nil, false) if no path exists (spec §4.5: "Returns absent when
// unreachable").
func ShortestPath(lanes []*model.Lane, from, to model.IntersectionId, exclude func(*model.Lane) bool) ([]*model.Lane, bool) {
	g := simple.NewWeightedDirectedGraph(0, 0)

	ids := map[model.IntersectionId]int64{}
	nodeOf := func(loc model.IntersectionId) node {
		id, ok := ids[loc]
		if !ok {
			id = int64(len(ids))
			ids[loc] = id
			g.AddNode(node{id: id, loc: loc})
		}
		return node{id: id, loc: loc}
	}

	// laneByEdge lets us recover which *model.Lane produced a given edge
	// once Dijkstra hands back a node path; parallel lanes between the same
	// pair are disambiguated by keeping only the shortest (gonum's weighted
	// graph is simple, one edge per ordered pair).
	laneByEdge := map[[2]int64]*model.Lane{}

	for _, l := range lanes {
		if exclude != nil && exclude(l) {
			continue
		}
		fn := nodeOf(l.From)
		tn := nodeOf(l.To)
		key := [2]int64{fn.ID(), tn.ID()}
		if existing, ok := laneByEdge[key]; ok && existing.Length <= l.Length {
			continue
		}
		laneByEdge[key] = l
		g.SetWeightedEdge(simple.WeightedEdge{F: fn, T: tn, W: l.Length})
	}

	fromID, fromOK := ids[from]
	toID, toOK := ids[to]
	if !fromOK || !toOK {
		return nil, false
	}

	shortest := path.DijkstraFrom(node{id: fromID, loc: from}, g)
	nodePath, _ := shortest.To(toID)
	if len(nodePath) < 2 {
		return nil, false
	}

	out := make([]*model.Lane, 0, len(nodePath)-1)
	for i := 0; i+1 < len(nodePath); i++ {
		a := nodePath[i].(node)
		b := nodePath[i+1].(node)
		l, ok := laneByEdge[[2]int64{a.ID(), b.ID()}]
		if !ok {
			return nil, false
		}
		out = append(out, l)
	}
	return out, true
}

// ErrNoRoute is returned by callers that want a Go error instead of the
// boolean-ok form (spec's NoRouteAvailable error kind, §7).
var ErrNoRoute = fmt.Errorf("routing: no route available")

var _ graph.Node = node{}
