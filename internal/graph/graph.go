// Package graph builds the citation graph of a document: one directed edge
// from the document to a reference key per citation occurrence.
//
// The graph is derived from the citation list and never stored on its own.
// Rebuilding it from the same citations always gives the same counts.
package graph

import (
	"github.com/matsen/citegraph/internal/citation"
)

// Edge represents one citation of a reference key by a document.
type Edge struct {
	SourceID string `json:"source_id"` // document fingerprint
	TargetID string `json:"target_id"` // reference key
	Text     string `json:"text"`      // citation marker
	Offset   int    `json:"offset"`
}

// Graph is a directed multigraph from one document to reference keys.
type Graph struct {
	source string
	edges  []Edge
	counts map[string]int
	order  []string
}

// Build creates the graph for source from its citations. Each key in a
// citation's resolved key set contributes one edge.
func Build(source string, citations []citation.Citation) *Graph {
	g := &Graph{source: source, counts: make(map[string]int)}
	for _, c := range citations {
		for _, k := range c.Keys {
			g.edges = append(g.edges, Edge{
				SourceID: source,
				TargetID: k,
				Text:     c.Text,
				Offset:   c.Start,
			})
			if g.counts[k] == 0 {
				g.order = append(g.order, k)
			}
			g.counts[k]++
		}
	}
	return g
}

// Source returns the document the graph was built for.
func (g *Graph) Source() string { return g.source }

// Edges returns a copy of every edge in citation order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Frequency returns how many times key is cited.
func (g *Graph) Frequency(key string) int {
	return g.counts[key]
}

// Keys returns the distinct cited keys, sorted with positional keys first.
func (g *Graph) Keys() []string {
	keys := make([]string, len(g.order))
	copy(keys, g.order)
	citation.SortKeys(keys)
	return keys
}

// KeyCount is a reference key with its citation count.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Counts returns every cited key with its frequency, in Keys order.
func (g *Graph) Counts() []KeyCount {
	keys := g.Keys()
	out := make([]KeyCount, len(keys))
	for i, k := range keys {
		out[i] = KeyCount{Key: k, Count: g.counts[k]}
	}
	return out
}

// OrphanedEdgeInfo describes cited keys with no reference.
type OrphanedEdgeInfo struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Count    int    `json:"count"`
	Reason   string `json:"reason"` // always "missing_target" for citation graphs
}

// DetectOrphans finds keys that are not in the valid key set.
// Returns one entry per orphaned key and the list of valid edges.
func (g *Graph) DetectOrphans(validKeys map[string]bool) (orphaned []OrphanedEdgeInfo, valid []Edge) {
	for _, k := range g.Keys() {
		if !validKeys[k] {
			orphaned = append(orphaned, OrphanedEdgeInfo{
				SourceID: g.source,
				TargetID: k,
				Count:    g.counts[k],
				Reason:   "missing_target",
			})
		}
	}
	for _, e := range g.edges {
		if validKeys[e.TargetID] {
			valid = append(valid, e)
		}
	}
	return orphaned, valid
}

// FindRepeated returns keys cited more than once, with their counts.
func (g *Graph) FindRepeated() map[string]int {
	repeated := make(map[string]int)
	for k, n := range g.counts {
		if n > 1 {
			repeated[k] = n
		}
	}
	return repeated
}
