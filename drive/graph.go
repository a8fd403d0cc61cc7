package drive

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
)

// Graph is the undirected weighted haplotype graph for one locus run.
// Vertices are interned haplotype ids; every retained segment contributes
// one line weighted by its centimorgan length, so a pair sharing several
// segments is joined by parallel lines and the random walk sees their
// aggregate weight.
type Graph struct {
	g  *multi.WeightedUndirectedGraph
	db *HaplotypeDB

	segments []Segment
}

// BuildGraph constructs the haplotype graph from the retained segments.
func BuildGraph(db *HaplotypeDB, segments []Segment) *Graph {
	g := &Graph{
		g:        multi.NewWeightedUndirectedGraph(),
		db:       db,
		segments: segments,
	}
	for _, s := range segments {
		u := multi.Node(int64(s.Vid1))
		v := multi.Node(int64(s.Vid2))
		if g.g.Node(int64(s.Vid1)) == nil {
			g.g.AddNode(u)
		}
		if g.g.Node(int64(s.Vid2)) == nil {
			g.g.AddNode(v)
		}
		g.g.SetWeightedLine(g.g.NewWeightedLine(u, v, s.LengthCM))
	}
	return g
}

// DB returns the intern table shared by all graphs of one locus run.
func (g *Graph) DB() *HaplotypeDB { return g.db }

// Segments returns the segments this graph was built from.
func (g *Graph) Segments() []Segment { return g.segments }

// NumVertices returns the number of vertices.
func (g *Graph) NumVertices() int { return g.g.Nodes().Len() }

// NumEdges returns the number of lines, counting parallel lines.
func (g *Graph) NumEdges() int { return len(g.segments) }

// Vertices returns the vertex ids in ascending order.
func (g *Graph) Vertices() []VertexID {
	out := make([]VertexID, 0, g.g.Nodes().Len())
	it := g.g.Nodes()
	for it.Next() {
		out = append(out, VertexID(it.Node().ID()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Induced returns the subgraph induced by the member set: the segments with
// both endpoints inside it. Vertex ids are preserved.
func (g *Graph) Induced(members map[VertexID]bool) *Graph {
	var kept []Segment
	for _, s := range g.segments {
		if members[s.Vid1] && members[s.Vid2] {
			kept = append(kept, s)
		}
	}
	return BuildGraph(g.db, kept)
}

// WithoutVertices returns the graph with the given vertices and all their
// incident lines removed.
func (g *Graph) WithoutVertices(rm map[VertexID]bool) *Graph {
	var kept []Segment
	for _, s := range g.segments {
		if rm[s.Vid1] || rm[s.Vid2] {
			continue
		}
		kept = append(kept, s)
	}
	return BuildGraph(g.db, kept)
}

// connected reports whether at least one line joins u and v.
func (g *Graph) connected(u, v VertexID) bool {
	if u == v {
		return false
	}
	lines := g.g.WeightedLines(int64(u), int64(v))
	return lines.Next()
}

// ConnectedPairs counts the member pairs joined by at least one line: the
// intersection of the graph's edges with the complete graph on the members.
func (g *Graph) ConnectedPairs(members []VertexID) int {
	n := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			if g.connected(members[i], members[j]) {
				n++
			}
		}
	}
	return n
}

// CutEdges counts the lines with exactly one endpoint inside the member
// set: the edges a perfectly separated cluster would not have.
func (g *Graph) CutEdges(members map[VertexID]bool) int {
	n := 0
	for _, s := range g.segments {
		if members[s.Vid1] != members[s.Vid2] {
			n++
		}
	}
	return n
}

// neighbors returns the distinct neighbors of v in ascending order.
func (g *Graph) neighbors(v VertexID) []VertexID {
	it := g.g.From(int64(v))
	n := it.Len()
	if n < 0 {
		n = 0
	}
	out := make([]VertexID, 0, n)
	for it.Next() {
		out = append(out, VertexID(it.Node().ID()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// inverseWeightSum is the hub connectivity score: the sum of 1/weight over
// the lines incident to v.
func (g *Graph) inverseWeightSum(v VertexID) float64 {
	sum := 0.0
	it := g.g.From(int64(v))
	for it.Next() {
		lines := g.g.WeightedLines(int64(v), it.Node().ID())
		for lines.Next() {
			sum += 1 / lines.WeightedLine().Weight()
		}
	}
	return sum
}

// aggregateWeight sums the weights of the lines joining u and v.
func (g *Graph) aggregateWeight(u, v VertexID) float64 {
	sum := 0.0
	lines := g.g.WeightedLines(int64(u), int64(v))
	for lines.Next() {
		sum += lines.WeightedLine().Weight()
	}
	return sum
}

var _ graph.Undirected = (*multi.WeightedUndirectedGraph)(nil)
