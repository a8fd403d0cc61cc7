package drive

import (
	"container/heap"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// The clusterer is the Walktrap method of Pons and Latapy: short random
// walks of a fixed step length tend to stay inside communities, so vertices
// whose walk distributions look alike are agglomerated bottom-up, and the
// merge sequence is cut at the partition of maximum weighted modularity.
// The agglomerative formulation is deterministic; no walk is sampled, so a
// run needs no seed and cluster ids are reproducible given input order.

type wedge struct {
	to int
	w  float64
}

type wtCommunity struct {
	active bool
	size   int
	// vec is the mean t-step walk distribution over the members.
	vec []float64
	// in is the aggregate weight inside the community, tot the aggregate
	// degree of its members.
	in, tot float64
	// nbr maps adjacent community ids to the aggregate weight between.
	nbr     map[int]float64
	members []int
}

type wtMerge struct {
	a, b, id int
}

type mergeCand struct {
	ds   float64
	a, b int
}

type mergeHeap []mergeCand

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].ds != h[j].ds {
		return h[i].ds < h[j].ds
	}
	if h[i].a != h[j].a {
		return h[i].a < h[j].a
	}
	return h[i].b < h[j].b
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(mergeCand)) }
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// walktrapPartition clusters the graph and returns the communities of the
// maximum-modularity cut, each a sorted list of vertex ids. Communities are
// ordered by their smallest vertex id; the position in that order is the
// community index used for cluster naming.
func walktrapPartition(g *Graph, steps, maxMerges int) [][]VertexID {
	nodes := g.Vertices()
	n := len(nodes)
	if n == 0 {
		return nil
	}
	index := make(map[VertexID]int, n)
	for i, v := range nodes {
		index[v] = i
	}

	// Aggregated weighted adjacency with deterministic neighbor order.
	adj := make([][]wedge, n)
	deg := make([]float64, n)
	for i, v := range nodes {
		for _, u := range g.neighbors(v) {
			w := g.aggregateWeight(v, u)
			adj[i] = append(adj[i], wedge{to: index[u], w: w})
			deg[i] += w
		}
	}

	// t-step walk distribution for every vertex.
	vecs := make([][]float64, n)
	for i := 0; i < n; i++ {
		p := make([]float64, n)
		p[i] = 1
		next := make([]float64, n)
		for s := 0; s < steps; s++ {
			for j := range next {
				next[j] = 0
			}
			for k, pk := range p {
				if pk == 0 || deg[k] == 0 {
					continue
				}
				for _, e := range adj[k] {
					next[e.to] += pk * e.w / deg[k]
				}
			}
			p, next = next, p
		}
		vecs[i] = p
	}

	m2 := floats.Sum(deg) // twice the total edge weight
	if m2 == 0 {
		// Edgeless graph: every vertex its own community.
		out := make([][]VertexID, n)
		for i, v := range nodes {
			out[i] = []VertexID{v}
		}
		return out
	}

	comms := make([]*wtCommunity, n, 2*n)
	for i := 0; i < n; i++ {
		c := &wtCommunity{
			active:  true,
			size:    1,
			vec:     vecs[i],
			tot:     deg[i],
			nbr:     map[int]float64{},
			members: []int{i},
		}
		for _, e := range adj[i] {
			c.nbr[e.to] += e.w
		}
		comms[i] = c
	}

	// deltaSigma is the Ward distance between two communities' walk
	// distributions, degree-normalized.
	deltaSigma := func(c1, c2 *wtCommunity) float64 {
		sum := 0.0
		for k := 0; k < n; k++ {
			if deg[k] == 0 {
				continue
			}
			d := c1.vec[k] - c2.vec[k]
			sum += d * d / deg[k]
		}
		s1, s2 := float64(c1.size), float64(c2.size)
		return s1 * s2 / (s1 + s2) / float64(n) * sum
	}

	h := &mergeHeap{}
	for i := 0; i < n; i++ {
		for _, e := range adj[i] {
			if e.to > i {
				heap.Push(h, mergeCand{ds: deltaSigma(comms[i], comms[e.to]), a: i, b: e.to})
			}
		}
	}

	curQ := 0.0
	for _, c := range comms {
		curQ += 2*c.in/m2 - (c.tot/m2)*(c.tot/m2)
	}
	bestQ, bestStep := curQ, 0

	var merges []wtMerge
	for h.Len() > 0 {
		if maxMerges > 0 && len(merges) >= maxMerges {
			break
		}
		cand := heap.Pop(h).(mergeCand)
		c1, c2 := comms[cand.a], comms[cand.b]
		if !c1.active || !c2.active {
			continue
		}
		if _, adjacent := c1.nbr[cand.b]; !adjacent {
			continue
		}

		w12 := c1.nbr[cand.b]
		id := len(comms)
		merged := &wtCommunity{
			active:  true,
			size:    c1.size + c2.size,
			in:      c1.in + c2.in + w12,
			tot:     c1.tot + c2.tot,
			nbr:     map[int]float64{},
			members: append(append([]int{}, c1.members...), c2.members...),
		}
		s1, s2 := float64(c1.size), float64(c2.size)
		merged.vec = make([]float64, n)
		floats.AddScaled(merged.vec, s1/(s1+s2), c1.vec)
		floats.AddScaled(merged.vec, s2/(s1+s2), c2.vec)
		for from, c := range []*wtCommunity{c1, c2} {
			other := cand.b
			if from == 1 {
				other = cand.a
			}
			for nid, w := range c.nbr {
				if nid == other {
					continue
				}
				merged.nbr[nid] += w
				delete(comms[nid].nbr, cand.a)
				delete(comms[nid].nbr, cand.b)
				comms[nid].nbr[id] = merged.nbr[nid]
			}
		}
		c1.active, c2.active = false, false
		comms = append(comms, merged)
		merges = append(merges, wtMerge{a: cand.a, b: cand.b, id: id})

		curQ += 2*w12/m2 - 2*c1.tot*c2.tot/(m2*m2)
		if curQ > bestQ {
			bestQ, bestStep = curQ, len(merges)
		}

		nids := make([]int, 0, len(merged.nbr))
		for nid := range merged.nbr {
			nids = append(nids, nid)
		}
		sort.Ints(nids)
		for _, nid := range nids {
			a, b := id, nid
			if b < a {
				a, b = b, a
			}
			heap.Push(h, mergeCand{ds: deltaSigma(merged, comms[nid]), a: a, b: b})
		}
	}

	// Replay the merge prefix that maximized modularity.
	parent := make([]int, len(comms))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, m := range merges[:bestStep] {
		parent[find(m.a)] = m.id
		parent[find(m.b)] = m.id
	}

	groups := map[int][]VertexID{}
	for i, v := range nodes {
		root := find(i)
		groups[root] = append(groups[root], v)
	}
	roots := make([]int, 0, len(groups))
	for root := range groups {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return groups[roots[i]][0] < groups[roots[j]][0] })
	out := make([][]VertexID, 0, len(roots))
	for _, root := range roots {
		members := groups[root]
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, members)
	}
	return out
}
