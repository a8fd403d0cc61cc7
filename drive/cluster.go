package drive

import (
	"sort"
	"strconv"

	"github.com/grailbio/base/log"
	"gonum.org/v1/gonum/stat/combin"
)

// Cluster is one identified IBD cluster. Top-level clusters carry their
// community index as id; a cluster found by re-clustering parent P is named
// P.k with k the community index inside the parent's subgraph, so ids form
// a tree encoded as dotted paths.
type Cluster struct {
	ID       string
	ParentID string
	Locus    Locus

	// Members holds the vertex ids in ascending order; IIDs the distinct
	// individuals they belong to, in first-member order.
	Members []VertexID
	IIDs    []string

	// TruePositiveEdges counts the member pairs actually joined by a
	// segment; TruePositiveRatio divides by the complete-graph pair count
	// and is 1 for clusters of at most two members.
	TruePositiveEdges  int
	TruePositiveRatio  float64
	FalseNegativeEdges int

	// Round is the refinement round the cluster was produced in (0 for the
	// first pass). Unconverged marks clusters that still failed the quality
	// criteria when the recheck budget ran out.
	Round       int
	Unconverged bool

	memberSet map[VertexID]bool
}

// Contains reports whether the vertex belongs to the cluster.
func (c *Cluster) Contains(v VertexID) bool { return c.memberSet[v] }

// MemberSet returns the member set keyed by vertex id.
func (c *Cluster) MemberSet() map[VertexID]bool { return c.memberSet }

// ClusterHandler runs the random-walk clustering with its bounded
// refinement loop. A handler is single use, like the filter.
type ClusterHandler struct {
	opts       Opts
	checkTimes int
	recheck    map[int][]*refineTask
	final      []*Cluster
}

type refineTask struct {
	cluster *Cluster
	graph   *Graph // graph the cluster was cut from
}

// NewClusterHandler creates a handler for one locus run.
func NewClusterHandler(opts Opts) *ClusterHandler {
	return &ClusterHandler{opts: opts, recheck: map[int][]*refineTask{}}
}

// FindClusters clusters the haplotype graph and refines oversized, poorly
// connected clusters until they pass the quality criteria or the recheck
// budget is spent. The returned clusters have pairwise disjoint members.
func (h *ClusterHandler) FindClusters(g *Graph, locus Locus) []*Cluster {
	log.Printf("Running a random walk with step size %d over %d haplotypes and %d segments",
		h.opts.StepSize, g.NumVertices(), g.NumEdges())
	parts := walktrapPartition(g, h.opts.StepSize, h.opts.maxMerges)
	h.harvest(g, locus, parts, "")

	for h.checkTimes < h.opts.MaxRechecks && len(h.recheck[h.checkTimes]) > 0 {
		h.checkTimes++
		log.Printf("recheck %d: re-clustering %d clusters", h.checkTimes, len(h.recheck[h.checkTimes-1]))
		for _, task := range h.recheck[h.checkTimes-1] {
			h.refine(task, locus)
		}
	}
	return h.final
}

// harvest turns the communities larger than the minimum size into clusters,
// either finalizing them or queueing them for refinement.
func (h *ClusterHandler) harvest(g *Graph, locus Locus, parts [][]VertexID, parentID string) {
	for k, members := range parts {
		if len(members) <= h.opts.MinClusterSize {
			continue
		}
		id := strconv.Itoa(k)
		if parentID != "" {
			id = parentID + "." + id
		}
		c := h.newCluster(g, locus, id, parentID, members)
		failsQuality := c.TruePositiveRatio < h.opts.MinConnectedThreshold &&
			len(c.Members) > h.opts.MaxNetworkSize
		if h.checkTimes < h.opts.MaxRechecks && failsQuality {
			h.recheck[h.checkTimes] = append(h.recheck[h.checkTimes], &refineTask{cluster: c, graph: g})
			continue
		}
		c.Unconverged = failsQuality
		h.final = append(h.final, c)
	}
}

func (h *ClusterHandler) newCluster(g *Graph, locus Locus, id, parentID string, members []VertexID) *Cluster {
	set := make(map[VertexID]bool, len(members))
	for _, v := range members {
		set[v] = true
	}
	c := &Cluster{
		ID:        id,
		ParentID:  parentID,
		Locus:     locus,
		Members:   members,
		IIDs:      g.DB().IIDs(members),
		Round:     h.checkTimes,
		memberSet: set,
	}
	c.TruePositiveEdges = g.ConnectedPairs(members)
	if len(members) <= 2 {
		c.TruePositiveRatio = 1
	} else {
		c.TruePositiveRatio = float64(c.TruePositiveEdges) / float64(combin.Binomial(len(members), 2))
	}
	c.FalseNegativeEdges = g.CutEdges(set)
	return c
}

// refine re-clusters one oversized cluster on its induced subgraph. When the
// walk finds no split, suspected hub vertices are pruned and the walk is run
// once more before the results are harvested.
func (h *ClusterHandler) refine(task *refineTask, locus Locus) {
	c := task.cluster
	sub := task.graph.Induced(c.memberSet)
	parts := walktrapPartition(sub, h.opts.StepSize, h.opts.maxMerges)
	if len(parts) == 1 {
		hubs := h.findHubs(sub, c)
		if len(hubs) > 0 {
			log.Printf("cluster %s: no split found, pruning %d hub haplotypes", c.ID, len(hubs))
		}
		sub = sub.WithoutVertices(hubs)
		parts = walktrapPartition(sub, h.opts.StepSize, h.opts.maxMerges)
	}
	h.harvest(sub, locus, parts, c.ID)
}

// findHubs identifies vertices that bridge otherwise unrelated walks: many
// distinct neighbors, a sparse neighborhood, and an inverse-weight
// connectivity score ranked in the configured top fraction of the cluster.
func (h *ClusterHandler) findHubs(sub *Graph, c *Cluster) map[VertexID]bool {
	n := len(c.Members)
	type connInfo struct {
		v      VertexID
		score  float64
		nbrN   int
		nbrTPR float64
	}
	infos := make([]connInfo, 0, n)
	scores := make([]float64, 0, n)
	for _, v := range c.Members {
		nb := sub.neighbors(v)
		info := connInfo{v: v, score: sub.inverseWeightSum(v), nbrN: len(nb)}
		if len(nb) <= 1 {
			info.nbrTPR = 1
		} else {
			info.nbrTPR = float64(sub.ConnectedPairs(nb)) / float64(combin.Binomial(len(nb), 2))
		}
		infos = append(infos, info)
		scores = append(scores, info.score)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	rank := int(h.opts.HubThreshold * float64(n))
	if rank >= len(scores) {
		rank = len(scores) - 1
	}
	cutoff := scores[rank]

	hubs := map[VertexID]bool{}
	for _, info := range infos {
		if float64(info.nbrN) > h.opts.SegmentDistThreshold*float64(n) &&
			info.nbrTPR < h.opts.MinConnectedThreshold &&
			info.score > cutoff {
			hubs[info.v] = true
		}
	}
	return hubs
}
