package drive

// RegionPredicate selects how an IBD segment must relate to the target locus
// to be retained by the filter.
type RegionPredicate int

const (
	// Contains keeps a segment only if it spans the whole locus.
	Contains RegionPredicate = iota
	// Overlaps keeps a segment if it intersects the locus at all.
	Overlaps
)

func (p RegionPredicate) String() string {
	if p == Contains {
		return "contains"
	}
	return "overlaps"
}

type Opts struct {
	// MinCM is the minimum segment length, in centimorgans. Segments below
	// the threshold are weak evidence and are dropped by the filter.
	MinCM float64
	// StepSize is the random-walk step length used by the Walktrap
	// clusterer.
	StepSize int
	// Predicate selects the region test applied to each segment.
	Predicate RegionPredicate

	// MinClusterSize is the size a community must exceed to become a
	// cluster. Smaller communities are discarded.
	MinClusterSize int
	// MaxNetworkSize is the size above which a poorly connected cluster is
	// re-examined.
	MaxNetworkSize int
	// MinConnectedThreshold is the minimum true-positive ratio a cluster
	// must reach to escape refinement.
	MinConnectedThreshold float64
	// MaxRechecks bounds the number of refinement rounds.
	MaxRechecks int

	// SegmentDistThreshold is the fraction of a cluster's size a vertex's
	// neighbor count must exceed before the vertex is considered a hub.
	SegmentDistThreshold float64
	// HubThreshold is the fraction of a cluster ranked as top connectivity
	// when identifying hubs.
	HubThreshold float64

	// SkipEmptyLoci makes an empty filter result skip to the next locus
	// instead of aborting the run.
	SkipEmptyLoci bool

	// maxMerges caps the number of Walktrap merge steps. Zero means
	// unlimited. Used only by tests.
	maxMerges int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	MinCM:                 3,    // -m
	StepSize:              3,    // -k
	Predicate:             Overlaps,
	MinClusterSize:        2,    // --min-network-size
	MaxNetworkSize:        30,   // --max-network-size
	MinConnectedThreshold: 0.5,  // --min-connected-threshold
	MaxRechecks:           5,    // --max-recheck
	SegmentDistThreshold:  0.2,  // --segment-distribution-threshold
	HubThreshold:          0.01, // --hub-threshold
}
