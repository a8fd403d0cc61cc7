package drive

// Segment is one retained pairwise IBD segment. The filter guarantees
// Vid1 != Vid2, LengthCM >= Opts.MinCM, and that the segment satisfies the
// configured region predicate against the current locus.
type Segment struct {
	Vid1, Vid2 VertexID
	Hap1, Hap2 string
	IID1, IID2 string
	Chrom      string
	Start, End int64
	LengthCM   float64
}
