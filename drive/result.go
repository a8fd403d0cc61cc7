package drive

// PhenotypeColumn pairs a phenotype label with its result, preserving the
// case-file column order for writers.
type PhenotypeColumn struct {
	Label string
	PhenotypeResult
}

// ClusterRecord is the per-cluster output record. External writers own the
// textual formatting; the record keeps everything strongly typed, with
// sentinel conditions expressed through the Valid/HasMin flags.
type ClusterRecord struct {
	ClusterID string
	Locus     Locus

	IIDs       []string
	Haplotypes []string

	TruePositiveEdges  int
	TruePositiveRatio  float64
	FalseNegativeEdges int
	Unconverged        bool

	Phenotypes []PhenotypeColumn

	MinPValue      float64
	MinPhenotype   string
	MinDescription string
	HasMin         bool
}

// PairRecord traces one retained segment inside a final cluster back to its
// input fields.
type PairRecord struct {
	ClusterID string
	Locus     Locus
	Segment
}

// ClusterRecords builds the per-cluster records for one locus dataset.
func ClusterRecords(ds *Dataset) []ClusterRecord {
	out := make([]ClusterRecord, 0, len(ds.Clusters))
	for _, c := range ds.Clusters {
		rec := ClusterRecord{
			ClusterID:          c.ID,
			Locus:              ds.Locus,
			IIDs:               c.IIDs,
			TruePositiveEdges:  c.TruePositiveEdges,
			TruePositiveRatio:  c.TruePositiveRatio,
			FalseNegativeEdges: c.FalseNegativeEdges,
			Unconverged:        c.Unconverged,
		}
		for _, v := range c.Members {
			rec.Haplotypes = append(rec.Haplotypes, ds.Graph.DB().Info(v).Hap)
		}
		if ph := ds.Pvalues[c.ID]; ph != nil && ds.Phenotypes != nil {
			for _, label := range ds.Phenotypes.Labels {
				rec.Phenotypes = append(rec.Phenotypes, PhenotypeColumn{
					Label:           label,
					PhenotypeResult: ph.Results[label],
				})
			}
			if ph.HasMin {
				rec.HasMin = true
				rec.MinPValue = ph.MinPValue
				rec.MinPhenotype = ph.MinPhenotype
				if desc, ok := ds.Descriptions[ph.MinPhenotype]; ok {
					rec.MinDescription = desc
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

// PairRecords builds the per-pair traceability records: every retained
// segment whose endpoints both lie in the same final cluster.
func PairRecords(ds *Dataset) []PairRecord {
	var out []PairRecord
	for _, c := range ds.Clusters {
		for _, s := range ds.Graph.Segments() {
			if c.Contains(s.Vid1) && c.Contains(s.Vid2) {
				out = append(out, PairRecord{ClusterID: c.ID, Locus: ds.Locus, Segment: s})
			}
		}
	}
	return out
}
