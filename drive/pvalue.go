package drive

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// PhenotypeResult is the enrichment result for one cluster and one
// phenotype. Valid is false when the statistic is undefined (no controls,
// or an empty network after exclusions); writers emit the N/A sentinel in
// that case.
type PhenotypeResult struct {
	CarriersInNetwork int
	ExcludedInNetwork int
	PValue            float64
	Valid             bool
}

// ClusterPhenotypes holds the per-phenotype results of one cluster plus the
// minimum p-value summary. HasMin is false when no phenotype produced a
// non-zero p-value below 1.
type ClusterPhenotypes struct {
	Results map[string]PhenotypeResult

	MinPValue    float64
	MinPhenotype string
	HasMin       bool
}

// binomTail returns P[X >= carriers] for X ~ Binomial(n, f).
func binomTail(carriers, n int, f float64) float64 {
	if carriers == 0 {
		// P[X >= 0] covers everyone.
		return 1
	}
	dist := distuv.Binomial{N: float64(n), P: f}
	return 1 - dist.CDF(float64(carriers-1))
}

// analyzeCluster computes the phenotype results for one cluster.
func analyzeCluster(c *Cluster, table *PhenotypeTable) *ClusterPhenotypes {
	out := &ClusterPhenotypes{
		Results:   make(map[string]PhenotypeResult, len(table.Labels)),
		MinPValue: 1,
	}
	for _, label := range table.Labels {
		counts := table.Counts(label)
		if len(counts.Controls) == 0 {
			out.Results[label] = PhenotypeResult{}
			continue
		}
		carriers, excluded := 0, 0
		for _, iid := range c.IIDs {
			if _, ok := counts.Cases[iid]; ok {
				carriers++
			}
			if _, ok := counts.Excluded[iid]; ok {
				excluded++
			}
		}
		n := len(c.IIDs) - excluded
		if n == 0 {
			out.Results[label] = PhenotypeResult{}
			continue
		}
		pvalue := binomTail(carriers, n, counts.Frequency())
		out.Results[label] = PhenotypeResult{
			CarriersInNetwork: carriers,
			ExcludedInNetwork: excluded,
			PValue:            pvalue,
			Valid:             true,
		}
		if pvalue < out.MinPValue && pvalue != 0 {
			out.MinPValue = pvalue
			out.MinPhenotype = label
			out.HasMin = true
		}
	}
	return out
}

// PhenotypeAnalyzer is the analysis stage computing binomial enrichment
// p-values for every cluster and phenotype.
type PhenotypeAnalyzer struct{}

func (PhenotypeAnalyzer) Name() string { return "pvalues" }

func (PhenotypeAnalyzer) Analyze(ds *Dataset) error {
	if ds.Phenotypes == nil {
		return nil
	}
	if ds.Pvalues == nil {
		ds.Pvalues = map[string]*ClusterPhenotypes{}
	}
	for _, c := range ds.Clusters {
		ds.Pvalues[c.ID] = analyzeCluster(c, ds.Phenotypes)
	}
	return nil
}

func init() {
	RegisterAnalyzer(PhenotypeAnalyzer{})
}
