package drive

// Dataset is everything a post-clustering stage may consume: the cluster
// set for one locus with the graph it came from and the cohort phenotype
// table. Stages attach their results here.
type Dataset struct {
	Locus    Locus
	Graph    *Graph
	Clusters []*Cluster

	// Phenotypes is nil when no case file was supplied.
	Phenotypes   *PhenotypeTable
	Descriptions map[string]string

	// Pvalues is filled by the phenotype analyzer, keyed by cluster id.
	Pvalues map[string]*ClusterPhenotypes
}

// Analyzer is a post-clustering stage. Analyzers are registered at compile
// time and run in registration order over each locus dataset.
type Analyzer interface {
	Name() string
	Analyze(ds *Dataset) error
}

var analyzers []Analyzer

// RegisterAnalyzer appends a stage to the analysis pipeline. Called from
// init functions.
func RegisterAnalyzer(a Analyzer) { analyzers = append(analyzers, a) }

// RunAnalyzers runs every registered stage over the dataset.
func RunAnalyzers(ds *Dataset) error {
	for _, a := range analyzers {
		if err := a.Analyze(ds); err != nil {
			return err
		}
	}
	return nil
}
