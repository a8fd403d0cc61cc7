package drive

import (
	"context"
	stderrors "errors"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// RunConfig carries everything one run needs besides the loci themselves.
// It is immutable once built; components read only the fields they name.
type RunConfig struct {
	Opts    Opts
	Format  Format
	IBDPath string

	Phenotypes   *PhenotypeTable   // nil when no case file was given
	Descriptions map[string]string // nil when no description file was given
	Cohort       []string          // nil when unrestricted
}

// RunLocus runs the whole pipeline for a single locus: filter, graph,
// clustering with refinement, then the registered analysis stages. All
// intermediate state (intern table, graph, cluster set) is owned by the
// returned dataset and shared with nothing else.
func RunLocus(ctx context.Context, cfg RunConfig, locus Locus) (*Dataset, error) {
	filter := NewFilter(cfg.Opts, locus, cfg.Format, cfg.Cohort)
	if err := filter.Ingest(ctx, cfg.IBDPath); err != nil {
		return nil, err
	}
	graph := BuildGraph(filter.DB(), filter.Segments())
	clusters := NewClusterHandler(cfg.Opts).FindClusters(graph, locus)
	log.Printf("%s: identified %d IBD clusters", locus.Name, len(clusters))

	ds := &Dataset{
		Locus:        locus,
		Graph:        graph,
		Clusters:     clusters,
		Phenotypes:   cfg.Phenotypes,
		Descriptions: cfg.Descriptions,
	}
	if err := RunAnalyzers(ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// Run processes the loci, farming them out to parallel workers; every locus
// run owns its own state, so the only shared data are the read-only config
// tables. Datasets come back in locus order. An empty filter result skips
// the locus when Opts.SkipEmptyLoci is set and aborts the run otherwise; a
// wrong-chromosome file always aborts.
func Run(ctx context.Context, cfg RunConfig, loci []Locus) ([]*Dataset, error) {
	results := make([]*Dataset, len(loci))
	err := traverse.Each(len(loci), func(i int) error {
		ds, err := RunLocus(ctx, cfg, loci[i])
		if err != nil {
			if stderrors.Is(err, ErrEmptyFilter) && cfg.Opts.SkipEmptyLoci {
				log.Printf("%s: %v; skipping locus", loci[i].Name, err)
				return nil
			}
			return err
		}
		results[i] = ds
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := results[:0]
	for _, ds := range results {
		if ds != nil {
			out = append(out, ds)
		}
	}
	return out, nil
}
