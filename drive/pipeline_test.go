package drive

import (
	"context"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

// End-to-end run over a file holding two disjoint cliques of haplotypes.
func TestRunLocus(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	pairs := append(
		clique("a.1", "a.2", "b.1", "b.2", "c.1", "c.2"),
		clique("d.1", "d.2", "e.1")...)
	var rows []string
	for _, p := range pairs {
		iid1, hap1 := p[0][:1], p[0][2:]
		iid2, hap2 := p[1][:1], p[1][2:]
		rows = append(rows, iid1+"\t"+hap1+"\t"+iid2+"\t"+hap2+"\t10\t1000\t9000\t5.0")
	}
	path := writeIBDFile(t, tempDir, "cliques.ibd.gz", rows)

	table, err := parsePhenotypeTable(strings.NewReader(
		"grid\tP1\n" +
			"a\t1\nb\t1\nc\t0\nd\t0\ne\t0\n"))
	assert.NoError(t, err)

	opts := DefaultOpts
	opts.Predicate = Contains
	opts.MaxRechecks = 0
	cfg := RunConfig{
		Opts:       opts,
		Format:     HapIBD,
		IBDPath:    path,
		Phenotypes: table,
	}
	locus := Locus{Name: "test", Chrom: "10", Start: 2000, End: 3000}
	ds, err := RunLocus(context.Background(), cfg, locus)
	assert.NoError(t, err)

	expect.EQ(t, clusterSizes(ds.Clusters), []int{6, 3})
	expect.EQ(t, ds.Graph.NumEdges(), 18)
	expect.EQ(t, ds.Graph.NumVertices(), 9)

	records := ClusterRecords(ds)
	expect.EQ(t, len(records), 2)
	expect.EQ(t, records[0].ClusterID, "0")
	expect.EQ(t, records[0].IIDs, []string{"a", "b", "c"})
	expect.EQ(t, records[0].Haplotypes, []string{"a.1", "a.2", "b.1", "b.2", "c.1", "c.2"})
	expect.EQ(t, records[0].TruePositiveRatio, 1.0)
	expect.EQ(t, len(records[0].Phenotypes), 1)
	r := records[0].Phenotypes[0]
	expect.EQ(t, r.Label, "P1")
	expect.True(t, r.Valid)
	expect.EQ(t, r.CarriersInNetwork, 2)
	expect.True(t, records[0].HasMin)
	expect.EQ(t, records[0].MinPhenotype, "P1")

	// The second cluster holds no carriers; its p-value is 1 and the
	// minimum summary stays empty.
	expect.EQ(t, records[1].Phenotypes[0].PValue, 1.0)
	expect.False(t, records[1].HasMin)

	// One pair record per clique edge.
	prs := PairRecords(ds)
	expect.EQ(t, len(prs), 18)
	expect.EQ(t, prs[0].ClusterID, "0")
}

func TestRunSkipsEmptyLoci(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeIBDFile(t, tempDir, "sparse.ibd", []string{
		"a\t1\tb\t1\t10\t1000\t1500\t5.0",
	})

	opts := DefaultOpts
	opts.Predicate = Contains
	opts.SkipEmptyLoci = true
	cfg := RunConfig{Opts: opts, Format: HapIBD, IBDPath: path}
	loci := []Locus{
		{Name: "hit", Chrom: "10", Start: 1100, End: 1400},
		{Name: "miss", Chrom: "10", Start: 5000, End: 6000},
	}
	datasets, err := Run(context.Background(), cfg, loci)
	assert.NoError(t, err)
	expect.EQ(t, len(datasets), 1)
	expect.EQ(t, datasets[0].Locus.Name, "hit")

	// Without the skip option the empty locus aborts the run.
	cfg.Opts.SkipEmptyLoci = false
	_, err = Run(context.Background(), cfg, loci)
	expect.NotNil(t, err)
}

// Per-locus state is independent: processing the same file and locus twice
// yields identical clusters from two separate intern tables.
func TestRunLocusIsolation(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	var rows []string
	for _, p := range clique("a.1", "a.2", "b.1", "b.2") {
		rows = append(rows, p[0][:1]+"\t"+p[0][2:]+"\t"+p[1][:1]+"\t"+p[1][2:]+"\t10\t1000\t9000\t5.0")
	}
	path := writeIBDFile(t, tempDir, "iso.ibd", rows)

	opts := DefaultOpts
	opts.Predicate = Contains
	cfg := RunConfig{Opts: opts, Format: HapIBD, IBDPath: path}
	locus := Locus{Name: "t", Chrom: "10", Start: 2000, End: 3000}

	ds1, err := RunLocus(context.Background(), cfg, locus)
	assert.NoError(t, err)
	ds2, err := RunLocus(context.Background(), cfg, locus)
	assert.NoError(t, err)
	expect.EQ(t, clusterSizes(ds1.Clusters), clusterSizes(ds2.Clusters))
	expect.EQ(t, ds1.Clusters[0].Members, ds2.Clusters[0].Members)
	expect.True(t, ds1.Graph.DB() != ds2.Graph.DB())
}
