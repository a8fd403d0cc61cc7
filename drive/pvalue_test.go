package drive

import (
	"fmt"
	"math"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func iidSet(iids ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(iids))
	for _, iid := range iids {
		out[iid] = struct{}{}
	}
	return out
}

func testTable(labels []string, counts map[string]*PhenotypeCounts) *PhenotypeTable {
	return &PhenotypeTable{Labels: labels, counts: counts}
}

func testCluster(iids ...string) *Cluster {
	return &Cluster{ID: "0", IIDs: iids}
}

func TestBinomTail(t *testing.T) {
	// No carriers: everyone is at or above zero.
	expect.EQ(t, binomTail(0, 10, 0.1), 1.0)
	// All members are carriers: P[X >= N] = f^N.
	got := binomTail(5, 5, 0.3)
	expect.LT(t, math.Abs(got-math.Pow(0.3, 5)), 1e-12)
	// One of one: P[X >= 1] = f.
	got = binomTail(1, 1, 0.25)
	expect.LT(t, math.Abs(got-0.25), 1e-12)
}

func TestAnalyzeClusterCounts(t *testing.T) {
	table := testTable([]string{"P1"}, map[string]*PhenotypeCounts{
		"P1": {
			Cases:    iidSet("a", "b", "x"),
			Controls: iidSet("c", "y", "z"),
			Excluded: iidSet("d"),
		},
	})
	// Network of four: two cases, one control, one excluded.
	res := analyzeCluster(testCluster("a", "b", "c", "d"), table)
	r := res.Results["P1"]
	expect.True(t, r.Valid)
	expect.EQ(t, r.CarriersInNetwork, 2)
	expect.EQ(t, r.ExcludedInNetwork, 1)
	// f = 3/7, N = 3, carriers = 2.
	want := binomTail(2, 3, 3.0/7.0)
	expect.EQ(t, r.PValue, want)
	expect.True(t, res.HasMin)
	expect.EQ(t, res.MinPhenotype, "P1")
	expect.EQ(t, res.MinPValue, want)
}

// A phenotype with no cases in the network has p-value 1 by convention.
func TestAnalyzeClusterNoCarriers(t *testing.T) {
	table := testTable([]string{"N"}, map[string]*PhenotypeCounts{
		"N": {
			Cases:    iidSet("x", "y"),
			Controls: iidSet("z", "w"),
			Excluded: iidSet(),
		},
	})
	res := analyzeCluster(testCluster("a", "b"), table)
	r := res.Results["N"]
	expect.True(t, r.Valid)
	expect.EQ(t, r.CarriersInNetwork, 0)
	expect.EQ(t, r.PValue, 1.0)
	// p-value 1 never becomes the minimum.
	expect.False(t, res.HasMin)
}

// Zero controls and empty networks produce the N/A sentinel.
func TestAnalyzeClusterDegenerate(t *testing.T) {
	table := testTable([]string{"NOCTRL", "ALLEX"}, map[string]*PhenotypeCounts{
		"NOCTRL": {
			Cases:    iidSet("a"),
			Controls: iidSet(),
			Excluded: iidSet("b"),
		},
		"ALLEX": {
			Cases:    iidSet("x"),
			Controls: iidSet("y"),
			Excluded: iidSet("a", "b"),
		},
	})
	res := analyzeCluster(testCluster("a", "b"), table)
	expect.False(t, res.Results["NOCTRL"].Valid)
	expect.False(t, res.Results["ALLEX"].Valid)
	expect.False(t, res.HasMin)
}

// A strongly enriched phenotype dominates the minimum tracking.
func TestPhenotypeEnrichment(t *testing.T) {
	// Population of 1000 with 10 cases: f = 0.01. The network holds five
	// individuals, four of them cases.
	cases := iidSet("m1", "m2", "m3", "m4")
	controls := map[string]struct{}{}
	for i := 0; i < 989; i++ {
		controls[fmt.Sprintf("ctrl%d", i)] = struct{}{}
	}
	controls["m5"] = struct{}{}
	for i := 0; i < 6; i++ {
		cases[fmt.Sprintf("case%d", i)] = struct{}{}
	}
	weak := &PhenotypeCounts{
		Cases:    iidSet("m1"),
		Controls: iidSet("m2", "m3", "m4", "m5"),
		Excluded: iidSet(),
	}
	table := testTable([]string{"WEAK", "X"}, map[string]*PhenotypeCounts{
		"WEAK": weak,
		"X":    {Cases: cases, Controls: controls, Excluded: iidSet()},
	})

	res := analyzeCluster(testCluster("m1", "m2", "m3", "m4", "m5"), table)
	r := res.Results["X"]
	expect.True(t, r.Valid)
	expect.EQ(t, r.CarriersInNetwork, 4)
	expect.LT(t, r.PValue, 1e-6)
	expect.True(t, res.HasMin)
	expect.EQ(t, res.MinPhenotype, "X")
	expect.EQ(t, res.MinPValue, r.PValue)
	// The reported minimum matches the recorded result for its phenotype.
	expect.EQ(t, res.Results[res.MinPhenotype].PValue, res.MinPValue)
}

func TestPhenotypeAnalyzerStage(t *testing.T) {
	g := testGraph([][2]string{{"a.1", "b.1"}}, 5.0)
	table := testTable([]string{"P"}, map[string]*PhenotypeCounts{
		"P": {Cases: iidSet("a"), Controls: iidSet("b"), Excluded: iidSet()},
	})
	opts := DefaultOpts
	opts.MinClusterSize = 1
	ds := &Dataset{
		Locus:      testLocus,
		Graph:      g,
		Clusters:   NewClusterHandler(opts).FindClusters(g, testLocus),
		Phenotypes: table,
	}
	expect.NoError(t, RunAnalyzers(ds))
	expect.EQ(t, len(ds.Pvalues), 1)
	r := ds.Pvalues["0"].Results["P"]
	expect.True(t, r.Valid)
	expect.EQ(t, r.CarriersInNetwork, 1)
}
