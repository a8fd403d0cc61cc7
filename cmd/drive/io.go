package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/jtb324/drive/drive"
	"github.com/klauspost/compress/gzip"
)

const naSentinel = "N/A"

func formatPValue(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// writeNetworks writes the per-cluster TSV: one row per final cluster with
// membership, connectedness, the per-phenotype triples in case-file column
// order, and the minimum p-value summary.
func writeNetworks(ctx context.Context, path string, datasets []*drive.Dataset, table *drive.PhenotypeTable) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := out.Writer(ctx)

	for _, ds := range datasets {
		if _, err = fmt.Fprintf(w, "## %s: %d IBD segments from %d haplotypes, %d clusters\n",
			ds.Locus.Name, ds.Graph.NumEdges(), ds.Graph.NumVertices(), len(ds.Clusters)); err != nil {
			return err
		}
	}

	tw := tsv.NewWriter(w)
	header := []string{
		"clstID", "locus", "chr", "start", "end",
		"n.total", "n.haplotype",
		"true.positive.n", "true.positive", "false.negative",
		"converged", "IDs", "ID.haplotype",
	}
	if table != nil {
		for _, label := range table.Labels {
			header = append(header,
				label+"_case_count_in_network",
				label+"_excluded_count_in_network",
				label+"_pvalue")
		}
		header = append(header, "min_pvalue", "min_phenotype", "min_phenotype_description")
	}
	for _, col := range header {
		tw.WriteString(col)
	}
	tw.EndLine()

	for _, ds := range datasets {
		for _, rec := range drive.ClusterRecords(ds) {
			tw.WriteString("clst" + rec.ClusterID)
			tw.WriteString(rec.Locus.Name)
			tw.WriteString(rec.Locus.Chrom)
			tw.WriteString(strconv.FormatInt(rec.Locus.Start, 10))
			tw.WriteString(strconv.FormatInt(rec.Locus.End, 10))
			tw.WriteString(strconv.Itoa(len(rec.IIDs)))
			tw.WriteString(strconv.Itoa(len(rec.Haplotypes)))
			tw.WriteString(strconv.Itoa(rec.TruePositiveEdges))
			tw.WriteString(strconv.FormatFloat(rec.TruePositiveRatio, 'f', 4, 64))
			tw.WriteString(strconv.Itoa(rec.FalseNegativeEdges))
			tw.WriteString(strconv.FormatBool(!rec.Unconverged))
			tw.WriteString(strings.Join(rec.IIDs, ","))
			tw.WriteString(strings.Join(rec.Haplotypes, ","))
			for _, col := range rec.Phenotypes {
				if !col.Valid {
					tw.WriteString(naSentinel)
					tw.WriteString(naSentinel)
					tw.WriteString(naSentinel)
					continue
				}
				tw.WriteString(strconv.Itoa(col.CarriersInNetwork))
				tw.WriteString(strconv.Itoa(col.ExcludedInNetwork))
				tw.WriteString(formatPValue(col.PValue))
			}
			if table != nil {
				if rec.HasMin {
					tw.WriteString(formatPValue(rec.MinPValue))
					tw.WriteString(rec.MinPhenotype)
					if rec.MinDescription != "" {
						tw.WriteString(rec.MinDescription)
					} else {
						tw.WriteString(naSentinel)
					}
				} else {
					tw.WriteString(naSentinel)
					tw.WriteString(naSentinel)
					tw.WriteString(naSentinel)
				}
			}
			tw.EndLine()
		}
	}
	return tw.Flush()
}

// writeAllPairs writes the gzipped per-pair TSV: every retained segment
// inside a final cluster, for traceability back to the input file.
func writeAllPairs(ctx context.Context, path string, datasets []*drive.Dataset) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer file.CloseAndReport(ctx, out, &err)
	gz := gzip.NewWriter(out.Writer(ctx))

	tw := tsv.NewWriter(gz)
	for _, col := range []string{
		"clstID", "locus",
		"hap1", "hap2", "IID1", "IID2",
		"chr", "start", "end", "cM",
	} {
		tw.WriteString(col)
	}
	tw.EndLine()
	for _, ds := range datasets {
		for _, rec := range drive.PairRecords(ds) {
			tw.WriteString("clst" + rec.ClusterID)
			tw.WriteString(rec.Locus.Name)
			tw.WriteString(rec.Hap1)
			tw.WriteString(rec.Hap2)
			tw.WriteString(rec.IID1)
			tw.WriteString(rec.IID2)
			tw.WriteString(rec.Chrom)
			tw.WriteString(strconv.FormatInt(rec.Start, 10))
			tw.WriteString(strconv.FormatInt(rec.End, 10))
			tw.WriteString(strconv.FormatFloat(rec.LengthCM, 'g', -1, 64))
			tw.EndLine()
		}
	}
	once := errors.Once{}
	once.Set(tw.Flush())
	once.Set(gz.Close())
	return once.Err()
}
