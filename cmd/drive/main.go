package main

/*
drive identifies clusters of individuals sharing IBD haplotype segments
across a target locus and computes phenotype enrichment statistics over the
resulting clusters.

Example 1: cluster a region of chromosome 10 from hap-IBD output.

   drive -i chr10.ibd.gz -f hapibd -t 10:1234567-1345678 -o chr10_clusters

Example 2: the same run with case/control enrichment.

   drive -i chr10.ibd.gz -f hapibd -t 10:1234567-1345678 -o chr10_clusters -c phecode_matrix.txt

Example 3: window the single region listed in a gene file.

   drive -i chr10.ibd.gz -f hapibd --gene-file genes.txt --sliding-window -o scan
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/jtb324/drive/drive"
)

var (
	inputPath   = flag.String("input", "", "IBD input file from hap-IBD, iLASH, GERMLINE or RaPID; may be gzipped (required)")
	format      = flag.String("format", "hapibd", "IBD file format: hapibd, ilash, germline or rapid")
	target      = flag.String("target", "", "Target region or position, chr:start-end or chr:pos; this xor -gene-file required")
	geneFile    = flag.String("gene-file", "", "File of target regions, one 'name chromosome start end' record per line; this xor -target required")
	window      = flag.Bool("sliding-window", false, "Slide fixed-size windows across the (single) target region instead of analyzing it whole")
	outPrefix   = flag.String("output", "", "Output path prefix (required)")
	minCM       = flag.Float64("min-cm", drive.DefaultOpts.MinCM, "Minimum centimorgan threshold")
	step        = flag.Int("step", drive.DefaultOpts.StepSize, "Steps for the random walk")
	maxRecheck  = flag.Int("max-recheck", drive.DefaultOpts.MaxRechecks, "Maximum number of times to re-perform the clustering; 0 disables refinement")
	maxNetwork  = flag.Int("max-network-size", drive.DefaultOpts.MaxNetworkSize, "Maximum network size before a poorly connected network is re-examined")
	minConnect  = flag.Float64("min-connected-threshold", drive.DefaultOpts.MinConnectedThreshold, "Minimum connectedness ratio required for a network")
	minNetwork  = flag.Int("min-network-size", drive.DefaultOpts.MinClusterSize, "Networks of this size or smaller are filtered out; 0 keeps everything")
	segmentDist = flag.Float64("segment-distribution-threshold", drive.DefaultOpts.SegmentDistThreshold, "Fraction of a network a haplotype's neighbor count must exceed to be a hub candidate")
	hubFrac     = flag.Float64("hub-threshold", drive.DefaultOpts.HubThreshold, "Fraction of a network ranked as top connectivity when pruning hubs")
	casePath    = flag.String("cases", "", "Tab-separated case/control matrix; first column grid(s), one column per phenotype")
	descPath    = flag.String("phenotype-descriptions", "", "Optional tab-separated phenotype description lookup")
	cohortPath  = flag.String("cohort", "", "Optional cohort restriction list, one individual id per line")
	filterMode  = flag.String("filter", "overlaps", "Region predicate: contains keeps only segments spanning the whole locus, overlaps keeps any intersecting segment")
	skipEmpty   = flag.Bool("skip-empty-loci", false, "Log and skip loci with no qualifying segments instead of aborting")
	verbose     = flag.Bool("v", false, "Print the resolved configuration and per-locus summaries")
)

func init() {
	// Short spellings for the most used flags.
	flag.StringVar(inputPath, "i", "", "Shorthand for -input")
	flag.StringVar(format, "f", "hapibd", "Shorthand for -format")
	flag.StringVar(target, "t", "", "Shorthand for -target")
	flag.StringVar(outPrefix, "o", "", "Shorthand for -output")
	flag.Float64Var(minCM, "m", drive.DefaultOpts.MinCM, "Shorthand for -min-cm")
	flag.IntVar(step, "k", drive.DefaultOpts.StepSize, "Shorthand for -step")
	flag.StringVar(casePath, "c", "", "Shorthand for -cases")
}

func driveUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -i ibdfile -f format {-t chr:start-end | -gene-file genes.txt} -o prefix [OPTIONS]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = driveUsage
	shutdown := grail.Init()
	defer shutdown()

	if *inputPath == "" || *outPrefix == "" {
		flag.Usage()
		log.Fatalf("-input and -output are required")
	}
	if (*target == "") == (*geneFile == "") {
		log.Fatalf("exactly one of -target and -gene-file must be given")
	}
	ibdFormat, err := drive.ParseFormat(*format)
	if err != nil {
		log.Fatalf("%v", err)
	}

	opts := drive.DefaultOpts
	opts.MinCM = *minCM
	opts.StepSize = *step
	opts.MaxRechecks = *maxRecheck
	opts.MaxNetworkSize = *maxNetwork
	opts.MinConnectedThreshold = *minConnect
	opts.MinClusterSize = *minNetwork
	opts.SegmentDistThreshold = *segmentDist
	opts.HubThreshold = *hubFrac
	opts.SkipEmptyLoci = *skipEmpty
	switch *filterMode {
	case "contains":
		opts.Predicate = drive.Contains
	case "overlaps":
		opts.Predicate = drive.Overlaps
	default:
		log.Fatalf("unrecognized -filter value %q: allowed values are contains and overlaps", *filterMode)
	}

	ctx := vcontext.Background()

	var scanner *drive.LocusScanner
	if *target != "" {
		locus, err := drive.ParseTarget(*target)
		if err != nil {
			log.Fatalf("%v", err)
		}
		scanner = drive.SingleLocusScanner(locus, *window)
	} else {
		if scanner, err = drive.NewLocusScanner(ctx, *geneFile, *window); err != nil {
			log.Fatalf("%v", err)
		}
	}
	var loci []drive.Locus
	for scanner.Scan() {
		loci = append(loci, scanner.Locus())
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := scanner.Close(); err != nil {
		log.Fatalf("close gene file: %v", err)
	}
	if len(loci) == 0 {
		log.Fatalf("no target loci to analyze")
	}

	cfg := drive.RunConfig{
		Opts:    opts,
		Format:  ibdFormat,
		IBDPath: *inputPath,
	}
	if *casePath != "" {
		if cfg.Phenotypes, err = drive.ReadPhenotypeTable(ctx, *casePath); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if *descPath != "" {
		if cfg.Descriptions, err = drive.ReadDescriptions(ctx, *descPath); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if *cohortPath != "" {
		if cfg.Cohort, err = drive.ReadCohort(ctx, *cohortPath); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if *verbose {
		log.Printf("configuration: %+v", opts)
		log.Printf("analyzing %d loci from %s (%s format)", len(loci), *inputPath, ibdFormat)
	}

	datasets, err := drive.Run(ctx, cfg, loci)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if *verbose {
		for _, ds := range datasets {
			log.Printf("%s: %d haplotypes, %d segments, %d clusters",
				ds.Locus.Name, ds.Graph.NumVertices(), ds.Graph.NumEdges(), len(ds.Clusters))
		}
	}

	networkPath := *outPrefix + ".drive.txt"
	if err := writeNetworks(ctx, networkPath, datasets, cfg.Phenotypes); err != nil {
		log.Fatalf("write %s: %v", networkPath, err)
	}
	allpairPath := *outPrefix + ".allpair.txt.gz"
	if err := writeAllPairs(ctx, allpairPath, datasets); err != nil {
		log.Fatalf("write %s: %v", allpairPath, err)
	}
	log.Printf("All done")
}
