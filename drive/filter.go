package drive

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// chunkRows is the number of input rows buffered and processed at a time.
// Memory residency never exceeds one chunk plus the retained segments.
const chunkRows = 100000

var (
	// ErrEmptyFilter is returned when no segment satisfied the filter
	// conditions; no cluster can be formed from an empty graph.
	ErrEmptyFilter = stderrors.New("no shared IBD segments satisfied the filter conditions")
	// ErrWrongChromosome is returned when the target chromosome never
	// appears in the input, which almost always means the wrong per
	// chromosome file was supplied.
	ErrWrongChromosome = stderrors.New("target chromosome not present in the IBD file")
)

// Filter streams a pairwise IBD file and retains the segments relevant to
// one target locus, interning haplotype identifiers as it goes. A Filter is
// single use: one locus, one input file.
type Filter struct {
	opts   Opts
	locus  Locus
	ix     formatIndices
	cohort map[string]struct{} // nil means unrestricted

	db        *HaplotypeDB
	segments  []Segment
	chromSeen bool
	nRows     int
}

// NewFilter creates a filter for one locus run.
func NewFilter(opts Opts, locus Locus, format Format, cohort []string) *Filter {
	f := &Filter{
		opts:  opts,
		locus: locus,
		ix:    format.indices(),
		db:    NewHaplotypeDB(),
	}
	if len(cohort) > 0 {
		f.cohort = make(map[string]struct{}, len(cohort))
		for _, iid := range cohort {
			f.cohort[iid] = struct{}{}
		}
	}
	return f
}

// DB returns the haplotype intern table populated during ingestion.
func (f *Filter) DB() *HaplotypeDB { return f.db }

// Segments returns the retained segments in input order.
func (f *Filter) Segments() []Segment { return f.segments }

// Ingest reads the whole IBD file in bounded chunks, retaining the rows
// relevant to the locus. It returns ErrWrongChromosome if the target
// chromosome is never observed and ErrEmptyFilter if nothing survived.
// Cancellation is checked at chunk boundaries.
func (f *Filter) Ingest(ctx context.Context, path string) error {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(errors.NotExist, err, "open ibd file", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u, ok := compress.NewReaderPath(r, in.Name()); ok {
		r = u
	}
	log.Printf("Reading shared IBD segments around %s from %s", f.locus, path)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	chunk := make([]string, 0, chunkRows)
	for {
		chunk = chunk[:0]
		for len(chunk) < chunkRows && sc.Scan() {
			chunk = append(chunk, sc.Text())
		}
		if len(chunk) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			_ = in.Close(ctx)
			return err
		}
		if err := f.processChunk(chunk); err != nil {
			_ = in.Close(ctx)
			return err
		}
	}
	scanErr := sc.Err()
	if err := in.Close(ctx); err != nil && scanErr == nil {
		scanErr = err
	}
	if scanErr != nil {
		return errors.E(scanErr, "read ibd file", path)
	}
	if !f.chromSeen {
		return fmt.Errorf("%w: expected chromosome %s (or chr%s) in %s",
			ErrWrongChromosome, f.locus.Chrom, f.locus.Chrom, path)
	}
	if len(f.segments) == 0 {
		return fmt.Errorf("%w: locus %s, min %vcM, %s filter",
			ErrEmptyFilter, f.locus, f.opts.MinCM, f.opts.Predicate)
	}
	log.Printf("Retained %d of %d IBD segments covering %d haplotypes",
		len(f.segments), f.nRows, f.db.Len())
	return nil
}

func (f *Filter) processChunk(chunk []string) error {
	for _, line := range chunk {
		f.nRows++
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := f.processRow(line); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filter) processRow(line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) == 1 {
		// germline in particular is sometimes space separated.
		fields = strings.Fields(line)
	}
	if len(fields) < f.ix.minColumns() {
		return errors.E(errors.Invalid,
			fmt.Sprintf("ibd file row %d: expected at least %d columns, found %d", f.nRows, f.ix.minColumns(), len(fields)))
	}
	chrom := fields[f.ix.chrom]
	if f.locus.chromMatches(chrom) {
		f.chromSeen = true
	}
	start, err := strconv.ParseInt(fields[f.ix.start], 10, 64)
	if err != nil {
		return errors.E(errors.Invalid, err, fmt.Sprintf("ibd file row %d: bad segment start", f.nRows))
	}
	end, err := strconv.ParseInt(fields[f.ix.end], 10, 64)
	if err != nil {
		return errors.E(errors.Invalid, err, fmt.Sprintf("ibd file row %d: bad segment end", f.nRows))
	}
	// Some detectors emit the two positions swapped.
	if start > end {
		start, end = end, start
	}
	cm, err := strconv.ParseFloat(fields[f.ix.cm], 64)
	if err != nil {
		return errors.E(errors.Invalid, err, fmt.Sprintf("ibd file row %d: bad centimorgan length", f.nRows))
	}

	iid1, iid2 := fields[f.ix.id1], fields[f.ix.id2]
	if f.cohort != nil {
		if _, ok := f.cohort[iid1]; !ok {
			return nil
		}
		if _, ok := f.cohort[iid2]; !ok {
			return nil
		}
	}
	if cm < f.opts.MinCM || !f.locus.inRegion(chrom, start, end, f.opts.Predicate) {
		return nil
	}
	hap1 := f.ix.haplotypeID(iid1, fields[f.ix.hap1])
	hap2 := f.ix.haplotypeID(iid2, fields[f.ix.hap2])
	if hap1 == hap2 {
		// Self edge.
		return nil
	}
	vid1 := f.db.Intern(hap1, iid1)
	vid2 := f.db.Intern(hap2, iid2)
	f.segments = append(f.segments, Segment{
		Vid1: vid1, Vid2: vid2,
		Hap1: hap1, Hap2: hap2,
		IID1: iid1, IID2: iid2,
		Chrom: chrom, Start: start, End: end,
		LengthCM: cm,
	})
	return nil
}
