package drive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// Locus is one target genomic region. Loci come either from the -t target
// string or from a gene file, and in sliding-window mode from windowing a
// single parent region.
type Locus struct {
	Name  string
	Chrom string
	Start int64
	End   int64
}

func (l Locus) String() string {
	return fmt.Sprintf("%s:%d-%d", l.Chrom, l.Start, l.End)
}

// windowSize is the width of the sub-regions emitted in sliding-window mode.
const windowSize = 1000

var targetRE = regexp.MustCompile(`^([^:]+):(\d+)(?:-(\d+))?$`)

// ParseTarget parses a target region string of the form chr:start-end, or
// chr:pos for a single position.
func ParseTarget(target string) (Locus, error) {
	m := targetRE.FindStringSubmatch(target)
	if m == nil {
		return Locus{}, errors.E(errors.Invalid,
			fmt.Sprintf("invalid target %q: expected chromosome:start-end", target))
	}
	start, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return Locus{}, errors.E(errors.Invalid, err, "invalid target", target)
	}
	end := start
	if m[3] != "" {
		if end, err = strconv.ParseInt(m[3], 10, 64); err != nil {
			return Locus{}, errors.E(errors.Invalid, err, "invalid target", target)
		}
	}
	if start > end {
		return Locus{}, errors.E(errors.Invalid,
			fmt.Sprintf("invalid target %q: start %d > end %d", target, start, end))
	}
	return Locus{Name: target, Chrom: m[1], Start: start, End: end}, nil
}

// LocusScanner yields the sequence of target loci for one run. The sequence
// is lazy, finite, and cannot be restarted.
type LocusScanner struct {
	next    []Locus
	scanner *bufio.Scanner
	window  bool
	nRead   int
	cur     Locus
	err     error
	ctx     context.Context
	in      file.File
}

// NewLocusScanner opens a gene file and returns a scanner over its loci, one
// whitespace-separated (name, chromosome, start, end) record per line, no
// header. With window set, the file must hold exactly one record and the
// scanner emits fixed-width sub-loci covering it.
func NewLocusScanner(ctx context.Context, path string, window bool) (*LocusScanner, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open gene file", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u, ok := compress.NewReaderPath(r, in.Name()); ok {
		r = u
	}
	return &LocusScanner{
		scanner: bufio.NewScanner(r),
		window:  window,
		ctx:     ctx,
		in:      in,
	}, nil
}

// SingleLocusScanner returns a scanner that yields just the given locus, or
// its sliding windows.
func SingleLocusScanner(l Locus, window bool) *LocusScanner {
	s := &LocusScanner{window: window}
	if window {
		s.next = slidingWindows(l)
	} else {
		s.next = []Locus{l}
	}
	return s
}

// slidingWindows cuts [start, end] into windowSize-unit sub-loci, inclusive
// of the final partial window.
func slidingWindows(parent Locus) []Locus {
	var out []Locus
	for start := parent.Start; start < parent.End; start += windowSize {
		end := start + windowSize
		if end > parent.End {
			end = parent.End
		}
		out = append(out, Locus{
			Name:  fmt.Sprintf("%s_%d-%d", parent.Name, start, end),
			Chrom: parent.Chrom,
			Start: start,
			End:   end,
		})
	}
	if len(out) == 0 { // degenerate single-position parent
		out = []Locus{{
			Name:  fmt.Sprintf("%s_%d-%d", parent.Name, parent.Start, parent.End),
			Chrom: parent.Chrom,
			Start: parent.Start,
			End:   parent.End,
		}}
	}
	return out
}

func parseLocusLine(line string, lineno int) (Locus, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Locus{}, errors.E(errors.Invalid,
			fmt.Sprintf("invalid gene file line %d: expected 4 fields (name chromosome start end), found %d", lineno, len(fields)))
	}
	if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
		// A numeric first field almost always means the columns are in the
		// wrong order.
		return Locus{}, errors.E(errors.Invalid,
			fmt.Sprintf("invalid gene file line %d: first field %q is numeric; expected a region name", lineno, fields[0]))
	}
	start, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Locus{}, errors.E(errors.Invalid, err,
			fmt.Sprintf("invalid gene file line %d: bad start position", lineno))
	}
	end, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Locus{}, errors.E(errors.Invalid, err,
			fmt.Sprintf("invalid gene file line %d: bad end position", lineno))
	}
	if start > end {
		return Locus{}, errors.E(errors.Invalid,
			fmt.Sprintf("invalid gene file line %d: start %d > end %d", lineno, start, end))
	}
	return Locus{Name: fields[0], Chrom: fields[1], Start: start, End: end}, nil
}

// Scan advances to the next locus. It returns false at the end of the
// sequence or on error; check Err after a false return.
func (s *LocusScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	if len(s.next) > 0 {
		s.cur, s.next = s.next[0], s.next[1:]
		return true
	}
	if s.scanner == nil {
		return false
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		s.nRead++
		locus, err := parseLocusLine(line, s.nRead)
		if err != nil {
			s.err = err
			return false
		}
		if s.window {
			if s.nRead > 1 {
				s.err = errors.E(errors.Invalid,
					"sliding-window mode expects a gene file with exactly one region")
				return false
			}
			s.next = slidingWindows(locus)
			return s.Scan()
		}
		s.cur = locus
		return true
	}
	s.err = s.scanner.Err()
	return false
}

// Locus returns the locus read by the last successful Scan.
func (s *LocusScanner) Locus() Locus { return s.cur }

// Err returns the first error encountered while scanning.
func (s *LocusScanner) Err() error { return s.err }

// Close releases the underlying file, if any.
func (s *LocusScanner) Close() error {
	if s.in == nil {
		return nil
	}
	return s.in.Close(s.ctx)
}

// inRegion reports whether a segment [start, end] on chrom satisfies the
// predicate against the locus. Chromosome names match either bare or with a
// chr prefix.
func (l Locus) inRegion(chrom string, start, end int64, p RegionPredicate) bool {
	if !l.chromMatches(chrom) {
		return false
	}
	if p == Contains {
		return start <= l.Start && end >= l.End
	}
	return start <= l.End && end >= l.Start
}

func (l Locus) chromMatches(chrom string) bool {
	if chrom == l.Chrom {
		return true
	}
	return strings.TrimPrefix(chrom, "chr") == strings.TrimPrefix(l.Chrom, "chr")
}
