package drive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// PhenotypeCounts holds the case/control split of one phenotype over the
// whole cohort. The three sets are pairwise disjoint.
type PhenotypeCounts struct {
	Cases    map[string]struct{}
	Controls map[string]struct{}
	Excluded map[string]struct{}
}

// Frequency returns the population frequency of the phenotype: cases over
// everyone who appears in the matrix column.
func (p *PhenotypeCounts) Frequency() float64 {
	total := len(p.Cases) + len(p.Controls) + len(p.Excluded)
	if total == 0 {
		return 0
	}
	return float64(len(p.Cases)) / float64(total)
}

// PhenotypeTable is the parsed case/control matrix. Labels preserves the
// header order, which fixes the phenotype order everywhere downstream.
type PhenotypeTable struct {
	Labels []string
	counts map[string]*PhenotypeCounts
}

// Counts returns the case/control split for a phenotype label.
func (t *PhenotypeTable) Counts(label string) *PhenotypeCounts { return t.counts[label] }

// ReadPhenotypeTable parses a tab-separated case/control matrix. The header
// row is required; its first column must be grid or grids (any case) and the
// remaining columns name phenotypes. Cells hold 1 for a case, 0 for a
// control, and -1, NA, N/A or an empty cell for an excluded individual.
// Unrecognized values are warned about and treated as excluded. The file may
// be gzipped.
func ReadPhenotypeTable(ctx context.Context, path string) (*PhenotypeTable, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open case file", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	var r io.Reader = in.Reader(ctx)
	if u, ok := compress.NewReaderPath(r, in.Name()); ok {
		r = u
	}
	t, err := parsePhenotypeTable(r)
	if err != nil {
		return nil, errors.E(err, "parse case file", path)
	}
	log.Printf("Loaded case/control status for %d phenotypes from %s", len(t.Labels), path)
	return t, nil
}

func parsePhenotypeTable(r io.Reader) (*PhenotypeTable, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.E(errors.Invalid, "case file is empty")
	}
	header := strings.Split(strings.TrimRight(sc.Text(), "\r\n"), "\t")
	first := strings.ToLower(strings.TrimSpace(header[0]))
	if first != "grid" && first != "grids" {
		return nil, errors.E(errors.Invalid,
			fmt.Sprintf("case file header must start with grid or grids, found %q", header[0]))
	}
	t := &PhenotypeTable{counts: map[string]*PhenotypeCounts{}}
	for _, label := range header[1:] {
		label = strings.TrimSpace(label)
		t.Labels = append(t.Labels, label)
		t.counts[label] = &PhenotypeCounts{
			Cases:    map[string]struct{}{},
			Controls: map[string]struct{}{},
			Excluded: map[string]struct{}{},
		}
	}
	nLine := 1
	for sc.Scan() {
		nLine++
		line := strings.TrimRight(sc.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		iid := strings.TrimSpace(fields[0])
		for i, label := range t.Labels {
			value := ""
			if i+1 < len(fields) {
				value = strings.TrimSpace(fields[i+1])
			}
			counts := t.counts[label]
			switch strings.ToUpper(value) {
			case "1":
				counts.Cases[iid] = struct{}{}
			case "0":
				counts.Controls[iid] = struct{}{}
			case "-1", "NA", "N/A", "":
				counts.Excluded[iid] = struct{}{}
			default:
				log.Error.Printf("case file line %d: unrecognized status %q for %s/%s; treating %s as excluded",
					nLine, value, iid, label, iid)
				counts.Excluded[iid] = struct{}{}
			}
		}
	}
	return t, sc.Err()
}

// ReadCohort reads an optional cohort restriction list, one individual id
// per line.
func ReadCohort(ctx context.Context, path string) ([]string, error) {
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open cohort file", path)
	}
	var iids []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			iids = append(iids, line)
		}
	}
	return iids, nil
}

// ReadDescriptions reads an optional tab-separated phenotype description
// lookup: a header row, then label and description columns.
func ReadDescriptions(ctx context.Context, path string) (map[string]string, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, err, "open description file", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	var r io.Reader = in.Reader(ctx)
	if u, ok := compress.NewReaderPath(r, in.Name()); ok {
		r = u
	}
	sc := bufio.NewScanner(r)
	out := map[string]string{}
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		if first {
			first = false
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		out[strings.TrimSpace(fields[0])] = strings.TrimSpace(fields[1])
	}
	return out, sc.Err()
}
