package drive

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/errors"
)

// Format identifies the IBD detection program that produced the pairwise
// input file. Each format fixes the column layout and the haplotype-id
// construction rule.
type Format int

const (
	HapIBD Format = iota
	ILASH
	Germline
	RaPID
)

// formatIndices holds the zero-based column positions of the fields the
// filter reads from one row of a pairwise IBD file.
type formatIndices struct {
	id1, hap1 int
	id2, hap2 int
	chrom     int
	start     int
	end       int
	cm        int
	// phaseAsID marks the formats whose phase column already carries a full
	// haplotype identifier. The others join "{iid}.{phase}".
	phaseAsID bool
}

var formatTable = map[Format]formatIndices{
	HapIBD:   {id1: 0, hap1: 1, id2: 2, hap2: 3, chrom: 4, start: 5, end: 6, cm: 7},
	ILASH:    {id1: 0, hap1: 1, id2: 2, hap2: 3, chrom: 4, start: 5, end: 6, cm: 9, phaseAsID: true},
	Germline: {id1: 0, hap1: 1, id2: 2, hap2: 3, chrom: 4, start: 5, end: 6, cm: 10, phaseAsID: true},
	RaPID:    {id1: 1, hap1: 3, id2: 2, hap2: 4, chrom: 0, start: 5, end: 6, cm: 7},
}

// ParseFormat maps a user-supplied format name to a Format. Matching is
// case-insensitive and accepts the hap-ibd spelling.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "hapibd", "hap-ibd":
		return HapIBD, nil
	case "ilash":
		return ILASH, nil
	case "germline":
		return Germline, nil
	case "rapid":
		return RaPID, nil
	}
	return 0, errors.E(errors.Invalid,
		fmt.Sprintf("unsupported ibd format %q: allowed values are hapibd, ilash, germline, rapid", name))
}

func (f Format) String() string {
	switch f {
	case HapIBD:
		return "hapibd"
	case ILASH:
		return "ilash"
	case Germline:
		return "germline"
	case RaPID:
		return "rapid"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

func (f Format) indices() formatIndices { return formatTable[f] }

// minColumns is the number of columns a row must have to be addressable by
// this format.
func (ix formatIndices) minColumns() int {
	max := ix.id1
	for _, i := range []int{ix.hap1, ix.id2, ix.hap2, ix.chrom, ix.start, ix.end, ix.cm} {
		if i > max {
			max = i
		}
	}
	return max + 1
}

// haplotypeID builds the haplotype identifier for one side of a row.
func (ix formatIndices) haplotypeID(iid, phase string) string {
	if ix.phaseAsID {
		return phase
	}
	return iid + "." + phase
}
