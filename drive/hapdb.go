package drive

// VertexID is a dense sequence number (0, 1, 2, ...) assigned to a haplotype
// the first time it is seen by the filter. IDs are valid only within one
// locus run.
type VertexID int32

const invalidVertexID = VertexID(-1)

// HaplotypeInfo stores the info attached to one graph vertex.
type HaplotypeInfo struct {
	// VID is the dense id, valid only during the current locus run.
	VID VertexID
	// Hap is the haplotype identifier, e.g. "GRID001.1".
	Hap string
	// IID is the individual the haplotype belongs to.
	IID string
}

// HaplotypeDB interns haplotype identifiers to dense vertex ids and keeps
// the reverse mapping for the lifetime of one locus run. Not thread safe;
// each locus run owns its own table.
type HaplotypeDB struct {
	ids  map[string]VertexID
	haps []HaplotypeInfo
}

// NewHaplotypeDB creates an empty intern table.
func NewHaplotypeDB() *HaplotypeDB {
	return &HaplotypeDB{ids: map[string]VertexID{}}
}

// Intern finds or assigns a vertex id for the haplotype.
func (db *HaplotypeDB) Intern(hap, iid string) VertexID {
	if id, ok := db.ids[hap]; ok {
		return id
	}
	id := VertexID(len(db.haps))
	db.ids[hap] = id
	db.haps = append(db.haps, HaplotypeInfo{VID: id, Hap: hap, IID: iid})
	return id
}

// Lookup retrieves the vertex id for a haplotype without interning it. It
// returns invalidVertexID if the haplotype has not been seen.
func (db *HaplotypeDB) Lookup(hap string) VertexID {
	if id, ok := db.ids[hap]; ok {
		return id
	}
	return invalidVertexID
}

// Info returns the metadata for a vertex id.
//
// REQUIRES: id was returned by Intern.
func (db *HaplotypeDB) Info(id VertexID) HaplotypeInfo { return db.haps[int(id)] }

// Len returns the number of interned haplotypes. Vertex ids cover
// [0, Len()) contiguously.
func (db *HaplotypeDB) Len() int { return len(db.haps) }

// IIDs maps a set of vertex ids to the distinct individuals they belong to.
func (db *HaplotypeDB) IIDs(vids []VertexID) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range vids {
		iid := db.haps[int(v)].IID
		if _, ok := seen[iid]; ok {
			continue
		}
		seen[iid] = struct{}{}
		out = append(out, iid)
	}
	return out
}
