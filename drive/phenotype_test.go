package drive

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhenotypeTable(t *testing.T) {
	data := "grids\tP1\tP2\n" +
		"a\t1\t0\n" +
		"b\t0\t1\n" +
		"c\t-1\tNA\n" +
		"d\t\tN/A\n" +
		"e\t1\tmaybe\n" // unrecognized value: excluded with a warning
	table, err := parsePhenotypeTable(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, table.Labels)

	p1 := table.Counts("P1")
	assert.Contains(t, p1.Cases, "a")
	assert.Contains(t, p1.Cases, "e")
	assert.Contains(t, p1.Controls, "b")
	assert.Contains(t, p1.Excluded, "c")
	assert.Contains(t, p1.Excluded, "d")

	p2 := table.Counts("P2")
	assert.Contains(t, p2.Cases, "b")
	assert.Contains(t, p2.Controls, "a")
	assert.Contains(t, p2.Excluded, "c")
	assert.Contains(t, p2.Excluded, "d")
	assert.Contains(t, p2.Excluded, "e")

	// f = cases / (cases + controls + excluded).
	assert.InDelta(t, 2.0/5.0, p1.Frequency(), 1e-15)
}

func TestParsePhenotypeTableMissingCells(t *testing.T) {
	// A short row leaves the trailing phenotypes without a cell; those
	// individuals are excluded for the missing phenotypes.
	data := "GRID\tP1\tP2\n" + "a\t1\n"
	table, err := parsePhenotypeTable(strings.NewReader(data))
	require.NoError(t, err)
	assert.Contains(t, table.Counts("P1").Cases, "a")
	assert.Contains(t, table.Counts("P2").Excluded, "a")
}

func TestParsePhenotypeTableBadHeader(t *testing.T) {
	_, err := parsePhenotypeTable(strings.NewReader("IID\tP1\na\t1\n"))
	assert.Error(t, err)
	_, err = parsePhenotypeTable(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadPhenotypeTableGzip(t *testing.T) {
	dir, err := ioutil.TempDir("", "drive-pheno")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "cases.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("grid\tP1\na\t1\nb\t0\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	table, err := ReadPhenotypeTable(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, table.Counts("P1").Cases, "a")
	assert.Contains(t, table.Counts("P1").Controls, "b")
}

func TestReadCohort(t *testing.T) {
	dir, err := ioutil.TempDir("", "drive-cohort")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "cohort.txt")
	require.NoError(t, ioutil.WriteFile(path, []byte("a\nb\n\nc\n"), 0644))
	iids, err := ReadCohort(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, iids)
}

func TestReadDescriptions(t *testing.T) {
	dir, err := ioutil.TempDir("", "drive-desc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "desc.txt")
	require.NoError(t, ioutil.WriteFile(path,
		[]byte("phecode\tphenotype\n008\tIntestinal infection\n010\tTuberculosis\n"), 0644))
	desc, err := ReadDescriptions(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Intestinal infection", desc["008"])
	assert.Equal(t, "Tuberculosis", desc["010"])
}
