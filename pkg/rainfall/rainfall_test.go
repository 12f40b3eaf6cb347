package rainfall

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/agriquery/internal/testutil"
	"github.com/hazyhaar/agriquery/pkg/dataset"
	"github.com/hazyhaar/agriquery/pkg/region"
	"github.com/hazyhaar/agriquery/pkg/schema"
)

func setup(t *testing.T, text string) (*Aggregator, *dataset.Table, schema.Columns) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	tbl, err := dataset.Parse("rainfall", text)
	require.NoError(t, err)
	cols := schema.Default(logger).Resolve(tbl.Header, Columns...)
	return &Aggregator{Registry: region.Default(), Logger: logger}, tbl, cols
}

func TestCompare_Maharashtra(t *testing.T) {
	a, tbl, cols := setup(t, `SUBDIVISION,YEAR,ANNUAL
Konkan,2020,2500.0
Vidarbha,2020,900.0
Konkan,2011,2200.0
`)

	rep, err := a.Compare(tbl, cols, []string{"Maharashtra"})
	require.NoError(t, err)

	assert.Equal(t, 2020, rep.LatestYear)
	assert.Equal(t, 2011, rep.From)
	assert.Equal(t, 2020, rep.To)
	require.Len(t, rep.Regions, 1)
	assert.Equal(t, 3, rep.Regions[0].Count)
	assert.InDelta(t, 1866.6667, rep.Regions[0].Mean, 0.001)
	assert.Equal(t, "1866.67", fmt.Sprintf("%.2f", rep.Regions[0].Mean))
}

func TestCompare_WindowExcludesOlderYears(t *testing.T) {
	var b strings.Builder
	b.WriteString("SUBDIVISION,YEAR,ANNUAL\n")
	for y := 1990; y <= 2020; y++ {
		fmt.Fprintf(&b, "Punjab,%d,%d\n", y, y)
	}

	a, tbl, cols := setup(t, b.String())
	rep, err := a.Compare(tbl, cols, []string{"Punjab"})
	require.NoError(t, err)

	assert.Equal(t, []int{2011, 2012, 2013, 2014, 2015, 2016, 2017, 2018, 2019, 2020}, rep.Window())
	assert.Equal(t, 10, rep.Regions[0].Count)
	// mean of 2011..2020; a 2010 record would pull it below 2015.5
	assert.InDelta(t, 2015.5, rep.Regions[0].Mean, 1e-9)
}

func TestCompare_OverlappingSubstringsCountOnce(t *testing.T) {
	// "konkan & goa" matches both "konkan" and "konkan & goa".
	a, tbl, cols := setup(t, "SUBDIVISION,YEAR,ANNUAL\nKonkan & Goa,2015,3000\n")

	rep, err := a.Compare(tbl, cols, []string{"Maharashtra"})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Regions[0].Count)
	assert.InDelta(t, 3000, rep.Regions[0].Mean, 1e-9)
}

func TestCompare_NoDataKeepsOtherRegions(t *testing.T) {
	a, tbl, cols := setup(t, "SUBDIVISION,YEAR,ANNUAL\nPunjab,2019,600\nPunjab,2020,700\n")

	rep, err := a.Compare(tbl, cols, []string{"Gujarat", "Punjab"})
	require.NoError(t, err)
	require.Len(t, rep.Regions, 2)

	assert.Equal(t, "Gujarat", rep.Regions[0].Name)
	assert.False(t, rep.Regions[0].HasData())
	assert.Equal(t, "Punjab", rep.Regions[1].Name)
	assert.True(t, rep.Regions[1].HasData())
	assert.InDelta(t, 650, rep.Regions[1].Mean, 1e-9)
}

func TestCompare_SkipsUnparseable(t *testing.T) {
	a, tbl, cols := setup(t, `SUBDIVISION,YEAR,ANNUAL
Punjab,2020,NA
Punjab,20x0,500
Punjab,2019,Inf
Punjab,2019,NaN
Punjab,2018
Punjab,2017,400
`)

	rep, err := a.Compare(tbl, cols, []string{"Punjab"})
	require.NoError(t, err)
	assert.Equal(t, 2020, rep.LatestYear)
	assert.Equal(t, 1, rep.Regions[0].Count)
	assert.InDelta(t, 400, rep.Regions[0].Mean, 1e-9)
}

func TestCompare_NoRegion(t *testing.T) {
	a, tbl, cols := setup(t, "SUBDIVISION,YEAR,ANNUAL\nPunjab,2020,1\n")
	_, err := a.Compare(tbl, cols, nil)
	assert.ErrorIs(t, err, ErrNoRegion)
}

func TestCompare_NoParseableYear(t *testing.T) {
	a, tbl, cols := setup(t, "SUBDIVISION,YEAR,ANNUAL\nPunjab,n/a,1\nPunjab,,2\n")

	_, err := a.Compare(tbl, cols, []string{"Punjab"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoYears))

	var de *DataError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "rainfall", de.Dataset)
	assert.Equal(t, 1, de.Column)
}

func TestCompare_YearColumnMissing(t *testing.T) {
	a, tbl, cols := setup(t, "SUBDIVISION,ANNUAL\nPunjab,1\n")

	_, err := a.Compare(tbl, cols, []string{"Punjab"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoYears)
	assert.Contains(t, err.Error(), "year column not found")
}

func TestCompare_AnnualColumnMissing(t *testing.T) {
	a, tbl, cols := setup(t, "SUBDIVISION,YEAR,JAN\nPunjab,2020,10\n")

	rep, err := a.Compare(tbl, cols, []string{"Punjab"})
	require.NoError(t, err)
	assert.False(t, rep.Regions[0].HasData())
}

func TestCompare_SubdivisionFallsBackToFirstColumn(t *testing.T) {
	a, tbl, cols := setup(t, "REGION_NAME,YEAR,ANNUAL\nSaurashtra & Kutch,2020,500\nGujarat Region,2020,700\n")
	require.False(t, cols.Found(schema.RoleSubdivision))

	rep, err := a.Compare(tbl, cols, []string{"Gujarat"})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Regions[0].Count)
	assert.InDelta(t, 600, rep.Regions[0].Mean, 1e-9)
}

func TestCompare_Deterministic(t *testing.T) {
	text := "SUBDIVISION,YEAR,ANNUAL\nPunjab,2020,1.5\nKonkan,2019,2.25\nChennai,2018,3\n"
	a, tbl, cols := setup(t, text)

	first, err := a.Compare(tbl, cols, []string{"Tamil Nadu", "Maharashtra", "Punjab"})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := a.Compare(tbl, cols, []string{"Tamil Nadu", "Maharashtra", "Punjab"})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
