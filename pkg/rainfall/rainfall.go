// Package rainfall computes windowed annual rainfall averages per region.
package rainfall

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/hazyhaar/agriquery/pkg/dataset"
	"github.com/hazyhaar/agriquery/pkg/region"
	"github.com/hazyhaar/agriquery/pkg/schema"
)

// WindowYears is the length of the report window, ending at the latest year.
const WindowYears = 10

var (
	// ErrNoRegion is returned when the question names no registered region.
	ErrNoRegion = errors.New("no recognized region in question")
	// ErrNoYears is matched by DataError.
	ErrNoYears = errors.New("no parseable year in rainfall data")
)

// DataError reports a rainfall dataset without a single usable year.
type DataError struct {
	Dataset string
	Column  int
}

func (e *DataError) Error() string {
	if e.Column == dataset.NotFound {
		return fmt.Sprintf("%s: %v (year column not found)", e.Dataset, ErrNoYears)
	}
	return fmt.Sprintf("%s: %v (column %d)", e.Dataset, ErrNoYears, e.Column)
}

func (e *DataError) Is(target error) bool { return target == ErrNoYears }

// RegionAverage is the outcome for one requested region.
// Count == 0 means no data, and Mean is then meaningless.
type RegionAverage struct {
	Name  string  `json:"name"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// HasData reports whether any record contributed.
func (a RegionAverage) HasData() bool { return a.Count > 0 }

// Report is the windowed comparison across requested regions.
type Report struct {
	LatestYear int             `json:"latest_year"`
	From       int             `json:"from"`
	To         int             `json:"to"`
	Regions    []RegionAverage `json:"regions"`
}

// Columns lists the roles Compare reads.
var Columns = []schema.Role{schema.RoleSubdivision, schema.RoleYear, schema.RoleAnnual}

// Aggregator computes rainfall reports against one registry.
type Aggregator struct {
	Registry *region.Registry
	Logger   *slog.Logger
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// Compare averages the annual value of every record in the report window
// for each requested region, keeping regions in the order given.
//
// A row contributes at most once per region. Rows whose year or annual value
// does not parse are skipped silently. When the subdivision role is not
// resolved, column 0 is read as the subdivision name.
func (a *Aggregator) Compare(tbl *dataset.Table, cols schema.Columns, regions []string) (*Report, error) {
	if len(regions) == 0 {
		return nil, ErrNoRegion
	}

	yearIdx := cols.Index(schema.RoleYear)
	annualIdx := cols.Index(schema.RoleAnnual)
	subIdx := cols.Index(schema.RoleSubdivision)
	if subIdx == dataset.NotFound {
		subIdx = 0
	}

	latest, ok := latestYear(tbl, yearIdx)
	if !ok {
		return nil, &DataError{Dataset: tbl.Name, Column: yearIdx}
	}
	from := latest - (WindowYears - 1)
	a.logger().Info("rainfall window", "latest_year", latest, "from", from, "to", latest)

	sums := make([]float64, len(regions))
	counts := make([]int, len(regions))

	for _, row := range tbl.Rows {
		year, ok := intCell(row, yearIdx)
		if !ok || year < from || year > latest {
			continue
		}
		val, ok := floatCell(row, annualIdx)
		if !ok {
			continue
		}
		sub, _ := dataset.Cell(row, subIdx)
		for i, name := range regions {
			if a.Registry.Matches(name, sub) {
				sums[i] += val
				counts[i]++
			}
		}
	}

	rep := &Report{LatestYear: latest, From: from, To: latest, Regions: make([]RegionAverage, len(regions))}
	for i, name := range regions {
		avg := RegionAverage{Name: name, Count: counts[i]}
		if counts[i] > 0 {
			avg.Mean = sums[i] / float64(counts[i])
		}
		rep.Regions[i] = avg
		a.logger().Debug("rainfall aggregate", "region", name, "mean", avg.Mean, "records", avg.Count)
	}
	return rep, nil
}

// Window returns the years covered by the report, oldest first.
func (r *Report) Window() []int {
	years := make([]int, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		years = append(years, y)
	}
	return years
}

func latestYear(tbl *dataset.Table, idx int) (int, bool) {
	latest, found := 0, false
	for _, row := range tbl.Rows {
		y, ok := intCell(row, idx)
		if !ok {
			continue
		}
		if !found || y > latest {
			latest, found = y, true
		}
	}
	return latest, found
}

func intCell(row []string, idx int) (int, bool) {
	s, ok := dataset.Cell(row, idx)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func floatCell(row []string, idx int) (float64, bool) {
	s, ok := dataset.Cell(row, idx)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
