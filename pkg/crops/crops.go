// Package crops ranks crop production records for one region and year.
package crops

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/agriquery/pkg/dataset"
	"github.com/hazyhaar/agriquery/pkg/schema"
)

// DefaultLimit is how many crops a ranking returns.
const DefaultLimit = 3

// Columns lists the roles Top reads.
var Columns = []schema.Role{schema.RoleState, schema.RoleCropYear, schema.RoleCrop, schema.RoleProduction}

// Entry is one ranked crop. Production is the cell text as found in the data.
type Entry struct {
	Crop       string `json:"crop"`
	Production string `json:"production"`
}

// Ranking is the ranked result for one region and year.
type Ranking struct {
	Region  string  `json:"region"`
	Year    int     `json:"year"`
	Matched int     `json:"matched"`
	Entries []Entry `json:"entries"`
}

// Found reports whether any record matched the region and year.
func (r *Ranking) Found() bool { return r.Matched > 0 }

type candidate struct {
	row  []string
	prod float64
}

// Top filters rows whose state contains region and whose year equals year,
// then returns up to limit crops ordered by production, highest first.
//
// Missing or unparseable production sorts as zero but is still eligible.
// Rows with equal production keep their input order.
func Top(tbl *dataset.Table, cols schema.Columns, region string, year, limit int, logger *slog.Logger) *Ranking {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	stateIdx := cols.Index(schema.RoleState)
	yearIdx := cols.Index(schema.RoleCropYear)
	cropIdx := cols.Index(schema.RoleCrop)
	prodIdx := cols.Index(schema.RoleProduction)
	want := strings.ToLower(region)

	var matched []candidate
	for _, row := range tbl.Rows {
		state, ok := dataset.Cell(row, stateIdx)
		if !ok || state == "" || !strings.Contains(strings.ToLower(state), want) {
			continue
		}
		ys, _ := dataset.Cell(row, yearIdx)
		if y, err := strconv.Atoi(ys); err != nil || y != year {
			continue
		}
		matched = append(matched, candidate{row: row, prod: production(row, prodIdx)})
	}
	logger.Info("crop records filtered", "region", region, "year", year, "count", len(matched))

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].prod > matched[j].prod })

	r := &Ranking{Region: region, Year: year, Matched: len(matched)}
	for i := 0; i < len(matched) && i < limit; i++ {
		crop, _ := dataset.Cell(matched[i].row, cropIdx)
		prod, _ := dataset.Cell(matched[i].row, prodIdx)
		r.Entries = append(r.Entries, Entry{Crop: crop, Production: prod})
	}
	return r
}

func production(row []string, idx int) float64 {
	s, ok := dataset.Cell(row, idx)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}
