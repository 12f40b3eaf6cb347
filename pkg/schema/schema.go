// Package schema maps dataset header tokens to semantic column roles.
//
// Each role owns a case-insensitive pattern; the leftmost header token that
// matches wins. Roles that match nothing resolve to dataset.NotFound and are
// reported as a warning, never as an error.
package schema

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/hazyhaar/agriquery/pkg/dataset"
)

// Role is the semantic meaning of a column.
type Role string

const (
	RoleYear        Role = "year"
	RoleAnnual      Role = "annual"
	RoleSubdivision Role = "subdivision"
	RoleState       Role = "state"
	RoleCropYear    Role = "crop_year"
	RoleCrop        Role = "crop"
	RoleProduction  Role = "production"
)

// RoleSpec defines how a role is recognised in a header token.
// Exclude, when set, rejects tokens that Regex would otherwise accept.
type RoleSpec struct {
	Role    Role   `yaml:"role"`
	Regex   string `yaml:"regex"`
	Exclude string `yaml:"exclude,omitempty"`
}

// DefaultSpecs are the rules used for both bundled datasets.
// crop_year accepts any year-like token in the same leftmost pass, so a plain
// "Year" column serves when no crop-specific one exists.
var DefaultSpecs = []RoleSpec{
	{Role: RoleYear, Regex: `(?i)year`},
	{Role: RoleAnnual, Regex: `(?i)annual`},
	{Role: RoleSubdivision, Regex: `(?i)subdivision`},
	{Role: RoleState, Regex: `(?i)state`},
	{Role: RoleCropYear, Regex: `(?i)crop[_ ]?year|year`},
	{Role: RoleCrop, Regex: `(?i)crop`, Exclude: `(?i)crop[_ ]?year`},
	{Role: RoleProduction, Regex: `(?i)production`},
}

type rule struct {
	role    Role
	re      *regexp.Regexp
	exclude *regexp.Regexp
}

func (r rule) match(token string) bool {
	if !r.re.MatchString(token) {
		return false
	}
	return r.exclude == nil || !r.exclude.MatchString(token)
}

// Resolver resolves roles against headers. It is immutable once built.
type Resolver struct {
	rules  map[Role]rule
	logger *slog.Logger
}

// NewResolver compiles specs. A nil logger falls back to slog.Default().
func NewResolver(logger *slog.Logger, specs ...RoleSpec) (*Resolver, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("no role specs defined")
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Resolver{rules: make(map[Role]rule, len(specs)), logger: logger}
	for _, spec := range specs {
		re, err := regexp.Compile(spec.Regex)
		if err != nil {
			return nil, fmt.Errorf("role %q: %w", spec.Role, err)
		}
		ru := rule{role: spec.Role, re: re}
		if spec.Exclude != "" {
			ex, err := regexp.Compile(spec.Exclude)
			if err != nil {
				return nil, fmt.Errorf("role %q exclude: %w", spec.Role, err)
			}
			ru.exclude = ex
		}
		if _, dup := r.rules[spec.Role]; dup {
			return nil, fmt.Errorf("role %q defined twice", spec.Role)
		}
		r.rules[spec.Role] = ru
	}
	return r, nil
}

// Default returns a resolver over DefaultSpecs.
func Default(logger *slog.Logger) *Resolver {
	r, err := NewResolver(logger, DefaultSpecs...)
	if err != nil {
		panic(fmt.Sprintf("schema: default specs: %v", err))
	}
	return r
}

// Resolve maps each requested role to the leftmost matching header index.
// Unknown or unmatched roles resolve to dataset.NotFound.
func (r *Resolver) Resolve(header []string, roles ...Role) Columns {
	cols := Columns{idx: make(map[Role]int, len(roles))}
	for _, role := range roles {
		cols.order = append(cols.order, role)
		cols.idx[role] = dataset.NotFound

		ru, ok := r.rules[role]
		if !ok {
			r.logger.Warn("no rule for column role", "role", role)
			continue
		}
		for i, h := range header {
			if ru.match(h) {
				cols.idx[role] = i
				break
			}
		}
		if cols.idx[role] == dataset.NotFound {
			r.logger.Warn("column role not found in header", "role", role, "header", header)
		}
	}
	r.logger.Debug("schema resolved", "columns", cols.String())
	return cols
}

// Columns is a resolved role to index mapping for one dataset.
type Columns struct {
	idx   map[Role]int
	order []Role
}

// Index returns the column for role, or dataset.NotFound.
func (c Columns) Index(role Role) int {
	if i, ok := c.idx[role]; ok {
		return i
	}
	return dataset.NotFound
}

// Found reports whether role resolved to a column.
func (c Columns) Found(role Role) bool {
	return c.Index(role) != dataset.NotFound
}

// Roles returns the resolved roles in request order.
func (c Columns) Roles() []Role {
	return append([]Role(nil), c.order...)
}

// Missing lists requested roles that did not resolve.
func (c Columns) Missing() []Role {
	var out []Role
	for _, role := range c.order {
		if !c.Found(role) {
			out = append(out, role)
		}
	}
	return out
}

func (c Columns) String() string {
	s := ""
	for i, role := range c.order {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%d", role, c.Index(role))
	}
	return s
}
