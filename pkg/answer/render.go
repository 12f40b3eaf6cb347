package answer

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/hazyhaar/agriquery/pkg/crops"
	"github.com/hazyhaar/agriquery/pkg/query"
	"github.com/hazyhaar/agriquery/pkg/rainfall"
)

const (
	fallbackText     = "Sorry, I can only compare rainfall or list top crops for now."
	clarifyRainfall  = "⚠️ Please include at least one state name (e.g., Maharashtra, Karnataka) in your question."
	clarifyCropState = "⚠️ Please mention a valid state (e.g., Tamil Nadu, Maharashtra)."
	clarifyCropYear  = "⚠️ Please include a valid year (e.g., 2000)."
)

// ErrorText is the message that replaces an answer after a fatal error.
func ErrorText(err error) string {
	return "⚠️ Error: " + err.Error()
}

func clarifyText(uerr *UserInputError) string {
	switch {
	case errors.Is(uerr, ErrNoYear):
		return clarifyCropYear
	case uerr.Intent == query.IntentRainfallCompare:
		return clarifyRainfall
	default:
		return clarifyCropState
	}
}

func renderRainfall(rep *rainfall.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌧️ Rainfall comparison (average of last %d years, %d to %d):\n",
		rainfall.WindowYears, rep.From, rep.To)
	for _, r := range rep.Regions {
		if r.HasData() {
			fmt.Fprintf(&b, "%s: %s mm (based on %d records)\n", r.Name, fixed2(r.Mean), r.Count)
		} else {
			fmt.Fprintf(&b, "%s: No data available (no matching subdivisions found for last %d years)\n",
				r.Name, rainfall.WindowYears)
		}
	}
	return b.String()
}

// fixed2 formats v with two decimals. Exact halves round away from zero
// (1.125 -> 1.13); every other value rounds to nearest, so 2.675, stored
// just below the half, gives 2.67.
func fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%.2f", v)
	}
	cents := new(big.Float).SetPrec(128).SetFloat64(math.Abs(v))
	cents.Mul(cents, big.NewFloat(100))
	up := new(big.Float).SetPrec(128).Add(cents, big.NewFloat(0.5))
	if cents.IsInt() || !up.IsInt() {
		return fmt.Sprintf("%.2f", v)
	}
	n, _ := up.Int(nil)
	digits := n.String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return sign + digits[:len(digits)-2] + "." + digits[len(digits)-2:]
}

func renderCrops(r *crops.Ranking) string {
	lines := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		lines[i] = fmt.Sprintf("%s – %s tonnes", e.Crop, e.Production)
	}
	return fmt.Sprintf("🌾 Top crops in %s (%d):\n%s", r.Region, r.Year, strings.Join(lines, "\n"))
}

func renderNotFound(r *crops.Ranking) string {
	return fmt.Sprintf("❌ No crop data found for %s in %d. Try year 2000–2003.", r.Region, r.Year)
}
