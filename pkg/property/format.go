package property

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatGBP renders v in en-GB currency style with two decimals,
// e.g. £1,234,567.89. NaN and infinities render as "£NaN", "£Inf" and
// "-£Inf"; a value that rounds to zero never carries a minus sign.
func FormatGBP(v float64) string {
	switch {
	case math.IsNaN(v):
		return "£NaN"
	case math.IsInf(v, 1):
		return "£Inf"
	case math.IsInf(v, -1):
		return "-£Inf"
	}

	digits := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	whole, frac, _ := strings.Cut(digits, ".")

	sign := ""
	if v < 0 && strings.Trim(digits, "0.") != "" {
		sign = "-"
	}

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "£" + b.String() + "." + frac
}

// String renders the prediction with its confidence interval.
func (p Prediction) String() string {
	return fmt.Sprintf("%s [%s - %s] (80%% Confidence)",
		FormatGBP(p.Prediction), FormatGBP(p.LowerBound), FormatGBP(p.UpperBound))
}
