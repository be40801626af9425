// Package growth compares activity between two equally long periods.
package growth

const (
	TrendPositive = "positive"
	TrendNegative = "negative"
)

// Growth is the period-over-period change of a count
type Growth struct {
	Current       int     `json:"current"`
	Previous      int     `json:"previous"`
	GrowthPercent float64 `json:"growth_percent"`
	Trend         string  `json:"trend"`
}

// Compare computes the percentage change from previous to current. A zero
// previous count yields 0% rather than an error.
func Compare(current, previous int) Growth {
	percent := 0.0
	if previous != 0 {
		percent = float64(current-previous) / float64(previous) * 100
	}

	trend := TrendPositive
	if percent < 0 {
		trend = TrendNegative
	}

	return Growth{
		Current:       current,
		Previous:      previous,
		GrowthPercent: percent,
		Trend:         trend,
	}
}
