package finance

import "math"

// ProjectionPoint is the projected value at the end of a year.
type ProjectionPoint struct {
	Year          int     `json:"year"`
	Contributions float64 `json:"contributions"`
	Value         float64 `json:"value"`
}

// ProjectFutureValue compounds initial monthly at annualRatePercent/12 and adds
// monthlyContribution at the end of each month. It returns one point per
// year; a zero rate simply accumulates contributions.
func ProjectFutureValue(initial, monthlyContribution, annualRatePercent float64, years int) []ProjectionPoint {
	if years <= 0 {
		return nil
	}
	r := annualRatePercent / 100 / 12
	out := make([]ProjectionPoint, 0, years)
	for y := 1; y <= years; y++ {
		n := float64(y * 12)
		contributed := initial + monthlyContribution*n
		var value float64
		if r == 0 {
			value = contributed
		} else {
			f := math.Pow(1+r, n)
			value = initial*f + monthlyContribution*(f-1)/r
		}
		out = append(out, ProjectionPoint{Year: y, Contributions: contributed, Value: value})
	}
	return out
}
