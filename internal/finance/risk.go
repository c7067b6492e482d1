package finance

import "math"

// DefaultRiskFreeRate is the annual risk-free rate, in percent, used when the
// caller has none configured.
const DefaultRiskFreeRate = 2.0

// SharpeRatio returns (mean - riskFree) / standard deviation of returns, all in
// percent. The population deviation is used. Empty and constant series give 0.
func SharpeRatio(returns []float64, riskFree float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(variance / float64(len(returns)))
	if sd == 0 {
		return 0
	}
	return (mean - riskFree) / sd
}

// MaxDrawdown returns the largest decline from a running peak, in percent.
// Values must be in time order. While the peak is not positive no drawdown is
// measured.
func MaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	worst := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak * 100; dd > worst {
			worst = dd
		}
	}
	return worst
}

// PeriodReturns turns a value series into successive percent changes. Steps
// starting from 0 have no defined return and are skipped.
func PeriodReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev == 0 {
			continue
		}
		out = append(out, (values[i]-prev)/prev*100)
	}
	return out
}
