package scoring

import "math"

// qualitativeMatrix is indexed by [Direction][Status]; rows and columns for the
// unknown variants are all 0.5.
var qualitativeMatrix = [4][5]float64{
	DirectionUnknown:    {0.5, 0.5, 0.5, 0.5, 0.5},
	DirectionProhibited: {StatusUnknown: 0.5, StatusCompleted: 0.0, StatusInProgress: 0.2, StatusPaused: 0.5, StatusTerminated: 1.0},
	DirectionRequired:   {StatusUnknown: 0.5, StatusCompleted: 1.0, StatusInProgress: 0.7, StatusPaused: 0.3, StatusTerminated: 0.0},
	DirectionOptional:   {StatusUnknown: 0.5, StatusCompleted: 0.9, StatusInProgress: 0.7, StatusPaused: 0.6, StatusTerminated: 0.5},
}

// Qualitative scores a behavior status against a regulation direction.
func Qualitative(d Direction, s Status) float64 {
	if d < DirectionUnknown || d > DirectionOptional || s < StatusUnknown || s > StatusTerminated {
		return 0.5
	}
	return qualitativeMatrix[d][s]
}

// Quantitative scores a measurement m against a regulation threshold t, then
// adjusts the base score by direction and status.
func Quantitative(t, m float64, d Direction, s Status) float64 {
	if t == 0 {
		if m == 0 {
			return 1
		}
		return 0
	}
	rate := math.Abs(t-m) / math.Abs(t)
	var base float64
	switch {
	case rate <= 0:
		base = 1
	case rate > 1:
		base = 0
	default:
		base = 1 - rate
	}

	score := base
	switch d {
	case DirectionProhibited:
		switch {
		case rate < 0.1:
			score = base * 0.3
		case rate < 0.3:
			score = base * 0.5
		default:
			score = base * 0.8
		}
	case DirectionRequired:
		switch s {
		case StatusInProgress:
			score = math.Min(1, base*1.05)
		case StatusPaused:
			score = base * 0.9
		case StatusTerminated:
			score = base * 0.5
		}
	case DirectionOptional:
		score = math.Min(1, base*1.1)
	}
	return Clamp01(score)
}

// RuleScore picks the quantitative formula when both values are present and
// the qualitative matrix otherwise.
func RuleScore(threshold, measurement *float64, d Direction, s Status) (score float64, quantitative bool) {
	if threshold != nil && measurement != nil {
		return Quantitative(*threshold, *measurement, d, s), true
	}
	return Qualitative(d, s), false
}

var fallbackByStatus = [5]float64{
	StatusUnknown:    0.5,
	StatusCompleted:  1.0,
	StatusInProgress: 0.8,
	StatusPaused:     0.3,
	StatusTerminated: 0.0,
}

// Fallback scores an indicator that no regulation reached. A known indicator
// max and a measurement use the deviation formula; otherwise the status table.
func Fallback(indicatorMax, measurement *float64, s Status) float64 {
	if indicatorMax != nil && measurement != nil {
		denom := *indicatorMax
		if denom == 0 {
			denom = 1
		}
		return Clamp01(math.Max(0, 1-math.Abs(*indicatorMax-*measurement)/denom))
	}
	if s < StatusUnknown || s > StatusTerminated {
		return 0.5
	}
	return fallbackByStatus[s]
}
