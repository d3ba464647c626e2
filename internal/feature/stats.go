// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feature

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/cpgzoo/internal/profile"
)

// Per-site statistics over the observed methylation states of all cells
// (R5.1). Estimators that yield class labels rather than rates are
// stored as small integers; IsIntStat reports which ones.

var statOrder = []string{
	"mean",
	"mode",
	"var",
	"cat_var",
	"cat2_var",
	"entropy",
	"diff",
	"cov",
}

var intStats = map[string]bool{
	"mode":     true,
	"cat_var":  true,
	"cat2_var": true,
	"diff":     true,
}

// StatNames returns the names of all supported statistics.
func StatNames() []string {
	names := make([]string, len(statOrder))
	copy(names, statOrder)
	return names
}

// IsIntStat reports whether the named statistic takes integer values.
func IsIntStat(name string) bool {
	return intStats[name]
}

// ValidStats checks that every requested name is a supported statistic.
func ValidStats(names []string) error {
	for _, name := range names {
		if _, ok := statFuncs[name]; !ok {
			return fmt.Errorf("unknown statistic %q (supported: %s)",
				name, strings.Join(statOrder, ", "))
		}
	}
	return nil
}

// StatFunc resolves a statistic name to its estimator. The estimator
// expects observed binary states only; filter with Observed first.
func StatFunc(name string) (func(obs []float32) float32, error) {
	fn, ok := statFuncs[name]
	if !ok {
		return nil, fmt.Errorf("unknown statistic %q (supported: %s)",
			name, strings.Join(statOrder, ", "))
	}
	return fn, nil
}

// Observed returns the values that are not NaN, preserving order.
func Observed(vals []float32) []float32 {
	obs := make([]float32, 0, len(vals))
	for _, v := range vals {
		if v != profile.NaN {
			obs = append(obs, v)
		}
	}
	return obs
}

var statFuncs = map[string]func([]float32) float32{
	"mean":     statMean,
	"mode":     statMode,
	"var":      statVar,
	"cat_var":  statCatVar,
	"cat2_var": statCat2Var,
	"entropy":  statEntropy,
	"diff":     statDiff,
	"cov":      statCov,
}

func statMean(obs []float32) float32 {
	if len(obs) == 0 {
		return profile.NaN
	}
	var sum float64
	for _, v := range obs {
		sum += float64(v)
	}
	return float32(sum / float64(len(obs)))
}

// statMode rounds the mean rate to the majority state, ties up.
func statMode(obs []float32) float32 {
	if len(obs) == 0 {
		return profile.NaN
	}
	if statMean(obs) >= 0.5 {
		return 1
	}
	return 0
}

func statVar(obs []float32) float32 {
	if len(obs) == 0 {
		return profile.NaN
	}
	p := statMean(obs)
	return p * (1 - p)
}

// statCatVar bins the variance into low, medium, and high variability.
func statCatVar(obs []float32) float32 {
	if len(obs) == 0 {
		return profile.NaN
	}
	v := statVar(obs)
	switch {
	case v < 0.02:
		return 0
	case v < 0.15:
		return 1
	default:
		return 2
	}
}

func statCat2Var(obs []float32) float32 {
	if len(obs) == 0 {
		return profile.NaN
	}
	if statVar(obs) >= 0.15 {
		return 1
	}
	return 0
}

func statEntropy(obs []float32) float32 {
	if len(obs) == 0 {
		return profile.NaN
	}
	p := float64(statMean(obs))
	if p <= 0 || p >= 1 {
		return 0
	}
	q := 1 - p
	return float32(-(p*math.Log2(p) + q*math.Log2(q)))
}

// statDiff reports whether both methylation states were observed.
func statDiff(obs []float32) float32 {
	if len(obs) == 0 {
		return profile.NaN
	}
	var low, high bool
	for _, v := range obs {
		if v < 0.5 {
			low = true
		} else {
			high = true
		}
	}
	if low && high {
		return 1
	}
	return 0
}

func statCov(obs []float32) float32 {
	return float32(len(obs))
}
