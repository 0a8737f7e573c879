// ABOUTME: Self-assessed quality tiers and the reflection verdict
// ABOUTME: The quality gate runs first, then the scarcity gate on a low jar

package dispatch

import (
	"fmt"

	"github.com/2389/cookie-jar/internal/jar"
)

// Quality is a self-assessed response tier.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityAdequate  Quality = "adequate"
	QualityPoor      Quality = "poor"
)

// Qualities lists the tiers from best to worst.
var Qualities = []Quality{QualityExcellent, QualityGood, QualityAdequate, QualityPoor}

// ParseQuality accepts exactly one of the four tier names.
func ParseQuality(s string) (Quality, error) {
	for _, q := range Qualities {
		if string(q) == s {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: response_quality %q is not one of excellent, good, adequate, poor", ErrInvalidArguments, s)
}

func (q Quality) rewardable() bool {
	return q == QualityExcellent || q == QualityGood
}

// verdict is the reflection decision taken before touching the jar.
type verdict int

const (
	verdictAward verdict = iota
	verdictRationed
	verdictNotJustified
	verdictLowQuality
	verdictRestraint
)

// decide applies the quality gate and then the scarcity gate. When the jar
// is low, only excellent work may draw from it.
func decide(q Quality, intent bool, st jar.Status) verdict {
	if !intent {
		return verdictRestraint
	}
	switch q {
	case QualityAdequate:
		return verdictNotJustified
	case QualityPoor:
		return verdictLowQuality
	}
	if st.IsLow && q != QualityExcellent {
		return verdictRationed
	}
	return verdictAward
}
