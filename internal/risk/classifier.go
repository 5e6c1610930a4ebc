// Package risk maps prediction results to risk tiers and presentation copy.
package risk

import (
	"fmt"
	"math"

	"github.com/technova/attrition-console/internal/models"
)

// Source records where a tier came from.
type Source string

const (
	// SourceService means the service supplied a known risk_level.
	SourceService Source = "service"
	// SourceFallback means the tier was derived from the probability locally.
	SourceFallback Source = "fallback"
)

// Thresholds are the probability cut points used when the service gives no
// usable risk_level.
type Thresholds struct {
	High   float64 `yaml:"highThreshold"`
	Medium float64 `yaml:"mediumThreshold"`
}

// DefaultThresholds returns 0.6 / 0.3.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.6, Medium: 0.3}
}

// Validate requires 0 <= Medium < High <= 1.
func (t Thresholds) Validate() error {
	if math.IsNaN(t.High) || math.IsNaN(t.Medium) {
		return fmt.Errorf("risk thresholds must be numbers")
	}
	if t.Medium < 0 || t.High > 1 || t.Medium >= t.High {
		return fmt.Errorf("risk thresholds must satisfy 0 <= medium (%v) < high (%v) <= 1", t.Medium, t.High)
	}
	return nil
}

// Classifier selects a tier for a prediction result.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier validates thresholds and returns a classifier.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

// Thresholds returns the configured cut points.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Tier returns the tier for result.
func (c *Classifier) Tier(result models.PredictionResult) models.RiskTier {
	tier, _ := c.Classify(result)
	return tier
}

// Classify trusts a known server risk_level and otherwise thresholds the probability.
func (c *Classifier) Classify(result models.PredictionResult) (models.RiskTier, Source) {
	if tier, ok := models.ParseRiskTier(result.RiskLevel); ok {
		return tier, SourceService
	}
	return c.FromProbability(result.Probability), SourceFallback
}

// FromProbability applies the fallback thresholds.
func (c *Classifier) FromProbability(p float64) models.RiskTier {
	switch {
	case p >= c.thresholds.High:
		return models.RiskHigh
	case p >= c.thresholds.Medium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
