package risk

import (
	"fmt"
	"sort"

	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/utils"
)

const (
	outcomeLeave = "Susceptible de Partir"
	outcomeStay  = "Susceptible de Rester"
)

// FeatureLine is one engineered feature formatted for display.
type FeatureLine struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type featureFormat struct {
	label  string
	format func(float64) string
}

var knownFeatures = map[string]featureFormat{
	"ratio_poste_entreprise": {"Ratio Poste/Entreprise", func(v float64) string { return fmt.Sprintf("%.2f", v) }},
	"evolution_evaluation":   {"Évolution Évaluation", func(v float64) string { return fmt.Sprintf("%g", v) }},
	"satisfaction_globale":   {"Satisfaction Globale", func(v float64) string { return fmt.Sprintf("%.2f", v) }},
	"salaire_par_experience": {"Salaire/Expérience", func(v float64) string { return fmt.Sprintf("%.0f EUR", v) }},
	"duree_moyenne_poste":    {"Durée Moyenne au Poste", func(v float64) string { return fmt.Sprintf("%.1f ans", v) }},
}

var featureOrder = []string{
	"ratio_poste_entreprise",
	"evolution_evaluation",
	"satisfaction_globale",
	"salaire_par_experience",
	"duree_moyenne_poste",
}

// Presentation is everything needed to render one prediction.
type Presentation struct {
	Tier               models.RiskTier `json:"tier"`
	Source             Source          `json:"source"`
	Profile            Profile         `json:"profile"`
	Prediction         int             `json:"prediction"`
	Probability        float64         `json:"probability"`
	ProbabilityPercent string          `json:"probability_percent"`
	OutcomeLabel       string          `json:"outcome_label"`
	Timestamp          string          `json:"timestamp,omitempty"`
	PredictionID       *int            `json:"prediction_id,omitempty"`
	EmployeeID         *int            `json:"employee_id,omitempty"`
	EngineeredFeatures []FeatureLine   `json:"engineered_features,omitempty"`
}

// Presenter combines a classifier with profile copy.
type Presenter struct {
	classifier *Classifier
	profiles   Profiles
}

// NewPresenter validates profiles and returns a presenter.
func NewPresenter(classifier *Classifier, profiles Profiles) (*Presenter, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	if err := profiles.Validate(); err != nil {
		return nil, err
	}
	return &Presenter{classifier: classifier, profiles: profiles}, nil
}

// Profiles returns the copy used by p.
func (p *Presenter) Profiles() Profiles { return p.profiles }

// Present maps result to its presentation. It has no side effects.
func (p *Presenter) Present(result models.PredictionResult) Presentation {
	tier, source := p.classifier.Classify(result)
	outcome := outcomeStay
	if result.AttritionLabel == "Oui" {
		outcome = outcomeLeave
	}
	var timestamp string
	if result.Timestamp != "" {
		timestamp = utils.DisplayTimestamp(result.Timestamp)
	}
	return Presentation{
		Tier:               tier,
		Source:             source,
		Profile:            p.profiles[tier],
		Prediction:         result.Prediction,
		Probability:        result.Probability,
		ProbabilityPercent: fmt.Sprintf("%.1f", result.Probability*100),
		OutcomeLabel:       outcome,
		Timestamp:          timestamp,
		PredictionID:       result.PredictionID,
		EmployeeID:         result.EmployeeID,
		EngineeredFeatures: FormatFeatures(result.EngineeredFeatures),
	}
}

// FormatFeatures renders engineered features. Known features come first in a
// fixed order; others follow sorted by name with their raw value.
func FormatFeatures(features map[string]any) []FeatureLine {
	if len(features) == 0 {
		return nil
	}
	lines := make([]FeatureLine, 0, len(features))
	for _, name := range featureOrder {
		raw, ok := features[name]
		if !ok {
			continue
		}
		f := knownFeatures[name]
		value := fmt.Sprint(raw)
		if n, ok := raw.(float64); ok {
			value = f.format(n)
		}
		lines = append(lines, FeatureLine{Name: name, Label: f.label, Value: value})
	}

	var extra []string
	for name := range features {
		if _, ok := knownFeatures[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		lines = append(lines, FeatureLine{Name: name, Label: name, Value: fmt.Sprint(features[name])})
	}
	return lines
}
