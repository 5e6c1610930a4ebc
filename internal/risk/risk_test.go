package risk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/utils"
)

func newDefaultPresenter(t *testing.T) *Presenter {
	t.Helper()
	classifier, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	presenter, err := NewPresenter(classifier, nil)
	if err != nil {
		t.Fatalf("new presenter: %v", err)
	}
	return presenter
}

func TestClassifierFallback(t *testing.T) {
	classifier, err := NewClassifier(DefaultThresholds())
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	cases := []struct {
		probability float64
		want        models.RiskTier
	}{
		{0.82, models.RiskHigh},
		{0.6, models.RiskHigh},
		{0.45, models.RiskMedium},
		{0.3, models.RiskMedium},
		{0.1, models.RiskLow},
	}
	for _, tc := range cases {
		tier, source := classifier.Classify(models.PredictionResult{Probability: tc.probability})
		if tier != tc.want || source != SourceFallback {
			t.Fatalf("probability %v: expected %s/fallback, got %s/%s", tc.probability, tc.want, tier, source)
		}
	}
}

func TestClassifierTrustsServiceTier(t *testing.T) {
	classifier, _ := NewClassifier(DefaultThresholds())
	tier, source := classifier.Classify(models.PredictionResult{Probability: 0.95, RiskLevel: "low"})
	if tier != models.RiskLow || source != SourceService {
		t.Fatalf("expected service low, got %s/%s", tier, source)
	}
	tier, source = classifier.Classify(models.PredictionResult{Probability: 0.95, RiskLevel: "critical"})
	if tier != models.RiskHigh || source != SourceFallback {
		t.Fatalf("expected fallback high for unknown tier, got %s/%s", tier, source)
	}
}

func TestThresholdsValidate(t *testing.T) {
	for _, th := range []Thresholds{{High: 0.3, Medium: 0.6}, {High: 1.2, Medium: 0.3}, {High: 0.5, Medium: -0.1}, {High: 0.4, Medium: 0.4}} {
		if err := th.Validate(); err == nil {
			t.Fatalf("expected %+v to be rejected", th)
		}
	}
	classifier, err := NewClassifier(Thresholds{High: 0.45, Medium: 0.20})
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	if got := classifier.FromProbability(0.25); got != models.RiskMedium {
		t.Fatalf("expected medium with service thresholds, got %s", got)
	}
}

func TestPresentHighRisk(t *testing.T) {
	id := 12
	p := newDefaultPresenter(t).Present(models.PredictionResult{
		Prediction:     1,
		Probability:    0.8231,
		RiskLevel:      "high",
		AttritionLabel: "Oui",
		Timestamp:      "2025-03-14T09:26:53.589793",
		PredictionID:   &id,
		EngineeredFeatures: map[string]any{
			"salaire_par_experience": 500.4,
			"ratio_poste_entreprise": 0.5,
			"custom":                 "x",
		},
	})
	if p.Tier != models.RiskHigh || p.Source != SourceService {
		t.Fatalf("unexpected tier %s/%s", p.Tier, p.Source)
	}
	if p.Profile.Label != "Risque Élevé" || len(p.Profile.Recommendations) != 4 {
		t.Fatalf("unexpected profile %+v", p.Profile)
	}
	if p.ProbabilityPercent != "82.3" {
		t.Fatalf("unexpected percent %q", p.ProbabilityPercent)
	}
	if p.OutcomeLabel != "Susceptible de Partir" {
		t.Fatalf("unexpected outcome %q", p.OutcomeLabel)
	}
	if p.Timestamp != "14/03/2025 09:26" {
		t.Fatalf("unexpected timestamp %q", p.Timestamp)
	}
	if len(p.EngineeredFeatures) != 3 {
		t.Fatalf("unexpected features %+v", p.EngineeredFeatures)
	}
	if p.EngineeredFeatures[0].Value != "0.50" || p.EngineeredFeatures[1].Value != "500 EUR" || p.EngineeredFeatures[2].Name != "custom" {
		t.Fatalf("unexpected feature order %+v", p.EngineeredFeatures)
	}
}

func TestPresentStayOutcome(t *testing.T) {
	p := newDefaultPresenter(t).Present(models.PredictionResult{Probability: 0.1, AttritionLabel: "Non"})
	if p.Tier != models.RiskLow || p.OutcomeLabel != "Susceptible de Rester" || p.Profile.Description != "Employé stable" {
		t.Fatalf("unexpected presentation %+v", p)
	}
	if p.EngineeredFeatures != nil || p.Timestamp != "" {
		t.Fatalf("expected empty optional fields, got %+v", p)
	}
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	pack := `profiles:
  - tier: high
    icon: alert
    label: High risk
    description: Act now
    recommendations: [a, b, c, d]
  - tier: medium
    label: Medium risk
    recommendations: [a, b, c, d]
  - tier: low
    label: Low risk
    recommendations: [a, b, c, d]
`
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	profiles, err := LoadProfiles(path, utils.DiscardLogger())
	if err != nil {
		t.Fatalf("load profiles: %v", err)
	}
	if profiles[models.RiskHigh].Label != "High risk" {
		t.Fatalf("unexpected profiles %+v", profiles)
	}
}

func TestLoadProfilesRejectsIncompletePack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	pack := `profiles:
  - tier: high
    label: High risk
    recommendations: [a, b, c]
`
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	if _, err := LoadProfiles(path, utils.DiscardLogger()); err == nil {
		t.Fatalf("expected error for incomplete pack")
	}
}

func TestLoadProfilesMissingFile(t *testing.T) {
	profiles, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"), utils.DiscardLogger())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := profiles.Validate(); err != nil {
		t.Fatalf("expected built-in profiles: %v", err)
	}
}
