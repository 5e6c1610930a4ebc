package risk

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/utils"
)

// RecommendationsPerProfile is the fixed length of every recommendation list.
const RecommendationsPerProfile = 4

// Profile is the copy attached to one risk tier.
type Profile struct {
	Tier            models.RiskTier `yaml:"tier" json:"tier"`
	Icon            string          `yaml:"icon" json:"icon"`
	Label           string          `yaml:"label" json:"label"`
	Description     string          `yaml:"description" json:"description"`
	Recommendations []string        `yaml:"recommendations" json:"recommendations"`
}

// ProfileFile is the YAML root structure of a profile pack.
type ProfileFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Profiles maps every tier to its copy.
type Profiles map[models.RiskTier]Profile

// DefaultProfiles returns the built-in French copy.
func DefaultProfiles() Profiles {
	return Profiles{
		models.RiskHigh: {
			Tier:        models.RiskHigh,
			Icon:        "alert-triangle",
			Label:       "Risque Élevé",
			Description: "Action immédiate recommandée",
			Recommendations: []string{
				"Planifier une réunion RH urgente",
				"Évaluer la charge de travail et le stress",
				"Discuter des opportunités de carrière",
				"Revoir le package de rémunération",
			},
		},
		models.RiskMedium: {
			Tier:        models.RiskMedium,
			Icon:        "trending-up",
			Label:       "Risque Modéré",
			Description: "Surveillance recommandée",
			Recommendations: []string{
				"Planifier des points réguliers",
				"Surveiller la satisfaction au travail",
				"Proposer des formations",
				"Maintenir une communication ouverte",
			},
		},
		models.RiskLow: {
			Tier:        models.RiskLow,
			Icon:        "shield",
			Label:       "Risque Faible",
			Description: "Employé stable",
			Recommendations: []string{
				"Continuer les bonnes pratiques",
				"Reconnaître les contributions",
				"Maintenir l'équilibre vie pro/perso",
				"Encourager le développement",
			},
		},
	}
}

// LoadProfiles reads a profile pack. An empty path or a missing file yields
// the built-in profiles.
func LoadProfiles(path string, logger *slog.Logger) (Profiles, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("risk profile pack not found, using built-in profiles", slog.String("path", path))
			return DefaultProfiles(), nil
		}
		return nil, utils.NewAppError("load profiles", path, "read file", err)
	}

	var file ProfileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, utils.NewAppError("load profiles", path, "parse yaml", err)
	}
	profiles := make(Profiles, len(file.Profiles))
	for _, p := range file.Profiles {
		tier, ok := models.ParseRiskTier(string(p.Tier))
		if !ok {
			return nil, utils.NewAppError("load profiles", path, fmt.Sprintf("unknown tier %q", p.Tier), nil)
		}
		if _, dup := profiles[tier]; dup {
			return nil, utils.NewAppError("load profiles", path, fmt.Sprintf("duplicate tier %q", tier), nil)
		}
		profiles[tier] = p
	}
	if err := profiles.Validate(); err != nil {
		return nil, utils.NewAppError("load profiles", path, "invalid pack", err)
	}
	logger.Info("risk profile pack loaded", slog.String("path", path))
	return profiles, nil
}

// Validate checks that every tier is present with a label and exactly four
// recommendations.
func (p Profiles) Validate() error {
	for _, tier := range []models.RiskTier{models.RiskHigh, models.RiskMedium, models.RiskLow} {
		profile, ok := p[tier]
		if !ok {
			return fmt.Errorf("missing profile for tier %s", tier)
		}
		if profile.Label == "" {
			return fmt.Errorf("profile %s has no label", tier)
		}
		if len(profile.Recommendations) != RecommendationsPerProfile {
			return fmt.Errorf("profile %s has %d recommendations, want %d", tier, len(profile.Recommendations), RecommendationsPerProfile)
		}
	}
	return nil
}
