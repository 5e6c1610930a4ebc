package schema

import (
	"sort"

	"github.com/technova/attrition-console/internal/models"
)

// ExampleProfile is a prefilled record used to demonstrate each risk tier.
type ExampleProfile struct {
	Key         string                  `json:"key"`
	Label       string                  `json:"label"`
	Description string                  `json:"description"`
	Record      models.EmployeeFeatures `json:"record"`
}

// DefaultRecord is the record a manual entry form starts from.
func DefaultRecord() models.EmployeeFeatures {
	return models.EmployeeFeatures{
		Genre:                            "M",
		StatutMarital:                    "Marie(e)",
		Departement:                      "Commercial",
		Poste:                            "Representant Commercial",
		HeureSupplementaires:             "Non",
		AugmentationSalairePrecedente:    "13 %",
		DomaineEtude:                     "Infra & Cloud",
		AyantEnfants:                     "Y",
		FrequenceDeplacement:             "Occasionnel",
		Age:                              35,
		RevenuMensuel:                    5000,
		NombreExperiencesPrecedentes:     2,
		NombreHeuresTravaillees:          80,
		AnneeExperienceTotale:            10,
		AnneesDansEntreprise:             5,
		AnneesDansPosteActuel:            3,
		SatisfactionEnvironnement:        3,
		NoteEvaluationPrecedente:         3,
		NiveauHierarchiquePoste:          2,
		SatisfactionNatureTravail:        4,
		SatisfactionEquipe:               3,
		SatisfactionEquilibreProPerso:    3,
		NoteEvaluationActuelle:           4,
		NombreParticipationPEE:           1,
		NbFormationsSuivies:              3,
		NombreEmployeeSousResponsabilite: 0,
		DistanceDomicileTravail:          10,
		NiveauEducation:                  3,
		AnneesDepuisDernierePromotion:    1,
		AnneesSousResponsableActuel:      3,
	}
}

var exampleProfiles = map[string]ExampleProfile{
	"high": {
		Key:         "high",
		Label:       "Risque Élevé",
		Description: "Susceptible de partir",
		Record: models.EmployeeFeatures{
			Genre:                            "M",
			StatutMarital:                    "Celibataire",
			Departement:                      "Commercial",
			Poste:                            "Representant Commercial",
			HeureSupplementaires:             "Oui",
			AugmentationSalairePrecedente:    "11 %",
			DomaineEtude:                     "Autre",
			AyantEnfants:                     "N",
			FrequenceDeplacement:             "Frequent",
			Age:                              28,
			RevenuMensuel:                    2500,
			NombreExperiencesPrecedentes:     4,
			NombreHeuresTravaillees:          90,
			AnneeExperienceTotale:            5,
			AnneesDansEntreprise:             2,
			AnneesDansPosteActuel:            2,
			SatisfactionEnvironnement:        1,
			NoteEvaluationPrecedente:         3,
			NiveauHierarchiquePoste:          1,
			SatisfactionNatureTravail:        2,
			SatisfactionEquipe:               2,
			SatisfactionEquilibreProPerso:    1,
			NoteEvaluationActuelle:           2,
			NombreParticipationPEE:           0,
			NbFormationsSuivies:              0,
			NombreEmployeeSousResponsabilite: 0,
			DistanceDomicileTravail:          25,
			NiveauEducation:                  3,
			AnneesDepuisDernierePromotion:    2,
			AnneesSousResponsableActuel:      2,
		},
	},
	"medium": {
		Key:         "medium",
		Label:       "Risque Modéré",
		Description: "Incertain",
		Record: models.EmployeeFeatures{
			Genre:                            "F",
			StatutMarital:                    "Marie(e)",
			Departement:                      "R&D",
			Poste:                            "Developpeur",
			HeureSupplementaires:             "Non",
			AugmentationSalairePrecedente:    "13 %",
			DomaineEtude:                     "Developpement",
			AyantEnfants:                     "Y",
			FrequenceDeplacement:             "Occasionnel",
			Age:                              32,
			RevenuMensuel:                    4500,
			NombreExperiencesPrecedentes:     2,
			NombreHeuresTravaillees:          80,
			AnneeExperienceTotale:            8,
			AnneesDansEntreprise:             4,
			AnneesDansPosteActuel:            2,
			SatisfactionEnvironnement:        3,
			NoteEvaluationPrecedente:         3,
			NiveauHierarchiquePoste:          2,
			SatisfactionNatureTravail:        3,
			SatisfactionEquipe:               3,
			SatisfactionEquilibreProPerso:    3,
			NoteEvaluationActuelle:           3,
			NombreParticipationPEE:           1,
			NbFormationsSuivies:              2,
			NombreEmployeeSousResponsabilite: 0,
			DistanceDomicileTravail:          15,
			NiveauEducation:                  4,
			AnneesDepuisDernierePromotion:    2,
			AnneesSousResponsableActuel:      3,
		},
	},
	"low": {
		Key:         "low",
		Label:       "Risque Faible",
		Description: "Susceptible de rester",
		Record: models.EmployeeFeatures{
			Genre:                            "M",
			StatutMarital:                    "Marie(e)",
			Departement:                      "R&D",
			Poste:                            "Senior Manager",
			HeureSupplementaires:             "Non",
			AugmentationSalairePrecedente:    "18 %",
			DomaineEtude:                     "Data & IA",
			AyantEnfants:                     "Y",
			FrequenceDeplacement:             "Aucun",
			Age:                              42,
			RevenuMensuel:                    12000,
			NombreExperiencesPrecedentes:     2,
			NombreHeuresTravaillees:          75,
			AnneeExperienceTotale:            18,
			AnneesDansEntreprise:             10,
			AnneesDansPosteActuel:            4,
			SatisfactionEnvironnement:        4,
			NoteEvaluationPrecedente:         4,
			NiveauHierarchiquePoste:          4,
			SatisfactionNatureTravail:        5,
			SatisfactionEquipe:               4,
			SatisfactionEquilibreProPerso:    4,
			NoteEvaluationActuelle:           5,
			NombreParticipationPEE:           3,
			NbFormationsSuivies:              6,
			NombreEmployeeSousResponsabilite: 5,
			DistanceDomicileTravail:          8,
			NiveauEducation:                  5,
			AnneesDepuisDernierePromotion:    1,
			AnneesSousResponsableActuel:      2,
		},
	},
}

// Example returns the example profile registered under key.
func Example(key string) (ExampleProfile, bool) {
	p, ok := exampleProfiles[key]
	return p, ok
}

// ExampleProfiles returns all example profiles sorted by key.
func ExampleProfiles() []ExampleProfile {
	out := make([]ExampleProfile, 0, len(exampleProfiles))
	for _, p := range exampleProfiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
