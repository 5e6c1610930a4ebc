// Package schema is the canonical definition of a raw employee feature record:
// field names, categorical domains, presentational ranges and labels.
package schema

import (
	"fmt"
	"slices"

	"github.com/technova/attrition-console/internal/models"
)

// Kind separates categorical from numerical fields.
type Kind string

const (
	Categorical Kind = "categorical"
	Numerical   Kind = "numerical"
)

// SalaryIncreaseField is stored as a percentage string and converted before transmission.
const SalaryIncreaseField = "augementation_salaire_precedente"

// Field describes one raw feature.
type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Kind    Kind     `json:"kind"`
	Domain  []string `json:"domain,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Integer bool     `json:"integer,omitempty"`
}

func bound(v float64) *float64 { return &v }

func categorical(name, label string, domain ...string) Field {
	return Field{Name: name, Label: label, Kind: Categorical, Domain: domain}
}

func count(name, label string) Field {
	return Field{Name: name, Label: label, Kind: Numerical, Min: bound(0), Integer: true}
}

func scale(name, label string) Field {
	return Field{Name: name, Label: label, Kind: Numerical, Min: bound(1), Max: bound(5), Integer: true}
}

func amount(name, label string) Field {
	return Field{Name: name, Label: label, Kind: Numerical, Min: bound(0)}
}

var percentageOptions = []string{
	"11 %", "12 %", "13 %", "14 %", "15 %", "16 %", "17 %", "18 %",
	"19 %", "20 %", "21 %", "22 %", "23 %", "24 %", "25 %",
}

var fields = []Field{
	categorical("genre", "Genre", "M", "F"),
	categorical("statut_marital", "Statut Marital", "Celibataire", "Marie(e)", "Divorce(e)"),
	categorical("departement", "Département", "Commercial", "Consulting", "R&D", "RH"),
	categorical("poste", "Poste", "Representant Commercial", "Assistant de Direction", "Senior Manager", "Consultant", "Developpeur"),
	categorical("heure_supplementaires", "Heures Supplémentaires", "Oui", "Non"),
	categorical(SalaryIncreaseField, "Dernière Augmentation", percentageOptions...),
	categorical("domaine_etude", "Domaine d'Étude", "Infra & Cloud", "Data & IA", "Developpement", "Gestion de Projet", "Autre"),
	categorical("ayant_enfants", "Enfants", "Y", "N"),
	categorical("frequence_deplacement", "Fréquence Déplacements", "Aucun", "Occasionnel", "Frequent"),

	{Name: "age", Label: "Âge", Kind: Numerical, Min: bound(18), Max: bound(70), Integer: true},
	amount("revenu_mensuel", "Salaire Mensuel (€)"),
	count("nombre_experiences_precedentes", "Expériences Précédentes"),
	count("nombre_heures_travailless", "Heures Travaillées/Mois"),
	count("annee_experience_totale", "Expérience Totale (ans)"),
	count("annees_dans_l_entreprise", "Années dans l'Entreprise"),
	count("annees_dans_le_poste_actuel", "Années au Poste Actuel"),
	scale("satisfaction_employee_environnement", "Satisfaction Environnement (1-5)"),
	scale("note_evaluation_precedente", "Évaluation Précédente (1-5)"),
	scale("niveau_hierarchique_poste", "Niveau Hiérarchique (1-5)"),
	scale("satisfaction_employee_nature_travail", "Satisfaction Travail (1-5)"),
	scale("satisfaction_employee_equipe", "Satisfaction Équipe (1-5)"),
	scale("satisfaction_employee_equilibre_pro_perso", "Équilibre Vie Pro/Perso (1-5)"),
	scale("note_evaluation_actuelle", "Évaluation Actuelle (1-5)"),
	count("nombre_participation_pee", "Participations PEE"),
	count("nb_formations_suivies", "Formations Suivies"),
	count("nombre_employee_sous_responsabilite", "Employés Sous Responsabilité"),
	amount("distance_domicile_travail", "Distance Domicile-Travail (km)"),
	scale("niveau_education", "Niveau Éducation (1-5)"),
	count("annees_depuis_la_derniere_promotion", "Années Depuis Promotion"),
	count("annes_sous_responsable_actuel", "Années Sous Manager Actuel"),
}

var byName = func() map[string]Field {
	index := make(map[string]Field, len(fields))
	for _, f := range fields {
		index[f.Name] = f
	}
	return index
}()

// Fields returns every raw feature in canonical order.
func Fields() []Field {
	return slices.Clone(fields)
}

// Lookup returns the field definition for a wire name.
func Lookup(name string) (Field, bool) {
	f, ok := byName[name]
	return f, ok
}

// CategoricalNames returns the categorical field names in canonical order.
func CategoricalNames() []string { return namesOf(Categorical) }

// NumericalNames returns the numerical field names in canonical order.
func NumericalNames() []string { return namesOf(Numerical) }

// PercentageOptions returns the allowed salary increase values.
func PercentageOptions() []string {
	return slices.Clone(percentageOptions)
}

func namesOf(kind Kind) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Kind == kind {
			names = append(names, f.Name)
		}
	}
	return names
}

// Check reports presentational problems with a record: values outside a
// categorical domain and numbers outside the expected range. The scoring
// service stays authoritative; callers use this for warnings only.
func Check(record models.EmployeeFeatures) []models.ValidationError {
	values := record.Values()
	var problems []models.ValidationError
	for _, f := range fields {
		raw, ok := values[f.Name]
		if !ok {
			problems = append(problems, models.ValidationError{Field: f.Label, Message: "Champ requis"})
			continue
		}
		switch f.Kind {
		case Categorical:
			s, _ := raw.(string)
			if s == "" {
				problems = append(problems, models.ValidationError{Field: f.Label, Message: "Champ requis"})
				continue
			}
			if !slices.Contains(f.Domain, s) {
				problems = append(problems, models.ValidationError{Field: f.Label, Message: fmt.Sprintf("Valeur inattendue %q", s)})
			}
		case Numerical:
			n, _ := raw.(float64)
			if f.Min != nil && n < *f.Min {
				problems = append(problems, models.ValidationError{Field: f.Label, Message: fmt.Sprintf("Doit être supérieur ou égal à %g", *f.Min)})
			}
			if f.Max != nil && n > *f.Max {
				problems = append(problems, models.ValidationError{Field: f.Label, Message: fmt.Sprintf("Doit être inférieur ou égal à %g", *f.Max)})
			}
		}
	}
	return problems
}
