package errnorm

import "regexp"

var fieldNames = map[string]string{
	"genre":                                     "Genre",
	"statut_marital":                            "Statut marital",
	"departement":                               "Département",
	"poste":                                     "Poste",
	"heure_supplementaires":                     "Heures supplémentaires",
	"augementation_salaire_precedente":          "Augmentation salaire",
	"domaine_etude":                             "Domaine d'étude",
	"ayant_enfants":                             "Ayant enfants",
	"frequence_deplacement":                     "Fréquence déplacement",
	"age":                                       "Âge",
	"revenu_mensuel":                            "Revenu mensuel",
	"nombre_experiences_precedentes":            "Expériences précédentes",
	"nombre_heures_travailless":                 "Heures travaillées",
	"annee_experience_totale":                   "Expérience totale",
	"annees_dans_l_entreprise":                  "Années dans l'entreprise",
	"annees_dans_le_poste_actuel":               "Années dans le poste",
	"satisfaction_employee_environnement":       "Satisfaction environnement",
	"note_evaluation_precedente":                "Évaluation précédente",
	"niveau_hierarchique_poste":                 "Niveau hiérarchique",
	"satisfaction_employee_nature_travail":      "Satisfaction travail",
	"satisfaction_employee_equipe":              "Satisfaction équipe",
	"satisfaction_employee_equilibre_pro_perso": "Équilibre pro/perso",
	"note_evaluation_actuelle":                  "Évaluation actuelle",
	"nombre_participation_pee":                  "Participations PEE",
	"nb_formations_suivies":                     "Formations suivies",
	"nombre_employee_sous_responsabilite":       "Employés supervisés",
	"distance_domicile_travail":                 "Distance domicile-travail",
	"niveau_education":                          "Niveau d'éducation",
	"annees_depuis_la_derniere_promotion":       "Années depuis promotion",
	"annes_sous_responsable_actuel":             "Années sous responsable",
}

// Rule rewrites the first occurrence of Pattern using Template, which may
// reference capture groups as ${1}.
type Rule struct {
	Pattern  *regexp.Regexp
	Template string
}

func rule(pattern, template string) Rule {
	return Rule{Pattern: regexp.MustCompile("(?i)" + pattern), Template: template}
}

// Evaluated top to bottom; the first matching rule is applied and the rest skipped.
var messageRules = []Rule{
	rule(`Input should be greater than or equal to (\d+)`, "Doit être supérieur ou égal à ${1}"),
	rule(`Input should be less than or equal to (\d+)`, "Doit être inférieur ou égal à ${1}"),
	rule(`Input should be a valid integer`, "Doit être un nombre entier"),
	rule(`Input should be a valid number`, "Doit être un nombre valide"),
	rule(`Input should be a valid string`, "Doit être une chaîne de caractères"),
	rule(`Field required`, "Champ requis"),
	rule(`value is not a valid integer`, "Valeur entière non valide"),
	rule(`value is not a valid float`, "Valeur numérique non valide"),
	rule(`none is not an allowed value`, "La valeur ne peut pas être vide"),
	rule(`ensure this value is greater than or equal to (\d+)`, "La valeur doit être >= ${1}"),
	rule(`ensure this value is less than or equal to (\d+)`, "La valeur doit être <= ${1}"),
	rule(`string does not match regex`, "Format invalide"),
	rule(`value could not be parsed to a boolean`, "Valeur booléenne non valide"),
	rule(`Prediction failed`, "Échec de la prédiction"),
}

// Translator localizes backend field names and messages.
type Translator struct {
	fields map[string]string
	rules  []Rule
}

// NewTranslator returns a translator using the built-in field and message tables.
func NewTranslator() *Translator {
	return &Translator{fields: fieldNames, rules: messageRules}
}

// Field returns the display name for a wire field; unknown names are returned unchanged.
func (t *Translator) Field(name string) string {
	if label, ok := t.fields[name]; ok {
		return label
	}
	return name
}

// Message rewrites msg with the first matching rule. Unmatched messages are
// returned verbatim.
func (t *Translator) Message(msg string) string {
	for _, r := range t.rules {
		loc := r.Pattern.FindStringSubmatchIndex(msg)
		if loc == nil {
			continue
		}
		replaced := r.Pattern.ExpandString(nil, r.Template, msg, loc)
		return msg[:loc[0]] + string(replaced) + msg[loc[1]:]
	}
	return msg
}
