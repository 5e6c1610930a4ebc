package models

import "encoding/json"

// EmployeeFeatures is a raw employee record as collected by HR. Only raw
// features live here; engineered features are computed by the scoring service.
type EmployeeFeatures struct {
	// Categorical features
	Genre                         string `json:"genre" yaml:"genre"`
	StatutMarital                 string `json:"statut_marital" yaml:"statut_marital"`
	Departement                   string `json:"departement" yaml:"departement"`
	Poste                         string `json:"poste" yaml:"poste"`
	HeureSupplementaires          string `json:"heure_supplementaires" yaml:"heure_supplementaires"`
	AugmentationSalairePrecedente string `json:"augementation_salaire_precedente" yaml:"augementation_salaire_precedente"`
	DomaineEtude                  string `json:"domaine_etude" yaml:"domaine_etude"`
	AyantEnfants                  string `json:"ayant_enfants" yaml:"ayant_enfants"`
	FrequenceDeplacement          string `json:"frequence_deplacement" yaml:"frequence_deplacement"`

	// Numerical features
	Age                              int     `json:"age" yaml:"age"`
	RevenuMensuel                    float64 `json:"revenu_mensuel" yaml:"revenu_mensuel"`
	NombreExperiencesPrecedentes     int     `json:"nombre_experiences_precedentes" yaml:"nombre_experiences_precedentes"`
	NombreHeuresTravaillees          int     `json:"nombre_heures_travailless" yaml:"nombre_heures_travailless"`
	AnneeExperienceTotale            int     `json:"annee_experience_totale" yaml:"annee_experience_totale"`
	AnneesDansEntreprise             int     `json:"annees_dans_l_entreprise" yaml:"annees_dans_l_entreprise"`
	AnneesDansPosteActuel            int     `json:"annees_dans_le_poste_actuel" yaml:"annees_dans_le_poste_actuel"`
	SatisfactionEnvironnement        int     `json:"satisfaction_employee_environnement" yaml:"satisfaction_employee_environnement"`
	NoteEvaluationPrecedente         int     `json:"note_evaluation_precedente" yaml:"note_evaluation_precedente"`
	NiveauHierarchiquePoste          int     `json:"niveau_hierarchique_poste" yaml:"niveau_hierarchique_poste"`
	SatisfactionNatureTravail        int     `json:"satisfaction_employee_nature_travail" yaml:"satisfaction_employee_nature_travail"`
	SatisfactionEquipe               int     `json:"satisfaction_employee_equipe" yaml:"satisfaction_employee_equipe"`
	SatisfactionEquilibreProPerso    int     `json:"satisfaction_employee_equilibre_pro_perso" yaml:"satisfaction_employee_equilibre_pro_perso"`
	NoteEvaluationActuelle           int     `json:"note_evaluation_actuelle" yaml:"note_evaluation_actuelle"`
	NombreParticipationPEE           int     `json:"nombre_participation_pee" yaml:"nombre_participation_pee"`
	NbFormationsSuivies              int     `json:"nb_formations_suivies" yaml:"nb_formations_suivies"`
	NombreEmployeeSousResponsabilite int     `json:"nombre_employee_sous_responsabilite" yaml:"nombre_employee_sous_responsabilite"`
	DistanceDomicileTravail          float64 `json:"distance_domicile_travail" yaml:"distance_domicile_travail"`
	NiveauEducation                  int     `json:"niveau_education" yaml:"niveau_education"`
	AnneesDepuisDernierePromotion    int     `json:"annees_depuis_la_derniere_promotion" yaml:"annees_depuis_la_derniere_promotion"`
	AnneesSousResponsableActuel      int     `json:"annes_sous_responsable_actuel" yaml:"annes_sous_responsable_actuel"`
}

// WirePayload is the exact body sent to POST /predict. It mirrors
// EmployeeFeatures except for the salary increase, which travels as a fraction.
type WirePayload struct {
	Genre                         string  `json:"genre"`
	StatutMarital                 string  `json:"statut_marital"`
	Departement                   string  `json:"departement"`
	Poste                         string  `json:"poste"`
	HeureSupplementaires          string  `json:"heure_supplementaires"`
	AugmentationSalairePrecedente float64 `json:"augementation_salaire_precedente"`
	DomaineEtude                  string  `json:"domaine_etude"`
	AyantEnfants                  string  `json:"ayant_enfants"`
	FrequenceDeplacement          string  `json:"frequence_deplacement"`

	Age                              int     `json:"age"`
	RevenuMensuel                    float64 `json:"revenu_mensuel"`
	NombreExperiencesPrecedentes     int     `json:"nombre_experiences_precedentes"`
	NombreHeuresTravaillees          int     `json:"nombre_heures_travailless"`
	AnneeExperienceTotale            int     `json:"annee_experience_totale"`
	AnneesDansEntreprise             int     `json:"annees_dans_l_entreprise"`
	AnneesDansPosteActuel            int     `json:"annees_dans_le_poste_actuel"`
	SatisfactionEnvironnement        int     `json:"satisfaction_employee_environnement"`
	NoteEvaluationPrecedente         int     `json:"note_evaluation_precedente"`
	NiveauHierarchiquePoste          int     `json:"niveau_hierarchique_poste"`
	SatisfactionNatureTravail        int     `json:"satisfaction_employee_nature_travail"`
	SatisfactionEquipe               int     `json:"satisfaction_employee_equipe"`
	SatisfactionEquilibreProPerso    int     `json:"satisfaction_employee_equilibre_pro_perso"`
	NoteEvaluationActuelle           int     `json:"note_evaluation_actuelle"`
	NombreParticipationPEE           int     `json:"nombre_participation_pee"`
	NbFormationsSuivies              int     `json:"nb_formations_suivies"`
	NombreEmployeeSousResponsabilite int     `json:"nombre_employee_sous_responsabilite"`
	DistanceDomicileTravail          float64 `json:"distance_domicile_travail"`
	NiveauEducation                  int     `json:"niveau_education"`
	AnneesDepuisDernierePromotion    int     `json:"annees_depuis_la_derniere_promotion"`
	AnneesSousResponsableActuel      int     `json:"annes_sous_responsable_actuel"`
}

// Values flattens the record into a name -> value map keyed by wire names.
func (e EmployeeFeatures) Values() map[string]any {
	data, err := json.Marshal(e)
	if err != nil {
		return map[string]any{}
	}
	values := make(map[string]any)
	if err := json.Unmarshal(data, &values); err != nil {
		return map[string]any{}
	}
	return values
}

// ValidationError is a single user-presentable failure, optionally tied to a field.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// String renders the error as one display line.
func (v ValidationError) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + ": " + v.Message
}
