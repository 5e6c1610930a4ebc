package main

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/technova/attrition-console/internal/codec"
	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/schema"
)

// Cut-offs used by the real service; they differ from the console fallback.
const (
	lowCutoff    = 0.20
	mediumCutoff = 0.45
)

var engineeredNames = []string{
	"ratio_poste_entreprise",
	"evolution_evaluation",
	"satisfaction_globale",
	"salaire_par_experience",
	"duree_moyenne_poste",
}

var satisfactionColumns = []string{
	"satisfaction_employee_environnement",
	"satisfaction_employee_nature_travail",
	"satisfaction_employee_equipe",
	"satisfaction_employee_equilibre_pro_perso",
}

type violation struct {
	Type  string `json:"type"`
	Loc   []any  `json:"loc"`
	Msg   string `json:"msg"`
	Input any    `json:"input,omitempty"`
}

type outcome struct {
	Prediction     int     `json:"prediction"`
	Probability    float64 `json:"probability"`
	RiskLevel      string  `json:"risk_level"`
	AttritionLabel string  `json:"attrition_label"`
}

type scoredResponse struct {
	PredictionID       *int               `json:"prediction_id"`
	EmployeeID         *int               `json:"employee_id"`
	Result             outcome            `json:"result"`
	EngineeredFeatures map[string]float64 `json:"engineered_features"`
	Timestamp          string             `json:"timestamp"`
}

type employee struct {
	ID              int
	DatasetType     string
	AttritionActual *int
	Features        map[string]any
}

type rosterRow struct {
	EmployeeID           int     `json:"employee_id"`
	Age                  float64 `json:"age"`
	Genre                string  `json:"genre"`
	Departement          string  `json:"departement"`
	Poste                string  `json:"poste"`
	RevenuMensuel        float64 `json:"revenu_mensuel"`
	AnneesDansEntreprise float64 `json:"annees_dans_l_entreprise"`
	AttritionActual      *int    `json:"attrition_actual"`
	DatasetType          string  `json:"dataset_type"`
}

type predictionRow struct {
	ID          int     `json:"id"`
	EmployeeID  *int    `json:"employee_id"`
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
	RiskLevel   string  `json:"risk_level"`
	CreatedAt   string  `json:"created_at"`
}

type service struct {
	mu          sync.Mutex
	employees   []employee
	predictions []predictionRow
	nextID      int
	now         func() time.Time
}

func newService(employees []employee) *service {
	return &service{employees: employees, nextID: 1, now: time.Now}
}

func featureNames() ([]string, []string) {
	return schema.CategoricalNames(), schema.NumericalNames()
}

func allFeatures() []string {
	categorical, numerical := featureNames()
	return slices.Concat(categorical, numerical, engineeredNames)
}

// seedRoster derives a small roster from the example profiles so every tier
// is represented in both datasets.
func seedRoster() []employee {
	var out []employee
	id := 1
	for round := 0; round < 4; round++ {
		for _, profile := range schema.ExampleProfiles() {
			record := profile.Record
			record.Age += round * 3
			record.AnneesDansEntreprise += round
			record.AnneeExperienceTotale += round
			features, err := toWireMap(record)
			if err != nil {
				continue
			}
			dataset := "train"
			if round%2 == 1 {
				dataset = "test"
			}
			var actual *int
			if dataset == "train" {
				v := 0
				if profile.Key == "high" {
					v = 1
				}
				actual = &v
			}
			out = append(out, employee{ID: id, DatasetType: dataset, AttritionActual: actual, Features: features})
			id++
		}
	}
	return out
}

func toWireMap(record models.EmployeeFeatures) (map[string]any, error) {
	payload, err := codec.Encode(record)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	features := make(map[string]any)
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, err
	}
	return features, nil
}

// validate reports violations in the shape a pydantic model produces.
func validate(payload map[string]any, prefix ...any) []violation {
	var out []violation
	loc := func(name string) []any { return append(slices.Clone(prefix), name) }
	for _, f := range schema.Fields() {
		raw, ok := payload[f.Name]
		if !ok || raw == nil {
			out = append(out, violation{Type: "missing", Loc: loc(f.Name), Msg: "Field required"})
			continue
		}

		if f.Kind == schema.Categorical && f.Name != schema.SalaryIncreaseField {
			if _, ok := raw.(string); !ok {
				out = append(out, violation{Type: "string_type", Loc: loc(f.Name), Msg: "Input should be a valid string", Input: raw})
			}
			continue
		}

		n, ok := raw.(float64)
		if !ok {
			msg, typ := "Input should be a valid number", "float_type"
			if f.Integer {
				msg, typ = "Input should be a valid integer", "int_type"
			}
			out = append(out, violation{Type: typ, Loc: loc(f.Name), Msg: msg, Input: raw})
			continue
		}
		if f.Integer && n != math.Trunc(n) {
			out = append(out, violation{Type: "int_from_float", Loc: loc(f.Name), Msg: "Input should be a valid integer, got a number with a fractional part", Input: raw})
			continue
		}

		lo, hi := f.Min, f.Max
		if f.Name == schema.SalaryIncreaseField {
			zero, one := 0.0, 1.0
			lo, hi = &zero, &one
		}
		if lo != nil && n < *lo {
			out = append(out, violation{Type: "greater_than_equal", Loc: loc(f.Name), Msg: "Input should be greater than or equal to " + formatBound(*lo), Input: raw})
		}
		if hi != nil && n > *hi {
			out = append(out, violation{Type: "less_than_equal", Loc: loc(f.Name), Msg: "Input should be less than or equal to " + formatBound(*hi), Input: raw})
		}
	}
	return out
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func number(features map[string]any, name string) float64 {
	v, _ := features[name].(float64)
	return v
}

func text(features map[string]any, name string) string {
	v, _ := features[name].(string)
	return v
}

func engineer(features map[string]any) map[string]float64 {
	var satisfaction float64
	for _, col := range satisfactionColumns {
		satisfaction += number(features, col)
	}
	return map[string]float64{
		"ratio_poste_entreprise": number(features, "annees_dans_le_poste_actuel") / (number(features, "annees_dans_l_entreprise") + 1),
		"evolution_evaluation":   number(features, "note_evaluation_actuelle") - number(features, "note_evaluation_precedente"),
		"satisfaction_globale":   satisfaction / float64(len(satisfactionColumns)),
		"salaire_par_experience": number(features, "revenu_mensuel") / (number(features, "annee_experience_totale") + 1),
		"duree_moyenne_poste":    number(features, "annee_experience_totale") / (number(features, "nombre_experiences_precedentes") + 1),
	}
}

// probability is a fixed logistic model; it only needs to spread the example
// profiles across the three tiers.
func probability(features map[string]any, engineered map[string]float64) float64 {
	z := -0.8
	if text(features, "heure_supplementaires") == "Oui" {
		z += 1.3
	}
	if text(features, "frequence_deplacement") == "Frequent" {
		z += 0.7
	}
	if text(features, "statut_marital") == "Celibataire" {
		z += 0.5
	}
	if number(features, "age") < 30 {
		z += 0.6
	}
	z += 0.9 * (3 - engineered["satisfaction_globale"])
	z -= 0.08 * math.Min(number(features, "annees_dans_l_entreprise"), 10)
	z -= 0.3 * math.Max(-1, math.Min((number(features, "revenu_mensuel")-4000)/2000, 3))
	p := 1 / (1 + math.Exp(-z))
	return math.Round(p*10000) / 10000
}

func riskLevel(p float64) string {
	switch {
	case p < lowCutoff:
		return "low"
	case p < mediumCutoff:
		return "medium"
	default:
		return "high"
	}
}

func (s *service) score(features map[string]any, employeeID *int) scoredResponse {
	engineered := engineer(features)
	p := probability(features, engineered)
	result := outcome{Probability: p, RiskLevel: riskLevel(p), AttritionLabel: "Non"}
	if p >= 0.5 {
		result.Prediction = 1
		result.AttritionLabel = "Oui"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	created := s.now().UTC().Format("2006-01-02T15:04:05.000000")
	s.predictions = append(s.predictions, predictionRow{
		ID:          id,
		EmployeeID:  employeeID,
		Prediction:  result.Prediction,
		Probability: p,
		RiskLevel:   result.RiskLevel,
		CreatedAt:   created,
	})
	return scoredResponse{
		PredictionID:       &id,
		EmployeeID:         employeeID,
		Result:             result,
		EngineeredFeatures: engineered,
		Timestamp:          created,
	}
}

func (s *service) roster(skip, limit int, dataset string) []rosterRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]rosterRow, 0, limit)
	seen := 0
	for _, emp := range s.employees {
		if dataset != "" && emp.DatasetType != dataset {
			continue
		}
		seen++
		if seen <= skip {
			continue
		}
		if len(rows) == limit {
			break
		}
		rows = append(rows, rosterRow{
			EmployeeID:           emp.ID,
			Age:                  number(emp.Features, "age"),
			Genre:                text(emp.Features, "genre"),
			Departement:          text(emp.Features, "departement"),
			Poste:                text(emp.Features, "poste"),
			RevenuMensuel:        number(emp.Features, "revenu_mensuel"),
			AnneesDansEntreprise: number(emp.Features, "annees_dans_l_entreprise"),
			AttritionActual:      emp.AttritionActual,
			DatasetType:          emp.DatasetType,
		})
	}
	return rows
}

func (s *service) employee(rawID string) (employee, bool) {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return employee{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, emp := range s.employees {
		if emp.ID == id {
			return emp, true
		}
	}
	return employee{}, false
}

// history returns predictions newest first.
func (s *service) history(skip, limit int) []predictionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]predictionRow, 0, limit)
	for i := len(s.predictions) - 1 - skip; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.predictions[i])
	}
	return out
}
