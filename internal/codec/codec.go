// Package codec converts employee records to the scoring wire payload and
// decodes scoring responses into typed prediction results.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/schema"
)

// French typography puts a no-break space (U+00A0 or U+202F) before "%".
var percentagePattern = regexp.MustCompile(`^[\s\x{00A0}\x{202F}]*(-?\d+(?:\.\d+)?)[\s\x{00A0}\x{202F}]*%[\s\x{00A0}\x{202F}]*$`)

// EncodingError reports a record that cannot be turned into a wire payload.
type EncodingError struct {
	Field  string
	Value  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: %s", e.Field, e.Reason)
}

// DecodingError reports a successful response whose body is malformed.
type DecodingError struct {
	Field  string
	Reason string
}

func (e *DecodingError) Error() string {
	if e.Field == "" {
		return "decode response: " + e.Reason
	}
	return fmt.Sprintf("decode response: %s %s", e.Field, e.Reason)
}

// ParsePercentage converts "13 %" into 0.13.
func ParsePercentage(value string) (float64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, &EncodingError{Field: schema.SalaryIncreaseField, Value: value, Reason: "missing value"}
	}
	match := percentagePattern.FindStringSubmatch(value)
	if match == nil {
		return 0, &EncodingError{Field: schema.SalaryIncreaseField, Value: value, Reason: fmt.Sprintf("%q is not a percentage", value)}
	}
	n, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, &EncodingError{Field: schema.SalaryIncreaseField, Value: value, Reason: err.Error()}
	}
	return n / 100, nil
}

// Encode copies every raw feature into the wire payload. The salary increase
// is the only field that changes representation.
func Encode(record models.EmployeeFeatures) (models.WirePayload, error) {
	increase, err := ParsePercentage(record.AugmentationSalairePrecedente)
	if err != nil {
		return models.WirePayload{}, err
	}
	return models.WirePayload{
		Genre:                            record.Genre,
		StatutMarital:                    record.StatutMarital,
		Departement:                      record.Departement,
		Poste:                            record.Poste,
		HeureSupplementaires:             record.HeureSupplementaires,
		AugmentationSalairePrecedente:    increase,
		DomaineEtude:                     record.DomaineEtude,
		AyantEnfants:                     record.AyantEnfants,
		FrequenceDeplacement:             record.FrequenceDeplacement,
		Age:                              record.Age,
		RevenuMensuel:                    record.RevenuMensuel,
		NombreExperiencesPrecedentes:     record.NombreExperiencesPrecedentes,
		NombreHeuresTravaillees:          record.NombreHeuresTravaillees,
		AnneeExperienceTotale:            record.AnneeExperienceTotale,
		AnneesDansEntreprise:             record.AnneesDansEntreprise,
		AnneesDansPosteActuel:            record.AnneesDansPosteActuel,
		SatisfactionEnvironnement:        record.SatisfactionEnvironnement,
		NoteEvaluationPrecedente:         record.NoteEvaluationPrecedente,
		NiveauHierarchiquePoste:          record.NiveauHierarchiquePoste,
		SatisfactionNatureTravail:        record.SatisfactionNatureTravail,
		SatisfactionEquipe:               record.SatisfactionEquipe,
		SatisfactionEquilibreProPerso:    record.SatisfactionEquilibreProPerso,
		NoteEvaluationActuelle:           record.NoteEvaluationActuelle,
		NombreParticipationPEE:           record.NombreParticipationPEE,
		NbFormationsSuivies:              record.NbFormationsSuivies,
		NombreEmployeeSousResponsabilite: record.NombreEmployeeSousResponsabilite,
		DistanceDomicileTravail:          record.DistanceDomicileTravail,
		NiveauEducation:                  record.NiveauEducation,
		AnneesDepuisDernierePromotion:    record.AnneesDepuisDernierePromotion,
		AnneesSousResponsableActuel:      record.AnneesSousResponsableActuel,
	}, nil
}

type envelope struct {
	Result             map[string]json.RawMessage `json:"result"`
	EngineeredFeatures map[string]any             `json:"engineered_features"`
	Timestamp          string                     `json:"timestamp"`
	PredictionID       *int                       `json:"prediction_id"`
	EmployeeID         *int                       `json:"employee_id"`
}

// Decode validates a prediction response body and returns the typed result.
func Decode(raw []byte) (models.PredictionResult, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return models.PredictionResult{}, &DecodingError{Reason: err.Error()}
	}
	return decodeEnvelope(env)
}

// DecodeBatch validates a batch prediction response body.
func DecodeBatch(raw []byte) ([]models.PredictionResult, error) {
	var body struct {
		Predictions []envelope `json:"predictions"`
		Count       *int       `json:"count"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &DecodingError{Reason: err.Error()}
	}
	if body.Predictions == nil {
		return nil, &DecodingError{Field: "predictions", Reason: "is missing"}
	}
	if body.Count != nil && *body.Count != len(body.Predictions) {
		return nil, &DecodingError{Field: "count", Reason: fmt.Sprintf("is %d but %d predictions were returned", *body.Count, len(body.Predictions))}
	}
	results := make([]models.PredictionResult, 0, len(body.Predictions))
	for i, env := range body.Predictions {
		result, err := decodeEnvelope(env)
		if err != nil {
			var decErr *DecodingError
			if errors.As(err, &decErr) {
				return nil, &DecodingError{Field: fmt.Sprintf("predictions[%d].%s", i, decErr.Field), Reason: decErr.Reason}
			}
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func decodeEnvelope(env envelope) (models.PredictionResult, error) {
	if env.Result == nil {
		return models.PredictionResult{}, &DecodingError{Field: "result", Reason: "is missing"}
	}

	var probability float64
	if err := requireField(env.Result, "probability", &probability); err != nil {
		return models.PredictionResult{}, err
	}
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return models.PredictionResult{}, &DecodingError{Field: "result.probability", Reason: fmt.Sprintf("%v is outside [0,1]", probability)}
	}

	var prediction float64
	if err := requireField(env.Result, "prediction", &prediction); err != nil {
		return models.PredictionResult{}, err
	}
	if prediction != 0 && prediction != 1 {
		return models.PredictionResult{}, &DecodingError{Field: "result.prediction", Reason: fmt.Sprintf("%v is not 0 or 1", prediction)}
	}

	var riskLevel, label string
	if err := requireField(env.Result, "risk_level", &riskLevel); err != nil {
		return models.PredictionResult{}, err
	}
	if err := requireField(env.Result, "attrition_label", &label); err != nil {
		return models.PredictionResult{}, err
	}

	return models.PredictionResult{
		Prediction:         int(prediction),
		Probability:        probability,
		RiskLevel:          riskLevel,
		AttritionLabel:     label,
		EngineeredFeatures: env.EngineeredFeatures,
		Timestamp:          env.Timestamp,
		PredictionID:       env.PredictionID,
		EmployeeID:         env.EmployeeID,
	}, nil
}

func requireField(fields map[string]json.RawMessage, name string, dst any) error {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return &DecodingError{Field: "result." + name, Reason: "is missing"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &DecodingError{Field: "result." + name, Reason: fmt.Sprintf("has the wrong type: %s", string(raw))}
	}
	return nil
}
