package api

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/technova/attrition-console/internal/errnorm"
	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/schema"
)

var errIncompleteRecord = errors.New("employee record is incomplete or mistyped")

// checkRecordBody reports missing and mistyped fields of a raw record body
// using the same localized wording as service-side validation errors. A
// nil result with a nil error means the body decodes cleanly.
func checkRecordBody(body []byte, translator *errnorm.Translator) ([]models.ValidationError, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("employee record must be a JSON object")
	}

	var problems []models.ValidationError
	report := func(name, msg string) {
		problems = append(problems, models.ValidationError{
			Field:   translator.Field(name),
			Message: translator.Message(msg),
		})
	}
	for _, f := range schema.Fields() {
		value, ok := raw[f.Name]
		if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			report(f.Name, "Field required")
			continue
		}
		switch {
		case f.Kind == schema.Categorical:
			var s string
			if json.Unmarshal(value, &s) != nil {
				report(f.Name, "Input should be a valid string")
			}
		case f.Integer:
			var n int64
			if json.Unmarshal(value, &n) != nil {
				report(f.Name, "Input should be a valid integer")
			}
		default:
			var n float64
			if json.Unmarshal(value, &n) != nil {
				report(f.Name, "Input should be a valid number")
			}
		}
	}
	return problems, nil
}

// decodeRecord checks body and decodes it into a record. Problems are
// returned as display lines alongside errIncompleteRecord.
func decodeRecord(body []byte, translator *errnorm.Translator) (models.EmployeeFeatures, []string, error) {
	var record models.EmployeeFeatures
	problems, err := checkRecordBody(body, translator)
	if err != nil {
		return record, nil, err
	}
	if len(problems) > 0 {
		return record, errnorm.Lines(problems), errIncompleteRecord
	}
	if err := json.Unmarshal(body, &record); err != nil {
		return record, nil, err
	}
	return record, nil, nil
}
