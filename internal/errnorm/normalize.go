// Package errnorm turns rejected scoring responses into localized,
// display-ready validation errors.
package errnorm

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/technova/attrition-console/internal/models"
)

// FallbackMessage is returned when a failure body carries nothing usable.
const FallbackMessage = "Échec de la prédiction"

const (
	pathSeparator = " → "
	emptyPath     = "Champ"
)

// Shape identifies which failure body layout was recognized.
type Shape int

const (
	Unrecognized Shape = iota
	FieldViolationList
	SingleMessage
	GenericMessage
)

func (s Shape) String() string {
	switch s {
	case FieldViolationList:
		return "field_violations"
	case SingleMessage:
		return "detail"
	case GenericMessage:
		return "message"
	default:
		return "unrecognized"
	}
}

// Violation is one per-field failure as reported by the service.
type Violation struct {
	Loc []string
	Msg string
}

// Body is a failure body resolved to exactly one shape.
type Body struct {
	Shape      Shape
	Violations []Violation
	Message    string
}

// Classify resolves raw into one of the known shapes. Precedence is a
// violation list under detail, a detail string, then a message string.
func Classify(raw []byte) Body {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Body{Shape: Unrecognized}
	}

	if detail, ok := top["detail"]; ok && string(detail) != "null" {
		var list []json.RawMessage
		if err := json.Unmarshal(detail, &list); err == nil && list != nil {
			violations := make([]Violation, 0, len(list))
			for _, item := range list {
				violations = append(violations, decodeViolation(item))
			}
			return Body{Shape: FieldViolationList, Violations: violations}
		}
		var msg string
		if err := json.Unmarshal(detail, &msg); err == nil {
			return Body{Shape: SingleMessage, Message: msg}
		}
	}

	if message, ok := top["message"]; ok {
		var msg string
		if err := json.Unmarshal(message, &msg); err == nil && msg != "" {
			return Body{Shape: GenericMessage, Message: msg}
		}
	}
	return Body{Shape: Unrecognized}
}

// decodeViolation reads one list element on its own so a malformed entry
// never hides its well-formed neighbours. A non-string msg is kept as JSON
// text; a scalar loc is a dotted path.
func decodeViolation(item json.RawMessage) Violation {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return Violation{Msg: rawText(item)}
	}

	var v Violation
	if msg, ok := fields["msg"]; ok {
		v.Msg = rawText(msg)
	}
	if loc, ok := fields["loc"]; ok {
		var list []any
		var scalar any
		switch {
		case json.Unmarshal(loc, &list) == nil:
			v.Loc = locSegments(list)
		case json.Unmarshal(loc, &scalar) == nil:
			if path, ok := scalar.(string); ok {
				v.Loc = locSegments(stringsToAny(strings.Split(path, ".")))
			} else {
				v.Loc = locSegments([]any{scalar})
			}
		}
	}
	return v
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

func stringsToAny(parts []string) []any {
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out
}

func locSegments(loc []any) []string {
	segments := make([]string, 0, len(loc))
	for _, part := range loc {
		switch v := part.(type) {
		case string:
			segments = append(segments, v)
		case float64:
			segments = append(segments, strconv.FormatFloat(v, 'f', -1, 64))
		case nil:
		default:
			b, _ := json.Marshal(v)
			segments = append(segments, string(b))
		}
	}
	return segments
}

// Normalizer renders failure bodies with a Translator.
type Normalizer struct {
	translator *Translator
}

// New returns a Normalizer. A nil translator selects the built-in tables.
func New(translator *Translator) *Normalizer {
	if translator == nil {
		translator = NewTranslator()
	}
	return &Normalizer{translator: translator}
}

// Translator exposes the tables used by n.
func (n *Normalizer) Translator() *Translator { return n.translator }

// Normalize returns at least one validation error for any input.
func (n *Normalizer) Normalize(raw []byte) []models.ValidationError {
	return n.Render(Classify(raw))
}

// Render converts an already classified body.
func (n *Normalizer) Render(body Body) []models.ValidationError {
	switch body.Shape {
	case FieldViolationList:
		if len(body.Violations) == 0 {
			break
		}
		out := make([]models.ValidationError, 0, len(body.Violations))
		for _, v := range body.Violations {
			msg := FallbackMessage
			if v.Msg != "" {
				msg = n.translator.Message(v.Msg)
			}
			out = append(out, models.ValidationError{
				Field:   n.path(v.Loc),
				Message: msg,
			})
		}
		return out
	case SingleMessage, GenericMessage:
		if body.Message == "" {
			break
		}
		return []models.ValidationError{{Message: n.translator.Message(body.Message)}}
	}
	return []models.ValidationError{{Message: FallbackMessage}}
}

// Lines renders raw as one display line per error.
func (n *Normalizer) Lines(raw []byte) []string {
	return Lines(n.Normalize(raw))
}

// Lines renders each validation error as a display line.
func Lines(errs []models.ValidationError) []string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, e.String())
	}
	return lines
}

// The first segment names the payload root and is dropped.
func (n *Normalizer) path(loc []string) string {
	if len(loc) <= 1 {
		return emptyPath
	}
	names := make([]string, 0, len(loc)-1)
	for _, segment := range loc[1:] {
		names = append(names, n.translator.Field(segment))
	}
	return strings.Join(names, pathSeparator)
}
