package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/technova/attrition-console/internal/codec"
	"github.com/technova/attrition-console/internal/errnorm"
	"github.com/technova/attrition-console/internal/models"
)

const (
	networkMessage  = "Service de prédiction injoignable"
	decodingMessage = "Réponse invalide du service de prédiction"
	encodingMessage = "Pourcentage invalide"
)

// RejectionError is a non-2xx answer from the scoring service, already
// normalized into display errors.
type RejectionError struct {
	Operation  string
	StatusCode int
	Errors     []models.ValidationError
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s rejected with status %d: %s", e.Operation, e.StatusCode, strings.Join(errnorm.Lines(e.Errors), "; "))
}

// NetworkError wraps transport failures, including timeouts.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: scoring service unreachable: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Describe returns the user-displayable lines for any client failure.
func Describe(err error) []string {
	return DescribeWith(errnorm.NewTranslator(), err)
}

// DescribeWith is Describe with an explicit field translator.
func DescribeWith(translator *errnorm.Translator, err error) []string {
	if err == nil {
		return nil
	}

	var rejection *RejectionError
	var network *NetworkError
	var decoding *codec.DecodingError
	var encoding *codec.EncodingError
	switch {
	case errors.As(err, &rejection):
		if len(rejection.Errors) == 0 {
			return []string{errnorm.FallbackMessage}
		}
		return errnorm.Lines(rejection.Errors)
	case errors.As(err, &network):
		return []string{networkMessage}
	case errors.As(err, &decoding):
		return []string{decodingMessage}
	case errors.As(err, &encoding):
		msg := "Champ requis"
		if strings.TrimSpace(encoding.Value) != "" {
			msg = fmt.Sprintf("%s (%q)", encodingMessage, encoding.Value)
		}
		return []string{models.ValidationError{Field: translator.Field(encoding.Field), Message: msg}.String()}
	default:
		return []string{errnorm.FallbackMessage}
	}
}

// Message joins Describe output into a single multi-line string.
func Message(err error) string {
	return strings.Join(Describe(err), "\n")
}
