package models

// PredictionResult is a decoded scoring response.
type PredictionResult struct {
	Prediction     int     `json:"prediction"`
	Probability    float64 `json:"probability"`
	RiskLevel      string  `json:"risk_level,omitempty"`
	AttritionLabel string  `json:"attrition_label"`

	// EngineeredFeatures is rendered as-is; the client never interprets it.
	EngineeredFeatures map[string]any `json:"engineered_features,omitempty"`
	Timestamp          string         `json:"timestamp,omitempty"`
	PredictionID       *int           `json:"prediction_id,omitempty"`
	EmployeeID         *int           `json:"employee_id,omitempty"`
}

// RiskTier is the coarse bucket used for presentation.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// ParseRiskTier reports whether value is one of the three known tiers.
func ParseRiskTier(value string) (RiskTier, bool) {
	switch RiskTier(value) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskTier(value), true
	default:
		return "", false
	}
}

// HealthStatus folds the health endpoint outcome into a display state.
type HealthStatus string

const (
	HealthConnected    HealthStatus = "connected"
	HealthDegraded     HealthStatus = "degraded"
	HealthDisconnected HealthStatus = "disconnected"
)

// ModelInfo is displayed verbatim.
type ModelInfo struct {
	ModelType       string         `json:"model_type"`
	ExportDate      string         `json:"export_date"`
	NFeatures       int            `json:"n_features"`
	Metrics         map[string]any `json:"metrics"`
	Hyperparameters map[string]any `json:"hyperparameters"`
}

// FeatureCatalog lists the feature names the model consumes, raw and engineered.
type FeatureCatalog struct {
	Features    []string `json:"features"`
	Categorical []string `json:"categorical"`
	Numerical   []string `json:"numerical"`
	Total       int      `json:"total"`
}

// PredictionRecord is one row of the service-side prediction history.
type PredictionRecord struct {
	ID          int     `json:"id"`
	EmployeeID  *int    `json:"employee_id"`
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
	RiskLevel   string  `json:"risk_level"`
	CreatedAt   string  `json:"created_at"`
}

// Result adapts a history row so it can go through the same presenter.
func (r PredictionRecord) Result() PredictionResult {
	label := "Non"
	if r.Prediction == 1 {
		label = "Oui"
	}
	id := r.ID
	return PredictionResult{
		Prediction:     r.Prediction,
		Probability:    r.Probability,
		RiskLevel:      r.RiskLevel,
		AttritionLabel: label,
		Timestamp:      r.CreatedAt,
		PredictionID:   &id,
		EmployeeID:     r.EmployeeID,
	}
}
