package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/technova/attrition-console/internal/client"
	"github.com/technova/attrition-console/internal/metrics"
	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/risk"
)

// ErrSuperseded is returned when a response arrived after a newer request
// was issued and was therefore discarded.
var ErrSuperseded = errors.New("response superseded by a newer request")

const rosterFailureMessage = "Échec du chargement des employés"

// ScoringClient is the subset of the scoring client the console relies on.
type ScoringClient interface {
	CheckHealth(ctx context.Context) models.HealthStatus
	FetchModelInfo(ctx context.Context) (models.ModelInfo, error)
	FetchFeatures(ctx context.Context) (models.FeatureCatalog, error)
	ListEmployees(ctx context.Context, q models.RosterQuery) ([]models.RosterRow, error)
	Predict(ctx context.Context, record models.EmployeeFeatures) (models.PredictionResult, error)
	PredictByEmployeeID(ctx context.Context, employeeID int) (models.PredictionResult, error)
}

// State is the console view state. Snapshot returns copies of it.
type State struct {
	Status      models.HealthStatus    `json:"status"`
	StatusLabel string                 `json:"status_label"`
	ModelInfo   *models.ModelInfo      `json:"model_info,omitempty"`
	Features    *models.FeatureCatalog `json:"features,omitempty"`

	Roster        models.RosterPage `json:"roster"`
	RosterLoading bool              `json:"roster_loading"`
	RosterError   string            `json:"roster_error,omitempty"`

	Pending            bool               `json:"pending"`
	Prediction         *risk.Presentation `json:"prediction,omitempty"`
	Errors             []string           `json:"errors,omitempty"`
	SelectedEmployeeID *int               `json:"selected_employee_id,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// StatusLabel renders a health status for the connection banner.
func StatusLabel(status models.HealthStatus) string {
	switch status {
	case models.HealthConnected:
		return "API Connectée"
	case models.HealthDegraded:
		return "API Dégradée"
	case models.HealthDisconnected:
		return "API Déconnectée"
	default:
		return "Vérification..."
	}
}

// Console owns the state of one operator session. Only the most recently
// issued prediction and roster request may update it.
type Console struct {
	logger    *slog.Logger
	client    ScoringClient
	presenter *risk.Presenter
	describe  func(error) []string

	mu         sync.RWMutex
	state      State
	predictSeq uint64
	rosterSeq  uint64
}

// NewConsole wires a console. describe may be nil, in which case
// client.Describe renders failures.
func NewConsole(logger *slog.Logger, scoring ScoringClient, presenter *risk.Presenter, describe func(error) []string) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	if describe == nil {
		describe = client.Describe
	}
	return &Console{
		logger:    logger,
		client:    scoring,
		presenter: presenter,
		describe:  describe,
		state: State{
			StatusLabel: StatusLabel(""),
			Roster:      models.RosterPage{Employees: []models.RosterRow{}},
			UpdatedAt:   time.Now(),
		},
	}
}

// Bootstrap runs the mount-time fetches concurrently. Model info and feature
// failures are logged and leave prior state untouched.
func (c *Console) Bootstrap(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		status := c.client.CheckHealth(gctx)
		c.mu.Lock()
		c.state.Status = status
		c.state.StatusLabel = StatusLabel(status)
		c.touch()
		c.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		info, err := c.client.FetchModelInfo(gctx)
		if err != nil {
			c.logger.Warn("failed to fetch model info", slog.Any("error", err))
			return nil
		}
		c.mu.Lock()
		c.state.ModelInfo = &info
		c.touch()
		c.mu.Unlock()
		return nil
	})
	g.Go(func() error {
		features, err := c.client.FetchFeatures(gctx)
		if err != nil {
			c.logger.Warn("failed to fetch features", slog.Any("error", err))
			return nil
		}
		c.mu.Lock()
		c.state.Features = &features
		c.touch()
		c.mu.Unlock()
		return nil
	})

	_ = g.Wait()
}

// RefreshHealth re-runs the health check only.
func (c *Console) RefreshHealth(ctx context.Context) models.HealthStatus {
	status := c.client.CheckHealth(ctx)
	c.mu.Lock()
	c.state.Status = status
	c.state.StatusLabel = StatusLabel(status)
	c.touch()
	c.mu.Unlock()
	return status
}

// PredictRecord scores a manually entered record.
func (c *Console) PredictRecord(ctx context.Context, record models.EmployeeFeatures) (*risk.Presentation, error) {
	seq := c.beginPrediction(nil)
	result, err := c.client.Predict(ctx, record)
	return c.finishPrediction(seq, result, err)
}

// PredictEmployee scores an employee stored by the service.
func (c *Console) PredictEmployee(ctx context.Context, employeeID int) (*risk.Presentation, error) {
	id := employeeID
	seq := c.beginPrediction(&id)
	result, err := c.client.PredictByEmployeeID(ctx, employeeID)
	return c.finishPrediction(seq, result, err)
}

func (c *Console) beginPrediction(employeeID *int) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predictSeq++
	c.state.Pending = true
	c.state.Prediction = nil
	c.state.Errors = nil
	c.state.SelectedEmployeeID = employeeID
	c.touch()
	return c.predictSeq
}

func (c *Console) finishPrediction(seq uint64, result models.PredictionResult, err error) (*risk.Presentation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.predictSeq {
		metrics.ObserveStaleResponse("predict")
		c.logger.Debug("discarding stale prediction", slog.Uint64("seq", seq), slog.Uint64("latest", c.predictSeq))
		return nil, ErrSuperseded
	}

	c.state.Pending = false
	c.touch()
	if err != nil {
		c.state.Prediction = nil
		c.state.Errors = c.describe(err)
		return nil, err
	}

	presentation := c.presenter.Present(result)
	metrics.ObserveRiskTier(string(presentation.Tier), string(presentation.Source))
	if presentation.Source == risk.SourceFallback {
		c.logger.Info("risk tier derived locally", slog.String("risk_level", result.RiskLevel), slog.Float64("probability", result.Probability))
	}
	c.state.Prediction = &presentation
	c.state.Errors = nil
	return &presentation, nil
}

// LoadRoster fetches one roster page. Responses for superseded queries are discarded.
func (c *Console) LoadRoster(ctx context.Context, q models.RosterQuery) ([]models.RosterRow, error) {
	c.mu.Lock()
	c.rosterSeq++
	seq := c.rosterSeq
	c.state.RosterLoading = true
	c.state.RosterError = ""
	c.touch()
	c.mu.Unlock()

	rows, err := c.client.ListEmployees(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.rosterSeq {
		metrics.ObserveStaleResponse("roster")
		return nil, ErrSuperseded
	}
	c.state.RosterLoading = false
	c.touch()
	if err != nil {
		c.logger.Warn("failed to load roster", slog.Any("error", err))
		c.state.RosterError = rosterFailureMessage
		c.state.Roster = models.RosterPage{Query: q, Employees: []models.RosterRow{}}
		return nil, err
	}
	c.state.Roster = models.RosterPage{Query: q, Employees: rows}
	return rows, nil
}

// Snapshot returns a copy of the current state.
func (c *Console) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.state
	if s.ModelInfo != nil {
		info := *s.ModelInfo
		s.ModelInfo = &info
	}
	if s.Features != nil {
		features := *s.Features
		s.Features = &features
	}
	if s.Prediction != nil {
		p := *s.Prediction
		s.Prediction = &p
	}
	if s.SelectedEmployeeID != nil {
		id := *s.SelectedEmployeeID
		s.SelectedEmployeeID = &id
	}
	s.Errors = slices.Clone(s.Errors)
	s.Roster.Employees = slices.Clone(s.Roster.Employees)
	return s
}

// FilterRoster keeps rows whose id, department or position contains search,
// case-insensitively.
func FilterRoster(rows []models.RosterRow, search string) []models.RosterRow {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return rows
	}
	out := make([]models.RosterRow, 0, len(rows))
	for _, row := range rows {
		if strings.Contains(strconv.Itoa(row.EmployeeID), needle) ||
			strings.Contains(strings.ToLower(row.Departement), needle) ||
			strings.Contains(strings.ToLower(row.Poste), needle) {
			out = append(out, row)
		}
	}
	return out
}

func (c *Console) touch() { c.state.UpdatedAt = time.Now() }
