package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/technova/attrition-console/internal/client"
	"github.com/technova/attrition-console/internal/codec"
	"github.com/technova/attrition-console/internal/errnorm"
	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/risk"
	"github.com/technova/attrition-console/internal/schema"
	"github.com/technova/attrition-console/internal/services"
)

// HistorySource lists service-side prediction history.
type HistorySource interface {
	ListPredictions(ctx context.Context, skip, limit int) ([]models.PredictionRecord, error)
}

// APIError is the error body returned by the gateway.
type APIError struct {
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
	Lines   []string `json:"lines,omitempty"`
}

// ErrorEnvelope wraps APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// PredictionResponse is returned by both predict routes.
type PredictionResponse struct {
	Prediction *risk.Presentation `json:"prediction,omitempty"`
	Warnings   []string           `json:"warnings,omitempty"`
	Errors     []string           `json:"errors,omitempty"`
	State      services.State     `json:"state"`
}

// HistoryEntry is one history row with its presentation.
type HistoryEntry struct {
	Record       models.PredictionRecord `json:"record"`
	Presentation risk.Presentation       `json:"presentation"`
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	Logger      *slog.Logger
	Sessions    *SessionStore
	History     HistorySource
	Presenter   *risk.Presenter
	Translator  *errnorm.Translator
	PageSize    int
	MaxPageSize int
	Bootstrap   time.Duration
}

// Handler serves the gateway routes.
type Handler struct {
	logger      *slog.Logger
	sessions    *SessionStore
	history     HistorySource
	presenter   *risk.Presenter
	translator  *errnorm.Translator
	pageSize    int
	maxPageSize int
	bootstrap   time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	maxPageSize := opts.MaxPageSize
	if maxPageSize < pageSize {
		maxPageSize = pageSize
	}
	bootstrap := opts.Bootstrap
	if bootstrap <= 0 {
		bootstrap = client.DefaultTimeout
	}
	translator := opts.Translator
	if translator == nil {
		translator = errnorm.NewTranslator()
	}
	return &Handler{
		logger:      logger,
		sessions:    opts.Sessions,
		history:     opts.History,
		presenter:   opts.Presenter,
		translator:  translator,
		pageSize:    pageSize,
		maxPageSize: maxPageSize,
		bootstrap:   bootstrap,
	}
}

func respondError(c *gin.Context, status int, code string, err error, lines []string) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code, Lines: lines}})
}

// Healthz reports gateway liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GetSchema returns the feature schema used to build forms.
func (h *Handler) GetSchema(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"fields":             schema.Fields(),
		"categorical":        schema.CategoricalNames(),
		"numerical":          schema.NumericalNames(),
		"percentage_options": schema.PercentageOptions(),
	})
}

// GetProfiles returns example records, the default record and the risk copy.
func (h *Handler) GetProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"examples": schema.ExampleProfiles(),
		"default":  schema.DefaultRecord(),
		"risk":     h.presenter.Profiles(),
	})
}

// CreateSession opens a console session and runs its mount-time fetches.
func (h *Handler) CreateSession(c *gin.Context) {
	id, console, err := h.sessions.Create()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "sessions_exhausted", err, nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.bootstrap)
	defer cancel()
	console.Bootstrap(ctx)

	h.logger.Info("session created", slog.String("session_id", id))
	c.JSON(http.StatusCreated, gin.H{"id": id, "state": console.Snapshot()})
}

// GetSession returns the session state.
func (h *Handler) GetSession(c *gin.Context) {
	console, ok := h.console(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, console.Snapshot())
}

// DeleteSession closes a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	if !h.sessions.Delete(c.Param("id")) {
		respondError(c, http.StatusNotFound, "session_not_found", errors.New("session not found"), nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefreshHealth re-runs the health check for a session.
func (h *Handler) RefreshHealth(c *gin.Context) {
	console, ok := h.console(c)
	if !ok {
		return
	}
	console.RefreshHealth(c.Request.Context())
	c.JSON(http.StatusOK, console.Snapshot())
}

// PredictRecord scores a record posted by the operator.
func (h *Handler) PredictRecord(c *gin.Context) {
	console, ok := h.console(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_record", err, nil)
		return
	}
	record, lines, err := decodeRecord(body, h.translator)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_record", err, lines)
		return
	}

	var warnings []string
	for _, problem := range schema.Check(record) {
		warnings = append(warnings, problem.String())
	}

	presentation, err := console.PredictRecord(c.Request.Context(), record)
	h.respondPrediction(c, console, presentation, warnings, err)
}

// PredictEmployee scores an employee stored by the scoring service.
func (h *Handler) PredictEmployee(c *gin.Context) {
	console, ok := h.console(c)
	if !ok {
		return
	}
	employeeID, err := strconv.Atoi(c.Param("eid"))
	if err != nil || employeeID < 0 {
		respondError(c, http.StatusBadRequest, "invalid_employee_id", errors.New("employee id must be a non-negative integer"), nil)
		return
	}
	presentation, err := console.PredictEmployee(c.Request.Context(), employeeID)
	h.respondPrediction(c, console, presentation, nil, err)
}

func (h *Handler) respondPrediction(c *gin.Context, console *services.Console, presentation *risk.Presentation, warnings []string, err error) {
	state := console.Snapshot()
	if err == nil {
		c.JSON(http.StatusOK, PredictionResponse{Prediction: presentation, Warnings: warnings, State: state})
		return
	}
	if errors.Is(err, services.ErrSuperseded) {
		c.JSON(http.StatusConflict, PredictionResponse{Warnings: warnings, State: state})
		return
	}
	c.JSON(predictionStatus(err), PredictionResponse{Warnings: warnings, Errors: state.Errors, State: state})
}

func predictionStatus(err error) int {
	var rejection *client.RejectionError
	var encoding *codec.EncodingError
	switch {
	case errors.As(err, &encoding):
		return http.StatusBadRequest
	case errors.As(err, &rejection):
		if rejection.StatusCode >= 400 && rejection.StatusCode < 500 {
			return rejection.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// ListEmployees loads a roster page for the session.
func (h *Handler) ListEmployees(c *gin.Context) {
	console, ok := h.console(c)
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		respondError(c, http.StatusBadRequest, "invalid_page", errors.New("page must be a non-negative integer"), nil)
		return
	}
	dataset := models.DatasetType(c.Query("dataset_type"))
	switch dataset {
	case models.DatasetAll, models.DatasetTrain, models.DatasetTest:
	default:
		respondError(c, http.StatusBadRequest, "invalid_dataset_type", errors.New("dataset_type must be train or test"), nil)
		return
	}

	query := models.RosterQuery{Skip: page * h.pageSize, Limit: h.pageSize, DatasetType: dataset}
	rows, err := console.LoadRoster(c.Request.Context(), query)
	switch {
	case errors.Is(err, services.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"state": console.Snapshot()})
		return
	case err != nil:
		state := console.Snapshot()
		respondError(c, http.StatusBadGateway, "roster_unavailable", err, []string{state.RosterError})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"query":     query,
		"page":      page,
		"employees": services.FilterRoster(rows, c.Query("search")),
	})
}

// ListPredictions returns the service-side prediction history.
func (h *Handler) ListPredictions(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		respondError(c, http.StatusBadRequest, "invalid_skip", errors.New("skip must be a non-negative integer"), nil)
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.maxPageSize)))
	if err != nil || limit <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_limit", errors.New("limit must be a positive integer"), nil)
		return
	}
	limit = min(limit, h.maxPageSize)

	records, err := h.history.ListPredictions(c.Request.Context(), skip, limit)
	if err != nil {
		h.logger.Warn("failed to list predictions", slog.Any("error", err))
		respondError(c, http.StatusBadGateway, "history_unavailable", err, client.Describe(err))
		return
	}
	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, HistoryEntry{Record: record, Presentation: h.presenter.Present(record.Result())})
	}
	c.JSON(http.StatusOK, gin.H{"predictions": entries, "skip": skip, "limit": limit})
}

func (h *Handler) console(c *gin.Context) (*services.Console, bool) {
	console, ok := h.sessions.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "session_not_found", errors.New("session not found"), nil)
		return nil, false
	}
	return console, true
}
