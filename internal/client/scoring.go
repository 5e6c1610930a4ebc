package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/technova/attrition-console/internal/codec"
	"github.com/technova/attrition-console/internal/models"
)

const healthyStatus = "healthy"

// CheckHealth folds the health endpoint outcome into a display status. It
// never fails: transport errors, non-2xx answers and bodies without a status
// resolve to HealthDisconnected.
func (c *Client) CheckHealth(ctx context.Context) models.HealthStatus {
	start := time.Now()
	resp, err := c.do(ctx, OpHealth, http.MethodGet, c.resolvePath(c.paths.Health, nil), nil)
	if err != nil {
		c.observe(OpHealth, start, err)
		return models.HealthDisconnected
	}
	if !resp.ok() {
		c.observe(OpHealth, start, c.reject(OpHealth, resp))
		return models.HealthDisconnected
	}

	var body struct {
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(resp.body, &body); err != nil {
		c.observe(OpHealth, start, &codec.DecodingError{Reason: err.Error()})
		return models.HealthDisconnected
	}
	if body.Status == nil {
		c.observe(OpHealth, start, &codec.DecodingError{Reason: "health response carries no status"})
		return models.HealthDisconnected
	}
	c.observe(OpHealth, start, nil)
	if *body.Status == healthyStatus {
		return models.HealthConnected
	}
	return models.HealthDegraded
}

// FetchModelInfo returns the model metadata shown on the model page.
func (c *Client) FetchModelInfo(ctx context.Context) (models.ModelInfo, error) {
	var info models.ModelInfo
	if err := c.getJSON(ctx, OpModelInfo, c.resolvePath(c.paths.ModelInfo, nil), &info); err != nil {
		return models.ModelInfo{}, err
	}
	return info, nil
}

// FetchFeatures returns the feature names consumed by the model.
func (c *Client) FetchFeatures(ctx context.Context) (models.FeatureCatalog, error) {
	var catalog models.FeatureCatalog
	if err := c.getJSON(ctx, OpFeatures, c.resolvePath(c.paths.Features, nil), &catalog); err != nil {
		return models.FeatureCatalog{}, err
	}
	return catalog, nil
}

// ListEmployees returns one roster page. The roster is read-only upstream, so
// pages are served from the configured cache while fresh.
func (c *Client) ListEmployees(ctx context.Context, q models.RosterQuery) ([]models.RosterRow, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(max(q.Skip, 0)))
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	switch q.DatasetType {
	case models.DatasetTrain, models.DatasetTest:
		query.Set("dataset_type", string(q.DatasetType))
	case models.DatasetAll:
	default:
		return nil, fmt.Errorf("unknown dataset type %q", q.DatasetType)
	}

	var body struct {
		Employees []models.RosterRow `json:"employees"`
	}
	if err := c.getCachedJSON(ctx, OpEmployees, c.resolvePath(c.paths.Employees, query), &body); err != nil {
		return nil, err
	}
	if body.Employees == nil {
		return []models.RosterRow{}, nil
	}
	return body.Employees, nil
}

// ListPredictions returns the service-side prediction history.
func (c *Client) ListPredictions(ctx context.Context, skip, limit int) ([]models.PredictionRecord, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(max(skip, 0)))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var body struct {
		Predictions []models.PredictionRecord `json:"predictions"`
	}
	if err := c.getJSON(ctx, OpPredictions, c.resolvePath(c.paths.Predictions, query), &body); err != nil {
		return nil, err
	}
	if body.Predictions == nil {
		return []models.PredictionRecord{}, nil
	}
	return body.Predictions, nil
}

// Predict encodes record and scores it.
func (c *Client) Predict(ctx context.Context, record models.EmployeeFeatures) (result models.PredictionResult, err error) {
	start := time.Now()
	defer func() { c.observe(OpPredict, start, err) }()

	payload, err := codec.Encode(record)
	if err != nil {
		return models.PredictionResult{}, err
	}
	return c.score(ctx, OpPredict, http.MethodPost, c.resolvePath(c.paths.Predict, nil), payload)
}

// PredictByEmployeeID scores an employee stored by the service. No client-side
// encoding takes place.
func (c *Client) PredictByEmployeeID(ctx context.Context, employeeID int) (result models.PredictionResult, err error) {
	start := time.Now()
	defer func() { c.observe(OpPredictEmployee, start, err) }()

	endpoint := c.resolvePath(fmt.Sprintf("%s/%d/predict", c.paths.Employees, employeeID), nil)
	return c.score(ctx, OpPredictEmployee, http.MethodGet, endpoint, nil)
}

// PredictBatch encodes and scores several records in one call. Results are
// returned in input order.
func (c *Client) PredictBatch(ctx context.Context, records []models.EmployeeFeatures) (results []models.PredictionResult, err error) {
	start := time.Now()
	defer func() { c.observe(OpPredictBatch, start, err) }()

	payloads := make([]models.WirePayload, 0, len(records))
	for _, record := range records {
		payload, err := codec.Encode(record)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}

	resp, err := c.do(ctx, OpPredictBatch, http.MethodPost, c.resolvePath(c.paths.PredictBatch, nil), map[string]any{"employees": payloads})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.reject(OpPredictBatch, resp)
	}
	results, err = codec.DecodeBatch(resp.body)
	if err != nil {
		return nil, err
	}
	if len(results) != len(records) {
		return nil, &codec.DecodingError{Field: "predictions", Reason: fmt.Sprintf("has %d entries for %d records", len(results), len(records))}
	}
	return results, nil
}

func (c *Client) score(ctx context.Context, op, method, endpoint string, payload any) (models.PredictionResult, error) {
	resp, err := c.do(ctx, op, method, endpoint, payload)
	if err != nil {
		return models.PredictionResult{}, err
	}
	if !resp.ok() {
		return models.PredictionResult{}, c.reject(op, resp)
	}
	return codec.Decode(resp.body)
}
