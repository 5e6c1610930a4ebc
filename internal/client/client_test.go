package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/technova/attrition-console/internal/cache"
	"github.com/technova/attrition-console/internal/codec"
	"github.com/technova/attrition-console/internal/models"
	"github.com/technova/attrition-console/internal/schema"
	"github.com/technova/attrition-console/internal/utils"
)

const successBody = `{"prediction_id":7,"result":{"prediction":1,"probability":0.82,"risk_level":"high","attrition_label":"Oui"},"engineered_features":{"ratio_poste_entreprise":0.5},"timestamp":"2025-03-14T09:26:53.589793"}`

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for missing base URL")
	}
	if _, err := New(Options{BaseURL: "not a url"}); err == nil {
		t.Fatalf("expected error for invalid base URL")
	}
}

func TestCheckHealthStates(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		err    error
		want   models.HealthStatus
	}{
		{name: "healthy", status: http.StatusOK, body: `{"status":"healthy","model_loaded":true}`, want: models.HealthConnected},
		{name: "degraded", status: http.StatusOK, body: `{"status":"degraded","model_loaded":false}`, want: models.HealthDegraded},
		{name: "unknown status", status: http.StatusOK, body: `{"status":"starting"}`, want: models.HealthDegraded},
		{name: "no status", status: http.StatusOK, body: `{}`, want: models.HealthDisconnected},
		{name: "null body", status: http.StatusOK, body: `null`, want: models.HealthDisconnected},
		{name: "null status", status: http.StatusOK, body: `{"status":null}`, want: models.HealthDisconnected},
		{name: "garbage", status: http.StatusOK, body: `<html>`, want: models.HealthDisconnected},
		{name: "server error", status: http.StatusBadGateway, body: `{"status":"healthy"}`, want: models.HealthDisconnected},
		{name: "transport", err: errors.New("connection refused"), want: models.HealthDisconnected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
				if req.URL.Path != "/api/health" {
					t.Fatalf("unexpected path %s", req.URL.Path)
				}
				if tc.err != nil {
					return nil, tc.err
				}
				return jsonResponse(tc.status, tc.body), nil
			})
			if got := c.CheckHealth(context.Background()); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestPredictSendsEncodedPayload(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.Path != "/api/predict" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		if req.Header.Get("X-Request-ID") == "" {
			t.Fatalf("expected request id header")
		}
		data, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["augementation_salaire_precedente"] != 0.11 {
			t.Fatalf("expected fractional salary increase, got %v", payload["augementation_salaire_precedente"])
		}
		if len(payload) != 30 {
			t.Fatalf("expected 30 raw features, got %d", len(payload))
		}
		return jsonResponse(http.StatusOK, successBody), nil
	})

	high, _ := schema.Example("high")
	result, err := c.Predict(context.Background(), high.Record)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if result.RiskLevel != "high" || result.Probability != 0.82 || result.PredictionID == nil || *result.PredictionID != 7 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestPredictRejectionIsNormalized(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"detail":[
			{"loc":["body","age"],"msg":"Input should be greater than or equal to 18"},
			{"loc":["body","genre"],"msg":"Field required"}
		]}`), nil
	})

	_, err := c.Predict(context.Background(), schema.DefaultRecord())
	var rejection *RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rejection.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", rejection.StatusCode)
	}
	want := "Âge: Doit être supérieur ou égal à 18\nGenre: Champ requis"
	if got := Message(err); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestPredictEncodingErrorSkipsNetwork(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	record := schema.DefaultRecord()
	record.AugmentationSalairePrecedente = "treize"

	_, err := c.Predict(context.Background(), record)
	var encErr *codec.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
	if got := Message(err); got != `Augmentation salaire: Pourcentage invalide ("treize")` {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestPredictDecodingError(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"result":{"prediction":1}}`), nil
	})
	_, err := c.Predict(context.Background(), schema.DefaultRecord())
	var decErr *codec.DecodingError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodingError, got %v", err)
	}
	if Message(err) != decodingMessage {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestPredictByEmployeeID(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodGet || req.URL.Path != "/api/employees/1042/predict" {
			t.Fatalf("unexpected request %s %s", req.Method, req.URL.Path)
		}
		if req.Body != nil && req.Body != http.NoBody {
			data, _ := io.ReadAll(req.Body)
			if len(data) != 0 {
				t.Fatalf("expected empty body, got %s", data)
			}
		}
		return jsonResponse(http.StatusOK, strings.Replace(successBody, `"prediction_id":7`, `"prediction_id":7,"employee_id":1042`, 1)), nil
	})
	result, err := c.PredictByEmployeeID(context.Background(), 1042)
	if err != nil {
		t.Fatalf("predict by id: %v", err)
	}
	if result.EmployeeID == nil || *result.EmployeeID != 1042 {
		t.Fatalf("unexpected employee id %+v", result.EmployeeID)
	}
}

func TestPredictByEmployeeIDNotFound(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"detail":"Employee 9 not found"}`), nil
	})
	_, err := c.PredictByEmployeeID(context.Background(), 9)
	if got := Message(err); got != "Employee 9 not found" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestListEmployeesQuery(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		if q.Get("skip") != "20" || q.Get("limit") != "10" || q.Get("dataset_type") != "test" {
			t.Fatalf("unexpected query %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, `{"employees":[{"employee_id":3,"age":41,"genre":"F","departement":"RH","poste":"Consultant","revenu_mensuel":4200,"annees_dans_l_entreprise":6,"attrition_actual":null,"dataset_type":"test"}],"count":1}`), nil
	})
	rows, err := c.ListEmployees(context.Background(), models.RosterQuery{Skip: 20, Limit: 10, DatasetType: models.DatasetTest})
	if err != nil {
		t.Fatalf("list employees: %v", err)
	}
	if len(rows) != 1 || rows[0].EmployeeID != 3 || rows[0].AttritionActual != nil {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if _, err := c.ListEmployees(context.Background(), models.RosterQuery{DatasetType: "validation"}); err == nil {
		t.Fatalf("expected error for unknown dataset type")
	}
}

func TestListEmployeesOmitsDatasetFilter(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if _, ok := req.URL.Query()["dataset_type"]; ok {
			t.Fatalf("dataset_type should be omitted: %s", req.URL.RawQuery)
		}
		return jsonResponse(http.StatusOK, `{"employees":[]}`), nil
	})
	rows, err := c.ListEmployees(context.Background(), models.RosterQuery{Limit: 10})
	if err != nil || rows == nil || len(rows) != 0 {
		t.Fatalf("expected empty page, got %v %v", rows, err)
	}
}

func TestPredictBatchPreservesOrder(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		var body struct {
			Employees []map[string]any `json:"employees"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(body.Employees) != 2 {
			t.Fatalf("expected 2 employees, got %d", len(body.Employees))
		}
		return jsonResponse(http.StatusOK, `{"count":2,"predictions":[
			{"result":{"prediction":1,"probability":0.7,"risk_level":"high","attrition_label":"Oui"}},
			{"result":{"prediction":0,"probability":0.05,"risk_level":"low","attrition_label":"Non"}}
		]}`), nil
	})
	high, _ := schema.Example("high")
	low, _ := schema.Example("low")
	results, err := c.PredictBatch(context.Background(), []models.EmployeeFeatures{high.Record, low.Record})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if results[0].RiskLevel != "high" || results[1].RiskLevel != "low" {
		t.Fatalf("unexpected order %+v", results)
	}
}

func TestListPredictions(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/predictions" || req.URL.Query().Get("limit") != "5" {
			t.Fatalf("unexpected request %s", req.URL.String())
		}
		return jsonResponse(http.StatusOK, `{"predictions":[{"id":1,"employee_id":null,"prediction":0,"probability":0.12,"risk_level":"low","created_at":"2025-03-14T09:26:53"}]}`), nil
	})
	records, err := c.ListPredictions(context.Background(), 0, 5)
	if err != nil {
		t.Fatalf("list predictions: %v", err)
	}
	if len(records) != 1 || records[0].Result().AttritionLabel != "Non" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestTimeoutResolvesToNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: utils.DiscardLogger()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if got := c.CheckHealth(context.Background()); got != models.HealthDisconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
	_, err = c.Predict(context.Background(), schema.DefaultRecord())
	var network *NetworkError
	if !errors.As(err, &network) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if Message(err) != networkMessage {
		t.Fatalf("unexpected message %q", Message(err))
	}
}

func TestDescribeUnknownError(t *testing.T) {
	lines := Describe(errors.New("boom"))
	if len(lines) != 1 || lines[0] != "Échec de la prédiction" {
		t.Fatalf("unexpected lines %q", lines)
	}
	if Describe(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestListEmployeesUsesCache(t *testing.T) {
	calls := 0
	c, err := New(Options{
		BaseURL: "https://scoring.example.com/api",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if req.URL.Path != "/api/employees" {
				t.Fatalf("unexpected path %s", req.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{"employees":[{"employee_id":`+req.URL.Query().Get("skip")+`}]}`), nil
		})},
		Logger:   utils.DiscardLogger(),
		Cache:    cache.NewMemoryProvider(),
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rows, err := c.ListEmployees(ctx, models.RosterQuery{Skip: 10, Limit: 10})
		if err != nil {
			t.Fatalf("list employees: %v", err)
		}
		if len(rows) != 1 || rows[0].EmployeeID != 10 {
			t.Fatalf("unexpected rows %+v", rows)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single upstream call, got %d", calls)
	}

	rows, err := c.ListEmployees(ctx, models.RosterQuery{Skip: 20, Limit: 10})
	if err != nil || rows[0].EmployeeID != 20 || calls != 2 {
		t.Fatalf("expected a separate entry per page, rows=%+v calls=%d err=%v", rows, calls, err)
	}
}

func TestListEmployeesDoesNotCacheFailures(t *testing.T) {
	calls := 0
	c, err := New(Options{
		BaseURL: "https://scoring.example.com/api",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				return jsonResponse(http.StatusServiceUnavailable, `{"detail":"Database unavailable"}`), nil
			}
			return jsonResponse(http.StatusOK, `{"employees":[{"employee_id":1}]}`), nil
		})},
		Logger: utils.DiscardLogger(),
		Cache:  cache.NewMemoryProvider(),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	if _, err := c.ListEmployees(ctx, models.RosterQuery{Limit: 10}); err == nil {
		t.Fatalf("expected first fetch to fail")
	}
	if rows, err := c.ListEmployees(ctx, models.RosterQuery{Limit: 10}); err != nil || len(rows) != 1 {
		t.Fatalf("unexpected rows %+v %v", rows, err)
	}
	if _, err := c.ListEmployees(ctx, models.RosterQuery{Limit: 10}); err != nil || calls != 2 {
		t.Fatalf("expected cached page, calls=%d err=%v", calls, err)
	}
}

func TestModelInfoAndHealthBypassCache(t *testing.T) {
	calls := 0
	c, err := New(Options{
		BaseURL: "https://scoring.example.com/api",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			if req.URL.Path == "/api/health" {
				return jsonResponse(http.StatusOK, `{"status":"healthy"}`), nil
			}
			return jsonResponse(http.StatusOK, `{"model_type":"LogisticRegression"}`), nil
		})},
		Logger:   utils.DiscardLogger(),
		Cache:    cache.NewMemoryProvider(),
		CacheTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.FetchModelInfo(ctx); err != nil {
			t.Fatalf("fetch model info: %v", err)
		}
		c.CheckHealth(ctx)
	}
	if calls != 4 {
		t.Fatalf("expected every call to reach the service, got %d", calls)
	}
}
