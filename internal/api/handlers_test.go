package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/technova/attrition-console/internal/client"
	"github.com/technova/attrition-console/internal/risk"
	"github.com/technova/attrition-console/internal/schema"
	"github.com/technova/attrition-console/internal/services"
	"github.com/technova/attrition-console/internal/utils"
)

func newScoringStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.0.0","model_loaded":true}`))
	})
	mux.HandleFunc("/model/info", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model_type":"XGBClassifier","export_date":"2025-03-14","n_features":35,"metrics":{"f1":0.61},"hyperparameters":{"max_depth":4}}`))
	})
	mux.HandleFunc("/model/features", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"model not loaded"}`))
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if age, _ := body["age"].(float64); age < 18 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"detail":[{"loc":["body","age"],"msg":"Input should be greater than or equal to 18"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"prediction_id":1,"result":{"prediction":1,"probability":0.74,"risk_level":"high","attrition_label":"Oui"},"timestamp":"2025-03-14T09:26:53"}`))
	})
	mux.HandleFunc("/employees", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"employees":[{"employee_id":1,"departement":"R&D","poste":"Developpeur"},{"employee_id":2,"departement":"RH","poste":"Consultant"}]}`))
	})
	mux.HandleFunc("/employees/2/predict", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"employee_id":2,"result":{"prediction":0,"probability":0.12,"risk_level":"low","attrition_label":"Non"}}`))
	})
	mux.HandleFunc("/predictions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[{"id":4,"employee_id":null,"prediction":0,"probability":0.35,"risk_level":"medium","created_at":"2025-03-14T09:26:53"}]}`))
	})
	return httptest.NewServer(mux)
}

func newTestRouter(t *testing.T, maxSessions int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := newScoringStub(t)
	t.Cleanup(srv.Close)

	logger := utils.DiscardLogger()
	scoring, err := client.New(client.Options{BaseURL: srv.URL, Timeout: time.Second, Logger: logger})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	classifier, err := risk.NewClassifier(risk.DefaultThresholds())
	if err != nil {
		t.Fatalf("classifier: %v", err)
	}
	presenter, err := risk.NewPresenter(classifier, nil)
	if err != nil {
		t.Fatalf("presenter: %v", err)
	}
	store := NewSessionStore(maxSessions, time.Hour, func() *services.Console {
		return services.NewConsole(logger, scoring, presenter, nil)
	})
	h := NewHandler(HandlerOptions{Logger: logger, Sessions: store, History: scoring, Presenter: presenter, PageSize: 10, MaxPageSize: 50})
	return NewRouter(h, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, router http.Handler) (string, services.State) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID    string         `json:"id"`
		State services.State `json:"state"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return resp.ID, resp.State
}

func TestCreateSessionBootstraps(t *testing.T) {
	router := newTestRouter(t, 4)
	id, state := createSession(t, router)
	if id == "" {
		t.Fatalf("expected session id")
	}
	if state.StatusLabel != "API Connectée" {
		t.Fatalf("unexpected status label %q", state.StatusLabel)
	}
	if state.ModelInfo == nil || state.ModelInfo.NFeatures != 35 {
		t.Fatalf("expected model info, got %+v", state.ModelInfo)
	}
	if state.Features != nil {
		t.Fatalf("expected features to stay unset after failure")
	}
}

func TestPredictRecordRoute(t *testing.T) {
	router := newTestRouter(t, 4)
	id, _ := createSession(t, router)

	high, _ := schema.Example("high")
	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/predict", high.Record)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict: status %d body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	var resp PredictionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Prediction == nil || resp.Prediction.Profile.Label != "Risque Élevé" || resp.Prediction.ProbabilityPercent != "74.0" {
		t.Fatalf("unexpected prediction %+v", resp.Prediction)
	}
	if len(resp.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", resp.Warnings)
	}
}

func TestPredictRecordRejected(t *testing.T) {
	router := newTestRouter(t, 4)
	id, _ := createSession(t, router)

	record := schema.DefaultRecord()
	record.Age = 16
	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/predict", record)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body %s", rec.Code, rec.Body.String())
	}
	var resp PredictionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) != 1 || resp.Errors[0] != "Âge: Doit être supérieur ou égal à 18" {
		t.Fatalf("unexpected errors %q", resp.Errors)
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("expected advisory warning, got %v", resp.Warnings)
	}
	if resp.State.Prediction != nil {
		t.Fatalf("expected prediction to be cleared")
	}
}

func TestPredictRecordEncodingError(t *testing.T) {
	router := newTestRouter(t, 4)
	id, _ := createSession(t, router)

	record := schema.DefaultRecord()
	record.AugmentationSalairePrecedente = "13"
	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/predict", record)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", rec.Code, rec.Body.String())
	}
}

func recordMap(t *testing.T) map[string]any {
	t.Helper()
	raw, err := json.Marshal(schema.DefaultRecord())
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return m
}

func TestPredictRecordReportsMissingAndMistypedFields(t *testing.T) {
	router := newTestRouter(t, 4)
	id, _ := createSession(t, router)

	cases := []struct {
		name  string
		edit  func(map[string]any)
		lines []string
	}{
		{name: "missing age", edit: func(m map[string]any) { delete(m, "age") }, lines: []string{"Âge: Champ requis"}},
		{name: "null genre", edit: func(m map[string]any) { m["genre"] = nil }, lines: []string{"Genre: Champ requis"}},
		{name: "fractional age", edit: func(m map[string]any) { m["age"] = 30.5 }, lines: []string{"Âge: Doit être un nombre entier"}},
		{name: "text salary", edit: func(m map[string]any) { m["revenu_mensuel"] = "beaucoup" }, lines: []string{"Revenu mensuel: Doit être un nombre valide"}},
		{
			name:  "several",
			edit:  func(m map[string]any) { delete(m, "poste"); m["age"] = "30" },
			lines: []string{"Poste: Champ requis", "Âge: Doit être un nombre entier"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := recordMap(t)
			tc.edit(body)
			rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/predict", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body %s", rec.Code, rec.Body.String())
			}
			var resp ErrorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error.Code != "invalid_record" {
				t.Fatalf("unexpected code %q", resp.Error.Code)
			}
			if len(resp.Error.Lines) != len(tc.lines) {
				t.Fatalf("unexpected lines %q", resp.Error.Lines)
			}
			for i, want := range tc.lines {
				if resp.Error.Lines[i] != want {
					t.Fatalf("line %d: expected %q, got %q", i, want, resp.Error.Lines[i])
				}
			}
		})
	}
}

func TestPredictEmployeeRoute(t *testing.T) {
	router := newTestRouter(t, 4)
	id, _ := createSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/employees/2/predict", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict employee: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp PredictionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State.SelectedEmployeeID == nil || *resp.State.SelectedEmployeeID != 2 {
		t.Fatalf("unexpected selected employee %+v", resp.State.SelectedEmployeeID)
	}
	if resp.Prediction.OutcomeLabel != "Susceptible de Rester" {
		t.Fatalf("unexpected outcome %q", resp.Prediction.OutcomeLabel)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/sessions/"+id+"/employees/abc/predict", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestListEmployeesRoute(t *testing.T) {
	router := newTestRouter(t, 4)
	id, _ := createSession(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/employees?page=1&search=rh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list employees: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Employees []struct {
			EmployeeID int `json:"employee_id"`
		} `json:"employees"`
		Query struct {
			Skip  int `json:"skip"`
			Limit int `json:"limit"`
		} `json:"query"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Employees) != 1 || resp.Employees[0].EmployeeID != 2 {
		t.Fatalf("unexpected employees %+v", resp.Employees)
	}
	if resp.Query.Skip != 10 || resp.Query.Limit != 10 {
		t.Fatalf("unexpected query %+v", resp.Query)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/sessions/"+id+"/employees?dataset_type=validation", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for dataset type, got %d", rec.Code)
	}
}

func TestListPredictionsRoute(t *testing.T) {
	router := newTestRouter(t, 4)
	rec := doJSON(t, router, http.MethodGet, "/api/predictions?limit=500", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list predictions: status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Predictions []HistoryEntry `json:"predictions"`
		Limit       int            `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Limit != 50 {
		t.Fatalf("expected limit clamped to 50, got %d", resp.Limit)
	}
	if len(resp.Predictions) != 1 || resp.Predictions[0].Presentation.Profile.Label != "Risque Modéré" {
		t.Fatalf("unexpected history %+v", resp.Predictions)
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t, 1)
	id, _ := createSession(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when sessions are exhausted, got %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id, nil); rec.Code != http.StatusOK {
		t.Fatalf("get session: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodDelete, "/api/sessions/"+id, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete session: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/sessions/"+id, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSchemaAndProfilesRoutes(t *testing.T) {
	router := newTestRouter(t, 1)
	rec := doJSON(t, router, http.MethodGet, "/api/schema", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("schema: %d", rec.Code)
	}
	var body struct {
		Fields []schema.Field `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Fields) != 30 {
		t.Fatalf("unexpected schema body: %v", err)
	}
	if rec := doJSON(t, router, http.MethodGet, "/api/profiles", nil); rec.Code != http.StatusOK {
		t.Fatalf("profiles: %d", rec.Code)
	}
	if rec := doJSON(t, router, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %s", rec.Code, rec.Body.String())
	}
}
