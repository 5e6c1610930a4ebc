package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strconv"
	"time"
)

func main() {
	addr := flag.String("addr", ":8000", "Listen address")
	flag.Parse()

	logger := log.New(log.Writer(), "scoring-mock ", log.LstdFlags|log.Lmicroseconds)
	svc := newService(seedRoster())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           logRequests(logger, svc.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func (s *service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "version": "1.0.0", "model_loaded": true})
	})
	mux.HandleFunc("GET /model/info", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"model_type":  "LogisticRegression (mock)",
			"export_date": "2025-03-14",
			"n_features":  len(allFeatures()),
			"metrics":     map[string]any{"recall": 0.71, "precision": 0.48, "f1": 0.57, "roc_auc": 0.83},
			"hyperparameters": map[string]any{
				"C":            0.5,
				"class_weight": "balanced",
			},
		})
	})
	mux.HandleFunc("GET /model/features", func(w http.ResponseWriter, _ *http.Request) {
		categorical, numerical := featureNames()
		features := allFeatures()
		writeJSON(w, http.StatusOK, map[string]any{
			"features":    features,
			"categorical": categorical,
			"numerical":   append(numerical, engineeredNames...),
			"total":       len(features),
		})
	})
	mux.HandleFunc("GET /employees", s.listEmployees)
	mux.HandleFunc("GET /employees/{id}", s.getEmployee)
	mux.HandleFunc("GET /employees/{id}/predict", s.predictEmployee)
	mux.HandleFunc("POST /predict", s.predict)
	mux.HandleFunc("POST /predict/batch", s.predictBatch)
	mux.HandleFunc("GET /predictions", s.listPredictions)
	return mux
}

func (s *service) listEmployees(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r, 100)
	dataset := r.URL.Query().Get("dataset_type")
	rows := s.roster(skip, limit, dataset)
	writeJSON(w, http.StatusOK, map[string]any{"employees": rows, "count": len(rows), "skip": skip, "limit": limit})
}

func (s *service) getEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := s.employee(r.PathValue("id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Employee not found")
		return
	}
	body := make(map[string]any, len(emp.Features)+3)
	for k, v := range emp.Features {
		body[k] = v
	}
	body["id"] = emp.ID
	body["dataset_type"] = emp.DatasetType
	body["attrition_actual"] = emp.AttritionActual
	writeJSON(w, http.StatusOK, body)
}

func (s *service) predictEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := s.employee(r.PathValue("id"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Employee not found")
		return
	}
	id := emp.ID
	writeJSON(w, http.StatusOK, s.score(emp.Features, &id))
}

func (s *service) predict(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if violations := validate(payload, "body"); len(violations) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": violations})
		return
	}
	writeJSON(w, http.StatusOK, s.score(payload, nil))
}

func (s *service) predictBatch(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Employees []map[string]any `json:"employees"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	var violations []violation
	for i, emp := range payload.Employees {
		violations = append(violations, validate(emp, "body", "employees", i)...)
	}
	if len(violations) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": violations})
		return
	}
	results := make([]scoredResponse, 0, len(payload.Employees))
	for _, emp := range payload.Employees {
		results = append(results, s.score(emp, nil))
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": results, "count": len(results)})
}

func (s *service) listPredictions(w http.ResponseWriter, r *http.Request) {
	skip, limit := pageParams(r, 100)
	writeJSON(w, http.StatusOK, map[string]any{"predictions": s.history(skip, limit)})
}

func pageParams(r *http.Request, defaultLimit int) (int, int) {
	skip, err := strconv.Atoi(r.URL.Query().Get("skip"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	return skip, limit
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s %s", r.Method, r.URL.Path, rw.status, r.Header.Get("X-Request-ID"), time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
