package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetRunStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/runs/abc/status":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":             "abc",
				"state":          "running",
				"config":         map[string]interface{}{"task": map[string]interface{}{"name": "branin"}},
				"phase":          "optimization",
				"iteration":      3,
				"observations":   6,
				"incumbent":      []float64{3.14, 2.27},
				"incumbentValue": 0.4,
				"elapsed":        1.5,
			})
		default:
			http.Error(w, "Run not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	if err := getRunStatus(srv.URL+"/api/v1/runs/abc/status", "abc"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	err := getRunStatus(srv.URL+"/api/v1/runs/missing/status", "missing")
	if err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"a","state":"completed","config":{"task":{"name":"forrester"}},"observations":7,"incumbent":[0.757],"incumbentValue":-6.02}]`))
	}))
	defer srv.Close()

	if err := listRuns(srv.URL + "/api/v1/runs"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestListRuns_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := listRuns(srv.URL + "/api/v1/runs"); err == nil {
		t.Error("Expected error for server failure")
	}
}
