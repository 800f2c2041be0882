package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/windaep/windaep/internal/api/middleware"
	"github.com/windaep/windaep/internal/api/models"
	"github.com/windaep/windaep/internal/api/response"
)

// requestWithID returns a request whose context went through RequestID.
func requestWithID(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))

	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)
	return processed
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req := requestWithID(t, http.MethodGet, "/v1/turbines", "")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"message": "hello"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if id := rec.Header().Get("X-Request-Id"); !strings.HasPrefix(id, "req_") {
		t.Errorf("expected generated request id, got %q", id)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/turbines", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, nil)

	if id := rec.Header().Get("X-Request-Id"); id != "" {
		t.Errorf("expected no X-Request-Id header, got %q", id)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestDecode(t *testing.T) {
	type body struct {
		WS10m []float64 `json:"ws10m"`
	}

	var got body
	req := requestWithID(t, http.MethodPost, "/v1/aep/estimate", `{"ws10m":[1,2,3]}`)
	if err := response.Decode(req, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.WS10m) != 3 {
		t.Errorf("expected 3 speeds, got %v", got.WS10m)
	}

	req = requestWithID(t, http.MethodPost, "/v1/aep/estimate", `{"ws10":[1]}`)
	if err := response.Decode(req, &got); err == nil {
		t.Error("expected unknown field to be rejected")
	}

	req = requestWithID(t, http.MethodPost, "/v1/aep/estimate", "")
	if err := response.Decode(req, &got); err != response.ErrEmptyBody {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}
}

func TestProblems(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter, *http.Request)
		status int
		typ    string
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) {
			response.BadRequest(w, r, "validation failed", []models.FieldError{{Field: "ws10m", Message: "required"}})
		}, http.StatusBadRequest, models.ProblemTypeValidation},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			response.Unauthorized(w, r, "invalid token")
		}, http.StatusUnauthorized, models.ProblemTypeUnauthorized},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			response.NotFound(w, r, "turbine not found")
		}, http.StatusNotFound, models.ProblemTypeNotFound},
		{"unprocessable", func(w http.ResponseWriter, r *http.Request) {
			response.Unprocessable(w, r, "sample is not sorted")
		}, http.StatusUnprocessableEntity, models.ProblemTypeUnprocessable},
		{"internal", func(w http.ResponseWriter, r *http.Request) {
			response.InternalError(w, r, "unexpected")
		}, http.StatusInternalServerError, models.ProblemTypeInternal},
		{"bad gateway", func(w http.ResponseWriter, r *http.Request) {
			response.BadGateway(w, r, "retrieval failed")
		}, http.StatusBadGateway, models.ProblemTypeBadGateway},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) {
			response.ServiceUnavailable(w, r, "circuit open")
		}, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithID(t, http.MethodPost, "/v1/aep/estimate", "")
			rec := httptest.NewRecorder()

			tt.write(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("expected problem content type, got %q", ct)
			}

			var p models.Problem
			if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
				t.Fatalf("failed to decode problem: %v", err)
			}
			if p.Type != tt.typ {
				t.Errorf("expected type %q, got %q", tt.typ, p.Type)
			}
			if p.Instance != "/v1/aep/estimate" {
				t.Errorf("expected instance /v1/aep/estimate, got %q", p.Instance)
			}
			if p.TraceID == "" || p.TraceID != rec.Header().Get("X-Request-Id") {
				t.Errorf("expected trace id to match X-Request-Id, got %q", p.TraceID)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	req := requestWithID(t, http.MethodPut, "/v1/admin/turbines/x", "")
	rec := httptest.NewRecorder()

	response.NoContent(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
}
