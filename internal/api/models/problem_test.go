package models_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/api/models"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_1")
	assert.Empty(t, p.Detail)
	assert.Empty(t, p.Instance)
	assert.Nil(t, p.Errors)

	p = p.WithDetail("latitude must be between -90 and 90").
		WithInstance("/v1/aep/spatial").
		WithErrors([]models.FieldError{
			{Field: "latitude", Message: "out of range", Code: models.CodeOutOfRange},
			{Field: "longitude", Message: "required", Code: models.CodeRequired},
		})

	assert.Equal(t, "latitude must be between -90 and 90", p.Detail)
	assert.Equal(t, "/v1/aep/spatial", p.Instance)
	require.Len(t, p.Errors, 2)
	assert.Equal(t, models.CodeRequired, p.Errors[1].Code)
	assert.Equal(t, "req_1", p.TraceID)
}

func TestProblem_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		got    *models.Problem
		kind   string
		status int
	}{
		{"bad request", models.NewBadRequest("req_2", "d", nil), models.ProblemTypeValidation, http.StatusBadRequest},
		{"unauthorized", models.NewUnauthorized("req_2", "d"), models.ProblemTypeUnauthorized, http.StatusUnauthorized},
		{"forbidden", models.NewForbidden("req_2", "d"), models.ProblemTypeForbidden, http.StatusForbidden},
		{"not found", models.NewNotFound("req_2", "d"), models.ProblemTypeNotFound, http.StatusNotFound},
		{"unprocessable", models.NewUnprocessable("req_2", "d"), models.ProblemTypeUnprocessable, http.StatusUnprocessableEntity},
		{"rate limited", models.NewTooManyRequests("req_2", "d"), models.ProblemTypeTooManyRequests, http.StatusTooManyRequests},
		{"internal", models.NewInternalError("req_2", "d"), models.ProblemTypeInternal, http.StatusInternalServerError},
		{"bad gateway", models.NewBadGateway("req_2", "d"), models.ProblemTypeBadGateway, http.StatusBadGateway},
		{"unavailable", models.NewServiceUnavailable("req_2", "d"), models.ProblemTypeUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.got.Type)
			assert.Equal(t, tt.status, tt.got.Status)
			assert.Equal(t, "d", tt.got.Detail)
			assert.Equal(t, "req_2", tt.got.TraceID)
			assert.NotEmpty(t, tt.got.Title)
		})
	}
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_3", "invalid input", []models.FieldError{
		{Field: "ws10m", Message: "at least two speeds required"},
	}).WithInstance("/v1/aep/estimate")

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_3", w.Header().Get("X-Request-Id"))

	var body models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Validation error", body.Title)
	assert.Equal(t, "/v1/aep/estimate", body.Instance)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "ws10m", body.Errors[0].Field)
}

func TestTimestamp_JSON(t *testing.T) {
	ts := models.Timestamp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)))

	b, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T11:00:00Z"`, string(b))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Time().Equal(ts.Time()))

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &back))
}
