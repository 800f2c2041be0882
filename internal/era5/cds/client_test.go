package cds_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/era5/cds"
	"github.com/windaep/windaep/internal/provider/resilience"
	"github.com/windaep/windaep/internal/windfield"
)

const fieldJSON = `{
	"time": ["2021-01-01T00:00:00Z", "2021-01-01T01:00:00Z"],
	"latitude": [55.5],
	"longitude": [8.1],
	"u10": [[[3]], [[6]]],
	"v10": [[[4]], [[8]]],
	"u100": [[[5]], [[9]]],
	"v100": [[[12]], [[12]]]
}`

func testRequest() era5.Request {
	return era5.Request{
		Start:     time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC),
		Area:      era5.PointArea(55.5, 8.1),
		Frequency: era5.FrequencyHourly,
	}
}

func newClient(baseURL string) *cds.Client {
	cfg := resilience.DefaultClientConfig("cds-test")
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 5 * time.Millisecond
	return cds.NewClient(cds.ClientConfig{
		APIKey:       "secret",
		BaseURL:      baseURL,
		PollInterval: 5 * time.Millisecond,
		MaxWait:      time.Second,
		HTTPClient:   resilience.NewClient(cfg),
		Logger:       zerolog.Nop(),
	})
}

func TestClient_Retrieve(t *testing.T) {
	var polls atomic.Int32
	var submitted map[string]any

	mux := http.NewServeMux()
	var serverURL string
	mux.HandleFunc("/retrieve/v1/processes/reanalysis-era5-single-levels/execution", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("PRIVATE-TOKEN"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &submitted))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"jobID":"job-1","status":"accepted"}`))
	})
	mux.HandleFunc("/retrieve/v1/jobs/job-1", func(w http.ResponseWriter, _ *http.Request) {
		status := "running"
		if polls.Add(1) >= 3 {
			status = "successful"
		}
		_, _ = w.Write([]byte(`{"jobID":"job-1","status":"` + status + `"}`))
	})
	mux.HandleFunc("/retrieve/v1/jobs/job-1/results", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"asset":{"value":{"href":"` + serverURL + `/download/job-1","type":"application/json"}}}`))
	})
	mux.HandleFunc("/download/job-1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(fieldJSON))
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	serverURL = server.URL

	ret, err := newClient(server.URL).Retrieve(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, int32(3), polls.Load())
	assert.Equal(t, "application/json", ret.MediaType)
	assert.JSONEq(t, fieldJSON, string(ret.Raw))
	require.NoError(t, ret.Field.Validate())

	series, err := ret.Field.Cell(windfield.CellIndex{})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 10}, series.WS10, 1e-12)
	assert.InDeltaSlice(t, []float64{13, 15}, series.WS100, 1e-12)

	inputs := submitted["inputs"].(map[string]any)
	assert.Equal(t, []any{55.5, 8.1, 55.5, 8.1}, inputs["area"])
	assert.Equal(t, []any{"2021-01-01/2021-01-02"}, inputs["date"])
	assert.Len(t, inputs["time"], 24)
	assert.Len(t, inputs["variable"], 4)
	assert.Equal(t, []any{"reanalysis"}, inputs["product_type"])
}

func TestClient_JobFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/retrieve/v1/processes/reanalysis-era5-single-levels/execution", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"jobID":"job-2","status":"accepted"}`))
	})
	mux.HandleFunc("/retrieve/v1/jobs/job-2", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobID":"job-2","status":"failed"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	_, err := newClient(server.URL).Retrieve(context.Background(), testRequest())
	assert.ErrorIs(t, err, era5.ErrRetrievalFailed)
}

func TestClient_JobTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/retrieve/v1/processes/reanalysis-era5-single-levels/execution", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"jobID":"job-3","status":"accepted"}`))
	})
	mux.HandleFunc("/retrieve/v1/jobs/job-3", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobID":"job-3","status":"accepted"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := cds.NewClient(cds.ClientConfig{
		APIKey:       "secret",
		BaseURL:      server.URL,
		PollInterval: 5 * time.Millisecond,
		MaxWait:      30 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})

	_, err := client.Retrieve(context.Background(), testRequest())
	assert.ErrorIs(t, err, era5.ErrJobTimeout)
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"Unauthorized","detail":"invalid token"}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Retrieve(context.Background(), testRequest())
	require.Error(t, err)

	var apiErr *cds.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestClient_MonthlyInputs(t *testing.T) {
	var submitted map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			assert.Equal(t, "/retrieve/v1/processes/reanalysis-era5-single-levels-monthly-means/execution", r.URL.Path)
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &submitted)
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	req := testRequest()
	req.Frequency = era5.FrequencyMonthly
	_, err := newClient(server.URL).Retrieve(context.Background(), req)
	require.Error(t, err)

	inputs := submitted["inputs"].(map[string]any)
	assert.Equal(t, []any{"monthly_averaged_reanalysis"}, inputs["product_type"])
	assert.Equal(t, []any{"00:00"}, inputs["time"])
}

func TestClient_Name(t *testing.T) {
	assert.Equal(t, cds.ProviderName, newClient("http://example.invalid").Name())
}
