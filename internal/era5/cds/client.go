// Package cds is a client for the Copernicus Climate Data Store retrieval API.
// A retrieval is an asynchronous job: it is submitted, polled until it
// finishes and its result asset is then downloaded.
package cds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/era5"
	"github.com/windaep/windaep/internal/provider/resilience"
	"github.com/windaep/windaep/internal/windfield"
)

const (
	// ProviderName identifies this provider.
	ProviderName = "cds"

	// DefaultBaseURL is the CDS API base URL.
	DefaultBaseURL = "https://cds.climate.copernicus.eu/api"

	// DefaultFormat is the data format requested from CDS.
	DefaultFormat = "json"
)

// Job states reported by the API.
const (
	statusAccepted   = "accepted"
	statusRunning    = "running"
	statusSuccessful = "successful"
	statusFailed     = "failed"
	statusDismissed  = "dismissed"
)

// ClientConfig holds configuration for the CDS client.
type ClientConfig struct {
	// APIKey is the personal access token (required).
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Format is the data_format input. Default: DefaultFormat
	Format string

	// PollInterval between job status checks. Default: 5 seconds
	PollInterval time.Duration

	// MaxWait bounds the time a job may stay queued or running. Default: 2 hours
	MaxWait time.Duration

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is a CDS retrieval client implementing era5.Provider.
type Client struct {
	apiKey       string
	baseURL      string
	format       string
	pollInterval time.Duration
	maxWait      time.Duration
	httpClient   *resilience.Client
	logger       zerolog.Logger
}

// NewClient creates a new CDS client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = 2 * time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		format:       cfg.Format,
		pollInterval: cfg.PollInterval,
		maxWait:      cfg.MaxWait,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Retrieve submits req, waits for the job and downloads the decoded field.
func (c *Client) Retrieve(ctx context.Context, req era5.Request) (*era5.Retrieval, error) {
	job, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	c.logger.Info().
		Str("job_id", job.JobID).
		Str("product", req.Frequency.Product()).
		Msg("retrieval job submitted")

	if err := c.wait(ctx, job.JobID); err != nil {
		return nil, err
	}

	asset, err := c.results(ctx, job.JobID)
	if err != nil {
		return nil, err
	}

	raw, mediaType, err := c.download(ctx, asset)
	if err != nil {
		return nil, err
	}

	field, err := windfield.Decode(bytes.NewReader(raw), mediaType)
	if err != nil {
		return nil, fmt.Errorf("decoding job %s result: %w", job.JobID, err)
	}

	return &era5.Retrieval{
		Request:   req,
		Field:     field,
		Raw:       raw,
		MediaType: mediaType,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (c *Client) submit(ctx context.Context, req era5.Request) (*jobResponse, error) {
	body, err := json.Marshal(executionRequest{Inputs: c.inputs(req)})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/retrieve/v1/processes/%s/execution", c.baseURL, req.Frequency.Product())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var job jobResponse
	if err := c.doJSON(httpReq, &job, http.StatusCreated, http.StatusOK); err != nil {
		return nil, fmt.Errorf("submitting job: %w", err)
	}
	if job.JobID == "" {
		return nil, fmt.Errorf("submitting job: %w: empty job id", era5.ErrRetrievalFailed)
	}
	return &job, nil
}

func (c *Client) inputs(req era5.Request) inputs {
	in := inputs{
		ProductType: []string{productType(req.Frequency)},
		Variable:    era5.Variables,
		Date:        []string{req.Start.Format(era5.DateLayout) + "/" + req.End.Format(era5.DateLayout)},
		Area:        req.Area.Values(),
		DataFormat:  c.format,
	}
	if req.Frequency == era5.FrequencyHourly {
		for h := 0; h < 24; h++ {
			in.Time = append(in.Time, fmt.Sprintf("%02d:00", h))
		}
	} else {
		in.Time = []string{"00:00"}
	}
	return in
}

func productType(f era5.Frequency) string {
	if f == era5.FrequencyMonthly {
		return "monthly_averaged_reanalysis"
	}
	return "reanalysis"
}

func (c *Client) wait(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.maxWait)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.status(ctx, jobID)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: job %s", era5.ErrJobTimeout, jobID)
			}
			return err
		}
		switch status {
		case statusSuccessful:
			return nil
		case statusFailed, statusDismissed:
			return fmt.Errorf("%w: job %s %s", era5.ErrRetrievalFailed, jobID, status)
		}

		c.logger.Debug().Str("job_id", jobID).Str("status", status).Msg("waiting for retrieval job")

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: job %s still %s", era5.ErrJobTimeout, jobID, status)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) status(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/retrieve/v1/jobs/"+jobID, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	var job jobResponse
	if err := c.doJSON(req, &job, http.StatusOK); err != nil {
		return "", fmt.Errorf("polling job %s: %w", jobID, err)
	}
	return job.Status, nil
}

func (c *Client) results(ctx context.Context, jobID string) (*assetValue, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/retrieve/v1/jobs/"+jobID+"/results", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var res resultsResponse
	if err := c.doJSON(req, &res, http.StatusOK); err != nil {
		return nil, fmt.Errorf("fetching job %s results: %w", jobID, err)
	}
	if res.Asset.Value.Href == "" {
		return nil, fmt.Errorf("%w: job %s has no result asset", era5.ErrRetrievalFailed, jobID)
	}
	return &res.Asset.Value, nil
}

func (c *Client) download(ctx context.Context, asset *assetValue) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.Href, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("downloading result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("downloading result: unexpected status code: %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("reading result: %w", err)
	}

	mediaType := asset.Type
	if mediaType == "" {
		mediaType = resp.Header.Get("Content-Type")
	}
	return raw, mediaType, nil
}

func (c *Client) doJSON(req *http.Request, out any, accept ...int) error {
	req.Header.Set("PRIVATE-TOKEN", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range accept {
		ok = ok || resp.StatusCode == code
	}
	if !ok {
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{StatusCode: resp.StatusCode, Title: apiErr.Title, Detail: apiErr.Detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// APIError is a non-success response from the CDS API.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("cds api status %d", e.StatusCode)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
