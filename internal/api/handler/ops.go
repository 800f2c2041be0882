package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/windaep/windaep/internal/api/models"
	"github.com/windaep/windaep/internal/api/response"
	"github.com/windaep/windaep/internal/provider/resilience"
)

// Pinger checks a subsystem is reachable. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandlerConfig holds configuration for OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string

	// Registry reports upstream provider health. Optional.
	Registry *resilience.Registry

	// Subsystems are pinged by the readiness and status checks, keyed by name.
	Subsystems map[string]Pinger
}

// OpsHandler serves the operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	registry   *resilience.Registry
	subsystems map[string]Pinger
	now        func() time.Time
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:    cfg.Version,
		buildTime:  cfg.BuildTime,
		registry:   cfg.Registry,
		subsystems: cfg.Subsystems,
		now:        time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Any failing subsystem makes the
// service unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.checkSubsystems(r.Context())
	status, code := models.HealthStatusOK, http.StatusOK
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			status, code = models.HealthStatusFail, http.StatusServiceUnavailable
			break
		}
	}
	response.JSON(w, r, code, models.Health{Status: status, Time: models.Timestamp(h.now())})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	out := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.checkSubsystems(r.Context()),
		Providers:  []models.ProviderStatus{},
	}
	if h.registry != nil {
		for _, u := range h.registry.AllHealth() {
			out.Providers = append(out.Providers, providerStatus(u))
		}
	}

	for _, s := range out.Subsystems {
		out.Status = worst(out.Status, s.Status)
	}
	for _, p := range out.Providers {
		// An open circuit still serves cached fields, so providers only degrade.
		if p.Status != models.HealthStatusOK {
			out.Status = worst(out.Status, models.HealthStatusDegraded)
		}
	}
	response.JSON(w, r, http.StatusOK, out)
}

func (h *OpsHandler) checkSubsystems(ctx context.Context) []models.SubsystemStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := make([]models.SubsystemStatus, 0, len(h.subsystems))
	for name, p := range h.subsystems {
		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := p.Ping(ctx); err != nil {
			detail := err.Error()
			s.Status, s.Detail = models.HealthStatusFail, &detail
		}
		out = append(out, s)
	}
	return out
}

func providerStatus(u *resilience.UpstreamHealth) models.ProviderStatus {
	p := models.ProviderStatus{
		Provider:     u.Name,
		Status:       models.HealthStatusOK,
		CircuitState: u.CircuitState.String(),
	}
	switch {
	case u.IsUnhealthy():
		p.Status = models.HealthStatusFail
	case u.IsDegraded():
		p.Status = models.HealthStatusDegraded
	}
	if u.LastSuccessAt != nil {
		ts := models.Timestamp(*u.LastSuccessAt)
		p.LastSuccessAt = &ts
	}
	if u.LastFailureAt != nil {
		ts := models.Timestamp(*u.LastFailureAt)
		p.LastFailureAt = &ts
	}
	if u.LastError != "" {
		msg := u.LastError
		p.Message = &msg
	}
	return p
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	rank := map[models.HealthStatus]int{models.HealthStatusOK: 0, models.HealthStatusDegraded: 1, models.HealthStatusFail: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
