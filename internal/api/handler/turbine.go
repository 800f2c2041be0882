package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/api/middleware"
	"github.com/windaep/windaep/internal/api/models"
	"github.com/windaep/windaep/internal/api/response"
	"github.com/windaep/windaep/internal/turbine"
)

// Curve sample range used when the request does not set one (m/s).
const (
	defaultCurveFrom = 4
	defaultCurveTo   = 24
	maxCurveTo       = 50
)

// TurbineCatalog is the catalogue behind the turbine endpoints.
type TurbineCatalog interface {
	CurveResolver
	List(ctx context.Context) ([]*turbine.Curve, error)
	Save(ctx context.Context, curve *turbine.Curve) error
}

// TurbineHandler serves the turbine catalogue.
type TurbineHandler struct {
	catalog TurbineCatalog
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTurbineHandler creates a TurbineHandler.
func NewTurbineHandler(catalog TurbineCatalog, logger zerolog.Logger) *TurbineHandler {
	return &TurbineHandler{catalog: catalog, logger: logger, now: time.Now}
}

// List handles GET /v1/turbines.
func (h *TurbineHandler) List(w http.ResponseWriter, r *http.Request) {
	curves, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list turbines")
		response.InternalError(w, r, "failed to list turbines")
		return
	}
	out := models.TurbineList{Items: make([]models.TurbineSummary, 0, len(curves))}
	for _, c := range curves {
		out.Items = append(out.Items, summary(c))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// Get handles GET /v1/turbines/{turbineId}.
func (h *TurbineHandler) Get(w http.ResponseWriter, r *http.Request) {
	curve, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, summary(curve))
}

// Curve handles GET /v1/turbines/{turbineId}/curve?from=4&to=24, the power
// and thrust coefficient at each integer speed of the range.
func (h *TurbineHandler) Curve(w http.ResponseWriter, r *http.Request) {
	from, errFrom := intParam(r, "from", defaultCurveFrom)
	to, errTo := intParam(r, "to", defaultCurveTo)
	if errFrom != nil || errTo != nil || from < 0 || to < from || to > maxCurveTo {
		response.BadRequest(w, r, "invalid speed range", []models.FieldError{
			{Field: "from", Message: "from and to must satisfy 0 <= from <= to <= 50", Code: models.CodeOutOfRange},
		})
		return
	}

	curve, ok := h.lookup(w, r)
	if !ok {
		return
	}
	speeds, power, ct := curve.Sample(from, to)
	response.JSON(w, r, http.StatusOK, models.TurbineCurve{
		ID:     curve.ID,
		Speeds: speeds,
		PowerW: power,
		Ct:     ct,
	})
}

// Upsert handles PUT /v1/admin/turbines/{turbineId}.
func (h *TurbineHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "turbineId")

	var req models.TurbineUpsertRequest
	if err := response.Decode(r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	curve := &turbine.Curve{
		ID:             id,
		Name:           req.Name,
		Manufacturer:   req.Manufacturer,
		RatedPowerW:    req.RatedPowerW,
		HubHeightM:     req.HubHeightM,
		RotorDiameterM: req.RotorDiameterM,
		Speeds:         req.Speeds,
		PowerW:         req.PowerW,
		Ct:             req.Ct,
		UpdatedAt:      h.now().UTC(),
	}
	if curve.Name == "" {
		curve.Name = id
	}
	if err := curve.Validate(); err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "speeds", Message: err.Error(), Code: models.CodeInvalid}})
		return
	}

	if err := h.catalog.Save(r.Context(), curve); err != nil {
		h.logger.Error().Err(err).Str("turbine_id", id).Msg("failed to save turbine")
		response.InternalError(w, r, "failed to save turbine")
		return
	}
	h.logger.Info().
		Str("turbine_id", id).
		Str("subject", middleware.GetSubject(r.Context())).
		Msg("turbine curve updated")

	response.JSON(w, r, http.StatusOK, summary(curve))
}

func (h *TurbineHandler) lookup(w http.ResponseWriter, r *http.Request) (*turbine.Curve, bool) {
	id := chi.URLParam(r, "turbineId")
	curve, err := h.catalog.Resolve(r.Context(), id)
	switch {
	case errors.Is(err, turbine.ErrNotFound):
		response.NotFound(w, r, "turbine "+strconv.Quote(id)+" not found")
		return nil, false
	case err != nil:
		h.logger.Error().Err(err).Str("turbine_id", id).Msg("failed to resolve turbine")
		response.InternalError(w, r, "failed to load turbine")
		return nil, false
	}
	return curve, true
}

func summary(c *turbine.Curve) models.TurbineSummary {
	s := models.TurbineSummary{
		ID:             c.ID,
		Name:           c.Name,
		Manufacturer:   c.Manufacturer,
		RatedPowerW:    c.RatedPowerW,
		HubHeightM:     c.HubHeightM,
		RotorDiameterM: c.RotorDiameterM,
		CutIn:          c.CutIn(),
		CutOut:         c.CutOut(),
	}
	if !c.UpdatedAt.IsZero() {
		ts := models.Timestamp(c.UpdatedAt)
		s.UpdatedAt = &ts
	}
	return s
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
