// Package handler provides the HTTP handlers of the windaep API.
package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/windaep/windaep/internal/aep"
	"github.com/windaep/windaep/internal/analysis"
	"github.com/windaep/windaep/internal/api/models"
	"github.com/windaep/windaep/internal/api/response"
	"github.com/windaep/windaep/internal/turbine"
	"github.com/windaep/windaep/internal/windfield"
)

// CurveResolver looks up turbine curves. An empty id is the default turbine.
type CurveResolver interface {
	Resolve(ctx context.Context, id string) (*turbine.Curve, error)
}

// AEPHandlerConfig holds configuration for AEPHandler.
type AEPHandlerConfig struct {
	Curves CurveResolver

	// VRef is used when a request does not set one. Default: aep.ClassI
	VRef float64

	// Strict rejects every out-of-grid spatial query, whatever the request says.
	Strict bool

	Logger zerolog.Logger
}

// AEPHandler serves the estimation endpoints.
type AEPHandler struct {
	curves CurveResolver
	vref   float64
	strict bool
	logger zerolog.Logger
	now    func() time.Time
}

// NewAEPHandler creates an AEPHandler.
func NewAEPHandler(cfg AEPHandlerConfig) *AEPHandler {
	if cfg.VRef == 0 {
		cfg.VRef = aep.ClassI
	}
	return &AEPHandler{
		curves: cfg.Curves,
		vref:   cfg.VRef,
		strict: cfg.Strict,
		logger: cfg.Logger,
		now:    time.Now,
	}
}

// Estimate handles POST /v1/aep/estimate. Samples are estimated as given;
// an unsorted sample is rejected unless the request asks for sorting.
func (h *AEPHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateRequest
	if err := response.Decode(r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	var fieldErrors []models.FieldError
	if len(req.WS10m) < 2 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "ws10m", Message: "at least two speeds required", Code: models.CodeRequired})
	}
	if len(req.WS100m) < 2 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "ws100m", Message: "at least two speeds required", Code: models.CodeRequired})
	}
	vref, fe := h.reference(req.VRef)
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid estimate request", fieldErrors)
		return
	}

	curve, ok := h.resolve(w, r, req.TurbineID)
	if !ok {
		return
	}

	ws10, ws100 := req.WS10m, req.WS100m
	if req.Sort {
		ws10, ws100 = aep.SortedSample(ws10), aep.SortedSample(ws100)
	}
	pair, err := aep.EstimatePair(ws10, ws100, curve, vref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.EstimateResponse{
		Mode:      analysis.ModeTimeSeries.String(),
		TurbineID: curve.ID,
		VRef:      vref,
		Estimates: estimates(pair, len(ws10), len(ws100)),
		Time:      models.Timestamp(h.now()),
	})
}

// Spatial handles POST /v1/aep/spatial: the estimate at the cell of an
// inline wind field nearest the query point.
func (h *AEPHandler) Spatial(w http.ResponseWriter, r *http.Request) {
	var req models.SpatialRequest
	if err := response.Decode(r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	var fieldErrors []models.FieldError
	if req.Field == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "field", Message: "wind field required", Code: models.CodeRequired})
	}
	if req.Latitude == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "latitude", Message: "required", Code: models.CodeRequired})
	} else if *req.Latitude < -90 || *req.Latitude > 90 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "latitude", Message: "must be between -90 and 90", Code: models.CodeOutOfRange})
	}
	if req.Longitude == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "longitude", Message: "required", Code: models.CodeRequired})
	} else if *req.Longitude < -180 || *req.Longitude > 360 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "longitude", Message: "must be between -180 and 360", Code: models.CodeOutOfRange})
	}
	vref, fe := h.reference(req.VRef)
	if fe != nil {
		fieldErrors = append(fieldErrors, *fe)
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid spatial request", fieldErrors)
		return
	}

	field, err := req.Field.Field()
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{{Field: "field", Message: err.Error(), Code: models.CodeInvalid}})
		return
	}

	curve, ok := h.resolve(w, r, req.TurbineID)
	if !ok {
		return
	}

	runner, err := analysis.NewRunner(analysis.RunnerConfig{
		Curve:  curve,
		VRef:   vref,
		Strict: h.strict || req.Strict,
		Logger: h.logger,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := runner.Run(r.Context(), analysis.Spatial{Field: field, Lat: *req.Latitude, Lon: *req.Longitude})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	sel := out.Selection
	response.JSON(w, r, http.StatusOK, models.EstimateResponse{
		Mode:      out.Mode.String(),
		TurbineID: curve.ID,
		VRef:      out.VRef,
		Estimates: estimates(out.Pair, out.Cell.Len(), out.Cell.Len()),
		Cell: &models.CellSelection{
			LatIndex:   sel.Cell.Lat,
			LonIndex:   sel.Cell.Lon,
			Latitude:   sel.Latitude,
			Longitude:  sel.Longitude,
			DistanceKm: sel.DistanceKm,
			Clamped:    sel.Clamped,
		},
		Time: models.Timestamp(h.now()),
	})
}

func (h *AEPHandler) reference(v *float64) (float64, *models.FieldError) {
	if v == nil {
		return h.vref, nil
	}
	if !(*v > 0) || math.IsInf(*v, 0) {
		return 0, &models.FieldError{Field: "vref", Message: "must be a positive wind speed", Code: models.CodeOutOfRange}
	}
	return *v, nil
}

func (h *AEPHandler) resolve(w http.ResponseWriter, r *http.Request, id string) (*turbine.Curve, bool) {
	curve, err := h.curves.Resolve(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return curve, true
}

// writeError maps estimator and catalogue errors to problem responses.
func (h *AEPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, turbine.ErrNotFound):
		response.NotFound(w, r, err.Error())
	case errors.Is(err, aep.ErrUnsortedSample),
		errors.Is(err, aep.ErrInsufficientData),
		errors.Is(err, windfield.ErrOutOfBounds):
		response.Unprocessable(w, r, err.Error())
	case errors.Is(err, aep.ErrInvalidReference),
		errors.Is(err, windfield.ErrInvalidCoords),
		errors.Is(err, windfield.ErrShapeMismatch),
		errors.Is(err, windfield.ErrEmptyField):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.ServiceUnavailable(w, r, "request cancelled")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("estimate failed")
		response.InternalError(w, r, "failed to estimate annual energy production")
	}
}

func estimates(pair *aep.HeightPair, n10, n100 int) []models.HeightEstimate {
	out := make([]models.HeightEstimate, 0, 2)
	for _, hs := range []struct {
		h windfield.Height
		n int
	}{{windfield.Height10m, n10}, {windfield.Height100m, n100}} {
		res := pair.At(hs.h)
		out = append(out, models.HeightEstimate{
			Height:       hs.h.String(),
			EnergyWh:     res.EnergyWh,
			EnergyMWh:    res.MWh(),
			CorrectedMWh: res.Corrected() / 1e6,
			MeanSpeed:    res.MeanSpeed,
			BinWidth:     res.BinWidth,
			Samples:      hs.n,
		})
	}
	return out
}
