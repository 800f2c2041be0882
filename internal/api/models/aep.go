package models

import "github.com/windaep/windaep/internal/windfield"

// EstimateRequest is the body of POST /v1/aep/estimate.
type EstimateRequest struct {
	// WS10m and WS100m are wind speed samples in m/s at each height. They must
	// be sorted ascending unless Sort is set.
	WS10m  []float64 `json:"ws10m"`
	WS100m []float64 `json:"ws100m"`

	// TurbineID selects a catalogue curve; empty means the default turbine.
	TurbineID string `json:"turbineId,omitempty"`

	// VRef overrides the configured reference wind speed.
	VRef *float64 `json:"vref,omitempty"`

	// Sort sorts both samples before estimating.
	Sort bool `json:"sort,omitempty"`
}

// SpatialRequest is the body of POST /v1/aep/spatial.
type SpatialRequest struct {
	Field     *windfield.Document `json:"field"`
	Latitude  *float64            `json:"latitude"`
	Longitude *float64            `json:"longitude"`
	TurbineID string              `json:"turbineId,omitempty"`
	VRef      *float64            `json:"vref,omitempty"`

	// Strict rejects queries outside the field instead of using the boundary cell.
	Strict bool `json:"strict,omitempty"`
}

// HeightEstimate is the estimate at one height.
type HeightEstimate struct {
	Height    string  `json:"height"`
	EnergyWh  float64 `json:"energyWh"`
	EnergyMWh float64 `json:"energyMWh"`

	// CorrectedMWh is |EnergyMWh|, kept for clients of the legacy report.
	CorrectedMWh float64 `json:"correctedMWh"`

	MeanSpeed float64 `json:"meanSpeed"`
	BinWidth  float64 `json:"binWidth"`
	Samples   int     `json:"samples"`
}

// CellSelection describes the grid cell a spatial estimate used.
type CellSelection struct {
	LatIndex   int     `json:"latIndex"`
	LonIndex   int     `json:"lonIndex"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distanceKm"`
	Clamped    bool    `json:"clamped"`
}

// EstimateResponse is returned by both estimation endpoints.
type EstimateResponse struct {
	Mode      string           `json:"mode"`
	TurbineID string           `json:"turbineId"`
	VRef      float64          `json:"vref"`
	Estimates []HeightEstimate `json:"estimates"`
	Cell      *CellSelection   `json:"cell,omitempty"`
	Time      Timestamp        `json:"time"`
}
