package models

// TurbineSummary describes a catalogue turbine.
type TurbineSummary struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Manufacturer   string     `json:"manufacturer,omitempty"`
	RatedPowerW    float64    `json:"ratedPowerW"`
	HubHeightM     float64    `json:"hubHeightM,omitempty"`
	RotorDiameterM float64    `json:"rotorDiameterM,omitempty"`
	CutIn          float64    `json:"cutIn"`
	CutOut         float64    `json:"cutOut"`
	UpdatedAt      *Timestamp `json:"updatedAt,omitempty"`
}

// TurbineList is the body of GET /v1/turbines.
type TurbineList struct {
	Items []TurbineSummary `json:"items"`
}

// TurbineCurve is the sampled performance curve of a turbine.
type TurbineCurve struct {
	ID     string    `json:"id"`
	Speeds []float64 `json:"speeds"`
	PowerW []float64 `json:"powerW"`
	Ct     []float64 `json:"ct"`
}

// TurbineUpsertRequest is the body of PUT /v1/admin/turbines/{id}.
type TurbineUpsertRequest struct {
	Name           string    `json:"name"`
	Manufacturer   string    `json:"manufacturer,omitempty"`
	RatedPowerW    float64   `json:"ratedPowerW"`
	HubHeightM     float64   `json:"hubHeightM,omitempty"`
	RotorDiameterM float64   `json:"rotorDiameterM,omitempty"`
	Speeds         []float64 `json:"speeds"`
	PowerW         []float64 `json:"powerW"`
	Ct             []float64 `json:"ct"`
}
