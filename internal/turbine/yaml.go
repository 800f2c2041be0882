package turbine

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultID identifies the embedded reference turbine.
const DefaultID = "reference-2mw"

//go:embed data/reference-2mw.yaml
var defaultYAML []byte

var (
	defaultOnce  sync.Once
	defaultCurve *Curve
	defaultErr   error
)

// document is the YAML turbine description. Power is tabulated in kW.
type document struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	Manufacturer   string  `yaml:"manufacturer"`
	RatedPowerKW   float64 `yaml:"rated_power_kw"`
	HubHeightM     float64 `yaml:"hub_height_m"`
	RotorDiameterM float64 `yaml:"rotor_diameter_m"`
	Points         []struct {
		WS      float64 `yaml:"ws"`
		PowerKW float64 `yaml:"power_kw"`
		Ct      float64 `yaml:"ct"`
	} `yaml:"points"`
}

// LoadYAML parses a turbine description and validates the resulting curve.
func LoadYAML(r io.Reader) (*Curve, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse turbine description: %w", err)
	}

	c := &Curve{
		ID:             doc.ID,
		Name:           doc.Name,
		Manufacturer:   doc.Manufacturer,
		RatedPowerW:    doc.RatedPowerKW * 1000,
		HubHeightM:     doc.HubHeightM,
		RotorDiameterM: doc.RotorDiameterM,
	}
	for _, p := range doc.Points {
		c.Speeds = append(c.Speeds, p.WS)
		c.PowerW = append(c.PowerW, p.PowerKW*1000)
		c.Ct = append(c.Ct, p.Ct)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads a turbine description from an absolute path.
func LoadFile(path string) (*Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open turbine file: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}

// Default returns a copy of the embedded reference turbine.
func Default() *Curve {
	defaultOnce.Do(func() {
		defaultCurve, defaultErr = LoadYAML(bytes.NewReader(defaultYAML))
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded turbine: %v", defaultErr))
	}
	return defaultCurve.Clone()
}
