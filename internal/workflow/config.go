// Workflow configuration: parameters, sensor selection, processing method
package workflow

import (
	"fmt"

	"shallow-water-workbench/internal/sensors"
)

// Mode says whether a parameter enters the lookup-table grid or passes
// through as a constant. A parameter is sampled if and only if its mode is
// ModeRange; there is no automatic promotion between modes.
type Mode int

const (
	ModeFixed Mode = iota
	ModeRange
)

func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeRange:
		return "range"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Grid size bounds for ranged parameters.
const (
	MinGridSize = 10
	MaxGridSize = 100
)

// LargeLUTThreshold is the cell count above which validation raises a
// warning. Large tables are legal; they only risk memory pressure.
const LargeLUTThreshold = 10_000_000

// ParameterSpec is one physical or biological model parameter. Value is
// meaningful only for ModeFixed; Min, Max and GridSize only for ModeRange.
type ParameterSpec struct {
	Name     string  `json:"name"`
	Mode     Mode    `json:"mode"`
	Value    float64 `json:"value,omitempty"`
	Min      float64 `json:"min,omitempty"`
	Max      float64 `json:"max,omitempty"`
	GridSize int     `json:"grid_size,omitempty"`
}

// Fixed builds a fixed-mode parameter.
func Fixed(name string, value float64) ParameterSpec {
	return ParameterSpec{Name: name, Mode: ModeFixed, Value: value}
}

// Range builds a range-mode parameter.
func Range(name string, min, max float64, gridSize int) ParameterSpec {
	return ParameterSpec{Name: name, Mode: ModeRange, Min: min, Max: max, GridSize: gridSize}
}

func (p ParameterSpec) String() string {
	switch p.Mode {
	case ModeRange:
		return fmt.Sprintf("%s=range[%g,%g]x%d", p.Name, p.Min, p.Max, p.GridSize)
	default:
		return fmt.Sprintf("%s=%g", p.Name, p.Value)
	}
}

// Method selects how an image is inverted.
type Method int

const (
	// MethodLUT inverts through a lookup table built at the configured
	// per-parameter grid sizes.
	MethodLUT Method = iota
	// MethodDirect builds a finer temporary table and inverts through it,
	// trading build time for resolution.
	MethodDirect
)

func (m Method) String() string {
	switch m {
	case MethodLUT:
		return "lut"
	case MethodDirect:
		return "direct"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod maps a method name to its Method value.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "lut":
		return MethodLUT, nil
	case "direct", "optimization":
		return MethodDirect, nil
	default:
		return 0, fmt.Errorf("unknown method %q (want lut or direct)", s)
	}
}

// WorkflowConfig aggregates everything one run needs: the parameter set, the
// sensor band selection and the inversion method. The live config is owned
// by the controller; runs always operate on a Clone.
type WorkflowConfig struct {
	Params []ParameterSpec `json:"params"`
	Sensor sensors.Sensor  `json:"sensor"`
	Method Method          `json:"method"`

	// Constants are engine inputs that are never exposed as user
	// parameters (spectral slopes, reference wavelengths, geometry).
	Constants map[string]float64 `json:"constants"`
}

// Clone deep-copies the config so concurrent edits never race with an
// in-flight run.
func (c WorkflowConfig) Clone() WorkflowConfig {
	clone := c
	clone.Params = append([]ParameterSpec(nil), c.Params...)
	clone.Sensor.Bands = append([]sensors.Band(nil), c.Sensor.Bands...)
	clone.Constants = make(map[string]float64, len(c.Constants))
	for k, v := range c.Constants {
		clone.Constants[k] = v
	}
	return clone
}

// Param returns the named parameter spec.
func (c WorkflowConfig) Param(name string) (ParameterSpec, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}

// RangedParams returns the parameters sampled into the lookup-table grid, in
// config order.
func (c WorkflowConfig) RangedParams() []ParameterSpec {
	var ranged []ParameterSpec
	for _, p := range c.Params {
		if p.Mode == ModeRange {
			ranged = append(ranged, p)
		}
	}
	return ranged
}

// FixedValues returns every fixed parameter plus the constants as a single
// map, the form the modeling engine consumes.
func (c WorkflowConfig) FixedValues() map[string]float64 {
	values := make(map[string]float64, len(c.Constants)+len(c.Params))
	for k, v := range c.Constants {
		values[k] = v
	}
	for _, p := range c.Params {
		if p.Mode == ModeFixed {
			values[p.Name] = p.Value
		}
	}
	return values
}

// OutputParameters are the inversion products, in export order.
var OutputParameters = []string{"chl", "cdom", "nap", "depth"}

// physicalLimits bound the plausible range per core parameter. Configured
// ranges outside these are rejected before any engine call.
var physicalLimits = map[string][2]float64{
	"chl":   {0.001, 1000.0},
	"cdom":  {0.00001, 10.0},
	"nap":   {0.0001, 100.0},
	"depth": {0.01, 1000.0},
}

// DefaultConfig returns the standard Sentinel-2 shallow-water setup: the
// four core parameters ranged over their usual spans, substrate fraction
// fixed, and the engine's physics constants.
func DefaultConfig() WorkflowConfig {
	s2, _ := sensors.Get("sentinel2")
	selected, _ := s2.Select([]string{"B2", "B3", "B4", "B5"})

	return WorkflowConfig{
		Params: []ParameterSpec{
			Range("chl", 0.01, 20.0, 20),
			Range("cdom", 0.0001, 2.0, 20),
			Range("nap", 0.001, 5.0, 20),
			Range("depth", 0.1, 25.0, 20),
			Fixed("substrate_fraction", 1.0),
		},
		Sensor: selected,
		Method: MethodLUT,
		Constants: map[string]float64{
			"a_cdom_slope":           0.0168052,
			"a_nap_slope":            0.00977262,
			"bb_ph_slope":            0.878138,
			"lambda0cdom":            550.0,
			"lambda0nap":             550.0,
			"lambda0x":               546.0,
			"x_ph_lambda0x":          0.00157747,
			"x_nap_lambda0x":         0.0225353,
			"a_cdom_lambda0cdom":     1.0,
			"a_nap_lambda0nap":       0.00433,
			"bb_lambda_ref":          550.0,
			"water_refractive_index": 1.33784,
			"theta_air":              30.0,
			"off_nadir":              0.0,
			"q_factor":               3.14159,
		},
	}
}
