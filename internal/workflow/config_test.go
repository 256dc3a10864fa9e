package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("lut")
	require.NoError(t, err)
	assert.Equal(t, MethodLUT, m)

	m, err = ParseMethod("direct")
	require.NoError(t, err)
	assert.Equal(t, MethodDirect, m)

	// Historical alias.
	m, err = ParseMethod("optimization")
	require.NoError(t, err)
	assert.Equal(t, MethodDirect, m)

	_, err = ParseMethod("bogus")
	assert.Error(t, err)
}

func TestCloneDeepCopies(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()

	clone.Params[0] = Fixed("chl", 99)
	clone.Sensor.Bands[0].Wavelength = 1
	clone.Constants["q_factor"] = 0

	assert.Equal(t, ModeRange, cfg.Params[0].Mode)
	assert.NotEqual(t, float64(1), cfg.Sensor.Bands[0].Wavelength)
	assert.Equal(t, 3.14159, cfg.Constants["q_factor"])
}

func TestRangedParamsPreserveOrder(t *testing.T) {
	cfg := WorkflowConfig{Params: []ParameterSpec{
		Range("depth", 0.1, 25, 10),
		Fixed("chl", 2.5),
		Range("nap", 0.001, 5, 15),
	}}

	ranged := cfg.RangedParams()
	require.Len(t, ranged, 2)
	assert.Equal(t, "depth", ranged[0].Name)
	assert.Equal(t, "nap", ranged[1].Name)
}

func TestFixedValuesMergeConstants(t *testing.T) {
	cfg := WorkflowConfig{
		Params: []ParameterSpec{
			Fixed("chl", 2.5),
			Range("depth", 0.1, 25, 10),
		},
		Constants: map[string]float64{"q_factor": 3.14159},
	}

	values := cfg.FixedValues()
	assert.Equal(t, 2.5, values["chl"])
	assert.Equal(t, 3.14159, values["q_factor"])
	_, sampled := values["depth"]
	assert.False(t, sampled, "ranged parameters never appear in the fixed set")
}

func TestParameterSpecString(t *testing.T) {
	assert.Equal(t, "chl=2.5", Fixed("chl", 2.5).String())
	assert.Equal(t, "depth=range[0.1,25]x20", Range("depth", 0.1, 25, 20).String())
}

func TestDefaultConfigShape(t *testing.T) {
	cfg := DefaultConfig()

	require.Len(t, cfg.Params, 5)
	assert.Len(t, cfg.RangedParams(), 4)
	assert.Equal(t, MethodLUT, cfg.Method)
	assert.Equal(t, "sentinel2", cfg.Sensor.ID)
	assert.Len(t, cfg.Sensor.Bands, 4)
	assert.NotEmpty(t, cfg.Constants)

	spec, ok := cfg.Param("substrate_fraction")
	require.True(t, ok)
	assert.Equal(t, ModeFixed, spec.Mode)
	assert.Equal(t, 1.0, spec.Value)
}
