package workflow

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shallow-water-workbench/internal/lut"
	"shallow-water-workbench/internal/model"
	"shallow-water-workbench/internal/raster"
	"shallow-water-workbench/internal/sensors"
)

// fakeEngine is a deterministic stand-in for the external modeling library.
type fakeEngine struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, req model.ForwardRequest) ([]float64, error)
}

func (f *fakeEngine) ForwardModel(ctx context.Context, req model.ForwardRequest) ([]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, req)
	}
	return syntheticSpectrum(req.Parameters, req.Wavelengths), nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func syntheticSpectrum(params map[string]float64, wavelengths []float64) []float64 {
	out := make([]float64, len(wavelengths))
	for i, wl := range wavelengths {
		out[i] = params["depth"]*0.001 + params["chl"]*0.01 + wl*1e-6
	}
	return out
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testSensor() sensors.Sensor {
	return sensors.Sensor{ID: "test", Name: "Test", Bands: []sensors.Band{
		{Name: "T1", Wavelength: 490},
		{Name: "T2", Wavelength: 560},
		{Name: "T3", Wavelength: 665},
	}}
}

// smallConfig keeps runs fast: one ranged parameter at the minimum grid.
func smallConfig() WorkflowConfig {
	return WorkflowConfig{
		Params: []ParameterSpec{
			Range("depth", 0.1, 25.0, 10),
			Fixed("chl", 2.5),
			Fixed("cdom", 0.5),
			Fixed("nap", 1.0),
		},
		Sensor:    testSensor(),
		Method:    MethodLUT,
		Constants: map[string]float64{"q_factor": 3.14159},
	}
}

func newTestController(engine model.Engine, cfg WorkflowConfig) *Controller {
	c := NewController(engine, testLogger())
	c.SetConfig(cfg)
	return c
}

func TestSetParameterRejectsInvertedRange(t *testing.T) {
	c := newTestController(&fakeEngine{}, smallConfig())
	before := c.Config()

	err := c.SetParameter("depth", Range("depth", 10, 5, 20))

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, before, c.Config(), "a rejected edit must not change the config")
}

func TestSetParameterInvalidatesEstimate(t *testing.T) {
	c := newTestController(&fakeEngine{}, smallConfig())
	assert.Equal(t, int64(10), c.EstimateLUTSize())

	require.NoError(t, c.SetParameter("depth", Range("depth", 0.1, 25.0, 20)))
	assert.Equal(t, int64(20), c.EstimateLUTSize())

	require.NoError(t, c.SetParameter("depth", Fixed("depth", 10.0)))
	assert.Equal(t, int64(1), c.EstimateLUTSize())
}

func TestSetParameterAppendsNewParameter(t *testing.T) {
	c := newTestController(&fakeEngine{}, smallConfig())
	require.NoError(t, c.SetParameter("substrate_fraction", Fixed("substrate_fraction", 1.0)))

	spec, ok := c.Config().Param("substrate_fraction")
	require.True(t, ok)
	assert.Equal(t, ModeFixed, spec.Mode)
}

func TestRunBuildLUT(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine, smallConfig())

	var reports [][2]int
	result, err := c.Run(context.Background(), RunRequest{
		Mode: RunBuildLUT,
		Progress: func(completed, total int) {
			reports = append(reports, [2]int{completed, total})
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Table)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, 10, result.Table.Cells())
	assert.True(t, result.Table.Complete())
	assert.Equal(t, 10, engine.callCount())
	assert.Equal(t, StateCompleted, c.State())

	require.NotEmpty(t, reports)
	assert.Equal(t, [2]int{10, 10}, reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i][0], reports[i-1][0], "progress must not move backwards")
	}
}

func TestRunValidationErrorNeverStarts(t *testing.T) {
	engine := &fakeEngine{}
	cfg := smallConfig()
	cfg.Params = []ParameterSpec{Range("depth", 10, 5, 20)}
	c := newTestController(engine, cfg)

	_, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, engine.callCount(), "no engine call may happen for an invalid config")
	assert.Equal(t, StateIdle, c.State())
}

func TestRunWarningOnlyConfigStillRuns(t *testing.T) {
	cfg := smallConfig()
	cfg.Params = []ParameterSpec{
		Fixed("chl", 2.5),
		Fixed("cdom", 0.5),
		Fixed("nap", 1.0),
		Fixed("depth", 10.0),
	}
	c := newTestController(&fakeEngine{}, cfg)
	require.True(t, len(Validate(cfg)) > 0)

	result, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Table.Cells(), "degenerate config builds a single-cell table")
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	engine := &fakeEngine{fn: func(ctx context.Context, req model.ForwardRequest) ([]float64, error) {
		once.Do(func() { close(started) })
		select {
		case <-release:
			return syntheticSpectrum(req.Parameters, req.Wavelengths), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	c := newTestController(engine, smallConfig())

	type runOutcome struct {
		result *RunResult
		err    error
	}
	outcome := make(chan runOutcome, 1)
	go func() {
		result, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})
		outcome <- runOutcome{result, err}
	}()

	<-started
	_, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, StateRunning, c.State(), "rejected attempt must not disturb the in-flight run")

	close(release)
	first := <-outcome
	require.NoError(t, first.err)
	assert.True(t, first.result.Table.Complete())
	assert.Equal(t, StateCompleted, c.State())
}

func TestRunCancelledBeforeFirstUnit(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine, smallConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := c.Run(ctx, RunRequest{Mode: RunBuildLUT})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, result, "no partial results on cancellation")
	assert.Equal(t, 0, engine.callCount())
	assert.Equal(t, StateCancelled, c.State())
}

func TestCancelStopsInFlightRun(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	engine := &fakeEngine{fn: func(ctx context.Context, req model.ForwardRequest) ([]float64, error) {
		once.Do(func() { close(started) })
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return syntheticSpectrum(req.Parameters, req.Wavelengths), nil
		}
	}}
	c := newTestController(engine, smallConfig())

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})
		done <- err
	}()

	<-started
	c.Cancel()

	err := <-done
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateCancelled, c.State())
}

func TestRunWrapsEngineFailure(t *testing.T) {
	boom := fmt.Errorf("negative reflectance")
	engine := &fakeEngine{fn: func(ctx context.Context, req model.ForwardRequest) ([]float64, error) {
		return nil, boom
	}}
	c := newTestController(engine, smallConfig())

	_, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})

	var modelErr *ExternalModelError
	require.ErrorAs(t, err, &modelErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, modelErr.Unit)
	assert.Contains(t, modelErr.Params, "depth", "the sampled parameter context must be attached")
	assert.Equal(t, StateFailed, c.State())
}

func TestRunAfterFailureStartsFresh(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestController(engine, smallConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Run(ctx, RunRequest{Mode: RunBuildLUT})
	require.ErrorIs(t, err, ErrCancelled)

	result, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})
	require.NoError(t, err)
	assert.True(t, result.Table.Complete())
	assert.Equal(t, StateCompleted, c.State())
}

func testDataset(t *testing.T, cfg WorkflowConfig, depth float64) *raster.Dataset {
	t.Helper()
	wavelengths := cfg.Sensor.Wavelengths()
	params := cfg.FixedValues()
	params["depth"] = depth
	spectrum := syntheticSpectrum(params, wavelengths)

	width, height := 4, 4
	dataset := &raster.Dataset{Width: width, Height: height}
	for i, band := range cfg.Sensor.Bands {
		pixels := make([][]float64, height)
		for r := range pixels {
			pixels[r] = make([]float64, width)
			for c := range pixels[r] {
				pixels[r][c] = spectrum[i]
			}
		}
		dataset.Bands = append(dataset.Bands, raster.BandData{Name: band.Name, Pixels: pixels})
	}
	// One masked pixel: all bands zero.
	for i := range dataset.Bands {
		dataset.Bands[i].Pixels[0][0] = 0
	}
	return dataset
}

func TestRunProcessImage(t *testing.T) {
	engine := &fakeEngine{}
	cfg := smallConfig()
	c := newTestController(engine, cfg)

	grid := lut.Linspace(0.1, 25.0, 10)
	targetDepth := grid[3]
	dataset := testDataset(t, cfg, targetDepth)

	var reports [][2]int
	result, err := c.Run(context.Background(), RunRequest{
		Mode:     RunProcessImage,
		Image:    dataset,
		TileRows: 2,
		Workers:  2,
		Progress: func(completed, total int) {
			reports = append(reports, [2]int{completed, total})
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Result)

	res := result.Result
	assert.Equal(t, 4, res.Width)
	assert.Equal(t, 4, res.Height)

	// Recovered depth is the nearest grid value; chl passes through fixed.
	assert.InDelta(t, targetDepth, res.Maps["depth"][1][1], 1e-9)
	assert.InDelta(t, 2.5, res.Maps["chl"][1][1], 1e-9)

	// The masked pixel stays NaN in every output.
	assert.True(t, math.IsNaN(res.Maps["depth"][0][0]))
	assert.True(t, math.IsNaN(res.Maps["chl"][0][0]))

	// Progress covered the LUT build (10 cells) plus 2 tiles.
	require.NotEmpty(t, reports)
	assert.Equal(t, [2]int{12, 12}, reports[len(reports)-1])
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i][0], reports[i-1][0])
	}
}

func TestRunProcessImageWithPrebuiltTable(t *testing.T) {
	engine := &fakeEngine{}
	cfg := smallConfig()
	c := newTestController(engine, cfg)

	built, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})
	require.NoError(t, err)
	callsAfterBuild := engine.callCount()

	dataset := testDataset(t, cfg, 5.0)
	result, err := c.Run(context.Background(), RunRequest{
		Mode:  RunProcessImage,
		Image: dataset,
		Table: built.Table,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Result)
	assert.Equal(t, callsAfterBuild, engine.callCount(), "a prebuilt table must not trigger engine calls")
}

func TestRunProcessImageRequiresImage(t *testing.T) {
	c := newTestController(&fakeEngine{}, smallConfig())

	_, err := c.Run(context.Background(), RunRequest{Mode: RunProcessImage})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestRunProcessImageRejectsBandMismatch(t *testing.T) {
	cfg := smallConfig()
	c := newTestController(&fakeEngine{}, cfg)

	dataset := testDataset(t, cfg, 5.0)
	dataset.Bands = dataset.Bands[:2]

	_, err := c.Run(context.Background(), RunRequest{Mode: RunProcessImage, Image: dataset})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestConfigCloneIsIndependent(t *testing.T) {
	cfg := smallConfig()
	clone := cfg.Clone()

	clone.Params[0] = Fixed("depth", 1.0)
	clone.Constants["q_factor"] = 0
	clone.Sensor.Bands[0].Wavelength = 1

	assert.Equal(t, ModeRange, cfg.Params[0].Mode)
	assert.Equal(t, 3.14159, cfg.Constants["q_factor"])
	assert.Equal(t, float64(490), cfg.Sensor.Bands[0].Wavelength)
}

func TestControllerRunUsesConfigSnapshot(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	engine := &fakeEngine{fn: func(ctx context.Context, req model.ForwardRequest) ([]float64, error) {
		once.Do(func() { close(started) })
		<-release
		return syntheticSpectrum(req.Parameters, req.Wavelengths), nil
	}}
	c := newTestController(engine, smallConfig())

	done := make(chan *RunResult, 1)
	go func() {
		result, err := c.Run(context.Background(), RunRequest{Mode: RunBuildLUT})
		require.NoError(t, err)
		done <- result
	}()

	<-started
	// Edits during the run must not affect the in-flight snapshot.
	require.NoError(t, c.SetParameter("depth", Range("depth", 0.1, 25.0, 50)))
	close(release)

	result := <-done
	assert.Equal(t, 10, result.Table.Cells())
}
