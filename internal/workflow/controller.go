// Parameter workflow controller: validation, LUT sizing, run orchestration
package workflow

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"shallow-water-workbench/internal/lut"
	"shallow-water-workbench/internal/model"
	"shallow-water-workbench/internal/raster"
	"shallow-water-workbench/internal/sensors"
)

// State is the lifecycle of a run invocation. There is no resumption: a
// fresh Run always starts from StateIdle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunMode selects what Run does.
type RunMode int

const (
	RunBuildLUT RunMode = iota
	RunProcessImage
)

func (m RunMode) String() string {
	switch m {
	case RunBuildLUT:
		return "build_lut"
	case RunProcessImage:
		return "process_image"
	default:
		return "unknown"
	}
}

// ProgressFunc receives completed and total unit counts. Reports are
// monotonically non-decreasing in completed within one invocation.
type ProgressFunc func(completed, total int)

// progressReporter serializes progress delivery and drops any report that
// would move backwards, so parallel tile workers cannot reorder updates.
type progressReporter struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last int
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (r *progressReporter) report(completed, total int) {
	if r == nil || r.fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if completed < r.last {
		return
	}
	r.last = completed
	r.fn(completed, total)
}

// RunRequest configures one Run invocation.
type RunRequest struct {
	Mode RunMode

	// Image is the raster to invert; required for RunProcessImage.
	Image *raster.Dataset

	// Table is an optional prebuilt lookup table for RunProcessImage.
	// When nil, Run builds one first.
	Table *lut.Table

	// Progress receives per-unit completion updates; may be nil.
	Progress ProgressFunc

	// Metric selects the spectrum-matching distance; defaults to RMSE.
	Metric lut.Metric

	// TileRows is the number of image rows per processing tile;
	// cancellation and progress are observed at tile boundaries.
	TileRows int

	// Workers bounds concurrent tile inversion; defaults to NumCPU.
	Workers int
}

// directMethodGridSize is the per-parameter grid used when MethodDirect
// builds its temporary fine table.
const directMethodGridSize = 40

// Controller owns the live WorkflowConfig, classifies parameters as fixed or
// ranged, reports LUT size, and drives cancellable runs against the modeling
// engine. One run may be active at a time; a second attempt fails
// immediately with ErrAlreadyRunning.
type Controller struct {
	engine model.Engine
	logger *logrus.Logger

	mu            sync.Mutex
	cfg           WorkflowConfig
	state         State
	cancel        context.CancelFunc
	estimate      int64
	estimateValid bool
}

// NewController creates a controller with the default configuration.
func NewController(engine model.Engine, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Controller{
		engine: engine,
		logger: logger,
		cfg:    DefaultConfig(),
		state:  StateIdle,
	}
}

// Config returns a copy of the live configuration.
func (c *Controller) Config() WorkflowConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// SetConfig replaces the live configuration wholesale.
func (c *Controller) SetConfig(cfg WorkflowConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg.Clone()
	c.estimateValid = false
}

// SetParameter updates one parameter of the live configuration, appending it
// if new. The spec is validated in isolation first; a bad spec leaves the
// configuration untouched and returns a *ValidationError.
func (c *Controller) SetParameter(name string, spec ParameterSpec) error {
	spec.Name = name
	if issues := validateParameter(spec); HasErrors(issues) {
		return &ValidationError{Issues: issues}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	replaced := false
	for i := range c.cfg.Params {
		if c.cfg.Params[i].Name == name {
			c.cfg.Params[i] = spec
			replaced = true
			break
		}
	}
	if !replaced {
		c.cfg.Params = append(c.cfg.Params, spec)
	}
	c.estimateValid = false

	c.logger.WithFields(logrus.Fields{
		"parameter": name,
		"spec":      spec.String(),
	}).Debug("Parameter updated")
	return nil
}

// SetSensor replaces the sensor band selection.
func (c *Controller) SetSensor(s sensors.Sensor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Sensor = s
}

// SetMethod switches the inversion method.
func (c *Controller) SetMethod(m Method) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Method = m
}

// EstimateLUTSize returns the cached LUT cardinality estimate for the live
// configuration, recomputing it after any parameter edit.
func (c *Controller) EstimateLUTSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.estimateValid {
		c.estimate = EstimateLUTSize(c.cfg)
		c.estimateValid = true
	}
	return c.estimate
}

// Validate checks the live configuration.
func (c *Controller) Validate() []ValidationIssue {
	return Validate(c.Config())
}

// State returns the state of the most recent run invocation.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cancel signals the active run, if any. The signal is observed at the next
// unit boundary; in-flight engine calls are never pre-empted.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Run executes one invocation synchronously against a snapshot of the live
// configuration. Callers that need a responsive interface run it on their
// own goroutine and cancel via ctx or Cancel. Validation errors and
// ErrAlreadyRunning are returned before the Running state is ever entered.
func (c *Controller) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	cfg := c.cfg.Clone()
	issues := Validate(cfg)
	if HasErrors(issues) {
		c.mu.Unlock()
		return nil, &ValidationError{Issues: filterErrors(issues)}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.state = StateRunning
	c.cancel = cancel
	c.mu.Unlock()

	runID := uuid.NewString()
	log := c.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"mode":   req.Mode.String(),
		"method": cfg.Method.String(),
	})

	for _, issue := range issues {
		log.WithField("field", issue.Field).Warn(issue.Message)
	}
	log.Info("Run started")

	result, err := c.execute(runCtx, runID, cfg, req)

	c.mu.Lock()
	cancel()
	c.cancel = nil
	switch {
	case err == nil:
		c.state = StateCompleted
	case err == ErrCancelled:
		c.state = StateCancelled
	default:
		c.state = StateFailed
	}
	c.mu.Unlock()

	if err != nil {
		log.WithError(err).Warn("Run finished unsuccessfully")
		return nil, err
	}
	log.Info("Run completed")
	return result, nil
}

func filterErrors(issues []ValidationIssue) []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

func (c *Controller) execute(ctx context.Context, runID string, cfg WorkflowConfig, req RunRequest) (*RunResult, error) {
	reporter := newProgressReporter(req.Progress)

	switch req.Mode {
	case RunBuildLUT:
		table, err := c.buildLUT(ctx, cfg, cfg.RangedParams(), reporter, 0, 0)
		if err != nil {
			return nil, err
		}
		return &RunResult{RunID: runID, Table: table}, nil

	case RunProcessImage:
		result, err := c.processImage(ctx, runID, cfg, req, reporter)
		if err != nil {
			return nil, err
		}
		return &RunResult{RunID: runID, Result: result}, nil

	default:
		return nil, &ValidationError{Issues: []ValidationIssue{
			{SeverityError, "run", "unknown run mode"},
		}}
	}
}

// buildLUT invokes the forward model once per grid cell, reporting progress
// and checking for cancellation between cells. done/total offset the
// progress reports when the build is one phase of a larger run.
func (c *Controller) buildLUT(ctx context.Context, cfg WorkflowConfig, ranged []ParameterSpec, progress *progressReporter, done, total int) (*lut.Table, error) {
	axes := make([]lut.Axis, len(ranged))
	for i, p := range ranged {
		axes[i] = lut.Axis{Param: p.Name, Values: lut.Linspace(p.Min, p.Max, p.GridSize)}
	}

	wavelengths := cfg.Sensor.Wavelengths()
	table := lut.New(axes, cfg.FixedValues(), wavelengths)
	cells := table.Cells()
	if total == 0 {
		total = cells
	}

	c.logger.WithFields(logrus.Fields{
		"cells":       cells,
		"axes":        len(axes),
		"wavelengths": len(wavelengths),
	}).Info("Building lookup table")

	for cell := 0; cell < cells; cell++ {
		select {
		case <-ctx.Done():
			return nil, ErrCancelled
		default:
		}

		params := table.CellParams(cell)
		spectrum, err := c.engine.ForwardModel(ctx, model.ForwardRequest{
			Parameters:  params,
			Wavelengths: wavelengths,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrCancelled
			}
			return nil, &ExternalModelError{Unit: cell, Params: cellAxisParams(table, cell), Err: err}
		}
		if err := table.SetSpectrum(cell, spectrum); err != nil {
			return nil, &ExternalModelError{Unit: cell, Params: cellAxisParams(table, cell), Err: err}
		}

		progress.report(done+cell+1, total)
	}

	return table, nil
}

// cellAxisParams reports only the sampled parameter values for a cell, the
// part of the parameter set that varies between units.
func cellAxisParams(table *lut.Table, cell int) map[string]float64 {
	all := table.CellParams(cell)
	sampled := make(map[string]float64, len(table.Axes()))
	for _, axis := range table.Axes() {
		sampled[axis.Param] = all[axis.Param]
	}
	return sampled
}

func (c *Controller) processImage(ctx context.Context, runID string, cfg WorkflowConfig, req RunRequest, progress *progressReporter) (*ProcessingResult, error) {
	img := req.Image
	if img == nil {
		return nil, &ValidationError{Issues: []ValidationIssue{
			{SeverityError, "image", "no image supplied for processing"},
		}}
	}
	if err := img.Validate(); err != nil {
		return nil, &ValidationError{Issues: []ValidationIssue{
			{SeverityError, "image", err.Error()},
		}}
	}
	if len(img.Bands) != len(cfg.Sensor.Bands) {
		return nil, &ValidationError{Issues: []ValidationIssue{
			{SeverityError, "image", "image band count does not match sensor band selection"},
		}}
	}

	tileRows := req.TileRows
	if tileRows <= 0 {
		tileRows = 64
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	tiles := (img.Height + tileRows - 1) / tileRows

	table := req.Table
	buildCells := 0
	if table == nil {
		buildCfg := cfg
		ranged := cfg.RangedParams()
		if cfg.Method == MethodDirect {
			// The direct method trades build time for resolution by
			// sampling every ranged parameter on a finer grid.
			fine := make([]ParameterSpec, len(ranged))
			copy(fine, ranged)
			for i := range fine {
				fine[i].GridSize = directMethodGridSize
			}
			ranged = fine
		}
		est := int64(1)
		for _, p := range ranged {
			est *= int64(p.GridSize)
		}
		buildCells = int(est)

		built, err := c.buildLUT(ctx, buildCfg, ranged, progress, 0, buildCells+tiles)
		if err != nil {
			return nil, err
		}
		table = built
	}

	if len(table.Wavelengths()) != len(cfg.Sensor.Bands) {
		return nil, &ValidationError{Issues: []ValidationIssue{
			{SeverityError, "lut", "lookup table wavelength count does not match sensor band selection"},
		}}
	}

	result := newProcessingResult(runID, cfg, img.Width, img.Height)
	total := buildCells + tiles
	var completed atomic.Int64
	completed.Store(int64(buildCells))

	g, tileCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < img.Height; start += tileRows {
		start := start
		end := start + tileRows
		if end > img.Height {
			end = img.Height
		}
		tileIndex := start / tileRows

		g.Go(func() error {
			select {
			case <-tileCtx.Done():
				return ErrCancelled
			default:
			}

			if err := invertTile(img, table, req.Metric, result, start, end); err != nil {
				return &ExternalModelError{Unit: tileIndex, Err: err}
			}

			progress.report(int(completed.Add(1)), total)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if err == ErrCancelled || ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"pixels": img.Width * img.Height,
		"valid":  img.CountValid(),
		"tiles":  tiles,
	}).Info("Image inversion completed")

	return result, nil
}

// invertTile matches each valid pixel in rows [start,end) against the table
// and writes the winning cell's parameters into the output maps. Tiles touch
// disjoint rows, so no locking is needed on the result.
func invertTile(img *raster.Dataset, table *lut.Table, metric lut.Metric, result *ProcessingResult, start, end int) error {
	spectrum := make([]float64, len(img.Bands))
	for row := start; row < end; row++ {
		for col := 0; col < img.Width; col++ {
			if !img.ValidPixel(row, col) {
				continue
			}
			img.Pixel(row, col, spectrum)

			cell, dist, err := table.Nearest(spectrum, metric)
			if err != nil {
				return err
			}

			params := table.CellParams(cell)
			for _, name := range OutputParameters {
				if v, ok := params[name]; ok {
					result.Maps[name][row][col] = v
				}
			}
			result.Errors[row][col] = dist
		}
	}
	return nil
}
