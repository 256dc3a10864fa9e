package workflow

import (
	"math"

	"shallow-water-workbench/internal/lut"
)

// ProcessingResult maps each output parameter to a 2D array the size of the
// processed image, plus the originating config for provenance. Immutable
// once returned; owned by the caller.
type ProcessingResult struct {
	RunID  string
	Config WorkflowConfig
	Width  int
	Height int
	Maps   map[string][][]float64
	Errors [][]float64 // per-pixel match distance
}

// RunResult is what a completed Run hands back: a table for RunBuildLUT, a
// ProcessingResult for RunProcessImage.
type RunResult struct {
	RunID  string
	Table  *lut.Table
	Result *ProcessingResult
}

func newProcessingResult(runID string, cfg WorkflowConfig, width, height int) *ProcessingResult {
	res := &ProcessingResult{
		RunID:  runID,
		Config: cfg,
		Width:  width,
		Height: height,
		Maps:   make(map[string][][]float64, len(OutputParameters)),
	}
	for _, name := range OutputParameters {
		res.Maps[name] = nanGrid(height, width)
	}
	res.Errors = nanGrid(height, width)
	return res
}

func nanGrid(rows, cols int) [][]float64 {
	grid := make([][]float64, rows)
	for r := range grid {
		grid[r] = make([]float64, cols)
		for c := range grid[r] {
			grid[r][c] = math.NaN()
		}
	}
	return grid
}
