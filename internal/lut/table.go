// Lookup table over sampled parameter combinations
package lut

import (
	"fmt"
	"math"
)

// Axis is one sampled parameter dimension of the table.
type Axis struct {
	Param  string
	Values []float64
}

// Metric selects the distance used for spectrum matching.
type Metric int

const (
	MetricRMSE Metric = iota
	MetricEuclidean
)

func (m Metric) String() string {
	switch m {
	case MetricRMSE:
		return "rmse"
	case MetricEuclidean:
		return "euclidean"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// Table maps sampled parameter combinations to precomputed spectra. Cells are
// addressed by a single flat index in row-major order over the axes, first
// axis varying slowest.
type Table struct {
	axes        []Axis
	fixed       map[string]float64
	wavelengths []float64
	spectra     [][]float64
}

// New allocates an empty table for the given axes. Fixed parameters are
// carried along so every cell resolves to a complete parameter set.
func New(axes []Axis, fixed map[string]float64, wavelengths []float64) *Table {
	fixedCopy := make(map[string]float64, len(fixed))
	for k, v := range fixed {
		fixedCopy[k] = v
	}
	axesCopy := make([]Axis, len(axes))
	copy(axesCopy, axes)

	t := &Table{
		axes:        axesCopy,
		fixed:       fixedCopy,
		wavelengths: append([]float64(nil), wavelengths...),
	}
	t.spectra = make([][]float64, t.Cells())
	return t
}

// Cells returns the number of cells: the product of axis lengths, or 1 for a
// degenerate table with no axes.
func (t *Table) Cells() int {
	total := 1
	for _, axis := range t.axes {
		total *= len(axis.Values)
	}
	return total
}

// Axes returns the sampled parameter dimensions.
func (t *Table) Axes() []Axis {
	return t.axes
}

// Wavelengths returns the spectral grid every cell spectrum is defined on.
func (t *Table) Wavelengths() []float64 {
	return t.wavelengths
}

// CellParams resolves a flat cell index to the full parameter set for that
// cell, fixed parameters included.
func (t *Table) CellParams(cell int) map[string]float64 {
	params := make(map[string]float64, len(t.axes)+len(t.fixed))
	for k, v := range t.fixed {
		params[k] = v
	}

	rem := cell
	for i := len(t.axes) - 1; i >= 0; i-- {
		axis := t.axes[i]
		idx := rem % len(axis.Values)
		rem /= len(axis.Values)
		params[axis.Param] = axis.Values[idx]
	}
	return params
}

// SetSpectrum stores the modeled spectrum for a cell.
func (t *Table) SetSpectrum(cell int, spectrum []float64) error {
	if cell < 0 || cell >= len(t.spectra) {
		return fmt.Errorf("cell index %d out of range [0,%d)", cell, len(t.spectra))
	}
	if len(spectrum) != len(t.wavelengths) {
		return fmt.Errorf("spectrum has %d samples, table expects %d", len(spectrum), len(t.wavelengths))
	}
	t.spectra[cell] = append([]float64(nil), spectrum...)
	return nil
}

// Spectrum returns the stored spectrum for a cell, nil if unset.
func (t *Table) Spectrum(cell int) []float64 {
	if cell < 0 || cell >= len(t.spectra) {
		return nil
	}
	return t.spectra[cell]
}

// Complete reports whether every cell has a spectrum.
func (t *Table) Complete() bool {
	for _, s := range t.spectra {
		if s == nil {
			return false
		}
	}
	return true
}

// Nearest finds the cell whose spectrum is closest to the observation under
// the given metric. Returns the cell index and its distance.
func (t *Table) Nearest(observed []float64, metric Metric) (int, float64, error) {
	if len(observed) != len(t.wavelengths) {
		return 0, 0, fmt.Errorf("observation has %d bands, table expects %d", len(observed), len(t.wavelengths))
	}

	best := -1
	bestDist := math.Inf(1)
	for cell, spectrum := range t.spectra {
		if spectrum == nil {
			continue
		}
		d := distance(observed, spectrum, metric)
		if d < bestDist {
			best = cell
			bestDist = d
		}
	}
	if best < 0 {
		return 0, 0, fmt.Errorf("table has no spectra")
	}
	return best, bestDist, nil
}

func distance(a, b []float64, metric Metric) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	switch metric {
	case MetricRMSE:
		return math.Sqrt(sum / float64(len(a)))
	default:
		return math.Sqrt(sum)
	}
}

// Linspace samples n evenly spaced values over [min, max] inclusive.
func Linspace(min, max float64, n int) []float64 {
	if n <= 1 {
		return []float64{min}
	}
	values := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range values {
		values[i] = min + float64(i)*step
	}
	values[n-1] = max
	return values
}
