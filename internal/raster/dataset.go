package raster

import (
	"fmt"
	"math"
)

// BandData is one spectral band as a row-major 2D array of reflectance values.
type BandData struct {
	Name   string
	Pixels [][]float64
}

// Dataset is a loaded multiband raster. Bands are ordered to match the
// sensor band selection used at load time. Geospatial metadata is carried
// opaquely for the export side.
type Dataset struct {
	Path     string
	Width    int
	Height   int
	Bands    []BandData
	Metadata map[string]string
}

// Band returns the named band if present.
func (d *Dataset) Band(name string) (*BandData, bool) {
	for i := range d.Bands {
		if d.Bands[i].Name == name {
			return &d.Bands[i], true
		}
	}
	return nil, false
}

// Pixel gathers the spectrum at (row, col) across all bands.
func (d *Dataset) Pixel(row, col int, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(d.Bands))
	}
	for i := range d.Bands {
		dst[i] = d.Bands[i].Pixels[row][col]
	}
	return dst
}

// ValidPixel reports whether the spectrum at (row, col) is usable: every
// band finite and at least one band positive.
func (d *Dataset) ValidPixel(row, col int) bool {
	anyPositive := false
	for i := range d.Bands {
		v := d.Bands[i].Pixels[row][col]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if v > 0 {
			anyPositive = true
		}
	}
	return anyPositive
}

// CountValid returns the number of usable pixels.
func (d *Dataset) CountValid() int {
	count := 0
	for row := 0; row < d.Height; row++ {
		for col := 0; col < d.Width; col++ {
			if d.ValidPixel(row, col) {
				count++
			}
		}
	}
	return count
}

// Validate performs structural checks on the dataset.
func (d *Dataset) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid raster dimensions: %dx%d", d.Width, d.Height)
	}
	if len(d.Bands) == 0 {
		return fmt.Errorf("raster has no bands")
	}
	for _, band := range d.Bands {
		if len(band.Pixels) != d.Height {
			return fmt.Errorf("band %s has %d rows, expected %d", band.Name, len(band.Pixels), d.Height)
		}
		for _, row := range band.Pixels {
			if len(row) != d.Width {
				return fmt.Errorf("band %s has a row of %d columns, expected %d", band.Name, len(row), d.Width)
			}
		}
	}
	return nil
}
