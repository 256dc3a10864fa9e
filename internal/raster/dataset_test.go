package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *Dataset {
	return &Dataset{
		Width:  2,
		Height: 2,
		Bands: []BandData{
			{Name: "B2", Pixels: [][]float64{{0.01, 0.02}, {0.03, 0.04}}},
			{Name: "B3", Pixels: [][]float64{{0.05, 0.06}, {0.07, 0.08}}},
		},
	}
}

func TestPixelGathersAcrossBands(t *testing.T) {
	d := sampleDataset()
	spectrum := d.Pixel(1, 0, nil)
	assert.Equal(t, []float64{0.03, 0.07}, spectrum)

	dst := make([]float64, 2)
	assert.Equal(t, []float64{0.02, 0.06}, d.Pixel(0, 1, dst))
}

func TestValidPixel(t *testing.T) {
	d := sampleDataset()
	assert.True(t, d.ValidPixel(0, 0))

	d.Bands[0].Pixels[0][0] = math.NaN()
	assert.False(t, d.ValidPixel(0, 0), "NaN in any band invalidates the pixel")

	d.Bands[0].Pixels[0][0] = 0
	d.Bands[1].Pixels[0][0] = 0
	assert.False(t, d.ValidPixel(0, 0), "all-zero spectrum is treated as masked")

	d.Bands[0].Pixels[0][0] = math.Inf(1)
	assert.False(t, d.ValidPixel(0, 0))
}

func TestCountValid(t *testing.T) {
	d := sampleDataset()
	assert.Equal(t, 4, d.CountValid())

	d.Bands[0].Pixels[1][1] = math.NaN()
	assert.Equal(t, 3, d.CountValid())
}

func TestValidateCatchesShapeMismatch(t *testing.T) {
	d := sampleDataset()
	require.NoError(t, d.Validate())

	d.Bands[1].Pixels = d.Bands[1].Pixels[:1]
	assert.Error(t, d.Validate())

	d = sampleDataset()
	d.Bands[0].Pixels[0] = d.Bands[0].Pixels[0][:1]
	assert.Error(t, d.Validate())

	assert.Error(t, (&Dataset{Width: 2, Height: 2}).Validate(), "no bands")
	assert.Error(t, (&Dataset{Width: 0, Height: 2, Bands: []BandData{{}}}).Validate())
}

func TestBandLookup(t *testing.T) {
	d := sampleDataset()
	band, ok := d.Band("B3")
	require.True(t, ok)
	assert.Equal(t, 0.05, band.Pixels[0][0])

	_, ok = d.Band("B99")
	assert.False(t, ok)
}
