// Multiband raster loading on top of OpenCV
package raster

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Loader reads multiband imagery from disk into Datasets.
type Loader struct {
	logger *logrus.Logger
}

func NewLoader(logger *logrus.Logger) *Loader {
	return &Loader{logger: logger}
}

var supportedExtensions = []string{".tif", ".tiff", ".img", ".png", ".jpg", ".jpeg", ".bmp"}

// IsSupportedFormat reports whether the file extension is one the loader can read.
func (l *Loader) IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range supportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// Load reads the raster at path and extracts the requested channels as named
// bands. bandIndices are 1-based channel numbers in file order; bandNames
// must be the matching sensor band names, same length and order.
func (l *Loader) Load(path string, bandNames []string, bandIndices []int) (*Dataset, error) {
	if len(bandNames) != len(bandIndices) {
		return nil, fmt.Errorf("got %d band names for %d band indices", len(bandNames), len(bandIndices))
	}
	if !l.IsSupportedFormat(path) {
		return nil, fmt.Errorf("unsupported raster format: %s", path)
	}

	l.logger.WithField("path", path).Debug("Loading raster")

	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to read raster: %s", path)
	}
	defer mat.Close()

	if mat.Cols() < 10 || mat.Rows() < 10 {
		return nil, fmt.Errorf("raster too small: %dx%d", mat.Cols(), mat.Rows())
	}

	channels := gocv.Split(mat)
	defer func() {
		for i := range channels {
			channels[i].Close()
		}
	}()

	for _, idx := range bandIndices {
		if idx < 1 || idx > len(channels) {
			return nil, fmt.Errorf("band index %d out of range: raster has %d channels", idx, len(channels))
		}
	}

	dataset := &Dataset{
		Path:   path,
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Metadata: map[string]string{
			"source":   path,
			"channels": fmt.Sprintf("%d", len(channels)),
		},
	}

	for i, idx := range bandIndices {
		pixels, err := channelToFloat64(channels[idx-1])
		if err != nil {
			return nil, fmt.Errorf("extracting band %s (channel %d): %w", bandNames[i], idx, err)
		}
		dataset.Bands = append(dataset.Bands, BandData{Name: bandNames[i], Pixels: pixels})
	}

	if err := dataset.Validate(); err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"path":   path,
		"width":  dataset.Width,
		"height": dataset.Height,
		"bands":  len(dataset.Bands),
	}).Info("Raster loaded")

	return dataset, nil
}

func channelToFloat64(channel gocv.Mat) ([][]float64, error) {
	converted := gocv.NewMat()
	defer converted.Close()
	channel.ConvertTo(&converted, gocv.MatTypeCV64F)

	if converted.Empty() {
		return nil, fmt.Errorf("channel conversion produced empty matrix")
	}

	rows := converted.Rows()
	cols := converted.Cols()
	pixels := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		pixels[r] = make([]float64, cols)
		for c := 0; c < cols; c++ {
			pixels[r][c] = converted.GetDoubleAt(r, c)
		}
	}
	return pixels, nil
}
