// Sensor band definitions for supported satellite platforms
package sensors

import (
	"fmt"
	"sort"
)

// Band is a single spectral channel with its center wavelength in nanometres.
type Band struct {
	Name       string  `json:"name"`
	Wavelength float64 `json:"wavelength"`
}

// Sensor describes a satellite sensor as an ordered list of bands.
type Sensor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Bands []Band `json:"bands"`
}

// Band returns the named band if the sensor defines it.
func (s Sensor) Band(name string) (Band, bool) {
	for _, b := range s.Bands {
		if b.Name == name {
			return b, true
		}
	}
	return Band{}, false
}

// BandNames returns the band names in sensor order.
func (s Sensor) BandNames() []string {
	names := make([]string, len(s.Bands))
	for i, b := range s.Bands {
		names[i] = b.Name
	}
	return names
}

// Wavelengths returns the center wavelengths in band order.
func (s Sensor) Wavelengths() []float64 {
	wl := make([]float64, len(s.Bands))
	for i, b := range s.Bands {
		wl[i] = b.Wavelength
	}
	return wl
}

// Select returns a copy of the sensor narrowed to the named bands, preserving
// the requested order. It fails if any name is not defined for the sensor.
func (s Sensor) Select(names []string) (Sensor, error) {
	selected := Sensor{ID: s.ID, Name: s.Name, Bands: make([]Band, 0, len(names))}
	for _, name := range names {
		band, ok := s.Band(name)
		if !ok {
			return Sensor{}, fmt.Errorf("band %s is not available for sensor %s", name, s.Name)
		}
		selected.Bands = append(selected.Bands, band)
	}
	return selected, nil
}

var registry = make(map[string]Sensor)

// Register adds a sensor definition to the registry.
func Register(s Sensor) {
	registry[s.ID] = s
}

// Get returns a registered sensor by ID.
func Get(id string) (Sensor, bool) {
	s, exists := registry[id]
	return s, exists
}

// IDs returns the registered sensor IDs in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func init() {
	Register(Sensor{
		ID:   "sentinel2",
		Name: "Sentinel-2",
		Bands: []Band{
			{Name: "B1", Wavelength: 443},   // Coastal aerosol
			{Name: "B2", Wavelength: 490},   // Blue
			{Name: "B3", Wavelength: 560},   // Green
			{Name: "B4", Wavelength: 665},   // Red
			{Name: "B5", Wavelength: 705},   // Red edge 1
			{Name: "B6", Wavelength: 740},   // Red edge 2
			{Name: "B7", Wavelength: 783},   // Red edge 3
			{Name: "B8", Wavelength: 842},   // NIR
			{Name: "B8A", Wavelength: 865},  // NIR narrow
			{Name: "B9", Wavelength: 945},   // Water vapour
			{Name: "B10", Wavelength: 1375}, // SWIR cirrus
			{Name: "B11", Wavelength: 1610}, // SWIR 1
			{Name: "B12", Wavelength: 2190}, // SWIR 2
		},
	})

	Register(Sensor{
		ID:   "landsat8",
		Name: "Landsat-8",
		Bands: []Band{
			{Name: "B1", Wavelength: 443},  // Coastal
			{Name: "B2", Wavelength: 482},  // Blue
			{Name: "B3", Wavelength: 562},  // Green
			{Name: "B4", Wavelength: 655},  // Red
			{Name: "B5", Wavelength: 865},  // NIR
			{Name: "B6", Wavelength: 1610}, // SWIR 1
			{Name: "B7", Wavelength: 2200}, // SWIR 2
			{Name: "B8", Wavelength: 590},  // Panchromatic
			{Name: "B9", Wavelength: 1375}, // Cirrus
		},
	})
}
