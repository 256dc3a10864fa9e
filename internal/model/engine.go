// Boundary to the external bio-optical modeling engine
package model

import "context"

// ForwardRequest carries one complete parameter set to the modeling engine.
// Parameters holds both the sampled values (chl, cdom, nap, depth, ...) and
// the fixed physics constants the engine expects; the engine treats them
// uniformly.
type ForwardRequest struct {
	Parameters  map[string]float64 `json:"parameters"`
	Wavelengths []float64          `json:"wavelengths"`
}

// Engine is the external modeling library. It computes subsurface remote
// sensing reflectance for a parameter set at the requested wavelengths. Calls
// are synchronous and may be slow; they are treated as opaque and never
// retried here.
type Engine interface {
	ForwardModel(ctx context.Context, req ForwardRequest) ([]float64, error)
}
