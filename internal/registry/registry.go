package registry

import (
	"sort"
	"sync"

	"github.com/banshee-data/tabletop/internal/tabletop"
)

// Model is one registered candidate object: its identifier, the source
// mesh, and the precomputed surface samples the fitter matches against.
type Model struct {
	ID       int
	Mesh     Mesh
	FitCloud []tabletop.Point
}

// Registry holds the candidate object models the recognizer fits clusters
// against. It is long-lived shared state: AddObject and ClearObjects are
// never called concurrently with an in-flight detection by contract, but
// the registry still locks so interleaved registration from multiple
// goroutines stays consistent.
type Registry struct {
	mu         sync.RWMutex
	fitSamples int
	models     map[int]Model
}

// NewRegistry creates an empty registry. fitSamples sets how many surface
// points are sampled per mesh at registration; values < 1 use
// DefaultFitSamples.
func NewRegistry(fitSamples int) *Registry {
	if fitSamples < 1 {
		fitSamples = DefaultFitSamples
	}
	return &Registry{
		fitSamples: fitSamples,
		models:     make(map[int]Model),
	}
}

// AddObject registers a mesh under the given model ID, replacing any
// previous mesh with the same ID. The fit cloud is sampled immediately so
// fitting never touches mesh geometry.
func (r *Registry) AddObject(modelID int, mesh Mesh) {
	cloud := mesh.SampleSurface(r.fitSamples)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[modelID] = Model{ID: modelID, Mesh: mesh, FitCloud: cloud}
}

// ClearObjects removes every registered model.
func (r *Registry) ClearObjects() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[int]Model)
}

// Models returns a snapshot of all registered models in ascending ID order,
// so candidate iteration is deterministic across calls.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
