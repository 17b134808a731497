package scenario

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// AllScenarios selects every registered scenario in Resolve.
const AllScenarios = "all"

var ErrUnknownScenario = errors.New("unknown scenario")

// WindInit controls how the initial wind field is generated.
type WindInit struct {
	// BaseDirection is the direction the wind blows toward. It does not need
	// to be normalized.
	BaseDirection     [2]float64 `json:"base_direction"`
	BaseSpeed         float64    `json:"base_speed"`
	PatternScale      float64    `json:"pattern_scale"`
	PatternStrength   float64    `json:"pattern_strength"`
	StrengthVariation float64    `json:"strength_variation"`
	Noise             float64    `json:"noise"`
}

// WindEvolution controls how the wind field changes between steps.
type WindEvolution struct {
	ChangeProbability             float64 `json:"change_probability"`
	PerturbationAngleAmplitude    float64 `json:"perturbation_angle_amplitude"`
	PerturbationStrengthAmplitude float64 `json:"perturbation_strength_amplitude"`
	RotationBias                  float64 `json:"rotation_bias"`
	BiasStrength                  float64 `json:"bias_strength"`
}

type RenderParams struct {
	ArrowScale float64 `json:"arrow_scale"`
	ArrowEvery int     `json:"arrow_every"`
}

// Descriptor identifies one windfield configuration. Descriptors are values;
// the registry hands out copies.
type Descriptor struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	GridW       int           `json:"grid_w"`
	GridH       int           `json:"grid_h"`
	Wind        WindInit      `json:"wind"`
	Evolution   WindEvolution `json:"evolution"`
	Render      *RenderParams `json:"render,omitempty"`
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("scenario name is required")
	}
	if strings.EqualFold(d.Name, AllScenarios) {
		return fmt.Errorf("scenario name %q is reserved", d.Name)
	}
	if d.GridW < 3 || d.GridH < 3 {
		return fmt.Errorf("scenario %s: grid must be at least 3x3, got %dx%d", d.Name, d.GridW, d.GridH)
	}
	if math.Hypot(d.Wind.BaseDirection[0], d.Wind.BaseDirection[1]) == 0 {
		return fmt.Errorf("scenario %s: base wind direction must be non-zero", d.Name)
	}
	if d.Wind.BaseSpeed <= 0 {
		return fmt.Errorf("scenario %s: base wind speed must be > 0", d.Name)
	}
	if p := d.Evolution.ChangeProbability; p < 0 || p > 1 {
		return fmt.Errorf("scenario %s: change probability must be in [0,1], got %f", d.Name, p)
	}
	return nil
}

// Registry is a named set of scenario descriptors safe for concurrent reads.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]Descriptor)}
}

// Default returns a registry preloaded with the built-in presets.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range Presets() {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.scenarios[d.Name]; exists {
		return fmt.Errorf("scenario already registered: %s", d.Name)
	}
	r.scenarios[d.Name] = d
	return nil
}

func (r *Registry) Lookup(name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.scenarios[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	return d, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve expands a scenario selector into an ordered list of names. The
// selector is either "all", a single name, or a comma separated list.
func (r *Registry) Resolve(selector string) ([]string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("scenario selector is required")
	}
	if strings.EqualFold(selector, AllScenarios) {
		return r.Names(), nil
	}
	parts := strings.Split(selector, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, err := r.Lookup(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("scenario selector %q names no scenarios", selector)
	}
	return names, nil
}
