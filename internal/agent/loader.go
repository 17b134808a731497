package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"sailbench/internal/eval"
)

var ErrInvalidAgentSpec = errors.New("invalid agent spec")

// Spec describes a built-in agent in a JSON or YAML file.
type Spec struct {
	Type  string   `json:"type" yaml:"type"`
	Seed  int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	GoalX *float64 `json:"goal_x,omitempty" yaml:"goal_x,omitempty"`
	GoalY *float64 `json:"goal_y,omitempty" yaml:"goal_y,omitempty"`
	// Layers configures the network agent.
	Layers []Layer `json:"layers,omitempty" yaml:"layers,omitempty"`
}

func Types() []string {
	return []string{TypeGreedy, TypeNaive, TypeNetwork, TypeRandom}
}

func LoadSpec(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, fmt.Errorf("read agent spec: %w", err)
	}

	var spec Spec
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&spec); err != nil {
			return Spec{}, fmt.Errorf("%w: decode %s: %v", ErrInvalidAgentSpec, path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&spec); err != nil {
			return Spec{}, fmt.Errorf("%w: decode %s: %v", ErrInvalidAgentSpec, path, err)
		}
	default:
		return Spec{}, fmt.Errorf("%w: unsupported agent spec extension %q", ErrInvalidAgentSpec, ext)
	}
	return spec, nil
}

func Validate(spec Spec) error {
	switch spec.Type {
	case TypeNaive, TypeGreedy, TypeRandom:
		if len(spec.Layers) > 0 {
			return fmt.Errorf("%w: layers are only used by the %s agent", ErrInvalidAgentSpec, TypeNetwork)
		}
	case TypeNetwork:
		if err := validateLayers(spec.Layers); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("%w: type is required", ErrInvalidAgentSpec)
	default:
		return fmt.Errorf("%w: unknown type %q (want one of %s)", ErrInvalidAgentSpec, spec.Type, strings.Join(Types(), ", "))
	}
	if (spec.GoalX == nil) != (spec.GoalY == nil) {
		return fmt.Errorf("%w: goal_x and goal_y must be set together", ErrInvalidAgentSpec)
	}
	if spec.GoalX != nil && (*spec.GoalX < 0 || *spec.GoalY < 0) {
		return fmt.Errorf("%w: goal must be non-negative, got (%g,%g)", ErrInvalidAgentSpec, *spec.GoalX, *spec.GoalY)
	}
	if spec.GoalX != nil && spec.Type != TypeGreedy {
		return fmt.Errorf("%w: goal is only used by the %s agent", ErrInvalidAgentSpec, TypeGreedy)
	}
	return nil
}

func Build(spec Spec) (eval.Agent, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	switch spec.Type {
	case TypeNaive:
		return Naive{}, nil
	case TypeGreedy:
		if spec.GoalX != nil {
			return NewGreedyWithGoal(*spec.GoalX, *spec.GoalY), nil
		}
		return NewGreedy(), nil
	case TypeNetwork:
		return NewNetwork(spec.Layers)
	default:
		return NewRandom(spec.Seed), nil
	}
}

func Load(path string) (eval.Agent, error) {
	spec, err := LoadSpec(path)
	if err != nil {
		return nil, err
	}
	return Build(spec)
}

// Resolve accepts either a spec file path or a bare built-in type name.
func Resolve(ref string) (eval.Agent, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: agent reference is required", ErrInvalidAgentSpec)
	}
	if _, err := os.Stat(ref); err != nil {
		if errors.Is(err, os.ErrNotExist) && filepath.Ext(ref) == "" {
			return Build(Spec{Type: ref})
		}
		return nil, fmt.Errorf("read agent spec: %w", err)
	}
	return Load(ref)
}
