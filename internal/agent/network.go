package agent

import (
	"context"
	"fmt"
	"math"

	"sailbench/internal/eval"
	"sailbench/internal/model"
)

const TypeNetwork = "network"

// NumFeatures is the width of the input vector a Network sees: position,
// velocity and local wind.
const NumFeatures = 6

const speedScale = 2.0

// Layer is one fully connected layer. Weights has one row per output unit.
type Layer struct {
	Weights    [][]float64 `json:"weights" yaml:"weights"`
	Bias       []float64   `json:"bias,omitempty" yaml:"bias,omitempty"`
	Activation string      `json:"activation,omitempty" yaml:"activation,omitempty"`
}

// Network is a feedforward policy over the observation features. The action
// is the index of the largest output, lowest index on ties.
type Network struct {
	layers []Layer
}

func NewNetwork(layers []Layer) (*Network, error) {
	if err := validateLayers(layers); err != nil {
		return nil, err
	}
	return &Network{layers: layers}, nil
}

func (*Network) Name() string { return TypeNetwork }

func (n *Network) SelectAction(_ context.Context, obs model.Observation) (model.Action, error) {
	values := Features(obs)
	for i, layer := range n.layers {
		next, err := forward(layer, values)
		if err != nil {
			return 0, fmt.Errorf("layer %d: %w", i, err)
		}
		values = next
	}

	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return model.Action(best), nil
}

// Clone shares the layers; they are never mutated after construction.
func (n *Network) Clone() eval.Agent {
	return &Network{layers: n.layers}
}

// Features maps an observation onto [-1, 1] where the grid bounds are known.
func Features(obs model.Observation) []float64 {
	return []float64{
		scaleValue(obs.X, float64(obs.GridW-1), 0),
		scaleValue(obs.Y, float64(obs.GridH-1), 0),
		obs.VX / speedScale,
		obs.VY / speedScale,
		obs.WindX,
		obs.WindY,
	}
}

func scaleValue(value, max, min float64) float64 {
	if max == min {
		return 0
	}
	return (value*2 - (max + min)) / (max - min)
}

func forward(layer Layer, in []float64) ([]float64, error) {
	act, err := activation(layer.Activation)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(layer.Weights))
	for j, row := range layer.Weights {
		total := 0.0
		if len(layer.Bias) > 0 {
			total = layer.Bias[j]
		}
		for k, w := range row {
			total += w * in[k]
		}
		out[j] = act(total)
	}
	return out, nil
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "", "linear":
		return func(x float64) float64 { return x }, nil
	case "tanh":
		return math.Tanh, nil
	case "sigmoid":
		return func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }, nil
	case "relu":
		return func(x float64) float64 { return math.Max(0, x) }, nil
	default:
		return nil, fmt.Errorf("unsupported activation: %s", name)
	}
}

func validateLayers(layers []Layer) error {
	if len(layers) == 0 {
		return fmt.Errorf("%w: network needs at least one layer", ErrInvalidAgentSpec)
	}
	width := NumFeatures
	for i, layer := range layers {
		if len(layer.Weights) == 0 {
			return fmt.Errorf("%w: layer %d has no weights", ErrInvalidAgentSpec, i)
		}
		for j, row := range layer.Weights {
			if len(row) != width {
				return fmt.Errorf("%w: layer %d row %d has %d inputs, want %d", ErrInvalidAgentSpec, i, j, len(row), width)
			}
		}
		if len(layer.Bias) != 0 && len(layer.Bias) != len(layer.Weights) {
			return fmt.Errorf("%w: layer %d bias has %d entries, want %d", ErrInvalidAgentSpec, i, len(layer.Bias), len(layer.Weights))
		}
		if _, err := activation(layer.Activation); err != nil {
			return fmt.Errorf("%w: layer %d: %v", ErrInvalidAgentSpec, i, err)
		}
		width = len(layer.Weights)
	}
	if width != model.NumActions {
		return fmt.Errorf("%w: output layer has %d units, want %d", ErrInvalidAgentSpec, width, model.NumActions)
	}
	return nil
}
