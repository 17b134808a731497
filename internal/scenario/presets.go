package scenario

const (
	defaultGridSize = 32
)

func defaultRender() *RenderParams {
	return &RenderParams{ArrowScale: 0.4, ArrowEvery: 2}
}

// Presets returns the built-in windfield scenarios in a stable order.
func Presets() []Descriptor {
	return []Descriptor{
		{
			Name:        "simple_static",
			Description: "uniform easterly wind with no spatial pattern or evolution",
			GridW:       defaultGridSize,
			GridH:       defaultGridSize,
			Wind: WindInit{
				BaseDirection: [2]float64{-1.0, 0.0},
				BaseSpeed:     3.0,
				PatternScale:  defaultGridSize,
			},
			Render: defaultRender(),
		},
		{
			Name:        "training_1",
			Description: "north-east wind with mild spatial pattern and slow clockwise drift",
			GridW:       defaultGridSize,
			GridH:       defaultGridSize,
			Wind: WindInit{
				BaseDirection:     [2]float64{-0.7071, -0.7071},
				BaseSpeed:         3.0,
				PatternScale:      defaultGridSize,
				PatternStrength:   0.3,
				StrengthVariation: 0.4,
				Noise:             0.1,
			},
			Evolution: WindEvolution{
				ChangeProbability:             1.0,
				PerturbationAngleAmplitude:    0.1,
				PerturbationStrengthAmplitude: 0.1,
				RotationBias:                  0.02,
				BiasStrength:                  1.0,
			},
			Render: defaultRender(),
		},
		{
			Name:        "training_2",
			Description: "north-west wind with mild spatial pattern and slow counter-clockwise drift",
			GridW:       defaultGridSize,
			GridH:       defaultGridSize,
			Wind: WindInit{
				BaseDirection:     [2]float64{0.7071, -0.7071},
				BaseSpeed:         3.0,
				PatternScale:      defaultGridSize,
				PatternStrength:   0.3,
				StrengthVariation: 0.4,
				Noise:             0.1,
			},
			Evolution: WindEvolution{
				ChangeProbability:             1.0,
				PerturbationAngleAmplitude:    0.1,
				PerturbationStrengthAmplitude: 0.1,
				RotationBias:                  -0.02,
				BiasStrength:                  1.0,
			},
			Render: defaultRender(),
		},
		{
			Name:        "training_3",
			Description: "westerly wind with strong spatial variation and gusty evolution",
			GridW:       defaultGridSize,
			GridH:       defaultGridSize,
			Wind: WindInit{
				BaseDirection:     [2]float64{1.0, 0.0},
				BaseSpeed:         3.0,
				PatternScale:      defaultGridSize / 2,
				PatternStrength:   0.5,
				StrengthVariation: 0.6,
				Noise:             0.15,
			},
			Evolution: WindEvolution{
				ChangeProbability:             0.5,
				PerturbationAngleAmplitude:    0.2,
				PerturbationStrengthAmplitude: 0.15,
				RotationBias:                  0.0,
				BiasStrength:                  1.0,
			},
			Render: defaultRender(),
		},
	}
}
