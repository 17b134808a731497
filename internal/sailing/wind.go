package sailing

import (
	"math"
	"math/rand"

	"sailbench/internal/scenario"
)

const (
	minSpeedFactor = 0.5
	maxSpeedFactor = 1.5
)

// initialWindField lays out a row-major [wx, wy] pair per cell.
func initialWindField(desc scenario.Descriptor, rng *rand.Rand) []float64 {
	bx, by := normalize(desc.Wind.BaseDirection[0], desc.Wind.BaseDirection[1])
	bx *= desc.Wind.BaseSpeed
	by *= desc.Wind.BaseSpeed

	scale := desc.Wind.PatternScale
	if scale <= 0 {
		scale = float64(desc.GridW)
	}
	phaseX := rng.Float64() * 2 * math.Pi
	phaseY := rng.Float64() * 2 * math.Pi

	field := make([]float64, 2*desc.GridW*desc.GridH)
	for y := 0; y < desc.GridH; y++ {
		for x := 0; x < desc.GridW; x++ {
			u := 2 * math.Pi * float64(x) / scale
			v := 2 * math.Pi * float64(y) / scale
			angle := desc.Wind.PatternStrength * math.Sin(u+phaseX) * math.Cos(v+phaseY)
			strength := 1 + 0.5*desc.Wind.StrengthVariation*math.Sin(u+v+phaseX+phaseY)

			wx, wy := rotate(bx, by, angle)
			wx *= strength
			wy *= strength
			if desc.Wind.Noise > 0 {
				wx += desc.Wind.Noise * rng.NormFloat64()
				wy += desc.Wind.Noise * rng.NormFloat64()
			}
			idx := 2 * (y*desc.GridW + x)
			field[idx] = wx
			field[idx+1] = wy
		}
	}
	return field
}

// evolveWindField rotates and rescales the whole field in place. The mean
// speed is kept within [0.5, 1.5] x base speed.
func evolveWindField(desc scenario.Descriptor, field []float64, rng *rand.Rand) {
	evo := desc.Evolution
	if evo.ChangeProbability <= 0 || rng.Float64() >= evo.ChangeProbability {
		return
	}
	angle := (2*rng.Float64()-1)*evo.PerturbationAngleAmplitude + evo.RotationBias*evo.BiasStrength
	factor := 1 + (2*rng.Float64()-1)*evo.PerturbationStrengthAmplitude

	total := 0.0
	for i := 0; i+1 < len(field); i += 2 {
		wx, wy := rotate(field[i], field[i+1], angle)
		field[i] = wx * factor
		field[i+1] = wy * factor
		total += math.Hypot(field[i], field[i+1])
	}

	cells := float64(len(field) / 2)
	if cells == 0 || total == 0 {
		return
	}
	mean := total / cells
	lo := minSpeedFactor * desc.Wind.BaseSpeed
	hi := maxSpeedFactor * desc.Wind.BaseSpeed
	var correction float64
	switch {
	case mean < lo:
		correction = lo / mean
	case mean > hi:
		correction = hi / mean
	default:
		return
	}
	for i := range field {
		field[i] *= correction
	}
}

func rotate(x, y, angle float64) (float64, float64) {
	s, c := math.Sincos(angle)
	return x*c - y*s, x*s + y*c
}

func normalize(x, y float64) (float64, float64) {
	n := math.Hypot(x, y)
	if n == 0 {
		return 0, 0
	}
	return x / n, y / n
}
