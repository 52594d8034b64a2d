package sampler

import "math"

// MaxGammaIterations caps the Marsaglia-Tsang rejection loop. When exhausted
// Gamma returns the shape (the distribution mean at unit scale).
const MaxGammaIterations = 1000

// #region rand
// Rand is a seeded mulberry32 generator. It is not safe for concurrent use.
type Rand struct {
	state uint32
}

// New creates a generator from an explicit seed.
func New(seed int64) *Rand {
	// fold the high word in so seeds differing only above bit 31 diverge
	return &Rand{state: uint32(seed ^ seed>>32)}
}

// FromState resumes a generator at a previously exported state.
func FromState(state uint32) *Rand {
	return &Rand{state: state}
}

// State returns the internal state for persistence.
func (r *Rand) State() uint32 { return r.state }

// Uint32 advances the generator.
func (r *Rand) Uint32() uint32 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns a uniform value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296.0
}

// Intn returns a uniform int in [0, n). n <= 0 yields 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Float64() * float64(n))
}

// #endregion rand

// #region distributions
// Normal draws a standard normal variate via Box-Muller.
func (r *Rand) Normal() float64 {
	u1 := r.Float64()
	for i := 0; u1 == 0 && i < 64; i++ {
		u1 = r.Float64()
	}
	if u1 == 0 {
		u1 = math.SmallestNonzeroFloat64
	}
	u2 := r.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Gamma draws from Gamma(shape, 1) using Marsaglia-Tsang. Shapes below one
// are boosted through shape+1 and scaled by u^(1/shape).
func (r *Rand) Gamma(shape float64) float64 {
	if math.IsNaN(shape) || shape <= 0 {
		return 0
	}
	if shape < 1 {
		u := r.Float64()
		return r.Gamma(shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for i := 0; i < MaxGammaIterations; i++ {
		x := r.Normal()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := r.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
	return shape
}

// Beta draws from Beta(a, b) as Ga/(Ga+Gb). Returns 0.5 when both draws vanish.
func (r *Rand) Beta(a, b float64) float64 {
	ga := r.Gamma(a)
	gb := r.Gamma(b)
	sum := ga + gb
	if sum < 1e-12 {
		return 0.5
	}
	return ga / sum
}

// #endregion distributions
