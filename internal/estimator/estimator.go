package estimator

import "math"

// #region ema
// EMA is an exponential moving average. The first push seeds the value.
type EMA struct {
	value       float64
	alpha       float64
	initialized bool
}

// EMAState is the serializable form of an EMA.
type EMAState struct {
	Value       float64 `json:"value"`
	Alpha       float64 `json:"alpha"`
	Initialized bool    `json:"initialized"`
}

// NewEMA creates an unseeded EMA. alpha is clamped to (0, 1].
func NewEMA(alpha float64) EMA {
	return EMA{alpha: clampAlpha(alpha)}
}

// NewSeededEMA creates an EMA that already holds value.
func NewSeededEMA(alpha, value float64) EMA {
	return EMA{alpha: clampAlpha(alpha), value: value, initialized: true}
}

// Push folds x into the average and returns the new value.
// Non-finite samples leave the average unchanged.
func (e *EMA) Push(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return e.value
	}
	if !e.initialized {
		e.value = x
		e.initialized = true
		return e.value
	}
	e.value += e.alpha * (x - e.value)
	return e.value
}

// Value returns the current average (0 before the first push).
func (e EMA) Value() float64 { return e.value }

// ValueOr returns the current average, or fallback if nothing was pushed yet.
func (e EMA) ValueOr(fallback float64) float64 {
	if !e.initialized {
		return fallback
	}
	return e.value
}

// Initialized reports whether the EMA holds a sample.
func (e EMA) Initialized() bool { return e.initialized }

// Alpha returns the smoothing factor.
func (e EMA) Alpha() float64 { return e.alpha }

// State exports the EMA for persistence.
func (e EMA) State() EMAState {
	return EMAState{Value: e.value, Alpha: e.alpha, Initialized: e.initialized}
}

// EMAFromState rebuilds an EMA from its exported form.
func EMAFromState(s EMAState) EMA {
	return EMA{value: s.Value, alpha: clampAlpha(s.Alpha), initialized: s.Initialized}
}

func clampAlpha(a float64) float64 {
	if math.IsNaN(a) || a <= 0 {
		return 1e-3
	}
	if a > 1 {
		return 1
	}
	return a
}

// #endregion ema

// #region running-stats
// RunningStats tracks mean, variance, min and max online (Welford).
type RunningStats struct {
	n    int
	mean float64
	m2   float64
	min  float64
	max  float64
}

// RunningState is the serializable form of RunningStats.
type RunningState struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	M2   float64 `json:"m2"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Push adds a sample. Non-finite samples are ignored.
func (r *RunningStats) Push(x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	r.n++
	if r.n == 1 {
		r.min, r.max = x, x
	} else {
		r.min = math.Min(r.min, x)
		r.max = math.Max(r.max, x)
	}
	delta := x - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (x - r.mean)
}

func (r RunningStats) Count() int      { return r.n }
func (r RunningStats) Mean() float64   { return r.mean }
func (r RunningStats) Min() float64    { return r.min }
func (r RunningStats) Max() float64    { return r.max }
func (r RunningStats) StdDev() float64 { return math.Sqrt(r.Variance()) }

// Variance returns the sample variance, 0 with fewer than two samples.
func (r RunningStats) Variance() float64 {
	if r.n < 2 {
		return 0
	}
	return r.m2 / float64(r.n-1)
}

// ZScore returns (x-mean)/std, or 0 when the spread is too small to divide by.
func (r RunningStats) ZScore(x float64) float64 {
	std := r.StdDev()
	if std <= 1e-9 {
		return 0
	}
	return (x - r.mean) / std
}

// State exports the tracker for persistence.
func (r RunningStats) State() RunningState {
	return RunningState{N: r.n, Mean: r.mean, M2: r.m2, Min: r.min, Max: r.max}
}

// RunningFromState rebuilds a tracker from its exported form.
func RunningFromState(s RunningState) RunningStats {
	if s.N < 0 {
		s.N = 0
	}
	return RunningStats{n: s.N, mean: s.Mean, m2: s.M2, min: s.Min, max: s.Max}
}

// #endregion running-stats

// #region helpers
// Clamp restricts v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
