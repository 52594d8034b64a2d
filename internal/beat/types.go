package beat

// #region beat
// Beat is a coarse pacing mode for the next match.
type Beat string

const (
	Recovery  Beat = "recovery"
	Training  Beat = "training"
	Challenge Beat = "challenge"
	Novelty   Beat = "novelty"
)

// Order is the fixed iteration order. Earlier beats win exact score ties.
var Order = [...]Beat{Recovery, Training, Challenge, Novelty}

// Valid reports whether b names a known beat.
func (b Beat) Valid() bool {
	for _, o := range Order {
		if b == o {
			return true
		}
	}
	return false
}

// #endregion beat

// #region config
// Config holds the override threshold, cooldown rules and the targets used
// by the heuristic biases.
type Config struct {
	FatigueOverride float64 // fatigue above this forces recovery
	CooldownCycles  int     // cycles a chosen beat is penalized for
	CooldownPenalty float64 // flat score penalty while on cooldown
	TargetWinRate   float64
	ErrorRateTarget float64
}

// DefaultConfig returns the stock scheduler settings.
func DefaultConfig() Config {
	return Config{
		FatigueOverride: 0.62,
		CooldownCycles:  1,
		CooldownPenalty: 0.35,
		TargetWinRate:   0.58,
		ErrorRateTarget: 0.18,
	}
}

// #endregion config

// #region choice
// Choice records how a beat was selected.
type Choice struct {
	Beat     Beat
	Override bool // fatigue safety floor bypassed sampling
	Samples  map[Beat]float64
	Bias     map[Beat]float64
	Scores   map[Beat]float64
}

// #endregion choice

// #region state
// ArmState is the serializable form of an Arm.
type ArmState struct {
	Name Beat    `json:"name"`
	A    float64 `json:"a"`
	B    float64 `json:"b"`
}

// State is the serializable form of a Scheduler.
type State struct {
	Arms      []ArmState   `json:"arms"`
	Cooldowns map[Beat]int `json:"cooldowns"`
	LastBeat  Beat         `json:"last_beat"`
}

// #endregion state
