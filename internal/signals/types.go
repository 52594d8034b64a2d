package signals

// #region bounds
const (
	MinTurnMs   = 200
	MaxTurnMs   = 60000
	MaxActions  = 99
	MaxMistakes = 99

	// hesitationScaleMs maps the per-action overshoot onto [-1, 1].
	hesitationScaleMs = 2000
)

// #endregion bounds

// #region config
// Config holds the per-game targets used to derive turn signals.
type Config struct {
	TurnTimeTargetMs     float64
	ActionsPerTurnTarget float64
}

// DefaultConfig returns the defaults shared with the director.
func DefaultConfig() Config {
	return Config{
		TurnTimeTargetMs:     7000,
		ActionsPerTurnTarget: 3,
	}
}

// #endregion config

// #region turn
// TurnSummary is what the host reports after a player turn.
type TurnSummary struct {
	TurnMs       float64 `json:"turn_ms"`
	ActionsTaken int     `json:"actions_taken"`
	Mistakes     int     `json:"mistakes"`
}

// Turn carries the signals derived from one clamped TurnSummary.
type Turn struct {
	TurnMs        float64
	Actions       int
	Mistakes      int
	TimePerAction float64
	Hesitation    float64 // [-1, 1], positive means slower than target per action
	ErrorRate     float64 // [0, 1]
}

// #endregion turn
