package beat

import (
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/sampler"
)

// #region arm
// Arm is a Beta-Bernoulli bandit arm with success/failure pseudo-counts.
type Arm struct {
	Name Beat
	a    float64
	b    float64
}

func newArm(name Beat) *Arm {
	return &Arm{Name: name, a: 1, b: 1}
}

// Update records one Bernoulli outcome.
func (a *Arm) Update(success bool) {
	if success {
		a.a++
	} else {
		a.b++
	}
}

// Mean is the posterior mean a/(a+b).
func (a *Arm) Mean() float64 { return a.a / (a.a + a.b) }

// Counts returns the pseudo-counts (a, b).
func (a *Arm) Counts() (float64, float64) { return a.a, a.b }

// Reset restores the uniform prior.
func (a *Arm) Reset() { a.a, a.b = 1, 1 }

// #endregion arm

// #region scheduler
// Scheduler picks a beat once per game by Thompson sampling plus heuristic
// biases, with a fatigue override and repeat-avoidance cooldowns.
type Scheduler struct {
	config    Config
	rng       *sampler.Rand
	arms      map[Beat]*Arm
	cooldowns map[Beat]int
	last      Beat
}

// NewScheduler creates a scheduler with uniform priors on every arm.
func NewScheduler(config Config, rng *sampler.Rand) *Scheduler {
	s := &Scheduler{
		config:    config,
		rng:       rng,
		arms:      make(map[Beat]*Arm, len(Order)),
		cooldowns: make(map[Beat]int, len(Order)),
		last:      Training,
	}
	for _, b := range Order {
		s.arms[b] = newArm(b)
	}
	return s
}

// Restore rebuilds a scheduler from exported state. Unknown arms are
// ignored and non-positive pseudo-counts fall back to the prior.
func Restore(config Config, rng *sampler.Rand, st State) *Scheduler {
	s := NewScheduler(config, rng)
	for _, as := range st.Arms {
		arm, ok := s.arms[as.Name]
		if !ok || !(as.A > 0) || !(as.B > 0) {
			continue
		}
		arm.a, arm.b = as.A, as.B
	}
	for b, cd := range st.Cooldowns {
		if b.Valid() && cd > 0 {
			s.cooldowns[b] = cd
		}
	}
	if st.LastBeat.Valid() {
		s.last = st.LastBeat
	}
	return s
}

// #endregion scheduler

// #region choose
// ChooseBeat returns the beat for the next match.
func (s *Scheduler) ChooseBeat(snap player.Snapshot) Beat {
	return s.Choose(snap).Beat
}

// Choose runs one scheduling cycle and reports how the beat was picked.
func (s *Scheduler) Choose(snap player.Snapshot) Choice {
	if snap.Fatigue > s.config.FatigueOverride {
		s.tick()
		s.cooldowns[Recovery] = s.config.CooldownCycles
		s.last = Recovery
		return Choice{Beat: Recovery, Override: true}
	}

	bias := s.heuristicBias(snap)
	choice := Choice{
		Samples: make(map[Beat]float64, len(Order)),
		Bias:    bias,
		Scores:  make(map[Beat]float64, len(Order)),
	}

	best := Order[0]
	bestScore := 0.0
	for i, b := range Order {
		arm := s.arms[b]
		sample := s.rng.Beta(arm.a, arm.b)
		score := sample + bias[b]
		if s.cooldowns[b] > 0 {
			score -= s.config.CooldownPenalty
		}
		choice.Samples[b] = sample
		choice.Scores[b] = score
		if i == 0 || score > bestScore {
			best, bestScore = b, score
		}
	}

	s.tick()
	s.cooldowns[best] = s.config.CooldownCycles
	s.last = best
	choice.Beat = best
	return choice
}

// tick decrements every active cooldown by one cycle.
func (s *Scheduler) tick() {
	for b, cd := range s.cooldowns {
		if cd > 1 {
			s.cooldowns[b] = cd - 1
		} else {
			delete(s.cooldowns, b)
		}
	}
}

func (s *Scheduler) heuristicBias(snap player.Snapshot) map[Beat]float64 {
	bias := make(map[Beat]float64, len(Order))
	lowEngagement := snap.Engagement < 0.45
	errTarget := s.config.ErrorRateTarget

	// bored: accurate and quick but disengaged
	if lowEngagement && snap.ErrorRate <= errTarget && snap.Hesitation <= 0 {
		bias[Novelty] += 0.25
	}
	// struggling
	if lowEngagement && snap.ErrorRate > errTarget*1.5 {
		bias[Training] += 0.20
		bias[Recovery] += 0.12
	}

	gap := snap.WinRate - s.config.TargetWinRate
	switch {
	case gap > 0.15:
		bias[Challenge] += 0.25
	case gap < -0.15:
		bias[Training] += 0.20
		bias[Recovery] += 0.05
	}

	if snap.Fatigue > 0.45 {
		bias[Recovery] += 0.15
	}
	return bias
}

// #endregion choose

// #region learn
// Learn feeds whether flow and engagement improved under beat back into its arm.
func (s *Scheduler) Learn(beat Beat, improved bool) {
	if arm, ok := s.arms[beat]; ok {
		arm.Update(improved)
	}
}

// #endregion learn

// #region read
// LastBeat is the most recently chosen beat.
func (s *Scheduler) LastBeat() Beat { return s.last }

// Arm returns the arm for b, or nil.
func (s *Scheduler) Arm(b Beat) *Arm { return s.arms[b] }

// Cooldown returns the remaining cooldown cycles for b.
func (s *Scheduler) Cooldown(b Beat) int { return s.cooldowns[b] }

// State exports the scheduler for persistence.
func (s *Scheduler) State() State {
	st := State{
		Arms:      make([]ArmState, 0, len(Order)),
		Cooldowns: make(map[Beat]int, len(s.cooldowns)),
		LastBeat:  s.last,
	}
	for _, b := range Order {
		arm := s.arms[b]
		st.Arms = append(st.Arms, ArmState{Name: b, A: arm.a, B: arm.b})
	}
	for b, cd := range s.cooldowns {
		st.Cooldowns[b] = cd
	}
	return st
}

// #endregion read
