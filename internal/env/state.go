package env

// Phase is the lifecycle state of an episode controller.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseResetting Phase = "resetting"
	PhaseRunning   Phase = "running"
	PhaseDone      Phase = "done"
)

// Terminal reports whether the phase accepts no further steps.
func (p Phase) Terminal() bool {
	return p == PhaseDone
}

// EpisodeState is the mutable per-episode record. The controller owns the
// single instance and threads it through Task.Reward; nothing else retains
// a reference.
type EpisodeState struct {
	// Episode counts boundaries: it names the episode currently running.
	Episode int
	// Steps taken in the current episode.
	Steps int
	// CumulatedReward is the running sum of shaped step rewards.
	CumulatedReward float64
	// PrevDistance and PrevOrientDiff baseline reward deltas against the
	// previous step.
	PrevDistance   float64
	PrevOrientDiff float64
	// Reason records why the episode ended, or why it could not start.
	Reason string
}
