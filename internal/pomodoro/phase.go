package pomodoro

import "time"

// Phase represents the current stage of a focus cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseWorking    Phase = "working"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
	PhasePaused     Phase = "paused"
)

// counting reports whether the phase has an active countdown.
func (p Phase) counting() bool {
	return p == PhaseWorking || p == PhaseShortBreak || p == PhaseLongBreak
}

// isBreak reports whether the phase is a short or long break.
func (p Phase) isBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

// EventType defines the type of session event delivered to observers.
type EventType string

const (
	EventStateChange   EventType = "state_change"
	EventProgress      EventType = "progress"
	EventPhaseComplete EventType = "phase_complete"
	EventStopped       EventType = "stopped"
)

// Event is a single session update for observers.
type Event struct {
	SessionID string    `json:"sessionId"`
	OwnerID   string    `json:"ownerId"`
	Type      EventType `json:"type"`
	Status    Status    `json:"status"`
	At        time.Time `json:"at"`
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	TaskID       string `json:"taskId,omitempty"`
	Phase        Phase  `json:"phase"`
	PausedFrom   Phase  `json:"pausedFrom,omitempty"`
	PendingBreak Phase  `json:"pendingBreak,omitempty"`
	Remaining    int    `json:"remainingSeconds"`
	Completed    int    `json:"completedWorkSessions"`
}

// FocusRecord describes one stretch of focus time for the statistics
// collaborator. Interrupted records carry the user's note, if any.
type FocusRecord struct {
	TaskID      string
	Phase       Phase
	Elapsed     int // seconds
	Interrupted bool
	Note        string
	At          time.Time
}

// Recorder receives focus records. Delivery is fire-and-forget: the state
// machine never sees or handles recorder failures.
type Recorder interface {
	Record(rec FocusRecord)
}
