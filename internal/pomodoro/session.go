package pomodoro

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition indicates an operation that is not valid in the
// session's current phase. The session state is left untouched.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrSessionActive indicates a start attempt while a session is already
// counting down. The caller must stop the session first.
var ErrSessionActive = errors.New("session already active")

// Session is the focus-timer state machine. It owns no timers: an external
// scheduler calls Tick once per second. Methods are not safe for concurrent
// use; the owning Manager serializes access.
type Session struct {
	taskID       string
	phase        Phase
	pausedFrom   Phase
	pendingBreak Phase
	remaining    int // seconds, never negative
	phaseLength  int // seconds the current phase started with
	completed    int // work sessions since the last long break
	settings     Settings
	recorder     Recorder
}

// NewSession creates an idle session. Settings are clamped on the way in.
func NewSession(settings Settings, recorder Recorder) *Session {
	return &Session{
		phase:    PhaseIdle,
		settings: settings.Clamp(),
		recorder: recorder,
	}
}

// Start binds the task and begins a work phase. Valid only while idle;
// a pending break confirmation is discarded.
func (s *Session) Start(taskID string) error {
	if s.phase != PhaseIdle {
		return fmt.Errorf("start during %s: %w", s.phase, ErrSessionActive)
	}
	s.taskID = taskID
	s.pendingBreak = ""
	s.enterPhase(PhaseWorking)
	return nil
}

// StartBreak confirms a break that completed work left pending when
// auto-start of breaks is disabled.
func (s *Session) StartBreak() error {
	if s.phase != PhaseIdle || s.pendingBreak == "" {
		return fmt.Errorf("start break during %s: %w", s.phase, ErrInvalidTransition)
	}
	next := s.pendingBreak
	s.pendingBreak = ""
	s.enterPhase(next)
	return nil
}

// Pause freezes the countdown, remembering the phase it paused from so
// Resume restores it exactly.
func (s *Session) Pause() error {
	if !s.phase.counting() {
		return fmt.Errorf("pause during %s: %w", s.phase, ErrInvalidTransition)
	}
	s.pausedFrom = s.phase
	s.phase = PhasePaused
	return nil
}

// Resume restores the pre-pause phase and its remaining time.
func (s *Session) Resume() error {
	if s.phase != PhasePaused {
		return fmt.Errorf("resume during %s: %w", s.phase, ErrInvalidTransition)
	}
	s.phase = s.pausedFrom
	s.pausedFrom = ""
	return nil
}

// TickOutcome reports what a single Tick did.
type TickOutcome struct {
	Ticked         bool  // the countdown advanced
	PhaseCompleted bool  // the countdown reached zero and the phase ended
	From           Phase // phase the tick was delivered to
}

// Tick advances the countdown by one second. When the countdown reaches
// zero the phase completes in the same step. Ticks delivered while idle or
// paused are ignored.
func (s *Session) Tick() TickOutcome {
	if !s.phase.counting() {
		return TickOutcome{}
	}
	from := s.phase
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		return TickOutcome{Ticked: true, From: from}
	}
	s.completePhase()
	return TickOutcome{Ticked: true, PhaseCompleted: true, From: from}
}

// Stop ends the session from any non-idle phase, reporting elapsed time in
// the current phase to the recorder, then resets to idle.
func (s *Session) Stop(logInterruption bool, note string) error {
	if s.phase == PhaseIdle {
		return fmt.Errorf("stop during %s: %w", s.phase, ErrInvalidTransition)
	}
	phase := s.phase
	if phase == PhasePaused {
		phase = s.pausedFrom
	}
	rec := FocusRecord{
		TaskID:      s.taskID,
		Phase:       phase,
		Elapsed:     s.phaseLength - s.remaining,
		Interrupted: logInterruption,
		At:          time.Now().UTC(),
	}
	if logInterruption {
		rec.Note = note
	}
	s.record(rec)

	s.taskID = ""
	s.phase = PhaseIdle
	s.pausedFrom = ""
	s.pendingBreak = ""
	s.remaining = 0
	s.phaseLength = 0
	s.completed = 0
	return nil
}

// SkipBreak abandons the remaining break countdown, moving straight to
// working (when the next session auto-starts) or idle.
func (s *Session) SkipBreak() error {
	if !s.phase.isBreak() {
		return fmt.Errorf("skip break during %s: %w", s.phase, ErrInvalidTransition)
	}
	if s.settings.AutoStartNextSession {
		s.enterPhase(PhaseWorking)
	} else {
		s.toIdle()
	}
	return nil
}

// SetSettings replaces the settings. The running countdown is unaffected;
// new durations apply at the next phase entry.
func (s *Session) SetSettings(settings Settings) {
	s.settings = settings.Clamp()
}

// Settings returns the session's current (clamped) settings.
func (s *Session) Settings() Settings {
	return s.settings
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	return Status{
		TaskID:       s.taskID,
		Phase:        s.phase,
		PausedFrom:   s.pausedFrom,
		PendingBreak: s.pendingBreak,
		Remaining:    s.remaining,
		Completed:    s.completed,
	}
}

// completePhase handles a countdown that reached zero. Ending a work phase
// counts it toward the long-break threshold and picks the break type; the
// counter wraps to zero when the long break is chosen. Ending a break
// returns to working only when the next session auto-starts.
func (s *Session) completePhase() {
	switch s.phase {
	case PhaseWorking:
		s.record(FocusRecord{
			TaskID:  s.taskID,
			Phase:   PhaseWorking,
			Elapsed: s.phaseLength,
			At:      time.Now().UTC(),
		})
		s.completed++
		next := PhaseShortBreak
		if s.completed >= s.settings.SessionsUntilLongBreak {
			next = PhaseLongBreak
			s.completed = 0
		}
		if s.settings.AutoStartBreaks {
			s.enterPhase(next)
		} else {
			s.pendingBreak = next
			s.toIdle()
		}
	case PhaseShortBreak, PhaseLongBreak:
		if s.settings.AutoStartNextSession {
			s.enterPhase(PhaseWorking)
		} else {
			s.toIdle()
		}
	}
}

// enterPhase switches phase and loads its full duration from the current
// settings, keeping remaining consistent with the phase at entry.
func (s *Session) enterPhase(phase Phase) {
	s.phase = phase
	s.phaseLength = s.phaseSeconds(phase)
	s.remaining = s.phaseLength
	s.pausedFrom = ""
}

// toIdle parks the session without discarding the task binding, the
// long-break counter, or a pending break confirmation.
func (s *Session) toIdle() {
	s.phase = PhaseIdle
	s.pausedFrom = ""
	s.remaining = 0
	s.phaseLength = 0
}

func (s *Session) phaseSeconds(phase Phase) int {
	switch phase {
	case PhaseWorking:
		return s.settings.WorkMinutes * 60
	case PhaseShortBreak:
		return s.settings.ShortBreakMinutes * 60
	case PhaseLongBreak:
		return s.settings.LongBreakMinutes * 60
	}
	return 0
}

func (s *Session) record(rec FocusRecord) {
	if s.recorder != nil {
		s.recorder.Record(rec)
	}
}
