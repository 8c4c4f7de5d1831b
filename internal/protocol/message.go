package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Server → Client message types.
const (
	TypeTimerUpdate  = "timer.update"  // once-per-second countdown progress
	TypeTimerState   = "timer.state"   // phase entered or completed
	TypeTimerStopped = "timer.stopped" // session ended by an explicit stop
	TypeError        = "error"
)

// Client → Server message types.
const (
	TypeTimerStart      = "timer.start"
	TypeTimerStartBreak = "timer.startBreak"
	TypeTimerPause      = "timer.pause"
	TypeTimerResume     = "timer.resume"
	TypeTimerStop       = "timer.stop"
	TypeTimerSkipBreak  = "timer.skipBreak"
	TypeTimerSubscribe  = "timer.subscribe"
)

// Error codes.
const (
	ErrSessionNotFound   = "SESSION_NOT_FOUND"
	ErrSessionActive     = "SESSION_ACTIVE"
	ErrInvalidTransition = "INVALID_TRANSITION"
	ErrInvalidMessage    = "INVALID_MESSAGE"
	ErrMaxSessions       = "MAX_SESSIONS"
)

// Server → Client payloads.

// TimerEventPayload carries a full session snapshot with every timer event,
// so clients never need to reconstruct state from deltas.
type TimerEventPayload struct {
	SessionID             string `json:"sessionId"`
	OwnerID               string `json:"ownerId"`
	Event                 string `json:"event"`
	TaskID                string `json:"taskId,omitempty"`
	Phase                 string `json:"phase"`
	PausedFrom            string `json:"pausedFrom,omitempty"`
	PendingBreak          string `json:"pendingBreak,omitempty"`
	RemainingSeconds      int    `json:"remainingSeconds"`
	CompletedWorkSessions int    `json:"completedWorkSessions"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client → Server payloads.

type TimerStartPayload struct {
	OwnerID string `json:"ownerId"`
	TaskID  string `json:"taskId"`
}

type TimerStopPayload struct {
	SessionID       string `json:"sessionId"`
	LogInterruption bool   `json:"logInterruption"`
	Note            string `json:"note,omitempty"`
}

type SessionIDPayload struct {
	SessionID string `json:"sessionId"`
}
