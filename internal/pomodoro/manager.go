package pomodoro

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates no session with the given ID exists.
var ErrNotFound = errors.New("session not found")

// ErrTooManySessions indicates the manager is at its session limit.
var ErrTooManySessions = errors.New("maximum session limit reached")

const (
	defaultRingCapacity     = 256
	defaultSubscriberBufCap = 100
	defaultTickInterval     = time.Second
)

// Options contains runtime options for the Manager.
type Options struct {
	MaxSessions  int
	TickInterval time.Duration
	RingCapacity int
}

// Manager owns all live focus sessions, keyed by session ID, with at most
// one active session per owner. It drives every session from a single
// ticker goroutine, so individual sessions never touch real time.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*managedSession
	owners   map[string]string // owner ID → session ID
	settings Settings
	recorder Recorder
	options  Options
	stopCh   chan struct{}
	running  bool
}

type managedSession struct {
	mu        sync.Mutex
	id        string
	ownerID   string
	sess      *Session
	createdAt time.Time

	ringBuf     *RingBuffer
	subscribers map[string]chan Event
	subMu       sync.RWMutex
}

// SessionInfo is a session snapshot plus its identity metadata.
type SessionInfo struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	Status
}

// NewManager creates a session manager. Settings are clamped on the way in.
func NewManager(settings Settings, recorder Recorder, options Options) *Manager {
	if options.MaxSessions <= 0 {
		options.MaxSessions = 100
	}
	if options.TickInterval <= 0 {
		options.TickInterval = defaultTickInterval
	}
	if options.RingCapacity <= 0 {
		options.RingCapacity = defaultRingCapacity
	}
	return &Manager{
		sessions: make(map[string]*managedSession),
		owners:   make(map[string]string),
		settings: settings.Clamp(),
		recorder: recorder,
		options:  options,
		stopCh:   make(chan struct{}),
	}
}

// Run launches the ticking loop. It returns immediately.
func (m *Manager) Run() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	go m.run()
}

// Shutdown stops the ticking loop and closes all subscriber channels.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.stopCh)
	m.running = false
	sessions := make([]*managedSession, 0, len(m.sessions))
	for _, ms := range m.sessions {
		sessions = append(sessions, ms)
	}
	m.mu.Unlock()

	for _, ms := range sessions {
		ms.subMu.Lock()
		for subID, ch := range ms.subscribers {
			close(ch)
			delete(ms.subscribers, subID)
		}
		ms.subMu.Unlock()
	}
}

func (m *Manager) run() {
	ticker := time.NewTicker(m.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.TickAll()
		}
	}
}

// TickAll delivers one tick to every session. Exposed so tests can drive
// the clock without real time passing.
func (m *Manager) TickAll() {
	m.mu.RLock()
	sessions := make([]*managedSession, 0, len(m.sessions))
	for _, ms := range m.sessions {
		sessions = append(sessions, ms)
	}
	m.mu.RUnlock()

	for _, ms := range sessions {
		ms.mu.Lock()
		outcome := ms.sess.Tick()
		status := ms.sess.Status()
		ms.mu.Unlock()

		if outcome.PhaseCompleted {
			m.emit(ms, EventPhaseComplete, status)
		} else if outcome.Ticked {
			m.emit(ms, EventProgress, status)
		}
	}
}

// Start begins a focus session for the owner on the given task. An idle
// session is reused; an active one is an error the owner must resolve with
// an explicit stop.
func (m *Manager) Start(ownerID, taskID string) (SessionInfo, error) {
	m.mu.Lock()
	ms, ok := m.lookupOwnerLocked(ownerID)
	if !ok {
		if len(m.sessions) >= m.options.MaxSessions {
			m.mu.Unlock()
			return SessionInfo{}, fmt.Errorf("%w (%d)", ErrTooManySessions, m.options.MaxSessions)
		}
		ms = &managedSession{
			id:          uuid.New().String(),
			ownerID:     ownerID,
			sess:        NewSession(m.settings, m.recorder),
			createdAt:   time.Now().UTC(),
			ringBuf:     NewRingBuffer(m.options.RingCapacity),
			subscribers: make(map[string]chan Event),
		}
		m.sessions[ms.id] = ms
		m.owners[ownerID] = ms.id
	}
	m.mu.Unlock()

	ms.mu.Lock()
	err := ms.sess.Start(taskID)
	info := m.infoLocked(ms)
	ms.mu.Unlock()
	if err != nil {
		return info, err
	}

	m.emit(ms, EventStateChange, info.Status)
	return info, nil
}

// StartBreak confirms a pending break for the session.
func (m *Manager) StartBreak(id string) (SessionInfo, error) {
	return m.transition(id, func(s *Session) error { return s.StartBreak() })
}

// Pause freezes a session's countdown.
func (m *Manager) Pause(id string) (SessionInfo, error) {
	return m.transition(id, func(s *Session) error { return s.Pause() })
}

// Resume continues a paused session.
func (m *Manager) Resume(id string) (SessionInfo, error) {
	return m.transition(id, func(s *Session) error { return s.Resume() })
}

// SkipBreak abandons the remaining break countdown.
func (m *Manager) SkipBreak(id string) (SessionInfo, error) {
	return m.transition(id, func(s *Session) error { return s.SkipBreak() })
}

// Stop ends a session and releases its owner slot. The session stays
// listed (idle) so clients can observe the final state.
func (m *Manager) Stop(id string, logInterruption bool, note string) (SessionInfo, error) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return SessionInfo{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	ms.mu.Lock()
	err := ms.sess.Stop(logInterruption, note)
	info := m.infoLocked(ms)
	ms.mu.Unlock()
	if err != nil {
		return info, err
	}

	m.emit(ms, EventStopped, info.Status)
	return info, nil
}

// UpdateSettings replaces the settings for new and existing sessions.
// Running countdowns finish with their old durations.
func (m *Manager) UpdateSettings(settings Settings) {
	settings = settings.Clamp()

	m.mu.Lock()
	m.settings = settings
	sessions := make([]*managedSession, 0, len(m.sessions))
	for _, ms := range m.sessions {
		sessions = append(sessions, ms)
	}
	m.mu.Unlock()

	for _, ms := range sessions {
		ms.mu.Lock()
		ms.sess.SetSettings(settings)
		ms.mu.Unlock()
	}
}

// Settings returns the manager's current settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Get returns a session snapshot by ID.
func (m *Manager) Get(id string) (SessionInfo, error) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return SessionInfo{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return m.infoLocked(ms), nil
}

// GetByOwner returns the owner's session snapshot, if any.
func (m *Manager) GetByOwner(ownerID string) (SessionInfo, bool) {
	m.mu.RLock()
	ms, ok := m.lookupOwnerLocked(ownerID)
	m.mu.RUnlock()
	if !ok {
		return SessionInfo{}, false
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return m.infoLocked(ms), true
}

// List returns snapshots of all sessions.
func (m *Manager) List() []SessionInfo {
	m.mu.RLock()
	sessions := make([]*managedSession, 0, len(m.sessions))
	for _, ms := range m.sessions {
		sessions = append(sessions, ms)
	}
	m.mu.RUnlock()

	result := make([]SessionInfo, 0, len(sessions))
	for _, ms := range sessions {
		ms.mu.Lock()
		result = append(result, m.infoLocked(ms))
		ms.mu.Unlock()
	}
	return result
}

// Subscribe creates a channel receiving the session's events, preceded by
// its buffered history. Returns a subscription ID for unsubscribing.
func (m *Manager) Subscribe(id string) (string, <-chan Event, []Event, error) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return "", nil, nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	subID := uuid.New().String()
	ch := make(chan Event, defaultSubscriberBufCap)

	// Snapshot history before registering to avoid duplicated events.
	history := ms.ringBuf.ReadAll()

	ms.subMu.Lock()
	ms.subscribers[subID] = ch
	ms.subMu.Unlock()

	return subID, ch, history, nil
}

// Unsubscribe removes a subscriber from a session.
func (m *Manager) Unsubscribe(sessionID, subID string) {
	m.mu.RLock()
	ms, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	ms.subMu.Lock()
	if ch, exists := ms.subscribers[subID]; exists {
		close(ch)
		delete(ms.subscribers, subID)
	}
	ms.subMu.Unlock()
}

func (m *Manager) lookupOwnerLocked(ownerID string) (*managedSession, bool) {
	id, ok := m.owners[ownerID]
	if !ok {
		return nil, false
	}
	ms, ok := m.sessions[id]
	return ms, ok
}

// transition runs op under the session lock and emits a state change on
// success. Rejected transitions leave the session untouched and are
// returned to the caller, never fatal.
func (m *Manager) transition(id string, op func(*Session) error) (SessionInfo, error) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return SessionInfo{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	ms.mu.Lock()
	err := op(ms.sess)
	info := m.infoLocked(ms)
	ms.mu.Unlock()
	if err != nil {
		return info, err
	}

	m.emit(ms, EventStateChange, info.Status)
	return info, nil
}

func (m *Manager) infoLocked(ms *managedSession) SessionInfo {
	return SessionInfo{
		ID:        ms.id,
		OwnerID:   ms.ownerID,
		CreatedAt: ms.createdAt,
		Status:    ms.sess.Status(),
	}
}

// emit buffers the event and fans it out to subscribers. Slow subscribers
// drop events rather than block the tick loop.
func (m *Manager) emit(ms *managedSession, eventType EventType, status Status) {
	event := Event{
		SessionID: ms.id,
		OwnerID:   ms.ownerID,
		Type:      eventType,
		Status:    status,
		At:        time.Now().UTC(),
	}

	ms.ringBuf.Write(event)

	ms.subMu.RLock()
	defer ms.subMu.RUnlock()
	for _, ch := range ms.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
