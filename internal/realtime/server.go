// Package realtime serves the REST API and the WebSocket feed that
// mirrors live timer state to connected clients.
package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tasktimer/internal/pomodoro"
	"tasktimer/internal/profile"
	"tasktimer/internal/protocol"
	"tasktimer/internal/stats"
	"tasktimer/internal/task"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow localhost origins for dev.
	},
}

// Server routes REST calls to the stores and fans timer events out to
// WebSocket clients.
type Server struct {
	manager   *pomodoro.Manager
	tasks     *task.Store
	stats     *stats.Recorder
	profiles  *profile.Store // nil when profile sync is not configured
	staticDir string

	clients   map[*client]bool
	clientsMu sync.RWMutex

	// subscriptions tracks which event subscriptions exist per client.
	// key: client, value: map[sessionID]subscriptionID
	subscriptions   map[*client]map[string]string
	subscriptionsMu sync.Mutex
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server

	// closeMu guards closed so senders never race the channel close:
	// forwarding goroutines may still be draining subscription buffers
	// when the client disconnects.
	closeMu sync.Mutex
	closed  bool
}

// New creates a realtime server. profiles may be nil.
func New(manager *pomodoro.Manager, tasks *task.Store, statsRec *stats.Recorder, profiles *profile.Store, staticDir string) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{
		manager:       manager,
		tasks:         tasks,
		stats:         statsRec,
		profiles:      profiles,
		staticDir:     staticDir,
		clients:       make(map[*client]bool),
		subscriptions: make(map[*client]map[string]string),
	}
}

// Handler returns an http.Handler with all routes configured.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())

	r.GET("/ws", func(c *gin.Context) {
		s.handleWebSocket(c.Writer, c.Request)
	})

	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/tasks/:id/subtasks", s.handleAddSubtask)
		api.POST("/tasks/:id/tags", s.handleTagTask)
		api.DELETE("/tasks/:id/tags/:name", s.handleUntagTask)
		api.PUT("/subtasks/:id", s.handleUpdateSubtask)
		api.DELETE("/subtasks/:id", s.handleDeleteSubtask)
		api.GET("/tags", s.handleListTags)
		api.GET("/days", s.handleListDays)

		api.POST("/sessions", s.handleStartSession)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleGetSession)
		api.POST("/sessions/:id/pause", s.sessionOp(s.manager.Pause))
		api.POST("/sessions/:id/resume", s.sessionOp(s.manager.Resume))
		api.POST("/sessions/:id/skip-break", s.sessionOp(s.manager.SkipBreak))
		api.POST("/sessions/:id/start-break", s.sessionOp(s.manager.StartBreak))
		api.POST("/sessions/:id/stop", s.handleStopSession)

		api.GET("/settings", s.handleGetSettings)
		api.PUT("/settings", s.handleUpdateSettings)

		api.GET("/profiles/:uid", s.handleGetProfile)
		api.PUT("/profiles/:uid", s.handlePutProfile)

		api.GET("/stats/summary", s.handleStatsSummary)
		api.GET("/stats/daily", s.handleStatsDaily)
		api.GET("/stats/tasks/:taskId", s.handleStatsForTask)
	}

	if s.staticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.staticDir))))
	}

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// handleWebSocket upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	s.subscriptionsMu.Lock()
	s.subscriptions[c] = make(map[string]string)
	s.subscriptionsMu.Unlock()

	// Send current timer state so the client renders without waiting for
	// the next tick, then follow every live session.
	s.sendSessionSnapshots(c)
	s.subscribeClientToSessions(c)

	go c.writePump()
	go c.readPump()
}

// sendSessionSnapshots sends a state message for every session to a client.
func (s *Server) sendSessionSnapshots(c *client) {
	for _, info := range s.manager.List() {
		msg, err := protocol.NewMessage(protocol.TypeTimerState, eventPayload(pomodoro.Event{
			SessionID: info.ID,
			OwnerID:   info.OwnerID,
			Type:      pomodoro.EventStateChange,
			Status:    info.Status,
		}))
		if err != nil {
			continue
		}
		c.trySend(msg)
	}
}

// readPump reads messages from the WebSocket connection.
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}

		c.server.handleMessage(c, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a message for the client, dropping it if the buffer is
// full or the client has disconnected.
func (c *client) trySend(msg *protocol.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// closeSend marks the client closed and closes its send channel exactly once.
func (c *client) closeSend() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// removeClient cleans up a disconnected client.
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	delete(s.clients, c)
	s.clientsMu.Unlock()

	s.subscriptionsMu.Lock()
	subs := s.subscriptions[c]
	delete(s.subscriptions, c)
	s.subscriptionsMu.Unlock()

	for sessionID, subID := range subs {
		s.manager.Unsubscribe(sessionID, subID)
	}

	c.closeSend()
}

// handleMessage processes a validated client message.
func (s *Server) handleMessage(c *client, raw []byte) {
	msg, err := protocol.ValidateClientMessage(raw)
	if err != nil {
		s.sendError(c, protocol.ErrInvalidMessage, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeTimerStart:
		s.handleWSStart(c, msg)
	case protocol.TypeTimerStartBreak:
		s.handleWSSessionOp(c, msg, s.manager.StartBreak)
	case protocol.TypeTimerPause:
		s.handleWSSessionOp(c, msg, s.manager.Pause)
	case protocol.TypeTimerResume:
		s.handleWSSessionOp(c, msg, s.manager.Resume)
	case protocol.TypeTimerSkipBreak:
		s.handleWSSessionOp(c, msg, s.manager.SkipBreak)
	case protocol.TypeTimerStop:
		s.handleWSStop(c, msg)
	case protocol.TypeTimerSubscribe:
		s.handleWSSubscribe(c, msg)
	}
}

func (s *Server) handleWSStart(c *client, msg *protocol.Message) {
	var payload protocol.TimerStartPayload
	json.Unmarshal(msg.Payload, &payload)

	info, err := s.manager.Start(payload.OwnerID, payload.TaskID)
	if err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}

	// The start event already sits in the session's history buffer, so
	// subscribers catching up now still see it.
	s.subscribeAllClients(info.ID)
}

func (s *Server) handleWSSessionOp(c *client, msg *protocol.Message, op func(string) (pomodoro.SessionInfo, error)) {
	var payload protocol.SessionIDPayload
	json.Unmarshal(msg.Payload, &payload)

	if _, err := op(payload.SessionID); err != nil {
		s.sendError(c, errorCode(err), err.Error())
	}
}

func (s *Server) handleWSSubscribe(c *client, msg *protocol.Message) {
	var payload protocol.SessionIDPayload
	json.Unmarshal(msg.Payload, &payload)

	if _, err := s.manager.Get(payload.SessionID); err != nil {
		s.sendError(c, errorCode(err), err.Error())
		return
	}
	s.subscribeClient(c, payload.SessionID)
}

func (s *Server) handleWSStop(c *client, msg *protocol.Message) {
	var payload protocol.TimerStopPayload
	json.Unmarshal(msg.Payload, &payload)

	if _, err := s.manager.Stop(payload.SessionID, payload.LogInterruption, payload.Note); err != nil {
		s.sendError(c, errorCode(err), err.Error())
	}
}

// subscribeAllClients subscribes all connected clients to a session's events.
func (s *Server) subscribeAllClients(sessionID string) {
	s.clientsMu.RLock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.RUnlock()

	for _, c := range clients {
		s.subscribeClient(c, sessionID)
	}
}

// subscribeClientToSessions subscribes a single client to every session.
// Called when a new WebSocket connection is established so the client
// receives events from sessions started before this connection.
func (s *Server) subscribeClientToSessions(c *client) {
	for _, info := range s.manager.List() {
		s.subscribeClient(c, info.ID)
	}
}

// subscribeClient subscribes a single client to a session's events. The
// lock is held across check and register so concurrent callers (a new
// connection racing another client's start) cannot double-subscribe.
func (s *Server) subscribeClient(c *client, sessionID string) {
	s.subscriptionsMu.Lock()
	defer s.subscriptionsMu.Unlock()

	subs, ok := s.subscriptions[c]
	if !ok {
		return // Client already disconnected.
	}
	if _, exists := subs[sessionID]; exists {
		return // Already subscribed.
	}

	subID, ch, history, err := s.manager.Subscribe(sessionID)
	if err != nil {
		return
	}
	subs[sessionID] = subID

	for _, event := range history {
		s.sendEvent(c, event)
	}

	go func() {
		for event := range ch {
			s.sendEvent(c, event)
		}
	}()
}

func (s *Server) sendEvent(c *client, event pomodoro.Event) {
	msgType := protocol.TypeTimerState
	switch event.Type {
	case pomodoro.EventProgress:
		msgType = protocol.TypeTimerUpdate
	case pomodoro.EventStopped:
		msgType = protocol.TypeTimerStopped
	}

	msg, err := protocol.NewMessage(msgType, eventPayload(event))
	if err != nil {
		return
	}
	c.trySend(msg)
}

func (s *Server) sendError(c *client, code, message string) {
	msg, err := protocol.NewErrorMessage(code, message)
	if err != nil {
		return
	}
	c.trySend(msg)
}

func eventPayload(event pomodoro.Event) protocol.TimerEventPayload {
	return protocol.TimerEventPayload{
		SessionID:             event.SessionID,
		OwnerID:               event.OwnerID,
		Event:                 string(event.Type),
		TaskID:                event.Status.TaskID,
		Phase:                 string(event.Status.Phase),
		PausedFrom:            string(event.Status.PausedFrom),
		PendingBreak:          string(event.Status.PendingBreak),
		RemainingSeconds:      event.Status.Remaining,
		CompletedWorkSessions: event.Status.Completed,
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, pomodoro.ErrNotFound):
		return protocol.ErrSessionNotFound
	case errors.Is(err, pomodoro.ErrSessionActive):
		return protocol.ErrSessionActive
	case errors.Is(err, pomodoro.ErrTooManySessions):
		return protocol.ErrMaxSessions
	case errors.Is(err, pomodoro.ErrInvalidTransition):
		return protocol.ErrInvalidTransition
	default:
		return protocol.ErrInvalidMessage
	}
}
