package realtime

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tasktimer/internal/pomodoro"
	"tasktimer/internal/profile"
	"tasktimer/internal/task"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps store and manager errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pomodoro.ErrNotFound),
		errors.Is(err, task.ErrNotFound),
		errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pomodoro.ErrSessionActive),
		errors.Is(err, pomodoro.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, pomodoro.ErrTooManySessions):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// Tasks.

func (s *Server) handleCreateTask(c *gin.Context) {
	var t task.Task
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if t.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	if err := s.tasks.Create(&t); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleListTasks(c *gin.Context) {
	f := task.Filter{
		Day:    c.Query("day"),
		From:   c.Query("from"),
		To:     c.Query("to"),
		Status: task.Status(c.Query("status")),
		Tag:    c.Query("tag"),
	}

	tasks, err := s.tasks.List(f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := s.tasks.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var t task.Task
	if err := c.ShouldBindJSON(&t); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	t.ID = id

	if err := s.tasks.Update(&t); err != nil {
		fail(c, err)
		return
	}

	updated, err := s.tasks.Get(id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.tasks.Delete(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type addSubtaskRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleAddSubtask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req addSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	sub, err := s.tasks.AddSubtask(id, req.Title)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

type updateSubtaskRequest struct {
	Done bool `json:"done"`
}

func (s *Server) handleUpdateSubtask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.tasks.SetSubtaskDone(id, req.Done); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.tasks.DeleteSubtask(id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type tagRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleTagTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := s.tasks.TagTask(id, req.Name); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "tagged"})
}

func (s *Server) handleUntagTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.tasks.UntagTask(id, c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "untagged"})
}

func (s *Server) handleListTags(c *gin.Context) {
	tags, err := s.tasks.Tags()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (s *Server) handleListDays(c *gin.Context) {
	days, err := s.tasks.Days()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// Sessions.

type startSessionRequest struct {
	OwnerID string `json:"ownerId"`
	TaskID  string `json:"taskId"`
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.OwnerID == "" || req.TaskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ownerId and taskId are required"})
		return
	}

	info, err := s.manager.Start(req.OwnerID, req.TaskID)
	if err != nil {
		fail(c, err)
		return
	}

	s.subscribeAllClients(info.ID)
	c.JSON(http.StatusCreated, info)
}

func (s *Server) handleListSessions(c *gin.Context) {
	if owner := c.Query("owner"); owner != "" {
		info, ok := s.manager.GetByOwner(owner)
		if !ok {
			c.JSON(http.StatusOK, []pomodoro.SessionInfo{})
			return
		}
		c.JSON(http.StatusOK, []pomodoro.SessionInfo{info})
		return
	}
	c.JSON(http.StatusOK, s.manager.List())
}

func (s *Server) handleGetSession(c *gin.Context) {
	info, err := s.manager.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// sessionOp builds a handler for transitions addressed purely by session ID.
func (s *Server) sessionOp(op func(string) (pomodoro.SessionInfo, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := op(c.Param("id"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

type stopSessionRequest struct {
	LogInterruption bool   `json:"logInterruption"`
	Note            string `json:"note"`
}

func (s *Server) handleStopSession(c *gin.Context) {
	var req stopSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	info, err := s.manager.Stop(c.Param("id"), req.LogInterruption, req.Note)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Settings.

func (s *Server) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.manager.Settings())
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var settings pomodoro.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s.manager.UpdateSettings(settings)
	c.JSON(http.StatusOK, s.manager.Settings())
}

// Profiles.

func (s *Server) handleGetProfile(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile sync not configured"})
		return
	}

	p, err := s.profiles.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handlePutProfile(c *gin.Context) {
	if s.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "profile sync not configured"})
		return
	}

	var p profile.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.profiles.Put(c.Request.Context(), c.Param("uid"), p); err != nil {
		// The cache already holds the edit; the remote write failed.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// Stats.

func (s *Server) handleStatsSummary(c *gin.Context) {
	summary, err := s.stats.Summary()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleStatsDaily(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -6).Truncate(24 * time.Hour)

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' date, want YYYY-MM-DD"})
			return
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' date, want YYYY-MM-DD"})
			return
		}
		to = parsed.Add(24*time.Hour - time.Second)
	}

	buckets, err := s.stats.Daily(from, to)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

func (s *Server) handleStatsForTask(c *gin.Context) {
	records, err := s.stats.ForTask(c.Param("taskId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}
