package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vinaysb/mindcare-navigator/internal/common"
	"github.com/vinaysb/mindcare-navigator/internal/httpapi/middleware"
	"github.com/vinaysb/mindcare-navigator/internal/models"
	"github.com/vinaysb/mindcare-navigator/internal/store"
)

func userIDFromContext(c *gin.Context) uint64 {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint64)
	return id
}

type chatReq struct {
	Message   string `json:"message"`
	Provider  string `json:"provider"`
	Lang      string `json:"lang"`
	SessionID string `json:"session_id"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	uid := userIDFromContext(c)
	res, err := h.ChatSvc.Send(c.Request.Context(), uid, req.SessionID, req.Message, req.Provider, req.Lang)
	if err != nil {
		log.Printf("[chat] send failed uid=%d session_id=%s err=%v", uid, req.SessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":      res.Reply,
		"sentiment":  res.Sentiment,
		"session_id": res.SessionID,
	})
}

func (h *Handler) History(c *gin.Context) {
	uid := userIDFromContext(c)
	sessionID := c.Param("session_id")

	turns := h.ChatSvc.History(c.Request.Context(), uid, sessionID)
	out := make([]gin.H, 0, len(turns))
	for _, t := range turns {
		out = append(out, gin.H{
			"role":    t.Role,
			"content": t.Content,
			"ts":      t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Sessions(c *gin.Context) {
	uid := userIDFromContext(c)
	ids := h.ChatSvc.SessionIDs(c.Request.Context(), uid)
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, ids)
}

func (h *Handler) NewChat(c *gin.Context) {
	sid, err := common.NewULID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sid})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "storage": h.Mode})
}

type chatAsyncReq struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) ChatAsync(c *gin.Context) {
	uid := userIDFromContext(c)

	var req chatAsyncReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message and session_id required"})
		return
	}

	if h.Jobs == nil || h.Rabbit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async chat unavailable"})
		return
	}

	jobID, err := common.NewULID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	job := &models.Job{
		ID:        jobID,
		UserID:    uid,
		SessionID: req.SessionID,
		Prompt:    req.Message,
		Status:    models.JobQueued,
	}
	if err := h.Jobs.CreateJob(c.Request.Context(), job); err != nil {
		log.Printf("[chat_async] create job uid=%d session_id=%s err=%v", uid, req.SessionID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async chat unavailable"})
		return
	}
	if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
		log.Printf("[chat_async] publish job=%s err=%v", job.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "enqueue failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	uid := userIDFromContext(c)
	jobID := c.Param("job_id")

	if h.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async chat unavailable"})
		return
	}

	j, err := h.Jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if j.UserID != uid {
		// hide existence
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": j})
}
