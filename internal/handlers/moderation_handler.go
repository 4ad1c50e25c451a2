package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guildsync/backend/internal/moderation"
)

// ModerationHandler exposes the moderation executor to operator clients.
// Every response reports only the primary outcome; auxiliary notice
// failures are logged by the executor and do not surface here.
type ModerationHandler struct {
	executor *moderation.Executor
}

func NewModerationHandler(executor *moderation.Executor) *ModerationHandler {
	return &ModerationHandler{executor: executor}
}

func actorLabel(c *gin.Context) string {
	if actor, ok := c.Get("actor"); ok {
		if label, ok := actor.(string); ok {
			return label
		}
	}
	return "operator"
}

type removalRequest struct {
	Reason     *string `json:"reason,omitempty"`
	SendInvite bool    `json:"send_invite,omitempty"`
}

// EvictMember kicks a member
func (h *ModerationHandler) EvictMember(c *gin.Context) {
	var req removalRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	res := h.executor.Evict(c.Request.Context(), c.Param("id"), actorLabel(c), req.Reason)
	c.JSON(http.StatusOK, gin.H{"ok": res.OK()})
}

// ExileMember bans a member
func (h *ModerationHandler) ExileMember(c *gin.Context) {
	var req removalRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	res := h.executor.Exile(c.Request.Context(), c.Param("id"), actorLabel(c), req.Reason, req.SendInvite)
	c.JSON(http.StatusOK, gin.H{"ok": res.OK()})
}

// AddMemberTag assigns a community role tag to a member
func (h *ModerationHandler) AddMemberTag(c *gin.Context) {
	err := h.executor.AddTag(c.Request.Context(), c.Param("id"), c.Param("tag_id"))
	c.JSON(http.StatusOK, gin.H{"ok": err == nil})
}

// RemoveMemberTag removes a community role tag from a member
func (h *ModerationHandler) RemoveMemberTag(c *gin.Context) {
	err := h.executor.RemoveTag(c.Request.Context(), c.Param("id"), c.Param("tag_id"))
	c.JSON(http.StatusOK, gin.H{"ok": err == nil})
}

// GetRoles lists community roles sorted by descending position
func (h *ModerationHandler) GetRoles(c *gin.Context) {
	roles, err := h.executor.ListRoles(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusBadGateway, "Failed to list roles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}

// CreateRole creates a new community role
func (h *ModerationHandler) CreateRole(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Color       int    `json:"color"`
		Permissions uint64 `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	role, err := h.executor.CreateRole(c.Request.Context(), req.Name, req.Color, req.Permissions)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"role": nil})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"role": role})
}
