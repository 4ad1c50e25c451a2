package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/guildsync/backend/internal/models"
	"github.com/guildsync/backend/internal/state"
)

// ActionLogReader lists recent action log entries.
type ActionLogReader interface {
	List(limit int) ([]models.ActionLogEntry, error)
}

// MemberHandler serves the read side of the mirror: member listings and
// the aggregate stats. Dashboards use these for their periodic full
// re-fetch, the consistency backstop for missed broadcasts.
type MemberHandler struct {
	store *state.Store
	log   ActionLogReader
}

func NewMemberHandler(store *state.Store, log ActionLogReader) *MemberHandler {
	return &MemberHandler{store: store, log: log}
}

// GetMembers returns every mirrored member record
func (h *MemberHandler) GetMembers(c *gin.Context) {
	members, err := h.store.GetAll()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list members")
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "count": len(members)})
}

// GetMember returns a single member record
func (h *MemberHandler) GetMember(c *gin.Context) {
	member, ok, err := h.store.GetByID(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get member")
		return
	}
	if !ok {
		NotFoundResponse(c, "Member")
		return
	}
	c.JSON(http.StatusOK, member)
}

// CreateMember provisions a member record outside the gateway flow
func (h *MemberHandler) CreateMember(c *gin.Context) {
	var req struct {
		ID          string `json:"id" binding:"required"`
		DisplayName string `json:"display_name"`
		Handle      string `json:"handle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, ok, _ := h.store.GetByID(req.ID); ok {
		ErrorResponse(c, http.StatusConflict, "Member already exists")
		return
	}

	member, err := h.store.Create(&models.Member{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Handle:      req.Handle,
	})
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create member")
		return
	}
	c.JSON(http.StatusCreated, member)
}

// GetStats returns the aggregate stats singleton
func (h *MemberHandler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetActionLog returns recent moderation actions, newest first
func (h *MemberHandler) GetActionLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := h.log.List(limit)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list actions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": entries})
}

// SetBalance overrides a member's balance with an absolute amount
func (h *MemberHandler) SetBalance(c *gin.Context) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ok, err := h.store.SetBalance(c.Param("id"), req.Amount)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		NotFoundResponse(c, "Member")
		return
	}
	c.Status(http.StatusNoContent)
}

// AddBalance applies a signed delta to a member's balance
func (h *MemberHandler) AddBalance(c *gin.Context) {
	var req struct {
		Delta int64 `json:"delta"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, ok, err := h.store.AddBalance(c.Param("id"), req.Delta)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to update balance")
		return
	}
	if !ok {
		NotFoundResponse(c, "Member")
		return
	}
	c.JSON(http.StatusOK, member)
}
