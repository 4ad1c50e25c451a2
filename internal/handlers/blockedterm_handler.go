package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guildsync/backend/internal/models"
	"github.com/guildsync/backend/internal/repository"
)

// BlockedTermStore is the persistence surface for the blocked-term table.
type BlockedTermStore interface {
	List() ([]models.BlockedTerm, error)
	Add(t *models.BlockedTerm) error
	Remove(id string) (bool, error)
}

// TermInvalidator drops any cached copy of the term list after a mutation.
type TermInvalidator interface {
	Invalidate()
}

// BlockedTermHandler manages the message filter's term set
type BlockedTermHandler struct {
	terms BlockedTermStore
	cache TermInvalidator
}

func NewBlockedTermHandler(terms BlockedTermStore, cache TermInvalidator) *BlockedTermHandler {
	return &BlockedTermHandler{terms: terms, cache: cache}
}

// GetTerms lists all blocked terms
func (h *BlockedTermHandler) GetTerms(c *gin.Context) {
	terms, err := h.terms.List()
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list blocked terms")
		return
	}
	c.JSON(http.StatusOK, gin.H{"terms": terms})
}

// AddTerm inserts a new blocked term; duplicates are rejected
func (h *BlockedTermHandler) AddTerm(c *gin.Context) {
	var req struct {
		Term string `json:"term" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	term := &models.BlockedTerm{
		ID:        uuid.New(),
		Term:      req.Term,
		CreatedBy: actorLabel(c),
		CreatedAt: time.Now(),
	}
	if err := h.terms.Add(term); err != nil {
		if errors.Is(err, repository.ErrDuplicateTerm) {
			ErrorResponse(c, http.StatusConflict, "Term is already blocked")
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, "Failed to add blocked term")
		return
	}

	if h.cache != nil {
		h.cache.Invalidate()
	}
	c.JSON(http.StatusCreated, term)
}

// RemoveTerm deletes a blocked term by id
func (h *BlockedTermHandler) RemoveTerm(c *gin.Context) {
	ok, err := h.terms.Remove(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to remove blocked term")
		return
	}
	if !ok {
		NotFoundResponse(c, "Blocked term")
		return
	}

	if h.cache != nil {
		h.cache.Invalidate()
	}
	c.Status(http.StatusNoContent)
}
