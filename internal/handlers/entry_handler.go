package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feedcloud/internal/auth"
	"feedcloud/internal/database"
)

type EntryHandler struct {
	db database.Database
}

func NewEntryHandler(db database.Database) *EntryHandler {
	return &EntryHandler{db: db}
}

// ListEntries implements GET /entries/?status=, across all of the caller's
// feeds.
func (h *EntryHandler) ListEntries(c *gin.Context) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	status, ok := parseStatusParam(c)
	if !ok {
		return
	}

	entries, err := h.db.ListEntriesForUser(c.Request.Context(), user.ID, status)
	if err != nil {
		logrus.WithError(err).Error("entry handler: list entries failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	if entries == nil {
		entries = []database.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type updateEntryRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateEntry implements PUT /entries/:id.
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	entryID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "status is required"})
		return
	}
	if req.Status != string(database.EntryRead) && req.Status != string(database.EntryUnread) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "status must be 'read' or 'unread'"})
		return
	}

	err := h.db.UpdateEntryStatus(c.Request.Context(), user.ID, entryID, database.EntryStatus(req.Status))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "entry not found"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("entry handler: update entry failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
