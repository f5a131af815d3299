package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feedcloud/internal/auth"
	"feedcloud/internal/database"
	"feedcloud/internal/queue"
)

type FeedHandler struct {
	db     database.Database
	broker queue.Broker
}

func NewFeedHandler(db database.Database, broker queue.Broker) *FeedHandler {
	return &FeedHandler{db: db, broker: broker}
}

type createFeedRequest struct {
	URL string `json:"url" binding:"required"`
}

// CreateFeed implements POST /feeds/.
func (h *FeedHandler) CreateFeed(c *gin.Context) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "url is required"})
		return
	}

	feed := &database.Feed{URL: req.URL, UserID: user.ID}
	err := h.db.CreateFeed(c.Request.Context(), feed)
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"message": "feed already exists"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("feed handler: create feed failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Created"})
}

// DeleteFeed implements DELETE /feeds/:id.
func (h *FeedHandler) DeleteFeed(c *gin.Context) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	feedID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := h.db.DeleteFeed(c.Request.Context(), user.ID, feedID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "feed not found"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("feed handler: delete feed failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ForceRunFeed implements PUT /feeds/:id/force-run: validates ownership and
// enqueues a download_feed task independent of scheduler state, without
// touching any FeedUpdateRun history.
func (h *FeedHandler) ForceRunFeed(c *gin.Context) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	feedID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	_, err := h.db.GetFeedForUser(c.Request.Context(), user.ID, feedID)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "feed not found"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("feed handler: load feed failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	if err := h.broker.Enqueue(c.Request.Context(), queue.KindDownloadFeed, feedID); err != nil {
		logrus.WithError(err).WithField("feed_id", feedID).Error("feed handler: enqueue force-run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "queued"})
}

// ListFeeds implements GET /feeds/.
func (h *FeedHandler) ListFeeds(c *gin.Context) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	feeds, err := h.db.ListFeedsForUser(c.Request.Context(), user.ID)
	if err != nil {
		logrus.WithError(err).Error("feed handler: list feeds failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	if feeds == nil {
		feeds = []database.Feed{}
	}

	c.JSON(http.StatusOK, gin.H{"feeds": feeds})
}

// ListFeedEntries implements GET /feeds/:id/entries/?status=.
func (h *FeedHandler) ListFeedEntries(c *gin.Context) {
	user, ok := auth.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
		return
	}

	feedID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	status, ok := parseStatusParam(c)
	if !ok {
		return
	}

	entries, err := h.db.ListEntriesForFeed(c.Request.Context(), user.ID, feedID, status)
	if err != nil {
		logrus.WithError(err).Error("feed handler: list feed entries failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}
	if entries == nil {
		entries = []database.Entry{}
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "not found"})
		return 0, false
	}
	return id, true
}

func parseStatusParam(c *gin.Context) (database.EntryStatus, bool) {
	raw := c.Query("status")
	switch raw {
	case "", "read", "unread":
		return database.EntryStatus(raw), true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "status must be 'read' or 'unread'"})
		return "", false
	}
}
