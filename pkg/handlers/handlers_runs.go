package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/oh-scheduler-go/pkg/database"
)

func (h *Handler) requireRunner(c *gin.Context) bool {
	if h.Runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No section configured on this server"})
		return false
	}
	return true
}

// RunWeek schedules and persists the next week
func (h *Handler) RunWeek(c *gin.Context) {
	if !h.requireRunner(c) {
		return
	}
	out, err := h.Runner.RunWeek(c.Request.Context())
	h.RecordUsage(c, 1, len(out.Emails))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// PreviewWeek solves the next week without saving anything
func (h *Handler) PreviewWeek(c *gin.Context) {
	if !h.requireRunner(c) {
		return
	}
	out, err := h.Runner.Preview(c.Request.Context())
	h.RecordUsage(c, 1, len(out.Emails))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ListWeeks returns the persisted week numbers
func (h *Handler) ListWeeks(c *gin.Context) {
	if !h.requireRunner(c) {
		return
	}
	weeks, err := h.Runner.Weeks(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prefix": h.Runner.Settings().Prefix, "weeks": weeks})
}

func weekParam(c *gin.Context) (int, bool) {
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil || week < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "week must be a positive integer"})
		return 0, false
	}
	return week, true
}

// GetWeek summarises a persisted week
func (h *Handler) GetWeek(c *gin.Context) {
	if !h.requireRunner(c) {
		return
	}
	week, ok := weekParam(c)
	if !ok {
		return
	}
	summary, err := h.Runner.Week(c.Request.Context(), week)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetStaffWeek returns one staff member's record for a week
func (h *Handler) GetStaffWeek(c *gin.Context) {
	if !h.requireRunner(c) {
		return
	}
	week, ok := weekParam(c)
	if !ok {
		return
	}
	staff, err := h.Runner.StaffWeek(c.Request.Context(), week, c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

// ListRuns returns recent run history, newest first
func (h *Handler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}
	q := h.DB.Order("created_at desc").Limit(limit)
	if prefix := c.Query("prefix"); prefix != "" {
		q = q.Where("prefix = ?", prefix)
	}
	var runs []database.RunRecord
	if err := q.Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
