package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arnavshah/oh-scheduler-go/pkg/database"
)

// usageDays is how much daily history a key sees.
const usageDays = 30

type usageTotals struct {
	Requests int64 `json:"requests"`
	Solves   int64 `json:"solves"`
	Staff    int64 `json:"staff"`
}

func sumUsage(days []database.APIUsage) usageTotals {
	var t usageTotals
	for _, u := range days {
		t.Requests += int64(u.RequestCount)
		t.Solves += int64(u.TotalSolves)
		t.Staff += int64(u.TotalStaff)
	}
	return t
}

// runsByStatus counts recorded runs for a section prefix, keyed by outcome.
func runsByStatus(db *gorm.DB, prefix string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Runs   int64
	}
	err := db.Model(&database.RunRecord{}).
		Select("status, count(*) as runs").
		Where("prefix = ?", prefix).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Runs
	}
	return out, nil
}

// GetMyUsage reports the caller's request history and, when this server
// schedules a section, how that section's runs have ended.
func (h *Handler) GetMyUsage(c *gin.Context) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	var days []database.APIUsage
	if err := h.DB.Where("key_id = ?", apiKey.ID).Order("date desc").Limit(usageDays).Find(&days).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch usage details"})
		return
	}

	resp := gin.H{
		"key_name":      apiKey.Name,
		"rate_limit":    apiKey.RateLimit,
		"usage_history": days,
		"totals":        sumUsage(days),
	}
	if h.Runner != nil {
		prefix := h.Runner.Settings().Prefix
		runs, err := runsByStatus(h.DB, prefix)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch run history"})
			return
		}
		resp["section"] = prefix
		resp["runs"] = runs
	}
	c.JSON(http.StatusOK, resp)
}
