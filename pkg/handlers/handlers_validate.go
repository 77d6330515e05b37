package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/pkg/ingest"
	"github.com/arnavshah/oh-scheduler-go/pkg/models"
)

// ValidateAvailability checks availability rows without scheduling. It
// accepts JSON rows or a multipart "availability_file" CSV export of the
// form, header included.
func (h *Handler) ValidateAvailability(c *gin.Context) {
	var rows []roster.AvailabilityRow
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("availability_file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": "availability_file is required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"valid": false, "error": "Failed to open availability file"})
			return
		}
		defer f.Close()

		values, err := ingest.ReadCSV(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
			return
		}
		rows, err = ingest.ParseAvailability(values)
		if err != nil {
			c.JSON(http.StatusOK, models.ValidateResponse{Valid: false, Errors: []string{err.Error()}})
			return
		}
	} else {
		var req models.ValidateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
			return
		}
		rows = req.Rows
		for i := range rows {
			rows[i].Email = roster.NormalizeEmail(rows[i].Email)
		}
	}

	var resp models.ValidateResponse
	resp.Stats.RowCount = len(rows)
	resp.Stats.StaffCount = len(roster.LatestByEmail(rows))
	if err := roster.ValidateRows(rows); err != nil {
		resp.Errors = splitJoined(err)
	}
	resp.Valid = len(resp.Errors) == 0
	c.JSON(http.StatusOK, resp)
}

// splitJoined lists the messages of an errors.Join result.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
