package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/pkg/models"
	"github.com/arnavshah/oh-scheduler-go/pkg/report"
)

// Solve runs the optimizer on caller-supplied inputs. Nothing is stored.
func (h *Handler) Solve(c *gin.Context) {
	var req models.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in := req.Inputs
	if len(req.Emails) != 0 && len(req.Emails) != in.StaffCount() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%d emails for %d staff", len(req.Emails), in.StaffCount())})
		return
	}

	cfg := h.Solver
	if limit := time.Duration(req.TimeLimitSeconds) * time.Second; limit > 0 && limit < cfg.TimeLimit {
		cfg.TimeLimit = limit
	}

	res, err := optimizer.Solve(c.Request.Context(), in, cfg)
	h.RecordUsage(c, 1, in.StaffCount())
	if err != nil {
		h.fail(c, err)
		return
	}

	staff := make([]report.Staff, in.StaffCount())
	for i := range staff {
		staff[i] = report.Staff{
			Email:         fmt.Sprintf("staff-%d", i),
			Availability:  in.Availability[i],
			WeeklyTarget:  in.WeeklyTarget[i],
			MaxContiguous: in.MaxContiguous[i],
			Assignment:    res.Assignment[i],
		}
		if len(req.Emails) > 0 {
			staff[i].Email = req.Emails[i]
		}
	}

	c.JSON(http.StatusOK, models.SolveResponse{
		Status:     res.Status,
		Assignment: res.Assignment,
		Horizon:    res.Horizon,
		Objective:  res.Objective,
		Gap:        res.Gap,
		Passes:     res.Passes,
		ElapsedMS:  res.Elapsed.Milliseconds(),
		Report:     report.Build(0, in.FutureDemand[0], staff, cfg.MaxWeeklyOverage),
	})
}
