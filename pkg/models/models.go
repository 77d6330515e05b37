package models

import (
	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
	"github.com/arnavshah/oh-scheduler-go/pkg/report"
)

// LoginRequest is the admin login body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// KeyRequest creates an API key
type KeyRequest struct {
	Name      string `json:"name" binding:"required"`
	RateLimit int    `json:"rate_limit" binding:"gte=0"`
}

// RateLimitRequest changes a key's daily request limit
type RateLimitRequest struct {
	RateLimit int `json:"rate_limit" form:"rate_limit" binding:"required,gt=0"`
}

// SolveRequest is a stateless solve: the caller supplies every input.
type SolveRequest struct {
	Inputs *optimizer.Inputs `json:"inputs" binding:"required"`
	// Emails label staff in the report, by index. Optional.
	Emails           []string `json:"emails,omitempty"`
	TimeLimitSeconds int      `json:"time_limit_seconds,omitempty" binding:"gte=0"`
}

// SolveResponse is the result of a stateless solve
type SolveResponse struct {
	Status     optimizer.Status    `json:"status"`
	Assignment []grid.Grid         `json:"assignment"`
	Horizon    int                 `json:"horizon"`
	Objective  optimizer.Breakdown `json:"objective"`
	Gap        float64             `json:"gap"`
	Passes     int                 `json:"passes"`
	ElapsedMS  int64               `json:"elapsed_ms"`
	Report     *report.Report      `json:"report"`
}

// ValidateRequest checks availability rows without scheduling
type ValidateRequest struct {
	Rows []roster.AvailabilityRow `json:"rows" binding:"required,min=1"`
}

// ValidateResponse lists every problem found
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
	Stats  struct {
		RowCount   int `json:"row_count"`
		StaffCount int `json:"staff_count"`
	} `json:"stats"`
}
