package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/corpact/ruleflow/pkg/api"
	"github.com/corpact/ruleflow/pkg/log"
)

var (
	ErrInvalidJSON   = errors.New("invalid JSON payload")
	ErrDuplicateJob  = errors.New("job is already being processed")
	ErrCheckJobGate  = errors.New("failed to check job submission gate")
	ErrJobNotFound   = errors.New("job not found")
	ErrNoActiveRules = errors.New("no rules loaded")
)

var invalidJobIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.\-+ ]`)

func (s *Server) submitJob(c *gin.Context) {
	var req api.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	jobID := api.JobID(sanitizeJobID(string(req.JobID)))
	if jobID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "Valid Job ID is required",
			Status: http.StatusBadRequest,
		})
		return
	}

	if _, err := s.table.Snapshot(); err != nil {
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  ErrNoActiveRules.Error(),
			Status: http.StatusConflict,
		})
		return
	}

	if !s.acquireJob(c, jobID) {
		return
	}

	go s.runJob(jobID, req.Data)

	c.JSON(http.StatusAccepted, api.JobAcceptedResponse{
		Message: "Job accepted",
		JobID:   jobID,
	})
}

// acquireJob claims the job id through the idempotency gate. Responses for
// rejection paths are written here
func (s *Server) acquireJob(c *gin.Context, jobID api.JobID) bool {
	if s.gate == nil {
		return true
	}

	ok, err := s.gate.Acquire(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrCheckJobGate, err),
			Status: http.StatusInternalServerError,
		})
		return false
	}
	if !ok {
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", ErrDuplicateJob, jobID),
			Status: http.StatusConflict,
		})
		return false
	}
	return true
}

// runJob executes a job detached from the submitting request. A failed or
// aborted job releases its gate claim so the id can be resubmitted
func (s *Server) runJob(jobID api.JobID, data map[string]any) {
	res, err := s.engine.ExecuteJob(context.Background(), jobID, data)
	if err != nil {
		slog.Error("Job execution failed",
			log.JobID(jobID),
			log.Error(err))
	}

	if s.gate != nil && res != nil && res.Status != api.JobCompleted {
		if err := s.gate.Release(context.Background(), jobID); err != nil {
			slog.Error("Failed to release job gate",
				log.JobID(jobID),
				log.Error(err))
		}
	}

	if s.exporter != nil && res != nil {
		err := s.exporter.Export(
			context.Background(), res, s.journal.ByJob(jobID),
		)
		if err != nil {
			slog.Error("Failed to archive audit trail",
				log.JobID(jobID),
				log.Error(err))
		}
	}
}

func (s *Server) getJob(c *gin.Context) {
	jobID := api.JobID(c.Param("jobID"))

	res, ok := s.engine.Result(jobID)
	if !ok {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %s", ErrJobNotFound, jobID),
			Status: http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, res)
}

func sanitizeJobID(id string) string {
	sanitized := invalidJobIDChars.ReplaceAllString(id, "")
	sanitized = strings.ReplaceAll(sanitized, " ", "-")
	return strings.Trim(sanitized, "-")
}
