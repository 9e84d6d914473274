package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corpact/ruleflow/pkg/api"
)

func (s *Server) submitVote(c *gin.Context) {
	txID := api.TxID(c.Param("txID"))

	var req api.SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrInvalidJSON, err),
			Status: http.StatusBadRequest,
		})
		return
	}
	if req.ApproverID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  "Approver ID is required",
			Status: http.StatusBadRequest,
		})
		return
	}

	status := s.engine.Coordinator().SubmitVote(txID, req.ApproverID)
	if status == api.VoteNotWaiting {
		c.JSON(http.StatusConflict, api.ErrorResponse{
			Error:  fmt.Sprintf("No transaction awaiting consensus: %s", txID),
			Status: http.StatusConflict,
		})
		return
	}

	c.JSON(http.StatusOK, api.VoteResponse{
		TxID:   txID,
		Status: status,
	})
}
