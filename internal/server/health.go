package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corpact/ruleflow/pkg/api"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Service: "ruleflow-engine",
		Status:  "healthy",
		Pending: s.engine.Coordinator().Pending(),
	})
}
