package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corpact/ruleflow/internal/rules"
	"github.com/corpact/ruleflow/pkg/api"
)

var ErrReloadRules = errors.New("failed to reload rules")

func (s *Server) getRules(c *gin.Context) {
	snap, err := s.table.Snapshot()
	if err != nil {
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Error:  err.Error(),
			Status: http.StatusNotFound,
		})
		return
	}

	c.JSON(http.StatusOK, api.RulesResponse{
		Blocks: snap.Blocks,
		Count:  len(snap.Rules),
	})
}

// reloadRules re-reads the configured rule file and swaps the new set in.
// A bad file leaves the active set untouched
func (s *Server) reloadRules(c *gin.Context) {
	loaded, err := rules.Load(s.cfg.RuleFile)
	if err == nil {
		err = s.table.Replace(loaded)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:  fmt.Sprintf("%s: %v", ErrReloadRules, err),
			Status: http.StatusBadRequest,
		})
		return
	}

	slog.Info("Rule table reloaded",
		slog.String("source", s.cfg.RuleFile),
		slog.Int("rules", len(loaded)))

	c.JSON(http.StatusOK, api.MessageResponse{
		Message: fmt.Sprintf("Loaded %d rules", len(loaded)),
	})
}
