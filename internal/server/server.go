package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/corpact/ruleflow/internal/archive"
	"github.com/corpact/ruleflow/internal/audit"
	"github.com/corpact/ruleflow/internal/config"
	"github.com/corpact/ruleflow/internal/engine"
	"github.com/corpact/ruleflow/internal/idempotency"
	"github.com/corpact/ruleflow/internal/rules"
)

// Server implements the HTTP API server for the transaction engine
type Server struct {
	cfg      *config.Config
	engine   *engine.Engine
	table    *rules.Table
	gate     *idempotency.Gate
	exporter *archive.Exporter
	journal  *audit.MemoryRecorder
	sockets  map[*Client]struct{}
	mu       sync.Mutex
}

// NewServer creates a new HTTP API server. The idempotency gate may be
// nil, in which case duplicate job ids are not rejected
func NewServer(
	cfg *config.Config, eng *engine.Engine, table *rules.Table,
	gate *idempotency.Gate,
) *Server {
	return &Server{
		cfg:     cfg,
		engine:  eng,
		table:   table,
		gate:    gate,
		sockets: map[*Client]struct{}{},
	}
}

// EnableArchive exports each job's audit trail to the bucket on terminal
// result. The journal supplies the records to export
func (s *Server) EnableArchive(
	exp *archive.Exporter, journal *audit.MemoryRecorder,
) {
	s.exporter = exp
	s.journal = journal
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return slog.Default()
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Job endpoints
	router.POST("/jobs", s.submitJob)
	router.GET("/jobs/:jobID", s.getJob)

	// Consensus votes
	router.POST("/consensus/:txID/votes", s.submitVote)

	// Rule table
	router.GET("/rules", s.getRules)
	router.POST("/rules/reload", s.reloadRules)

	// WebSocket
	router.GET("/ws", s.handleWebSocket)

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[c] = struct{}{}
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
