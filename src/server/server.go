package server

import (
	"fmt"
	"strings"
	"sync"

	"sol-terminal/src/logger"
	"sol-terminal/src/metrics"
	"sol-terminal/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// TerminalServer
// -----------------------------------------------------------------------------

type TerminalServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	engine  *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MSnapshot // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local cache of the last published snapshot
	latestSnap *models.MSnapshot
	stateMutex sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewTerminalServer(cfg *models.MConfig, m *metrics.Metrics, logger *logger.Logger) *TerminalServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &TerminalServer{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so a publication burst never blocks the publisher
		broadcast:  make(chan *models.MSnapshot, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *TerminalServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/snapshot", s.getSnapshot)
	s.engine.GET("/api/config", s.getConfig)
	s.engine.GET("/api/conditions", s.getConditions)

	// Prometheus exposition
	if s.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *TerminalServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *TerminalServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *TerminalServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	var timestamp int64
	var state string
	if s.latestSnap != nil {
		timestamp = s.latestSnap.Timestamp
		state = s.latestSnap.Connection.State.String()
	}
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"feed_state":    state,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *TerminalServer) getSnapshot(c *gin.Context) {
	s.stateMutex.RLock()
	snap := s.latestSnap
	s.stateMutex.RUnlock()

	if snap == nil {
		c.JSON(503, gin.H{"error": "no snapshot published yet"})
		return
	}
	c.JSON(200, snap)
}

// -----------------------------------------------------------------------------

func (s *TerminalServer) getConfig(c *gin.Context) {
	pools := make([]gin.H, 0, len(s.Config.Pools))
	for _, pool := range s.Config.Pools {
		if !pool.Enabled {
			continue
		}
		pools = append(pools, gin.H{
			"name": pool.Name,
			"pair": pool.Pair,
			"dex":  pool.Dex,
		})
	}

	c.JSON(200, gin.H{
		"windows": s.Config.WindowsAgg,
		"pools":   pools,
	})
}

// -----------------------------------------------------------------------------

func (s *TerminalServer) getConditions(c *gin.Context) {
	s.stateMutex.RLock()
	snap := s.latestSnap
	s.stateMutex.RUnlock()

	if snap == nil {
		c.JSON(200, gin.H{"conditions": []models.MCondition{}})
		return
	}
	c.JSON(200, gin.H{"conditions": snap.Conditions})
}
