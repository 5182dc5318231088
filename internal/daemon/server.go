package daemon

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mfreitas/voxprep/internal/presence"
	"github.com/mfreitas/voxprep/internal/relay"
	"github.com/mfreitas/voxprep/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server manages the relay HTTP listener: the websocket endpoint plus the
// read-only API and operational surfaces.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The relay performs no identity verification; origin checks belong to
	// the deployment in front of it.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewServer builds the gin router and HTTP server for the relay.
func NewServer(
	addr string,
	logger *zap.Logger,
	hub *relay.Hub,
	pres *presence.Store,
	db *store.DB,
	promReg *prometheus.Registry,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ws", func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		relay.ServeWS(hub, ws)
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	{
		api.GET("/presence", func(c *gin.Context) {
			window := presence.KnownWindow
			if raw := c.Query("window"); raw != "" {
				secs, err := strconv.Atoi(raw)
				if err != nil || secs <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window"})
					return
				}
				window = time.Duration(secs) * time.Second
			}
			users, err := pres.ListActive(window)
			if err != nil {
				logger.Error("presence query failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "presence unavailable"})
				return
			}
			entries := make([]relay.PresenceEntry, 0, len(users))
			for _, u := range users {
				entries = append(entries, relay.PresenceEntry{ID: u.ID, Name: u.Name, Role: u.Role, LastSeen: u.LastSeen})
			}
			c.JSON(http.StatusOK, gin.H{"users": entries})
		})

		api.GET("/history", func(c *gin.Context) {
			a, b := c.Query("a"), c.Query("b")
			if a == "" || b == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "a and b are required"})
				return
			}
			msgs, err := db.ListMessagesBetween(a, b)
			if err != nil {
				logger.Error("history query failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"messages": msgs})
		})
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("relay server starting", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("relay server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("shutdown error", zap.Error(err))
	}
}
