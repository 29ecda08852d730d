package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/playernet/internal/auth"
	"github.com/danmuck/playernet/internal/protocol/packet"
	"github.com/danmuck/playernet/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type disconnectRequest struct {
	Reason string `json:"reason"`
	Notify *bool  `json:"notify"`
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) registerRoutes(r *gin.Engine) {
	var validator auth.Validator
	if s.cfg.AdminToken != "" {
		validator = auth.StaticToken{Token: s.cfg.AdminToken}
	}
	guarded := r.Group("/", auth.Middleware(validator))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).String(),
			"server":  s.cfg.Name,
			"version": Version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		ready := s.iface.Addr() != nil
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   ready,
			"uptime":  time.Since(s.started).String(),
			"server":  s.cfg.Name,
			"version": Version,
		})
	})

	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": s.Sessions()})
	})

	r.GET("/sessions/:id", func(c *gin.Context) {
		info, err := s.SessionInfo(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session": info})
	})

	guarded.POST("/sessions/:id/disconnect", func(c *gin.Context) {
		var req disconnectRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		notify := true
		if req.Notify != nil {
			notify = *req.Notify
		}
		if err := s.Disconnect(c.Param("id"), strings.TrimSpace(req.Reason), notify); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	guarded.POST("/sessions/:id/message", func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, ok := s.world.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": ErrSessionNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"delivered": p.SendMessage(req.Message)})
	})

	guarded.POST("/broadcast", func(c *gin.Context) {
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n := s.world.Broadcast(&packet.Text{Type: packet.TextTypeSystem, Message: req.Message}, "")
		c.JSON(http.StatusOK, gin.H{"delivered": n})
	})

	r.GET("/observers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"observers": s.bus.Names()})
	})

	guarded.DELETE("/observers/:name", func(c *gin.Context) {
		if !s.bus.Unregister(c.Param("name")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "observer not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/policies", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"policies": session.Policies()})
	})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
