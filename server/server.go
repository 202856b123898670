// Package server exposes the HTTP surface of the admission gate.
package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"whatupb-gate/metrics"
	"whatupb-gate/policy"
)

// genericError is the only rejection body a sender ever sees. Reasons are
// deliberately not differentiated so the moderation boundary cannot be
// probed through error messages.
var genericError = gin.H{"error": "Message could not be sent. Please try again."}

type submitRequest struct {
	RecipientID  string `json:"recipientId"`
	Content      string `json:"content"`
	CaptchaToken string `json:"captchaToken"`
}

// Server routes submissions into the admission pipeline. The pipeline and
// header order are swapped atomically on config reload.
type Server struct {
	mu          sync.RWMutex
	pipeline    *policy.Pipeline
	headerOrder []string
}

func New(pipeline *policy.Pipeline, headerOrder []string) *Server {
	return &Server{pipeline: pipeline, headerOrder: headerOrder}
}

// Swap replaces the pipeline and identity header order after a reload.
func (s *Server) Swap(pipeline *policy.Pipeline, headerOrder []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipeline = pipeline
	s.headerOrder = headerOrder
}

func (s *Server) current() (*policy.Pipeline, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline, s.headerOrder
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/messages", s.handleSubmit)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func (s *Server) handleSubmit(c *gin.Context) {
	pipeline, headerOrder := s.current()
	clientIP := policy.ClientIP(c.Request.Header, headerOrder)

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("Submission rejected by gate",
			"gate", "params", "reason", string(policy.ReasonMissingParams), "bind_error", err.Error())
		c.JSON(http.StatusBadRequest, genericError)
		return
	}

	sub := &policy.Submission{
		RecipientID:  req.RecipientID,
		Content:      req.Content,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     clientIP,
	}

	decision := pipeline.Process(c.Request.Context(), sub)
	if decision.Accepted() {
		c.JSON(http.StatusCreated, gin.H{"success": true})
		return
	}
	c.JSON(decision.Status, genericError)
}
