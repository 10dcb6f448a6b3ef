package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/craftcode/landing-backend/internal/contact/service"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	keepAliveInterval   = 15 * time.Second
)

// Handler serves the contact form endpoints
type Handler struct {
	registry     *service.Registry
	contactEmail string
	pollInterval time.Duration
}

// New creates a new Handler
func New(registry *service.Registry, contactEmail string) *Handler {
	return &Handler{
		registry:     registry,
		contactEmail: contactEmail,
		pollInterval: defaultPollInterval,
	}
}

// Register registers the contact routes
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.SubmitOnce)
	rg.GET("/channel", h.Channel)
	rg.GET("/stats", h.Stats)

	rg.POST("/sessions", h.CreateSession)
	rg.GET("/sessions/:id", h.GetSession)
	rg.DELETE("/sessions/:id", h.DeleteSession)
	rg.PUT("/sessions/:id/fields/:field", h.UpdateField)
	rg.POST("/sessions/:id/submit", h.Submit)
	rg.GET("/sessions/:id/events", h.StreamSessionEvents)
}
