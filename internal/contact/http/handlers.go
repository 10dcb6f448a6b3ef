package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/logging"
)

// CreateSession starts a new form session with an empty draft
func (h *Handler) CreateSession(c *gin.Context) {
	s := h.registry.Create()
	c.JSON(http.StatusCreated, gin.H{"session": toSessionResponse(s)})
}

// GetSession returns the current draft and submission state
func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(s)})
}

// DeleteSession disposes the session and cancels any pending reset
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.registry.Remove(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateField replaces one draft field
func (h *Handler) UpdateField(c *gin.Context) {
	field, err := domain.ParseField(c.Param("field"))
	if err != nil {
		writeError(c, err)
		return
	}

	var body fieldRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.Controller.UpdateField(field, *body.Value); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(s)})
}

// Submit checks the form constraints and sends the draft once
func (h *Handler) Submit(c *gin.Context) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	// A submission in flight or on screen wins over draft problems.
	if !s.Controller.State().CanSubmit() {
		writeError(c, domain.ErrSubmitNotAllowed)
		return
	}

	if err := validateDraft(s.Controller.Draft()); err != nil {
		if fields, ok := fieldErrors(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate submission"})
		return
	}

	// The outcome is kept on the session, so a client that goes away mid-insert
	// still finds it on the next read or on the event stream.
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := s.Controller.Submit(ctx); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": toSessionResponse(s)})
}

// SubmitOnce handles a plain form post without a session
func (h *Handler) SubmitOnce(c *gin.Context) {
	var body submissionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		if fields, ok := fieldErrors(err); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "fields": fields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctrl := h.registry.NewController()
	defer ctrl.Close()

	draft := body.draft()
	for _, f := range domain.Fields {
		_ = ctrl.UpdateField(f, draft.Value(f))
	}

	st, err := ctrl.Submit(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if st.Phase != domain.PhaseSubmitted {
		c.JSON(http.StatusBadGateway, gin.H{"error": st.Message, "state": st})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"state": st})
}

// Channel exposes the direct e-mail fallback
func (h *Handler) Channel(c *gin.Context) {
	mailto := (&url.URL{Scheme: "mailto", Opaque: h.contactEmail}).String()
	c.JSON(http.StatusOK, gin.H{"email": h.contactEmail, "mailto": mailto})
}

// Stats reports submission counters and the live session count
func (h *Handler) Stats(c *gin.Context) {
	snap := h.registry.Metrics().Snapshot()
	c.JSON(http.StatusOK, statsResponse{
		MetricsSnapshot: snap,
		FailureRate:     snap.FailureRate(),
		ActiveSessions:  h.registry.Len(),
	})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionClosed):
		status = http.StatusGone
	case errors.Is(err, domain.ErrSubmitNotAllowed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnknownField):
		status = http.StatusBadRequest
	default:
		logging.NewLogger(c.Request.Context()).LogError("contact_http", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
