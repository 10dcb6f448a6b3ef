package http

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/craftcode/landing-backend/internal/contact/domain"
	"github.com/craftcode/landing-backend/internal/contact/service"
)

// fieldRequest is the body of a single field edit. An empty value clears the field.
type fieldRequest struct {
	Value *string `json:"value" binding:"required"`
}

// submissionRequest carries the form constraints checked before anything is sent
type submissionRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required"`
	Project string `json:"project" binding:"required"`
}

func (r submissionRequest) draft() domain.SubmissionDraft {
	return domain.SubmissionDraft{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Project: r.Project,
	}
}

func requestFromDraft(d domain.SubmissionDraft) submissionRequest {
	return submissionRequest{Name: d.Name, Email: d.Email, Phone: d.Phone, Project: d.Project}
}

type sessionResponse struct {
	ID           string                 `json:"id"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Version      uint64                 `json:"version"`
	State        domain.SubmissionState `json:"state"`
	Draft        domain.SubmissionDraft `json:"draft"`
	CanSubmit    bool                   `json:"can_submit"`
	ResetDelayMs int64                  `json:"reset_delay_ms"`
}

func toSessionResponse(s *service.Session) sessionResponse {
	snap := s.Controller.Snapshot()
	return sessionResponse{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
		Version:      snap.Version,
		State:        snap.State,
		Draft:        snap.Draft,
		CanSubmit:    snap.State.CanSubmit() && !s.Controller.Closed(),
		ResetDelayMs: s.Controller.ResetDelay().Milliseconds(),
	}
}

type statsResponse struct {
	service.MetricsSnapshot
	FailureRate    float64 `json:"failure_rate"`
	ActiveSessions int     `json:"active_sessions"`
}

// validateDraft applies the binding rules to an already collected draft
func validateDraft(d domain.SubmissionDraft) error {
	return binding.Validator.ValidateStruct(requestFromDraft(d))
}

// fieldErrors maps validation failures to form field names.
// ok is false when err is not a validation error.
func fieldErrors(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[name] = "is required"
		case "email":
			out[name] = "must be a valid email address"
		default:
			out[name] = "is invalid"
		}
	}
	return out, true
}
