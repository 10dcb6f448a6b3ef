package domain

import "time"

// Phase is the lifecycle position of a form submission
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
	PhaseFailed     Phase = "failed"
)

func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo checks the submission lifecycle table
func (p Phase) CanTransitionTo(target Phase) bool {
	switch p {
	case PhaseIdle, PhaseFailed:
		return target == PhaseSubmitting
	case PhaseSubmitting:
		return target == PhaseSubmitted || target == PhaseFailed
	case PhaseSubmitted:
		return target == PhaseIdle
	}
	return false
}

// SubmissionState is the derived UI state. Message is only set when Phase is failed.
type SubmissionState struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

func Idle() SubmissionState       { return SubmissionState{Phase: PhaseIdle} }
func Submitting() SubmissionState { return SubmissionState{Phase: PhaseSubmitting} }
func Submitted() SubmissionState  { return SubmissionState{Phase: PhaseSubmitted} }

func Failed(message string) SubmissionState {
	return SubmissionState{Phase: PhaseFailed, Message: message}
}

// CanSubmit reports whether the submit control is actionable
func (s SubmissionState) CanSubmit() bool {
	return s.Phase == PhaseIdle || s.Phase == PhaseFailed
}

// Snapshot is a consistent read of one controller
type Snapshot struct {
	SessionID string          `json:"session_id,omitempty"`
	State     SubmissionState `json:"state"`
	Draft     SubmissionDraft `json:"draft"`
	Version   uint64          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}
