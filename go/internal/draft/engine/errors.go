package engine

import "errors"

// Engine errors. Operations wrap these with context; test with errors.Is.
var (
	ErrDraftNotFound         = errors.New("draft not found")
	ErrInvalidState          = errors.New("operation not allowed in current draft status")
	ErrNotYourTurn           = errors.New("not your turn")
	ErrShiftUnavailable      = errors.New("shift unavailable")
	ErrParticipantNotInDraft = errors.New("participant not in draft")
	ErrInvalidSettings       = errors.New("invalid draft settings")
)

// rejectReason labels a rejected pick for metrics.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrDraftNotFound):
		return "draft_not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrParticipantNotInDraft):
		return "not_in_draft"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrShiftUnavailable):
		return "shift_unavailable"
	default:
		return "other"
	}
}
