package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound    ErrCode = "NOT_FOUND"
	ErrSessionGone ErrCode = "SESSION_GONE"

	// ─── Quiz engine ───────────────────────────────────────────────────
	// Auth failures never carry a code: those responses are empty 401s.
	// Stale submissions are not errors either; they surface as
	// accepted:false on a 200.
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrOptionOutOfRange  ErrCode = "OPTION_OUT_OF_RANGE"
	ErrSessionNotClosed  ErrCode = "SESSION_NOT_CLOSED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The identifier format is invalid."
	case ErrNotFound:
		return "The resource was not found."
	case ErrSessionGone:
		return "The quiz session has ended."
	case ErrInvalidTransition:
		return "This command is not allowed in the session's current phase."
	case ErrOptionOutOfRange:
		return "An option index does not exist on this question."
	case ErrSessionNotClosed:
		return "The quiz session has not been closed yet."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
