package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInitDataInvalid ErrCode = "INIT_DATA_INVALID"
	ErrInitDataNoUser  ErrCode = "INIT_DATA_NO_USER"
	ErrInitDataExpired ErrCode = "INIT_DATA_EXPIRED"
	ErrTokenRequired   ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid    ErrCode = "TOKEN_INVALID"
	ErrUserInactive    ErrCode = "USER_INACTIVE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrTestNotFound    ErrCode = "TEST_NOT_FOUND"
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"

	// ─── Test-specific ─────────────────────────────────────────────────
	ErrNotEnoughQuestions ErrCode = "NOT_ENOUGH_QUESTIONS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrUnavailable ErrCode = "SERVICE_UNAVAILABLE"
	ErrInternal    ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInitDataInvalid:
		return "Invalid Telegram data - hash verification failed"
	case ErrInitDataNoUser:
		return "Invalid Telegram data - missing user information"
	case ErrInitDataExpired:
		return "Invalid Telegram data - authentication data too old"
	case ErrTokenRequired:
		return "Not authenticated"
	case ErrTokenInvalid:
		return "Could not validate credentials"
	case ErrUserInactive:
		return "Inactive user"

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found"
	case ErrTestNotFound:
		return "Test not found"
	case ErrSessionNotFound:
		return "Session not found or completed"

	// ─── Test-specific ─────────────────────────────────────────────────
	case ErrNotEnoughQuestions:
		return "Not enough questions available"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrUnavailable:
		return "Service temporarily unavailable"
	case ErrInternal:
		return "Internal server error"
	default:
		return "Unexpected error"
	}
}
