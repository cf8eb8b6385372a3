package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden    ErrCode = "FORBIDDEN"
	ErrNotQuizOwner ErrCode = "NOT_QUIZ_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Quiz lifecycle ────────────────────────────────────────────────
	ErrQuizNotDraft     ErrCode = "QUIZ_NOT_DRAFT"
	ErrQuizNotPublished ErrCode = "QUIZ_NOT_PUBLISHED"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"

	// ─── Generation pipeline ───────────────────────────────────────────
	ErrGeneratorUnavailable ErrCode = "GENERATOR_UNAVAILABLE"
	ErrUnparseableOutput    ErrCode = "GENERATION_UNPARSEABLE"
	ErrNoUsableQuestions    ErrCode = "NO_USABLE_QUESTIONS"

	// ─── Sessions ──────────────────────────────────────────────────────
	ErrInvalidJoinCode  ErrCode = "INVALID_JOIN_CODE"
	ErrSessionEnded     ErrCode = "SESSION_ENDED"
	ErrJoinCodeCapacity ErrCode = "JOIN_CODE_CAPACITY"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotQuizOwner:
		return "You are not the owner of this quiz."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Quiz lifecycle ────────────────────────────────────────────────
	case ErrQuizNotDraft:
		return "This quiz is no longer a draft."
	case ErrQuizNotPublished:
		return "This quiz has not been published."
	case ErrNoQuestions:
		return "This quiz has no questions."

	// ─── Generation pipeline ───────────────────────────────────────────
	case ErrGeneratorUnavailable:
		return "The quiz generator is temporarily unavailable. Please try again."
	case ErrUnparseableOutput:
		return "The generator returned output we could not understand. Please try again."
	case ErrNoUsableQuestions:
		return "The generator did not produce any usable questions for this topic."

	// ─── Sessions ──────────────────────────────────────────────────────
	case ErrInvalidJoinCode:
		return "No active session matches this join code."
	case ErrSessionEnded:
		return "This session has already ended."
	case ErrJoinCodeCapacity:
		return "Could not allocate a join code. Please try hosting again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
