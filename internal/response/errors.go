package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Content & sessions ────────────────────────────────────────────
	ErrInvalidState   ErrCode = "INVALID_STATE"
	ErrPartialFailure ErrCode = "PARTIAL_FAILURE"
	ErrNoQuestions    ErrCode = "NO_QUESTIONS"
	ErrBrokenContent  ErrCode = "BROKEN_CONTENT"

	// ─── Explanation generation ────────────────────────────────────────
	ErrGenerationFailed ErrCode = "GENERATION_FAILED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
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
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Content & sessions ────────────────────────────────────────────
	case ErrInvalidState:
		return "The session does not permit this operation in its current state."
	case ErrPartialFailure:
		return "Some items in the batch could not be processed."
	case ErrNoQuestions:
		return "This exam has no published questions."
	case ErrBrokenContent:
		return "The requested content is in an inconsistent state."

	// ─── Explanation generation ────────────────────────────────────────
	case ErrGenerationFailed:
		return "Explanation generation failed. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
