package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeConflict      = "conflict"

	// Question errors
	ErrCodeQuestionCreateFailed = "question_create_failed"
	ErrCodeQuestionNotFound     = "question_not_found"
	ErrCodeUnknownDifficulty    = "unknown_difficulty"

	// Submission errors
	ErrCodeSubmitFailed        = "submit_failed"
	ErrCodeSubmissionLimit     = "submission_limit_reached"
	ErrCodeDuplicateSubmission = "duplicate_submission"
	ErrCodeMalformedAnswer     = "malformed_answer"
	ErrCodeSubmissionNotFound  = "submission_not_found"

	// Token table errors
	ErrCodeTokenTableFetchFailed  = "token_table_fetch_failed"
	ErrCodeTokenTableUpdateFailed = "token_table_update_failed"

	// Evaluator errors
	ErrCodeInvalidCallback = "invalid_callback"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"

	// WebSocket errors
	ErrCodeInvalidPayload  = "invalid_payload"
	ErrCodeConnectionError = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
