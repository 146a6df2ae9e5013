package errors

import (
	"net/http"

	"passport/internal/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// User and credential errors
	ErrUserNotFound = NewBaseError(
		http.StatusNotFound,
		"USER_NOT_FOUND",
		"找不到該使用者",
		"",
	)

	ErrEmailTaken = NewBaseError(
		http.StatusConflict,
		"EMAIL_TAKEN",
		"此電子郵件已被註冊",
		"",
	)

	// Sign-in failures never reveal which of email/password was wrong.
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"電子郵件或密碼錯誤",
		"",
	)

	ErrEmailNotVerified = NewBaseError(
		http.StatusForbidden,
		"EMAIL_NOT_VERIFIED",
		"電子郵件尚未驗證",
		"",
	)

	ErrWrongPassword = NewBaseError(
		http.StatusUnauthorized,
		"WRONG_PASSWORD",
		"密碼錯誤",
		"",
	)

	ErrPasswordStrength = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_STRENGTH",
		"密碼強度不足",
		"",
	)

	ErrPasswordHashFailed = NewBaseError(
		http.StatusInternalServerError,
		"PASSWORD_HASH_FAILED",
		"密碼處理錯誤",
		"",
	)

	ErrNoPasswordCredential = NewBaseError(
		http.StatusBadRequest,
		"NO_PASSWORD_CREDENTIAL",
		"此帳號尚未設定密碼",
		"",
	)

	// Token and session errors
	ErrInvalidToken = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_OR_EXPIRED_TOKEN",
		"無效或已過期的驗證連結",
		"",
	)

	ErrSessionInvalid = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_INVALID",
		"無效或已過期的工作階段",
		"",
	)

	ErrVerificationCooldown = NewBaseError(
		http.StatusTooManyRequests,
		"VERIFICATION_COOLDOWN",
		"驗證信已寄出，請稍候再試",
		"",
	)

	// Two-factor errors
	ErrTwoFactorRequired = NewBaseError(
		http.StatusUnauthorized,
		"TWO_FACTOR_REQUIRED",
		"需要雙重驗證",
		"",
	)

	ErrTwoFactorNotEnabled = NewBaseError(
		http.StatusBadRequest,
		"TWO_FACTOR_NOT_ENABLED",
		"尚未啟用雙重驗證",
		"",
	)

	ErrInvalidTotpCode = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CODE",
		"驗證碼錯誤",
		"",
	)

	ErrBackupCodeInvalid = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_OR_USED_CODE",
		"備用碼無效或已使用",
		"",
	)

	// Passkey errors
	ErrPasskeyCeremonyFailed = NewBaseError(
		http.StatusUnauthorized,
		"PASSKEY_CEREMONY_FAILED",
		"密碼金鑰驗證失敗",
		"",
	)

	// Validation errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"輸入資料驗證失敗",
		"",
	)

	// Organization errors
	ErrOrganizationNotFound = NewBaseError(
		http.StatusNotFound,
		"ORGANIZATION_NOT_FOUND",
		"找不到該組織",
		"",
	)

	ErrSlugTaken = NewBaseError(
		http.StatusConflict,
		"SLUG_TAKEN",
		"此網址代稱已被使用",
		"",
	)

	ErrAlreadyMember = NewBaseError(
		http.StatusConflict,
		"ALREADY_MEMBER",
		"該使用者已是組織成員",
		"",
	)

	ErrDuplicatePendingInvite = NewBaseError(
		http.StatusConflict,
		"DUPLICATE_PENDING_INVITE",
		"已有待處理的邀請",
		"",
	)

	ErrInvitationInvalid = NewBaseError(
		http.StatusBadRequest,
		"INVITATION_INVALID_OR_EXPIRED",
		"邀請已過期或無效",
		"",
	)

	ErrEmailMismatch = NewBaseError(
		http.StatusForbidden,
		"EMAIL_MISMATCH",
		"邀請的電子郵件與帳號不符",
		"",
	)

	ErrNotMember = NewBaseError(
		http.StatusForbidden,
		"NOT_A_MEMBER",
		"您不是該組織的成員",
		"",
	)

	ErrCannotRemoveLastOwner = NewBaseError(
		http.StatusConflict,
		"CANNOT_REMOVE_LAST_OWNER",
		"組織必須保留至少一位擁有者",
		"",
	)

	// Billing errors
	ErrInvalidPlan = NewBaseError(
		http.StatusBadRequest,
		"INVALID_PLAN",
		"無效的方案",
		"",
	)

	// Dependency errors. Marked 503 so callers know a retry may succeed.
	ErrDependencyUnavailable = NewBaseError(
		http.StatusServiceUnavailable,
		"DEPENDENCY_UNAVAILABLE",
		"外部服務暫時無法使用，請稍後再試",
		"",
	)

	ErrRateLimited = NewBaseError(
		http.StatusTooManyRequests,
		"RATE_LIMITED",
		"請求過於頻繁，請稍後再試",
		"",
	)

	// Transaction-related errors
	ErrTransactionFailed = NewBaseError(
		http.StatusInternalServerError,
		"TRANSACTION_FAILED",
		"資料庫交易失敗",
		"",
	)

	// General errors
	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"系統內部錯誤",
		"",
	)

	ErrForbidden = NewBaseError(
		http.StatusForbidden,
		"FORBIDDEN",
		"存取被拒絕",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"找不到該資源",
		"",
	)

	ErrConflict = NewBaseError(
		http.StatusConflict,
		"CONFLICT",
		"資源衝突",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "資料庫執行失敗"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
