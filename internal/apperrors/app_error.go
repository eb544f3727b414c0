package apperrors

import (
	"errors"
	"net/http"
)

// 错误原因码，客户端据此区分同一 HTTP 状态下的不同结果（如 410 的 EXPIRED 与 QUOTA_EXCEEDED）
const (
	ReasonValidation    = "VALIDATION_ERROR"
	ReasonUnauthorized  = "UNAUTHORIZED"
	ReasonTokenExpired  = "TOKEN_EXPIRED"
	ReasonForbidden     = "FORBIDDEN"
	ReasonNotFound      = "NOT_FOUND"
	ReasonExpired       = "EXPIRED"
	ReasonQuotaExceeded = "QUOTA_EXCEEDED"
	ReasonRateLimited   = "RATE_LIMITED"
	ReasonInternal      = "INTERNAL_ERROR"
	ReasonUnavailable   = "SERVICE_UNAVAILABLE"
)

// AppError 自定义错误类型
// Message 为 i18n 消息 ID，由全局错误中间件翻译；找不到翻译时原样输出
type AppError struct {
	Code    int
	Reason  string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause 附加底层错误，便于日志定位
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithCode 创建通用业务错误
func WithCode(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reasonForStatus(code),
		Message: message,
	}
}

// BusinessError 封装业务逻辑错误（通用）
func BusinessError(code int, message string) *AppError {
	return WithCode(code, message)
}

// InvalidRequestError 封装参数校验错误
func InvalidRequestError(message string) *AppError {
	return WithCode(http.StatusBadRequest, message)
}

// InvalidRequestErrorDefault 默认参数校验错误
func InvalidRequestErrorDefault() *AppError {
	return WithCode(http.StatusBadRequest, "error.invalid_request")
}

// SystemError 封装系统内部错误
func SystemError(message string) *AppError {
	return WithCode(http.StatusInternalServerError, message)
}

// SystemErrorDefault 默认系统内部错误
func SystemErrorDefault() *AppError {
	return WithCode(http.StatusInternalServerError, "error.internal")
}

func UnauthorizedError() *AppError {
	return WithCode(http.StatusUnauthorized, "error.unauthorized")
}

func TokenExpiredError() *AppError {
	return &AppError{Code: http.StatusUnauthorized, Reason: ReasonTokenExpired, Message: "error.token_expired"}
}

func ForbiddenError() *AppError {
	return WithCode(http.StatusForbidden, "error.forbidden")
}

func NotFoundError() *AppError {
	return WithCode(http.StatusNotFound, "error.shortlink_not_found")
}

// ExpiredError 短链已过期（410）
func ExpiredError() *AppError {
	return &AppError{Code: http.StatusGone, Reason: ReasonExpired, Message: "error.shortlink_expired"}
}

// QuotaExceededError 点击配额已用尽（410，原因码与过期区分）
func QuotaExceededError() *AppError {
	return &AppError{Code: http.StatusGone, Reason: ReasonQuotaExceeded, Message: "error.shortlink_quota_exceeded"}
}

func RateLimitedError() *AppError {
	return WithCode(http.StatusTooManyRequests, "error.rate_limited")
}

// UnavailableError 存储后端暂不可用（已内部重试后仍失败）
func UnavailableError() *AppError {
	return WithCode(http.StatusServiceUnavailable, "error.service_unavailable")
}

// ReasonOf 返回错误链中 AppError 的原因码，非 AppError 返回 INTERNAL_ERROR
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ReasonInternal
}

func reasonForStatus(code int) string {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ReasonValidation
	case http.StatusUnauthorized:
		return ReasonUnauthorized
	case http.StatusForbidden:
		return ReasonForbidden
	case http.StatusNotFound:
		return ReasonNotFound
	case http.StatusGone:
		return ReasonExpired
	case http.StatusTooManyRequests:
		return ReasonRateLimited
	case http.StatusServiceUnavailable:
		return ReasonUnavailable
	default:
		return ReasonInternal
	}
}
