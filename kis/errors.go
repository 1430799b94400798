package kis

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind classifies a KIS API failure. It decides whether an operation is
// retried and which HTTP status the app layer answers with.
type Kind int

const (
	// KindAuth : 인증 실패 (401/403). 재시도 금지.
	KindAuth Kind = iota + 1
	// KindRateLimit : 요청 한도 초과 (429 또는 로컬 한도).
	KindRateLimit
	// KindTransient : 5xx, 타임아웃, 커넥션 리셋. 재시도 대상.
	KindTransient
	// KindProtocol : 응답 형식 오류 또는 rt_cd != "0" 비즈니스 오류.
	KindProtocol
	// KindFatal : 설정 오류, 잘못된 요청 파라미터. 생성 시점에 반환.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	case KindProtocol:
		return "protocol"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// Error is the tagged error every kis operation returns on failure.
type Error struct {
	Kind       Kind
	Msg        string
	RetryAfter time.Duration // only meaningful for KindRateLimit
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("kis: %s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("kis: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func wrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// KindOf returns the Kind of err, or 0 when err is not a kis error.
func KindOf(err error) Kind {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return 0
}

// IsRetryable reports whether the shared retry policy may re-attempt err.
// Auth, Protocol, Fatal은 즉시 반환.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransient, KindRateLimit:
		return true
	}
	return false
}

func retryAfterOf(err error) time.Duration {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.RetryAfter
	}
	return 0
}

const defaultRetryAfter = 60 * time.Second

// classifyStatus maps a non-2xx vendor status to the error taxonomy.
// The body snippet is carried for diagnostics only.
func classifyStatus(status int, snippet string, retryAfter string) *Error {
	msg := fmt.Sprintf("HTTP %d: %s", status, snippet)
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return newError(KindAuth, msg)
	case status == http.StatusTooManyRequests:
		e := newError(KindRateLimit, msg)
		e.RetryAfter = parseRetryAfter(retryAfter)
		return e
	case status >= 500:
		return newError(KindTransient, msg)
	default:
		return newError(KindProtocol, msg)
	}
}

// Retry-After 미존재 시 60초 기본값 적용
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
