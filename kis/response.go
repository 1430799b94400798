package kis

import "time"

// ApiResponse is the envelope the HTTP-facing glue answers with.
type ApiResponse[T any] struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      *T        `json:"data,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func OK[T any](message string, data *T) ApiResponse[T] {
	return ApiResponse[T]{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func Fail[T any](message string, errorCode string) ApiResponse[T] {
	return ApiResponse[T]{
		Success:   false,
		Message:   message,
		ErrorCode: errorCode,
		Timestamp: time.Now(),
	}
}

// TokenStatus reports the token cache state without exposing the token.
type TokenStatus struct {
	HasValidToken bool       `json:"has_valid_token"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

func (m *TokenManager) Status() TokenStatus {
	st := TokenStatus{HasValidToken: m.HasValid()}
	if at, ok := m.ExpirationTime(); ok {
		st.ExpiresAt = &at
	}
	return st
}
