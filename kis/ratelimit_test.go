package kis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {

	t.Run("동시 요청 상한", func(t *testing.T) {
		r := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 600, RequestsPerDay: 10000, MaxConcurrent: 2})

		assert.NoError(t, r.Acquire(context.Background()))
		assert.NoError(t, r.Acquire(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := r.Acquire(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		// 반납 후 재획득 가능
		r.Release()
		assert.NoError(t, r.Acquire(context.Background()))
	})

	t.Run("분당 한도 초과 시 RetryAfter 반환", func(t *testing.T) {
		r := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 2, RequestsPerDay: 10000, MaxConcurrent: 5})

		assert.NoError(t, r.Acquire(context.Background()))
		assert.NoError(t, r.Acquire(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := r.Acquire(ctx)

		assert.Equal(t, KindRateLimit, KindOf(err))
		assert.Greater(t, retryAfterOf(err), time.Duration(0))
	})

	t.Run("일일 한도 소진", func(t *testing.T) {
		r := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 600, RequestsPerDay: 2, MaxConcurrent: 5})

		assert.NoError(t, r.Acquire(context.Background()))
		r.Release()
		assert.NoError(t, r.Acquire(context.Background()))
		r.Release()

		err := r.Acquire(context.Background())
		assert.Equal(t, KindRateLimit, KindOf(err))
		// 익일 자정(KST)까지 대기 안내
		assert.Greater(t, retryAfterOf(err), time.Duration(0))
		assert.LessOrEqual(t, retryAfterOf(err), 24*time.Hour)
	})

	t.Run("429 페널티 후 회복", func(t *testing.T) {
		r := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1200, RequestsPerDay: 10000, MaxConcurrent: 5})

		r.Penalize(50 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		err := r.Acquire(ctx)
		cancel()
		assert.Equal(t, KindRateLimit, KindOf(err))

		time.Sleep(200 * time.Millisecond)
		assert.NoError(t, r.Acquire(context.Background()))
	})
}
