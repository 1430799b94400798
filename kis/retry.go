package kis

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// 공용 재시도 정책: 지수 백오프 1s 기준, 배수 2, 지터 ±20%, 상한 10s, 최대 3회.
const (
	maxAttempts   = 3
	backoffBase   = time.Second
	backoffFactor = 2
	backoffCap    = 10 * time.Second
	jitterRatio   = 0.2
)

// retryCall runs fn up to maxAttempts times, backing off between attempts.
// Only Transient and RateLimit errors are retried; a RateLimit error waits
// its RetryAfter when that exceeds the backoff step.
func retryCall(ctx context.Context, lg zerolog.Logger, op string, fn func(ctx context.Context) error) error {

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil || !IsRetryable(err) || attempt == maxAttempts {
			return err
		}

		wait := backoffDelay(attempt)
		if ra := retryAfterOf(err); ra > wait {
			wait = ra
		}

		lg.Warn().
			Err(err).
			Str("op", op).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("Retrying after failure")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func backoffDelay(attempt int) time.Duration {
	d := backoffBase
	for i := 1; i < attempt; i++ {
		d *= backoffFactor
	}
	if d > backoffCap {
		d = backoffCap
	}
	// ±20% 지터
	jitter := 1 + jitterRatio*(2*rand.Float64()-1)
	return time.Duration(float64(d) * jitter)
}
