package kis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter bounds concurrent, per-minute and per-day request counts for
// all REST callers sharing one client.
//
// 동시성은 카운팅 세마포어, 분당 한도는 균등 리필 토큰 버킷,
// 일일 한도는 거래소 타임존(Asia/Seoul) 자정에 리셋되는 카운터.
type RateLimiter struct {
	minute *rate.Limiter
	sem    chan struct{}
	loc    *time.Location

	mu        sync.Mutex
	day       string
	used      int
	perDay    int
	notBefore time.Time // vendor 429 penalty
}

func NewRateLimiter(conf RateLimitConfig) *RateLimiter {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}

	return &RateLimiter{
		minute: rate.NewLimiter(rate.Limit(float64(conf.RequestsPerMinute)/60.0), conf.RequestsPerMinute),
		sem:    make(chan struct{}, conf.MaxConcurrent),
		loc:    loc,
		perDay: conf.RequestsPerDay,
	}
}

// Acquire blocks until a permit is available or the context expires. When
// the wait would exceed the per-call deadline the caller gets a RateLimit
// error carrying the computed retry-after instead of blocking forever.
// Admissions are not FIFO.
func (r *RateLimiter) Acquire(ctx context.Context) error {

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := r.waitDaily(ctx); err != nil {
		<-r.sem
		return err
	}
	if err := r.waitMinute(ctx); err != nil {
		<-r.sem
		return err
	}

	r.mu.Lock()
	r.used++
	r.mu.Unlock()
	return nil
}

// Release returns the concurrency permit. Must be called exactly once per
// successful Acquire, on every exit path.
func (r *RateLimiter) Release() {
	<-r.sem
}

// Penalize reacts to a vendor 429: the minute bucket is drained and further
// admissions wait out retryAfter.
func (r *RateLimiter) Penalize(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = defaultRetryAfter
	}
	now := time.Now()
	for r.minute.AllowN(now, 1) {
	}
	r.mu.Lock()
	r.notBefore = now.Add(retryAfter)
	r.mu.Unlock()
}

func (r *RateLimiter) waitDaily(ctx context.Context) error {
	r.mu.Lock()
	today := time.Now().In(r.loc).Format("20060102")
	if r.day != today {
		r.day = today
		r.used = 0
	}
	exhausted := r.used >= r.perDay
	nb := r.notBefore
	r.mu.Unlock()

	if exhausted {
		e := newError(KindRateLimit, fmt.Sprintf("daily request limit %d reached", r.perDay))
		e.RetryAfter = time.Until(r.nextMidnight())
		return e
	}

	if wait := time.Until(nb); wait > 0 {
		if deadlineExceeded(ctx, wait) {
			e := newError(KindRateLimit, "backing off after vendor 429")
			e.RetryAfter = wait
			return e
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *RateLimiter) waitMinute(ctx context.Context) error {
	res := r.minute.Reserve()
	wait := res.Delay()
	if wait == 0 {
		return nil
	}
	if deadlineExceeded(ctx, wait) {
		res.Cancel()
		e := newError(KindRateLimit, "per-minute request limit reached")
		e.RetryAfter = wait
		return e
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	}
}

func (r *RateLimiter) nextMidnight() time.Time {
	now := time.Now().In(r.loc)
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, r.loc)
}

func deadlineExceeded(ctx context.Context, wait time.Duration) bool {
	deadline, ok := ctx.Deadline()
	return ok && time.Now().Add(wait).After(deadline)
}
