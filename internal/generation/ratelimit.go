package generation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter admits provider requests against per-credential request and
// token budgets over a sliding window. The admission test and registration
// of the new request happen under one lock, so concurrent callers sharing a
// credential cannot both pass the check and together exceed the limit.
type RateLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxRequests int
	maxTokens   int
	requests    []time.Time
	tokens      []tokenSample
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

type tokenSample struct {
	at     time.Time
	tokens int
}

// NewRateLimiter returns a limiter with a one minute window. A
// non-positive limit disables that dimension.
func NewRateLimiter(requestsPerMinute, tokensPerMinute int) *RateLimiter {
	return &RateLimiter{
		window:      time.Minute,
		maxRequests: requestsPerMinute,
		maxTokens:   tokensPerMinute,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Wait blocks until a request estimated at tokens can be admitted, then
// registers it. It returns early with the context error on cancellation.
func (l *RateLimiter) Wait(ctx context.Context, tokens int) error {
	if l == nil {
		return nil
	}
	if l.maxTokens > 0 && tokens > l.maxTokens {
		return fmt.Errorf("%w: request of %d tokens exceeds the per-minute budget of %d",
			ErrTransientFailure, tokens, l.maxTokens)
	}
	for {
		wait, ok := l.tryAcquire(tokens)
		if ok {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Record adds tokens observed after a call beyond the estimate passed to Wait.
func (l *RateLimiter) Record(tokens int) {
	if l == nil || tokens <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = append(l.tokens, tokenSample{at: l.now(), tokens: tokens})
}

// tryAcquire registers the request when both budgets allow it. Otherwise it
// reports how long until the oldest blocking sample leaves the window.
func (l *RateLimiter) tryAcquire(tokens int) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	var wait time.Duration
	if l.maxRequests > 0 && len(l.requests) >= l.maxRequests {
		wait = l.requests[0].Add(l.window).Sub(now)
	}
	if l.maxTokens > 0 && l.usedTokens()+tokens > l.maxTokens && len(l.tokens) > 0 {
		if w := l.tokens[0].at.Add(l.window).Sub(now); w > wait {
			wait = w
		}
	}
	if wait > 0 {
		return wait, false
	}

	l.requests = append(l.requests, now)
	if tokens > 0 {
		l.tokens = append(l.tokens, tokenSample{at: now, tokens: tokens})
	}
	return 0, true
}

func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.requests) && !l.requests[i].After(cutoff) {
		i++
	}
	l.requests = l.requests[i:]

	j := 0
	for j < len(l.tokens) && !l.tokens[j].at.After(cutoff) {
		j++
	}
	l.tokens = l.tokens[j:]
}

func (l *RateLimiter) usedTokens() int {
	total := 0
	for _, s := range l.tokens {
		total += s.tokens
	}
	return total
}

// EstimateTokens approximates the token count of text at four characters
// per token.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
