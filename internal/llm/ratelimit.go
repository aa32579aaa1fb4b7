package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"golang.org/x/time/rate"
)

// requestLimiter paces backend attempts to a requests-per-minute budget. Every
// attempt takes a token, retries included, so a flaky backend cannot exceed
// the configured rate.
type requestLimiter struct {
	limiter *rate.Limiter
}

// newRequestLimiter allows a burst of requestsPerMinute, refilled evenly over
// each minute.
func newRequestLimiter(requestsPerMinute int) *requestLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	every := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return &requestLimiter{limiter: rate.NewLimiter(every, requestsPerMinute)}
}

// wait blocks until the next attempt may start. It fails early when the wait
// would outlast ctx.
func (l *requestLimiter) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("rate limiter canceled: %w", ctxErr)
		}
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	}
	return nil
}
