package backoff

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-order-ingest/core"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = time.Minute
)

// Outcome is the per-attempt verdict an operation hands back to the policy.
type Outcome int

const (
	// Done stops the loop and returns the attempt error as-is (nil on
	// success).
	Done Outcome = iota
	// Retry schedules another attempt after the exponential delay.
	Retry
	// Abort stops the loop immediately without consuming the remaining
	// retry budget.
	Abort
)

// Attempt carries the verdict plus the jitter ceiling for this retry. A
// zero JitterMax means no jitter is added to the exponential delay.
type Attempt struct {
	Outcome   Outcome
	JitterMax time.Duration
}

// Operation runs one try. attempt is zero-based.
type Operation func(ctx context.Context, attempt int) (Attempt, error)

// Policy runs an operation under bounded exponential backoff. The delay for
// retry n is BaseDelay doubled n times, plus a uniform jitter drawn from
// [0, JitterMax). Sleep and Rand are injectable for tests.
type Policy struct {
	// MaxRetries bounds retries after the first attempt. The operation
	// runs at most MaxRetries+1 times.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	Sleep func(ctx context.Context, d time.Duration) error
	Rand  func() float64
}

func (p Policy) maxRetries() int {
	if p.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return p.MaxRetries
}

func (p Policy) delay(attempt int, jitterMax time.Duration) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	maximum := p.MaxDelay
	if maximum <= 0 {
		maximum = defaultMaxDelay
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			delay = maximum
			break
		}
	}
	if jitterMax > 0 {
		random := p.Rand
		if random == nil {
			random = rand.Float64
		}
		delay += time.Duration(random() * float64(jitterMax))
	}
	return delay
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes op until it reports Done or Abort, or the retry budget is
// spent. On exhaustion the last attempt error is wrapped in a
// retries-exhausted envelope so callers can tell a spent budget from a
// permanent failure.
func (p Policy) Run(ctx context.Context, op Operation) error {
	if op == nil {
		return fmt.Errorf("backoff: operation is required")
	}
	budget := p.maxRetries()
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		verdict, err := op(ctx, attempt)
		switch verdict.Outcome {
		case Done, Abort:
			return err
		case Retry:
		default:
			return fmt.Errorf("backoff: unknown outcome %d", verdict.Outcome)
		}
		lastErr = err
		if attempt >= budget {
			break
		}
		if err := p.sleep(ctx, p.delay(attempt, verdict.JitterMax)); err != nil {
			return err
		}
	}
	message := fmt.Sprintf("retries exhausted after %d attempts", budget+1)
	if lastErr == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(core.ErrorStatusCode(lastErr)).
			WithTextCode(core.OrderErrorRetriesExhausted).
			WithMetadata(map[string]any{"attempts": budget + 1})
	}
	return goerrors.Wrap(lastErr, goerrors.CategoryExternal, message).
		WithCode(core.ErrorStatusCode(lastErr)).
		WithTextCode(core.OrderErrorRetriesExhausted).
		WithMetadata(map[string]any{"attempts": budget + 1})
}
