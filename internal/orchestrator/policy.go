package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	appErrors "github.com/noggin-kb/noggin/internal/errors"
	"github.com/noggin-kb/noggin/internal/logger"
	"github.com/noggin-kb/noggin/internal/ports"
	"golang.org/x/time/rate"
)

// Policy bounds how long and how often one backend is tried.
type Policy struct {
	// Timeout covers every attempt and backoff sleep of one Query.
	Timeout           time.Duration
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RequestsPerMinute float64
}

type policyBackend struct {
	backend ports.Backend
	policy  Policy
	limiter *rate.Limiter
}

// WithPolicy wraps a backend with timeout, retry and throttling. Retries
// back off exponentially from InitialBackoff, doubling each time.
// Authentication failures are never retried.
func WithPolicy(b ports.Backend, p Policy) ports.Backend {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = time.Second
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff * 30
	}

	pb := &policyBackend{backend: b, policy: p}
	if p.RequestsPerMinute > 0 {
		pb.limiter = rate.NewLimiter(rate.Limit(p.RequestsPerMinute/60), 1)
	}
	return pb
}

func (p *policyBackend) Name() string {
	return p.backend.Name()
}

func (p *policyBackend) Query(ctx context.Context, prompt string) (string, error) {
	name := p.backend.Name()
	ctx = logger.With(ctx, "backend", name)

	if p.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.policy.Timeout)
		defer cancel()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.policy.InitialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = p.policy.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	var (
		text    string
		attempt int
	)
	operation := func() error {
		attempt++
		logger.Debug(ctx, "querying backend", "attempt", attempt, "prompt_length", len(prompt))

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(p.timeoutError(err))
			}
		}

		t, err := p.attempt(ctx, prompt)
		if err == nil {
			text = t
			return nil
		}

		pe := asProviderError(name, err)
		if !pe.Retryable() || ctx.Err() != nil {
			return backoff.Permanent(pe)
		}
		if pe.RetryAfter > 0 {
			wait := pe.RetryAfter
			if wait > p.policy.MaxBackoff {
				wait = p.policy.MaxBackoff
			}
			if err := sleepWithCtx(ctx, wait); err != nil {
				return backoff.Permanent(p.timeoutError(err))
			}
		}
		return pe
	}

	notify := func(err error, next time.Duration) {
		logger.Warn(ctx, "backend attempt failed, retrying",
			"attempt", attempt,
			"backoff", next,
			"error", err)
	}

	retry := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.policy.MaxAttempts-1)), ctx)
	if err := backoff.RetryNotify(operation, retry, notify); err != nil {
		var pe *appErrors.ProviderError
		if errors.As(err, &pe) {
			return "", pe
		}
		return "", p.timeoutError(err)
	}

	logger.Debug(ctx, "backend answered", "attempts", attempt, "response_length", len(text))
	return text, nil
}

// attempt runs one query but stops waiting when ctx ends, even if the
// backend ignores cancellation.
func (p *policyBackend) attempt(ctx context.Context, prompt string) (string, error) {
	type reply struct {
		text string
		err  error
	}

	ch := make(chan reply, 1)
	go func() {
		text, err := p.backend.Query(ctx, prompt)
		ch <- reply{text: text, err: err}
	}()

	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", p.timeoutError(ctx.Err())
	}
}

func (p *policyBackend) timeoutError(err error) *appErrors.ProviderError {
	return appErrors.NewProviderError(appErrors.KindRequestFailed, p.backend.Name(),
		fmt.Errorf("gave up after %s: %w", p.policy.Timeout, err))
}

func asProviderError(name string, err error) *appErrors.ProviderError {
	var pe *appErrors.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return appErrors.ClassifyMessage(name, err)
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
