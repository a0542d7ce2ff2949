package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorwallet/internal/domain"
)

// ChatTurn is one message of the history handed to the generator.
type ChatTurn struct {
	Role    string
	Content string
}

// TutorGenerator produces the tutor's next reply for a conversation.
type TutorGenerator interface {
	Generate(ctx context.Context, systemPrompt string, history []ChatTurn) (string, error)
}

// GeneratorError classifies a generator failure. Kind is one of ErrUpstreamConfig,
// ErrUpstreamQuota or ErrUpstreamGeneric.
type GeneratorError struct {
	Kind      error
	Retryable bool
	Err       error
}

func (e *GeneratorError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *GeneratorError) Unwrap() error { return e.Kind }

func isRetryable(err error) bool {
	var ge *GeneratorError
	return errors.As(err, &ge) && ge.Retryable
}

// unconfiguredGenerator stands in when no API key is set.
type unconfiguredGenerator struct{}

// NewUnconfiguredGenerator returns a generator that always fails with ErrUpstreamConfig.
func NewUnconfiguredGenerator() TutorGenerator { return unconfiguredGenerator{} }

func (unconfiguredGenerator) Generate(context.Context, string, []ChatTurn) (string, error) {
	return "", &GeneratorError{Kind: domain.ErrUpstreamConfig, Err: errors.New("tutor api key is not set")}
}

// RetryingGenerator retries retryable failures with exponential backoff, up to a fixed
// number of attempts.
type RetryingGenerator struct {
	next        TutorGenerator
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRetryingGenerator(next TutorGenerator, maxAttempts int, baseDelay time.Duration) *RetryingGenerator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryingGenerator{next: next, maxAttempts: maxAttempts, baseDelay: baseDelay, sleep: sleepCtx}
}

func (g *RetryingGenerator) Generate(ctx context.Context, systemPrompt string, history []ChatTurn) (string, error) {
	var lastErr error
	delay := g.baseDelay
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		reply, err := g.next.Generate(ctx, systemPrompt, history)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == g.maxAttempts {
			break
		}
		if err := g.sleep(ctx, delay); err != nil {
			return "", &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: err}
		}
		delay *= 2
	}
	var ge *GeneratorError
	if !errors.As(lastErr, &ge) {
		lastErr = &GeneratorError{Kind: domain.ErrUpstreamGeneric, Err: lastErr}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
