// Retrying classification client
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodsplit/internal/shared"
)

// DefaultMaxRetries is the number of attempts per prompt.
const DefaultMaxRetries = 3

const (
	rateLimitStep   = 10 * time.Second
	rateLimitCap    = 30 * time.Second
	backoffCap      = 8 * time.Second
	backoffBaseUnit = time.Second
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepWithContext waits for delay unless ctx is cancelled first.
func SleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", shared.ErrTimeout, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// ProviderError is returned once every attempt for a prompt has failed.
type ProviderError struct {
	Provider string
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed after %d attempts: %v", e.Provider, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the last failure was a rate limit, a 5xx or an empty body.
func (e *ProviderError) Transient() bool {
	return IsRateLimited(e.Err) ||
		errors.Is(e.Err, shared.ErrServiceUnavailable) ||
		errors.Is(e.Err, shared.ErrEmptyResponse)
}

// IsRateLimited matches [shared.ErrRateLimited] or rate-limit wording in the error text.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, shared.ErrRateLimited) || IsRateLimitText(err.Error())
}

// IsRateLimitText reports whether msg mentions HTTP 429 or a rate limit.
func IsRateLimitText(msg string) bool {
	lowered := strings.ToLower(msg)
	return strings.Contains(lowered, "429") ||
		strings.Contains(lowered, "rate-limit") ||
		strings.Contains(lowered, "rate limit")
}

// Backoff returns the wait after failed attempt n (1-based): min(10n, 30) seconds for rate limits,
// min(2^n, 8) seconds otherwise.
func Backoff(attempt int, err error) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if IsRateLimited(err) {
		return min(rateLimitStep*time.Duration(attempt), rateLimitCap)
	}
	if attempt >= 4 {
		return backoffCap
	}
	return min(backoffBaseUnit*time.Duration(1<<attempt), backoffCap)
}

// Classification is a successful classifier response with its provenance.
type Classification struct {
	Text        string
	RawResponse string
	Provider    string
	Attempts    int
}

// ClassificationClient sends prompts to a [TextGenerator] and retries failures.
//
// Every error kind goes through the same loop; only the wait differs for rate limits.
type ClassificationClient struct {
	generator  TextGenerator
	maxRetries int
	sleep      Sleeper
	logger     *log.Logger
}

// ClassifierOption configures a [ClassificationClient].
type ClassifierOption func(*ClassificationClient)

// WithSleeper replaces [SleepWithContext], mainly for tests.
func WithSleeper(s Sleeper) ClassifierOption {
	return func(c *ClassificationClient) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithClassifierLogger sets the logger for retry warnings.
func WithClassifierLogger(l *log.Logger) ClassifierOption {
	return func(c *ClassificationClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClassificationClient wraps generator. maxRetries below 1 is raised to 1.
func NewClassificationClient(generator TextGenerator, maxRetries int, opts ...ClassifierOption) *ClassificationClient {
	if maxRetries < 1 {
		maxRetries = 1
	}

	c := &ClassificationClient{
		generator:  generator,
		maxRetries: maxRetries,
		sleep:      SleepWithContext,
		logger:     shared.DiscardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the generator name, or "" when unconfigured.
func (c *ClassificationClient) Provider() string {
	if c.generator == nil {
		return ""
	}
	return c.generator.Name()
}

// Classify returns the first non-empty response, or a [*ProviderError] after maxRetries failures.
func (c *ClassificationClient) Classify(ctx context.Context, prompt string) (*Classification, error) {
	if c.generator == nil {
		return nil, &shared.ConfigurationError{Key: "classifier.provider"}
	}

	provider := c.generator.Name()
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		gen, err := c.generator.Generate(ctx, prompt)
		if err == nil && (gen == nil || strings.TrimSpace(gen.Text) == "") {
			err = fmt.Errorf("%w: %s returned empty content", shared.ErrEmptyResponse, provider)
		}
		if err == nil {
			return &Classification{Text: gen.Text, RawResponse: gen.RawResponse, Provider: provider, Attempts: attempt}, nil
		}

		lastErr = err
		if attempt == c.maxRetries {
			break
		}

		wait := Backoff(attempt, err)
		c.logger.Warn("classifier attempt failed, retrying",
			"provider", provider, "attempt", attempt, "max", c.maxRetries, "wait", wait, "rate_limited", IsRateLimited(err), "error", err)

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, &ProviderError{Provider: provider, Attempts: c.maxRetries, Err: lastErr}
}
