// Package resilient wraps an LLMService with a circuit breaker and a rate
// limiter so a dead model server fails fast instead of stalling every query.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultMaxFailures       = 3
	DefaultOpenTimeout       = 30 * time.Second
	DefaultRequestsPerSecond = 2.0
	DefaultBurst             = 4
)

// Config tunes the breaker and limiter.
type Config struct {
	// MaxFailures is the number of consecutive unavailable errors that
	// opens the breaker (default: 3).
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before letting a
	// probe through (default: 30s).
	OpenTimeout time.Duration

	// RequestsPerSecond is the sustained generation rate (default: 2).
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 4).
	Burst int
}

// LLMService decorates another LLMService.
type LLMService struct {
	inner   driven.LLMService
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// New wraps inner.
func New(inner driven.LLMService, cfg Config) *LLMService {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm:" + inner.ModelName(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
				return
			}
			logger.Info("circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &LLMService{
		inner:   inner,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// countsAsFailure reports whether err says the model server is down rather
// than that one request went wrong.
func countsAsFailure(err error) bool {
	return errors.Is(err, domain.ErrLLMUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// Generate waits for a rate token and calls through the breaker. An open
// breaker is reported as domain.ErrLLMUnavailable.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.Generate(ctx, prompt, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
		return "", err
	}
	return result.(string), nil
}

// ModelName returns the wrapped model name.
func (s *LLMService) ModelName() string {
	return s.inner.ModelName()
}

// Ping bypasses the breaker.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// State exposes the breaker state for status reporting.
func (s *LLMService) State() string {
	return s.breaker.State().String()
}

// Close closes the wrapped service.
func (s *LLMService) Close() error {
	return s.inner.Close()
}
