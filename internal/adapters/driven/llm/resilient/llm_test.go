package resilient

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// mockLLM returns queued errors, then "ok".
type mockLLM struct {
	calls  atomic.Int32
	errs   []error
	closed bool
}

func (m *mockLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	n := int(m.calls.Add(1)) - 1
	if n < len(m.errs) && m.errs[n] != nil {
		return "", m.errs[n]
	}
	return "ok", nil
}

func (m *mockLLM) ModelName() string            { return "mock" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { m.closed = true; return nil }

func fastConfig() Config {
	return Config{MaxFailures: 2, OpenTimeout: time.Hour, RequestsPerSecond: 1000, Burst: 100}
}

func TestGenerate_PassesThrough(t *testing.T) {
	inner := &mockLLM{}
	s := New(inner, fastConfig())

	got, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, "mock", s.ModelName())
	assert.Equal(t, "closed", s.State())
}

func TestGenerate_OpensAfterConsecutiveUnavailable(t *testing.T) {
	down := fmt.Errorf("%w: connection refused", domain.ErrLLMUnavailable)
	inner := &mockLLM{errs: []error{down, down}}
	s := New(inner, fastConfig())

	for range 2 {
		_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	}
	assert.Equal(t, "open", s.State())

	_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Equal(t, int32(2), inner.calls.Load(), "open breaker must not reach the model")
}

func TestGenerate_OrdinaryErrorsDoNotTrip(t *testing.T) {
	bad := errors.New("status 400: prompt too long")
	inner := &mockLLM{errs: []error{bad, bad, bad}}
	s := New(inner, fastConfig())

	for range 3 {
		_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
		assert.ErrorIs(t, err, bad)
		assert.NotErrorIs(t, err, domain.ErrLLMUnavailable)
	}
	assert.Equal(t, "closed", s.State())
}

func TestGenerate_HalfOpenRecovers(t *testing.T) {
	down := fmt.Errorf("%w: refused", domain.ErrLLMUnavailable)
	inner := &mockLLM{errs: []error{down, down}}
	cfg := fastConfig()
	cfg.OpenTimeout = 10 * time.Millisecond
	s := New(inner, cfg)

	for range 2 {
		_, _ = s.Generate(context.Background(), "q", driven.GenerateOptions{})
	}
	require.Equal(t, "open", s.State())

	time.Sleep(20 * time.Millisecond)
	got, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, "closed", s.State())
}

func TestGenerate_RateLimitHonoursContext(t *testing.T) {
	inner := &mockLLM{}
	s := New(inner, Config{RequestsPerSecond: 0.001, Burst: 1})

	_, err := s.Generate(context.Background(), "q", driven.GenerateOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = s.Generate(ctx, "q", driven.GenerateOptions{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestClose(t *testing.T) {
	inner := &mockLLM{}
	require.NoError(t, New(inner, Config{}).Close())
	assert.True(t, inner.closed)
}
