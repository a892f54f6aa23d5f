package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestFallbackGeneratorUsesNextProviderOnError(t *testing.T) {
	first := &stubGenerator{err: errors.New("429 too many requests")}
	second := &stubGenerator{text: "Subject: Hi"}

	gen := NewFallbackGenerator(zap.NewNop()).Add("first", first).Add("second", second)

	text, err := gen.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Subject: Hi", text)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestFallbackGeneratorJoinsErrors(t *testing.T) {
	gen := NewFallbackGenerator(zap.NewNop()).
		Add("a", &stubGenerator{err: errors.New("dial tcp: connection refused")}).
		Add("b", &stubGenerator{err: errors.New("bad request")})

	_, err := gen.GenerateText(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: dial tcp")
	assert.Contains(t, err.Error(), "b: bad request")
}

func TestFallbackGeneratorIgnoresNil(t *testing.T) {
	gen := NewFallbackGenerator(zap.NewNop()).Add("nil", nil)
	assert.Equal(t, 0, gen.Len())

	_, err := gen.GenerateText(context.Background(), "prompt")
	assert.Error(t, err)
}

func TestNewTextGeneratorUnconfigured(t *testing.T) {
	gen := NewTextGenerator(context.Background(), Config{Provider: ProviderAuto}, zap.NewNop())
	assert.Nil(t, gen)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isQuotaError(errors.New("RESOURCE_EXHAUSTED: quota")))
	assert.False(t, isQuotaError(errors.New("invalid argument")))
	assert.True(t, isConnectionError(errors.New("dial tcp 127.0.0.1:11434: connection refused")))
	assert.False(t, isConnectionError(nil))
}
