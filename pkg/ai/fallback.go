package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackGenerator tries each provider in order until one answers.
type FallbackGenerator struct {
	providers []namedGenerator
	logger    *zap.Logger
}

type namedGenerator struct {
	name string
	gen  TextGenerator
}

func NewFallbackGenerator(logger *zap.Logger) *FallbackGenerator {
	return &FallbackGenerator{logger: logger}
}

// Add appends a provider. Nil generators are ignored.
func (f *FallbackGenerator) Add(name string, gen TextGenerator) *FallbackGenerator {
	if gen != nil {
		f.providers = append(f.providers, namedGenerator{name: name, gen: gen})
	}
	return f
}

func (f *FallbackGenerator) Len() int {
	return len(f.providers)
}

func (f *FallbackGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if len(f.providers) == 0 {
		return "", fmt.Errorf("no AI provider available")
	}

	var errs []error
	for _, p := range f.providers {
		text, err := p.gen.GenerateText(ctx, prompt)
		if err == nil {
			return text, nil
		}

		switch {
		case isQuotaError(err):
			f.logger.Warn("Provider quota exhausted, trying next", zap.String("provider", p.name), zap.Error(err))
		case isConnectionError(err):
			f.logger.Warn("Provider unreachable, trying next", zap.String("provider", p.name), zap.Error(err))
		default:
			f.logger.Warn("Provider failed, trying next", zap.String("provider", p.name), zap.Error(err))
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.name, err))

		if ctx.Err() != nil {
			break
		}
	}

	return "", errors.Join(errs...)
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return containsAny(err.Error(),
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"EOF",
	)
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	return containsAny(err.Error(),
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	)
}

func containsAny(s string, indicators ...string) bool {
	lower := strings.ToLower(s)
	for _, indicator := range indicators {
		if strings.Contains(lower, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}
