package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Fallback tries a primary client first and falls back on error.
// Context cancellation and deadline errors are never retried.
type Fallback struct {
	primary   Client
	secondary Client
	logger    *zap.Logger
}

// NewFallback creates a fallback chain. secondary may be nil, in which
// case the chain behaves like the primary client alone.
func NewFallback(primary, secondary Client, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Complete runs the primary client, then the secondary on failure.
func (f *Fallback) Complete(ctx context.Context, system, user string) (string, error) {
	text, err := f.primary.Complete(ctx, system, user)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	if f.secondary == nil {
		return "", err
	}

	f.logger.Warn("primary completion failed, trying fallback", zap.Error(err))

	text, fallbackErr := f.secondary.Complete(ctx, system, user)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary error: %w; fallback error: %v", err, fallbackErr)
	}
	return text, nil
}
