package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ReconnectConfig holds configuration for connection attempts
type ReconnectConfig struct {
	MaxAttempts int           // Maximum number of connection attempts
	Backoff     time.Duration // Backoff duration between attempts
	Multiplier  float64       // Backoff multiplier for exponential backoff
	MaxBackoff  time.Duration // Maximum backoff duration
}

// DefaultReconnectConfig returns a default reconnection configuration
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		MaxAttempts: 5,
		Backoff:     1 * time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}
}

// ReconnectFunc is a function that attempts to connect
type ReconnectFunc func(ctx context.Context) error

// Reconnect attempts to connect with exponential backoff. It is used for
// infrastructure the service owns (the document store), never for
// reasoning or speech calls.
func Reconnect(ctx context.Context, name string, fn ReconnectFunc, config *ReconnectConfig, logger zerolog.Logger) error {
	if config == nil {
		config = DefaultReconnectConfig()
	}

	backoff := config.Backoff
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 0 {
				logger.Info().Str("target", name).Int("attempts", attempt+1).Msg("Connection established after retries")
			}
			return nil
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxAttempts-1 {
			logger.Warn().
				Err(lastErr).
				Str("target", name).
				Int("attempt", attempt+1).
				Int("max_attempts", config.MaxAttempts).
				Dur("backoff", backoff).
				Msg("Connection attempt failed")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxBackoff {
					backoff = config.MaxBackoff
				}
			}
		}
	}

	return fmt.Errorf("failed to connect to %s after %d attempts: %w", name, config.MaxAttempts, lastErr)
}
