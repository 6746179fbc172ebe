package translator

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerProvider stops calling an engine after consecutive failures so that
// later requests fail fast and reach the fallback engine sooner.
type BreakerProvider struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker
}

// BreakerSettings tunes BreakerProvider.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerSettings trips after five failed calls and probes again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// NewBreakerProvider wraps provider with a circuit breaker.
func NewBreakerProvider(provider Provider, settings BreakerSettings, logger *zap.Logger) *BreakerProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = DefaultBreakerSettings().ConsecutiveFailures
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider.GetName(),
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			// A cancelled request says nothing about the engine.
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Translation engine circuit changed state",
				zap.String("engine", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &BreakerProvider{provider: provider, cb: cb}
}

func (b *BreakerProvider) GetName() string {
	return b.provider.GetName()
}

func (b *BreakerProvider) Translate(ctx context.Context, text, source, target string) (string, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.provider.Translate(ctx, text, source, target)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *BreakerProvider) State() string {
	return b.cb.State().String()
}
