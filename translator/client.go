package translator

import (
	"context"
	"fmt"
	"time"
)

// TranslatorClient wraps an engine with a bounded, fixed-delay retry loop.
type TranslatorClient struct {
	Provider      Provider
	RetryTimes    int
	RetryInterval time.Duration

	sleep func(context.Context, time.Duration) error
}

// NewTranslatorClient creates a client with the primary engine's retry policy:
// two additional attempts, 500ms apart.
func NewTranslatorClient(provider Provider) *TranslatorClient {
	return &TranslatorClient{
		Provider:      provider,
		RetryTimes:    2,
		RetryInterval: 500 * time.Millisecond,
		sleep:         sleepContext,
	}
}

// WithRetry sets the retry parameters. times is the number of additional attempts.
func (c *TranslatorClient) WithRetry(times int, interval time.Duration) *TranslatorClient {
	if times < 0 {
		times = 0
	}
	c.RetryTimes = times
	c.RetryInterval = interval
	return c
}

// Name returns the wrapped engine name.
func (c *TranslatorClient) Name() string {
	return c.Provider.GetName()
}

// Translate translates one chunk, retrying failures.
func (c *TranslatorClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.RetryTimes; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.RetryInterval); err != nil {
				return "", err
			}
		}

		result, err := c.Provider.Translate(ctx, text, source, target)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("%s failed after %d attempts: %w", c.Name(), c.RetryTimes+1, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
