package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/hireround/interview-engine/internal/logger"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxLogLen = 200
)

// Client wraps an Oracle with a bounded per-call timeout and at most one
// retry for transient failures. Malformed output is retried once as well,
// since regeneration frequently yields schema-conforming output.
type Client struct {
	backend   Oracle
	timeout   time.Duration
	logger    *zap.Logger
	maxLogLen int
}

// NewClient builds a Client around the provided backend. A non-positive
// timeout falls back to the default.
func NewClient(backend Oracle, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		backend:   backend,
		timeout:   timeout,
		logger:    log,
		maxLogLen: defaultMaxLogLen,
	}
}

// Infer performs one bounded inference call, retrying once on transient
// failure. The caller's context still governs cancellation.
func (c *Client) Infer(ctx context.Context, req Request, out any) error {
	if c == nil || c.backend == nil {
		return fmt.Errorf("%w: no backend configured", ErrUnavailable)
	}

	if preview, err := json.Marshal(req.Payload); err == nil {
		c.logger.Debug("oracle request",
			zap.Int("payload_length", utf8.RuneCount(preview)),
			zap.String("payload_preview", logger.TruncateForLog(string(preview), c.maxLogLen)),
		)
	}

	err := c.call(ctx, req, out)
	if err == nil {
		return nil
	}

	if !retryable(err) {
		return err
	}

	c.logger.Debug("retrying oracle call", zap.Error(err))

	if retryErr := c.call(ctx, req, out); retryErr != nil {
		return retryErr
	}

	return nil
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.backend.Infer(callCtx, req, out)
	if err != nil {
		// A caller abort is not a backend fault; it must surface as-is so
		// sequencers roll back instead of degrading.
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		if callCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s", ErrTimeout, err)
		}
	}

	return err
}

func retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrProvider) || errors.Is(err, ErrMalformed)
}
