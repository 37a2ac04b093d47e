package client

import (
	"net/http"
	"time"

	"github.com/daggerwin/automod/internal/setup/config"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// leveledZap adapts a zap logger to retryablehttp.LeveledLogger.
type leveledZap struct {
	inner *zap.SugaredLogger
}

// Error is logged at warn level since the request may still be retried.
func (l leveledZap) Error(msg string, keysAndValues ...any) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l leveledZap) Warn(msg string, keysAndValues ...any) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l leveledZap) Info(msg string, keysAndValues ...any) {
	l.inner.Debugw(msg, keysAndValues...)
}

func (l leveledZap) Debug(msg string, keysAndValues ...any) {
	l.inner.Debugw(msg, keysAndValues...)
}

// NewBlocklistHTTPClient returns an HTTP client for fetching blocklist sources.
// Connection errors and 5xx responses are retried up to MaxRetries times and
// each attempt is bounded by RequestTimeout.
func NewBlocklistHTTPClient(cfg *config.Blocklist, logger *zap.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledZap{logger.Named("http").Sugar()})
	retryClient.HTTPClient.Timeout = time.Duration(cfg.RequestTimeout) * time.Second

	return retryClient.StandardClient()
}
