package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const statusKeyPrefix = "jobs:status:"

// State is the lifecycle stage of a supervised job.
type State string

const (
	StateWaiting   State = "waiting"
	StateRunning   State = "running"
	StateBackoff   State = "backoff"
	StateDisabled  State = "disabled"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

// Record is the persisted view of one supervised job.
type Record struct {
	Name                string `json:"name"`
	Interval            int64  `json:"interval"`
	ConsecutiveFailures uint32 `json:"consecutiveFailures"`
	LastFailure         int64  `json:"lastFailure,omitempty"`
	LastError           string `json:"lastError,omitempty"`
	State               State  `json:"state"`
	Instance            string `json:"instance"`
	UpdatedAt           int64  `json:"updatedAt"`
}

// StatusCache is where records are persisted.
type StatusCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error
}

// StatusReporter stores job records with a TTL so stale instances age out.
type StatusReporter struct {
	cache    StatusCache
	instance string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewStatusReporter creates a reporter for the given process instance.
func NewStatusReporter(cache StatusCache, instance string, ttl time.Duration, logger *zap.Logger) *StatusReporter {
	return &StatusReporter{
		cache:    cache,
		instance: instance,
		ttl:      ttl,
		logger:   logger.Named("status_reporter"),
	}
}

// Report stores record. Failures are logged.
func (r *StatusReporter) Report(ctx context.Context, record Record) {
	record.Instance = r.instance

	data, err := sonic.MarshalString(record)
	if err != nil {
		r.logger.Error("Failed to encode job status", zap.String("job", record.Name), zap.Error(err))
		return
	}

	if err := r.cache.SetWithTTL(ctx, statusKeyPrefix+record.Name, data, r.ttl); err != nil {
		r.logger.Warn("Failed to report job status", zap.String("job", record.Name), zap.Error(err))
	}
}

// Get loads the stored record for a job.
func (r *StatusReporter) Get(ctx context.Context, name string) (*Record, bool, error) {
	raw, found, err := r.cache.Get(ctx, statusKeyPrefix+name)
	if err != nil || !found {
		return nil, false, err
	}

	var record Record
	if err := sonic.UnmarshalString(raw, &record); err != nil {
		return nil, false, fmt.Errorf("failed to decode job status %s: %w", name, err)
	}

	return &record, true, nil
}
