package automod

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	blocklistKey        = "malicious_domains"
	blocklistUpdatedKey = "malicious_domains:last_update"

	minBlocklistCapacity = 50000
	maxSourceBodySize    = 64 << 20
	maxConcurrentFetches = 4
	maxSourceLineSize    = 4096
	refreshTimeout       = 5 * time.Minute
)

var (
	// ErrNoDomains is returned when every source failed or returned nothing.
	ErrNoDomains = errors.New("no domains fetched from any source")
	// ErrSourceStatus is returned when a source answers with a non-success status.
	ErrSourceStatus = errors.New("unexpected source status")
)

// BlocklistConfig configures the malicious domain refresher.
type BlocklistConfig struct {
	Sources         []string
	RefreshInterval time.Duration
	UserAgent       string
	Token           string
}

// RefreshResult describes one refresh attempt.
type RefreshResult struct {
	Refreshed     bool
	Domains       int
	FailedSources int
}

type domainSet struct {
	updated int64
	domains map[string]struct{}
}

// Blocklist keeps the malicious domain list in the cache fresh and answers lookups against it.
type Blocklist struct {
	cache   Cache
	http    *http.Client
	config  BlocklistConfig
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	group   singleflight.Group
	current atomic.Pointer[domainSet]
}

// BlocklistOption customizes a Blocklist.
type BlocklistOption func(*Blocklist)

// WithBlocklistClock overrides the time source.
func WithBlocklistClock(now func() time.Time) BlocklistOption {
	return func(b *Blocklist) {
		b.now = now
	}
}

// WithBlocklistMetrics records refresh outcomes.
func WithBlocklistMetrics(metrics *Metrics) BlocklistOption {
	return func(b *Blocklist) {
		b.metrics = metrics
	}
}

// NewBlocklist creates a refresher fetching through httpClient.
func NewBlocklist(
	cache Cache, httpClient *http.Client, cfg BlocklistConfig, logger *zap.Logger, opts ...BlocklistOption,
) *Blocklist {
	b := &Blocklist{
		cache:  cache,
		http:   httpClient,
		config: cfg,
		logger: logger.Named("blocklist"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.current.Store(&domainSet{domains: make(map[string]struct{})})

	return b
}

// EnsureFresh refreshes the list when it is due. Failures are logged and the stale list is kept.
func (b *Blocklist) EnsureFresh(ctx context.Context) {
	if _, err := b.Refresh(ctx, false); err != nil {
		b.logger.Warn("Blocklist refresh failed", zap.Error(err))
	}
}

// Refresh fetches every source and stores the union. Unless force is set,
// nothing happens while the stored list is younger than the refresh interval.
// Concurrent callers share a single refresh, which outlives the caller that started it.
func (b *Blocklist) Refresh(ctx context.Context, force bool) (RefreshResult, error) {
	if !force {
		due, err := b.due(ctx)
		if err != nil {
			return RefreshResult{}, err
		}

		if !due {
			return RefreshResult{}, nil
		}
	}

	key := "refresh"
	if force {
		key = "refresh:forced"
	}

	ch := b.group.DoChan(key, func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		// Another refresh may have finished since the check above.
		if !force {
			due, err := b.due(refreshCtx)
			if err != nil || !due {
				return RefreshResult{}, err
			}
		}

		result, err := b.refresh(refreshCtx)
		if err != nil {
			b.metrics.refresh("failed", 0)
			return RefreshResult{}, err
		}

		b.metrics.refresh("success", result.Domains)

		return result, nil
	})

	select {
	case <-ctx.Done():
		return RefreshResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return RefreshResult{}, res.Err
		}

		return res.Val.(RefreshResult), nil
	}
}

// Contains returns the first host found in the stored list.
func (b *Blocklist) Contains(ctx context.Context, hosts []string) (string, bool, error) {
	if len(hosts) == 0 {
		return "", false, nil
	}

	set, err := b.load(ctx)
	if err != nil {
		return "", false, err
	}

	for _, host := range hosts {
		if _, ok := set.domains[host]; ok {
			return host, true, nil
		}
	}

	return "", false, nil
}

// due reports whether the stored list is older than the refresh interval.
func (b *Blocklist) due(ctx context.Context) (bool, error) {
	updated, found, err := b.lastUpdate(ctx)
	if err != nil {
		return false, err
	}

	if !found {
		return true, nil
	}

	return b.now().Unix()-updated > int64(b.config.RefreshInterval/time.Second), nil
}

func (b *Blocklist) lastUpdate(ctx context.Context) (int64, bool, error) {
	raw, found, err := b.cache.Get(ctx, blocklistUpdatedKey)
	if err != nil || !found {
		return 0, false, err
	}

	updated, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		b.logger.Warn("Ignoring malformed blocklist timestamp", zap.String("value", raw))
		return 0, false, nil
	}

	return updated, true, nil
}

// load returns the in-memory set, rebuilding it when the stored list changed.
func (b *Blocklist) load(ctx context.Context) (*domainSet, error) {
	current := b.current.Load()

	updated, found, err := b.lastUpdate(ctx)
	if err != nil {
		return nil, err
	}

	if !found || updated == current.updated {
		return current, nil
	}

	raw, found, err := b.cache.Get(ctx, blocklistKey)
	if err != nil {
		return nil, err
	}

	set := &domainSet{updated: updated, domains: make(map[string]struct{})}

	if found {
		var domains []string
		if err := sonic.UnmarshalString(raw, &domains); err != nil {
			b.logger.Warn("Discarding malformed blocklist", zap.Error(err))
			return current, nil
		}

		set.domains = make(map[string]struct{}, len(domains))
		for _, domain := range domains {
			set.domains[domain] = struct{}{}
		}
	}

	b.current.Store(set)

	return set, nil
}

type sourceResult struct {
	source  string
	domains []string
	err     error
}

func (b *Blocklist) refresh(ctx context.Context) (RefreshResult, error) {
	p := pool.NewWithResults[sourceResult]().WithMaxGoroutines(maxConcurrentFetches)

	for _, source := range b.config.Sources {
		p.Go(func() sourceResult {
			domains, err := b.fetch(ctx, source)
			return sourceResult{source: source, domains: domains, err: err}
		})
	}

	results := p.Wait()

	merged := make(map[string]struct{}, max(len(b.current.Load().domains)*11/10, minBlocklistCapacity))
	failed := 0

	for _, result := range results {
		if result.err != nil {
			failed++

			b.logger.Warn("Skipping blocklist source",
				zap.String("source", result.source),
				zap.Error(result.err))

			continue
		}

		for _, domain := range result.domains {
			merged[domain] = struct{}{}
		}
	}

	if len(merged) == 0 {
		return RefreshResult{FailedSources: failed}, ErrNoDomains
	}

	domains := make([]string, 0, len(merged))
	for domain := range merged {
		domains = append(domains, domain)
	}

	slices.Sort(domains)

	data, err := sonic.MarshalString(domains)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("failed to encode blocklist: %w", err)
	}

	updated := b.now().Unix()

	if err := b.cache.Set(ctx, blocklistKey, data); err != nil {
		return RefreshResult{}, fmt.Errorf("failed to store blocklist: %w", err)
	}

	if err := b.cache.Set(ctx, blocklistUpdatedKey, strconv.FormatInt(updated, 10)); err != nil {
		return RefreshResult{}, fmt.Errorf("failed to store blocklist timestamp: %w", err)
	}

	b.current.Store(&domainSet{updated: updated, domains: merged})

	b.logger.Info("Refreshed malicious domain list",
		zap.Int("domains", len(domains)),
		zap.Int("sources", len(results)),
		zap.Int("failed", failed))

	return RefreshResult{Refreshed: true, Domains: len(domains), FailedSources: failed}, nil
}

// fetch downloads one source and returns its normalized, non-empty lines.
func (b *Blocklist) fetch(ctx context.Context, source string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", b.config.UserAgent)

	if b.config.Token != "" {
		req.Header.Set("Authorization", "Token "+b.config.Token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrSourceStatus, resp.StatusCode)
	}

	var domains []string

	reader := bufio.NewReaderSize(io.LimitReader(resp.Body, maxSourceBodySize), maxSourceLineSize)
	skipping := false

	for {
		raw, isPrefix, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}

		// Overlong lines are dropped whole.
		if isPrefix || skipping {
			skipping = isPrefix
			continue
		}

		line := strings.ToLower(strings.TrimSpace(string(raw)))
		if line != "" {
			domains = append(domains, line)
		}
	}

	return domains, nil
}
