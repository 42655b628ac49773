package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/sitemap-scraper/pkg/utils"
)

// hostEntry tracks a single host's semaphore and its usage state.
type hostEntry struct {
	sem     *semaphore.Weighted
	held    int64 // Permits currently held
	maxHeld int64 // High-water mark of held permits
}

// HostSemaphorePool bounds concurrent requests to each host.
// One pool is shared by every task of a pipeline run.
type HostSemaphorePool struct {
	entries        map[string]*hostEntry
	mu             sync.Mutex
	limit          int64
	acquireTimeout time.Duration // 0 = wait as long as ctx allows
	log            *logrus.Entry
}

// NewHostSemaphorePool creates a new pool with the given per-host concurrency limit.
func NewHostSemaphorePool(maxPerHost int, acquireTimeout time.Duration, log *logrus.Entry) *HostSemaphorePool {
	limit := int64(maxPerHost)
	if limit <= 0 {
		limit = 2
		log.Warnf("max_requests_per_host invalid or zero, defaulting to %d", limit)
	}
	return &HostSemaphorePool{
		entries:        make(map[string]*hostEntry),
		limit:          limit,
		acquireTimeout: acquireTimeout,
		log:            log,
	}
}

// HostKey returns the host[:port] a URL's permit is keyed on.
// Unparsable URLs share the empty key.
func HostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Acquire gets or creates a host semaphore and acquires one permit.
// Blocks until the permit is available, ctx ends, or the acquire timeout passes;
// the timeout case wraps ErrSemaphoreTimeout.
func (p *HostSemaphorePool) Acquire(ctx context.Context, host string) error {
	p.mu.Lock()
	entry, exists := p.entries[host]
	if !exists {
		entry = &hostEntry{sem: semaphore.NewWeighted(p.limit)}
		p.entries[host] = entry
		p.log.WithFields(logrus.Fields{"host": host, "limit": p.limit}).Debug("Created new host semaphore")
	}
	p.mu.Unlock()

	acquireCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	if err := entry.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: host %s after %v", utils.ErrSemaphoreTimeout, host, p.acquireTimeout)
		}
		return err
	}

	p.mu.Lock()
	entry.held++
	if entry.held > entry.maxHeld {
		entry.maxHeld = entry.held
	}
	p.mu.Unlock()
	return nil
}

// Release releases one permit for the given host.
func (p *HostSemaphorePool) Release(host string) {
	p.mu.Lock()
	entry, exists := p.entries[host]
	if !exists || entry.held == 0 {
		p.mu.Unlock()
		p.log.Errorf("hostsemaphore: Release called without a held permit for host: %s", host)
		return
	}
	entry.held--
	p.mu.Unlock()

	entry.sem.Release(1)
}

// PeakInFlight returns the highest number of permits ever held at once for any one host
func (p *HostSemaphorePool) PeakInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	peak := 0
	for _, entry := range p.entries {
		peak = max(peak, int(entry.maxHeld))
	}
	return peak
}

// Len returns the current number of tracked hosts.
func (p *HostSemaphorePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
