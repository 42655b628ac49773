package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PolitenessDelay sleeps a random duration in [min, max] before each crawl
// request, so a sequential crawler never hammers the target site
type PolitenessDelay struct {
	min, max time.Duration
	mu       sync.Mutex // Guards rng
	rng      *rand.Rand
	log      *logrus.Entry
}

// NewPolitenessDelay creates a delayer drawing uniformly from [min, max].
// max below min is raised to min; a zero window disables the delay.
func NewPolitenessDelay(minDelay, maxDelay time.Duration, log *logrus.Entry) *PolitenessDelay {
	if minDelay < 0 {
		minDelay = 0
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &PolitenessDelay{
		min: minDelay,
		max: maxDelay,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		log: log,
	}
}

// Next draws the next delay without sleeping
func (d *PolitenessDelay) Next() time.Duration {
	spread := int64(d.max - d.min)
	if spread <= 0 {
		return d.min
	}
	d.mu.Lock()
	offset := d.rng.Int63n(spread + 1)
	d.mu.Unlock()
	return d.min + time.Duration(offset)
}

// Wait sleeps for the next delay, returning early with ctx.Err() if ctx ends.
// Returns the delay that was drawn.
func (d *PolitenessDelay) Wait(ctx context.Context) (time.Duration, error) {
	delay := d.Next()
	if delay <= 0 {
		return 0, ctx.Err()
	}
	d.log.WithField("delay", delay).Debug("Politeness delay")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return delay, nil
	case <-ctx.Done():
		return delay, ctx.Err()
	}
}
