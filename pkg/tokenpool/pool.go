// Package tokenpool implements the Token Pool (C2) and the standalone
// Rate Limiter gate (C3). Both generalize the teacher's Throttler
// (pkg/scanner/throttler.go), which tracked one GitHub-wide rate
// budget, into a pool of independently-paced slots plus a reusable
// per-key gate.
package tokenpool

import (
	"context"
	"log"
	"sync"
	"time"

	"keyhunter/pkg/models"
)

// Pool holds up to five search-API tokens and leases them out one at a
// time. lease() always succeeds eventually; it never returns an error
// for "no tokens ready" — it suspends until one is.
type Pool struct {
	mu              sync.Mutex
	slots           []*models.TokenSlot
	defaultInterval time.Duration
	logger          *log.Logger
	warnedEmpty     bool
}

// New builds a Pool from the given tokens (already filtered to
// non-empty values), pacing each slot at minInterval by default absent
// any server-provided rate-limit signal.
func New(tokens []string, minInterval time.Duration, logger *log.Logger) *Pool {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	slots := make([]*models.TokenSlot, 0, len(tokens))
	now := time.Now()
	for _, tok := range tokens {
		slots = append(slots, &models.TokenSlot{Token: tok, EarliestNextUse: now})
	}
	return &Pool{slots: slots, defaultInterval: minInterval, logger: logger}
}

// Len reports how many tokens (valid or still cooling down) remain in
// the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Lease blocks until a token slot is ready (earliest_next_use <= now
// and not already leased), picking the one with the smallest
// earliest_next_use, marks it leased, and returns it. If the pool is
// empty (every token was marked permanently invalid) it blocks until
// ctx is done.
func (p *Pool) Lease(ctx context.Context) (*models.TokenSlot, error) {
	for {
		p.mu.Lock()
		slot, wait := p.nextReady()
		if slot != nil {
			slot.Leased = true
		}
		p.mu.Unlock()

		if slot != nil {
			return slot, nil
		}

		if wait <= 0 {
			wait = 50 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}
}

// nextReady returns the readiest available, not-already-leased slot,
// or nil plus how long the caller should wait before checking again.
// Must be called with p.mu held.
func (p *Pool) nextReady() (*models.TokenSlot, time.Duration) {
	now := time.Now()
	var best *models.TokenSlot
	minWait := time.Duration(0)
	anyLive := false

	for _, s := range p.slots {
		if s.Invalid {
			continue
		}
		anyLive = true
		if s.Leased {
			continue
		}
		if !s.EarliestNextUse.After(now) {
			if best == nil || s.EarliestNextUse.Before(best.EarliestNextUse) {
				best = s
			}
			continue
		}
		w := s.EarliestNextUse.Sub(now)
		if minWait == 0 || w < minWait {
			minWait = w
		}
	}

	if !anyLive && !p.warnedEmpty {
		if p.logger != nil {
			p.logger.Printf("token pool: all tokens invalid, leases will never succeed")
		}
		p.warnedEmpty = true
	}

	if best != nil {
		return best, 0
	}
	return nil, minWait
}

// Release returns a leased slot to the pool, clearing its in-flight
// mark so a later Lease can pick it up again, and adjusting its pacing
// from the upstream response headers per spec's Token Pool release
// policy: a Retry-After-bearing 403/429 sets a cooldown, an exhausted
// X-RateLimit-Remaining sets earliest_next_use to the reset time, and
// otherwise the slot paces at the configured minimum interval.
func (p *Pool) Release(slot *models.TokenSlot, statusCode int, retryAfter time.Duration, rateRemaining int, rateReset time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot.Leased = false

	now := time.Now()
	switch {
	case (statusCode == 403 || statusCode == 429) && retryAfter > 0:
		slot.CooldownUntil = now.Add(retryAfter)
		slot.EarliestNextUse = slot.CooldownUntil
	case rateRemaining == 0 && !rateReset.IsZero():
		slot.EarliestNextUse = rateReset
	default:
		slot.EarliestNextUse = now.Add(p.defaultInterval)
	}
}

// Invalidate permanently removes a slot from rotation after its token
// was rejected with 401. The pool continues with whatever remains;
// callers are responsible for treating an empty pool as fatal.
func (p *Pool) Invalidate(slot *models.TokenSlot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	slot.Invalid = true
	slot.Leased = false
	if p.logger != nil {
		p.logger.Printf("token pool: token removed after 401 (unauthorized)")
	}
}
