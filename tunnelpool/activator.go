package tunnelpool

import (
	"context"
	"log"
	"time"

	"github.com/DaviWei/reqrypt/transport"
)

const (
	maxInitOpen = 8
	maxRetries  = 3

	activatorBaseBackoff = 10 * time.Second
	activatorJitterMs    = 1000
	retryMultiplier      = 6

	activatorPassSleep     = 150 * time.Second
	activatorPassJitterMod = 10_000
)

// activatorManager opens Closed cache tunnels up to a concurrency cap
// until the active set reaches maxInitOpen, then exits; later opens
// are driven by the Reconnector swapping in replacements.
func (p *Pool) activatorManager() {
	ctx := context.Background()
	for {
		exhausted := p.activatorPassLocked()

		sleep := activatorPassSleep + time.Duration(jitterMillis(activatorPassJitterMod))*time.Millisecond
		if exhausted {
			return
		}

		p.mu.Lock()
		keepGoing := p.active.len() < maxInitOpen
		p.mu.Unlock()
		if !keepGoing {
			return
		}

		sleepContext(ctx, sleep)
	}
}

// activatorPassLocked claims up to budget Closed cache records,
// flipping each to Opening and spawning a worker. It reports whether
// the budget was exhausted this pass.
func (p *Pool) activatorPassLocked() bool {
	p.mu.Lock()
	budget := maxInitOpen - p.active.len() + 1
	claimed := 0
	var toStart []*Record
	p.cache.each(func(r *Record) {
		if claimed >= budget {
			return
		}
		if r.State == StateClosed {
			r.State = StateOpening
			toStart = append(toStart, r)
			claimed++
		}
	})
	p.mu.Unlock()

	for _, r := range toStart {
		go p.activatorWorker(r)
	}
	return claimed >= budget
}

// activatorWorker performs one tunnel's bounded-retry open attempt,
// then resolves the record's state on completion. It never holds the
// mutex while blocked in the transport's open call.
func (p *Pool) activatorWorker(rec *Record) {
	ctx := context.Background()
	ok, handle := p.boundedOpen(ctx, rec)

	p.mu.Lock()
	switch rec.State {
	case StateDeleting:
		rec.State = StateOpen
		if ok {
			p.transport.Close(handle)
		}
		p.cache.delete(rec.URL)
		p.mu.Unlock()

	case StateClosing:
		if ok {
			p.transport.Close(handle)
		}
		rec.Transport = nil
		rec.State = StateClosed
		p.mu.Unlock()

	case StateOpening:
		if ok {
			log.Printf("[tunnelpool] activator: %s opened", rec.URL)
			rec.Transport = handle
			rec.State = StateOpen
			rec.Age = TunnelInitAge
			p.active.insert(rec)
			p.metrics.activatorOpened.Inc()
		} else {
			log.Printf("[tunnelpool] activator: %s exhausted retries", rec.URL)
			rec.State = StateDead
			rec.ageDown()
			p.metrics.activatorFailed.Inc()
		}
		p.mu.Unlock()

	default:
		p.fatalfLocked("activator worker: %s in unreachable state %s", rec.URL, rec.State)
		p.mu.Unlock()
		return
	}

	p.persist()
}

// boundedOpen runs the bounded exponential-backoff open procedure
// shared by the Activator and Reconnector workers. It checks rec's
// state before each attempt (after any backoff sleep); the caller
// checks it again once the final attempt has returned. If the state
// has moved out of Opening, it stops without starting a further
// attempt, leaving the caller to observe the new state.
func (p *Pool) boundedOpen(ctx context.Context, rec *Record) (ok bool, handle transport.Handle) {
	retries := maxRetries
	backoff := p.retryBaseBackoff + time.Duration(jitterMillis(p.retryJitterMs))*time.Millisecond

	for {
		p.mu.Lock()
		state := rec.State
		p.mu.Unlock()
		if state != StateOpening {
			return false, nil
		}

		h, err := p.transport.Open(ctx, rec.URL)
		if err == nil {
			return true, h
		}

		retries--
		if retries <= 0 {
			return false, nil
		}
		sleepContext(ctx, backoff)
		backoff *= p.retryMultiplier
	}
}
