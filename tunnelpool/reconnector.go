package tunnelpool

import (
	"context"
	"log"
	"time"
)

const (
	reconnectorPollSleep = 1 * time.Second
	reconnectorJitterMs  = 1000
)

// reconnectorManager polls the active set forever for transport-
// declared expiry and spawns a replacement worker for each timed-out
// tunnel it finds.
func (p *Pool) reconnectorManager() {
	ctx := context.Background()
	for {
		sleep := reconnectorPollSleep + time.Duration(jitterMillis(reconnectorJitterMs))*time.Millisecond
		sleepContext(ctx, sleep)

		now := time.Now()
		var stale []string
		p.mu.Lock()
		p.active.each(func(r *Record) {
			if r.Reconnect {
				return
			}
			if p.transport.Timeout(r.Transport, now) {
				r.Reconnect = true
				stale = append(stale, r.URL)
			}
		})
		p.mu.Unlock()

		for _, url := range stale {
			go p.reconnectorWorker(url)
		}
	}
}

// reconnectorWorker opens a fresh tunnel for url and swaps it into
// place. url is a worker-owned copy, resolving SPEC_FULL.md Open
// Question 2: its lifetime spans the whole function, including the
// failure branch.
func (p *Pool) reconnectorWorker(url string) {
	ctx := context.Background()

	p.mu.Lock()
	fresh := newRecord(url, p.allocIDLocked(), TunnelInitAge)
	fresh.State = StateOpening
	p.mu.Unlock()

	ok, handle := p.boundedOpen(ctx, fresh)

	p.mu.Lock()
	if ok {
		fresh.Transport = handle
		fresh.State = StateOpen

		if old := p.active.replace(fresh); old != nil {
			p.transport.Close(old.Transport)
			p.cache.replace(fresh)
			log.Printf("[tunnelpool] reconnector: %s swapped in (id %d replaces %d)", url, fresh.ID, old.ID)
			p.metrics.reconnectorSwaps.Inc()
		} else if oldCache := p.cache.replace(fresh); oldCache != nil {
			p.transport.Close(handle)
			fresh.Transport = nil
			fresh.State = StateDead
			fresh.Reconnect = false
		} else {
			// URL disappeared from both sets while we were opening.
			p.transport.Close(handle)
		}
	} else {
		old := p.active.delete(url)
		if old != nil {
			p.transport.Close(old.Transport)
			old.Transport = nil
			old.State = StateDead
			old.Reconnect = false
		}
		log.Printf("[tunnelpool] reconnector: %s failed to reopen", url)
		p.metrics.reconnectorFailed.Inc()
	}
	p.mu.Unlock()

	p.persist()
}
