package tunnelpool

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/DaviWei/reqrypt/transport"
)

// Config carries the knobs a Pool needs beyond its transport: the
// configured MTU ceiling forwarded to the
// transport on every send, and where the cache file triad lives.
type Config struct {
	ConfigMTU uint16
	CacheDir  string
}

// Pool is the tunnel pool described by SPEC_FULL.md: it owns the
// cache and active tunnel sets, the flow-hash history table, and the
// background Activator and Reconnector managers that keep the active
// set populated. Every exported method that touches pool state takes
// mu for the shortest span it can manage. Transport open, send and
// fragmentation calls happen with mu released; transport close calls
// and cache file writes run with mu held.
type Pool struct {
	mu sync.Mutex

	cache  *Set
	active *Set
	hist   history
	nextID uint16

	transport transport.Transport
	cfg       Config
	metrics   *metrics

	// Retry backoff knobs for worker open attempts. Defaulted in New
	// to the spec's constants; tests shrink them to keep the bounded-
	// retry loop from sleeping in real time.
	retryBaseBackoff time.Duration
	retryJitterMs    int
	retryMultiplier  time.Duration
}

// New constructs a Pool. It does not start any background goroutine;
// call Init then Open to bring it up, matching the process-wide
// lifecycle spec.md §6 describes: init must run exactly once before
// any other entry point, and open must run after init and after the
// cache file has been read.
func New(t transport.Transport, cfg Config) *Pool {
	return &Pool{
		cache:            newSet(),
		active:           newSet(),
		transport:        t,
		cfg:              cfg,
		metrics:          newMetrics(),
		retryBaseBackoff: activatorBaseBackoff,
		retryJitterMs:    activatorJitterMs,
		retryMultiplier:  retryMultiplier,
	}
}

// Init loads the persisted cache from disk, matching the "init must be
// called exactly once before any other entry point... open must be
// called after init and after file_read" lifecycle note. Unlike the
// original's split init()/file_read() calls, New's separate
// construction means Init can fold the file_read step in directly: no
// caller-visible state change is observable before this method runs,
// so there is no ordering hazard in doing both here.
func (p *Pool) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readCacheLocked()
}

// Open spawns the Activator and Reconnector background managers.
// Both run detached for the lifetime of the process; there is no
// shutdown entry point in this core, matching the original design.
func (p *Pool) Open() {
	go p.activatorManager()
	go p.reconnectorManager()
}

// Ready reports whether the active set is non-empty.
func (p *Pool) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active.len() > 0
}

// Add registers a new tunnel URL, or re-arms a Dead one. Invalid URLs
// are rejected. A URL already Open or Opening is left alone with a
// warning; any other existing state is kicked back to Opening and
// handed to a fresh Activator worker.
func (p *Pool) Add(url string) error {
	if err := parseURL(url); err != nil {
		return err
	}

	p.mu.Lock()
	rec := p.cache.get(url)
	if rec == nil {
		rec = newRecord(url, p.allocIDLocked(), TunnelInitAge)
		p.cache.insert(rec)
	} else {
		switch rec.State {
		case StateOpen, StateOpening:
			p.mu.Unlock()
			log.Printf("[tunnelpool] add %s: already %s, ignoring", url, rec.State)
			return nil
		}
		rec.Age = TunnelInitAge
	}
	rec.State = StateOpening
	p.mu.Unlock()

	go p.activatorWorker(rec)
	p.persist()
	return nil
}

// Delete removes url from the pool. If it is active, its state
// determines the action taken (Opening and Closing requests are left
// to the owning worker to finish); otherwise it is dropped straight
// from the cache, and a record still Opening there is flipped to
// Closing for its worker to finish.
func (p *Pool) Delete(url string) {
	p.mu.Lock()
	rec := p.active.delete(url)
	if rec != nil {
		switch rec.State {
		case StateOpening:
			rec.State = StateClosing
		case StateClosing:
			// already on its way out
		case StateOpen:
			p.transport.Close(rec.Transport)
			rec.Transport = nil
			rec.State = StateClosed
		default:
			p.fatalfLocked("delete: record %s in unreachable state %s", url, rec.State)
		}
		p.mu.Unlock()
		p.persist()
		return
	}

	if rec := p.cache.delete(url); rec != nil && rec.State == StateOpening {
		// The worker owning the open attempt finishes the transition.
		rec.State = StateClosing
	}
	p.mu.Unlock()
	p.persist()
}

// ForwardPackets selects a tunnel for flowHash/repeat and hands
// packets to the transport. All transport calls happen after the
// mutex has been released: the record handle and effective MTU are
// captured under the lock, then every blocking call runs unlocked,
// resolving SPEC_FULL.md Open Question 1 by releasing the mutex on
// every exit path rather than ever returning while still held.
func (p *Pool) ForwardPackets(primary []byte, packets [][]byte, flowHash uint64, repeat uint32) bool {
	p.mu.Lock()
	rec := p.selectLocked(flowHash, repeat)
	if rec == nil {
		p.mu.Unlock()
		log.Printf("[tunnelpool] forward: no active tunnel, dropping")
		return false
	}
	handle := rec.Transport
	p.mu.Unlock()

	mtu := p.transport.MTU(handle, p.cfg.ConfigMTU)
	if mtu == 0 {
		return false
	}

	if needsFragmentation(primary, mtu) {
		p.transport.FragmentationRequired(handle, mtu, primary)
		return true
	}
	for _, pkt := range packets {
		if needsFragmentation(pkt, mtu) {
			p.transport.FragmentationRequired(handle, mtu, primary)
			return true
		}
	}

	for _, pkt := range packets {
		p.transport.Send(handle, pkt)
	}
	return true
}

// RenderList writes <option value="URL">URL</option> lines for every
// record in the chosen set to w.
func (p *Pool) RenderList(w interface{ WriteString(string) (int, error) }, active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set := p.cache
	if active {
		set = p.active
	}
	set.each(func(r *Record) {
		w.WriteString(`<option value="` + r.URL + `">` + r.URL + `</option>` + "\n")
	})
}

// allocIDLocked returns the next monotonic, non-reusing tunnel ID.
// Must be called with mu held.
func (p *Pool) allocIDLocked() uint16 {
	id := p.nextID
	p.nextID++
	return id
}

// fatalfLocked logs and aborts the process for a programmer error —
// a record observed in a state the state machine says is unreachable
// from the caller's code path. mu does not need to be released first;
// the process is exiting.
func (p *Pool) fatalfLocked(format string, args ...any) {
	log.Fatalf("[tunnelpool] programmer error: "+format, args...)
}

// persist triggers a cache write and refreshes the set-size gauges.
// It takes the mutex itself, so callers must not hold mu when calling
// it. Every Control API mutation that changes cache or active ends
// with a call to persist, which keeps the gauges from drifting far
// out of date without needing a separate hook at every call site.
func (p *Pool) persist() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics.activeSize.Set(float64(p.active.len()))
	p.metrics.cacheSize.Set(float64(p.cache.len()))
	if err := p.writeCacheLocked(); err != nil {
		log.Printf("[tunnelpool] persistence write failed: %v", err)
	}
}

// jitterMillis draws a jitter value in [0, n) for retry/sleep backoff,
// used to avoid synchronised thundering-herd reconnects when many
// tunnels were configured at once.
func jitterMillis(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.IntN(n)
}

// sleepContext sleeps for d unless ctx is done first.
func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
