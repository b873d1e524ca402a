// Package transport defines the tunnel transport contract consumed by
// package tunnelpool, and a concrete implementation over a multiplexed
// WebSocket session.
package transport

import (
	"context"
	"time"
)

// Handle is an opaque reference to an established tunnel, returned by
// Open and threaded back through every other call. A nil Handle means
// no tunnel is held.
type Handle any

// Transport is the external collaborator tunnelpool.Pool depends on to
// actually establish and use tunnels. tunnelpool never interprets the
// handle; it only stores it on a Record and passes it back.
type Transport interface {
	// Open dials url and returns a handle on success. It may block for
	// the duration of ctx and must return a non-nil error on failure.
	Open(ctx context.Context, url string) (Handle, error)

	// Close releases a handle. It must be idempotent and must accept a
	// nil handle without panicking.
	Close(h Handle)

	// Send is best-effort; it does not report failure back to the pool.
	Send(h Handle, packet []byte)

	// MTU reports the effective MTU for h, given the caller's configured
	// ceiling configMTU. Zero means the tunnel is unusable right now.
	MTU(h Handle, configMTU uint16) uint16

	// Timeout reports whether h has gone stale as of now, according to
	// the transport's own liveness signal. The pool has no visibility
	// into the transport's internals beyond this predicate.
	Timeout(h Handle, now time.Time) bool

	// FragmentationRequired notifies the remote peer that primary did
	// not fit within mtu and must be re-sent in fragments upstream.
	FragmentationRequired(h Handle, mtu uint16, primary []byte)
}
