package transport

import (
	"context"
	"sync"
	"time"
)

// Stub is an in-memory Transport for tests. It never touches the
// network; callers script its behavior per URL.
type Stub struct {
	mu sync.Mutex

	// OpenFunc overrides Open entirely when set.
	OpenFunc func(url string) (Handle, error)
	// FailOpens lists URLs whose Open calls fail this many more times
	// (decremented per call) before succeeding.
	FailOpens map[string]int
	// MTUValue is returned by MTU for any non-nil handle.
	MTUValue uint16
	// TimedOut marks handles (by the url they were opened with) as
	// expired for Timeout.
	TimedOut map[string]bool

	Sent       []StubSend
	Fragmented []StubSend
	Closed     []string
}

type StubSend struct {
	URL    string
	Packet []byte
}

type stubHandle struct {
	url string
}

func NewStub() *Stub {
	return &Stub{
		FailOpens: make(map[string]int),
		TimedOut:  make(map[string]bool),
		MTUValue:  1500,
	}
}

func (s *Stub) Open(ctx context.Context, url string) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OpenFunc != nil {
		return s.OpenFunc(url)
	}
	if n := s.FailOpens[url]; n > 0 {
		s.FailOpens[url] = n - 1
		return nil, errOpenFailed{url}
	}
	return &stubHandle{url: url}, nil
}

func (s *Stub) Close(h Handle) {
	wh, ok := h.(*stubHandle)
	if !ok || wh == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = append(s.Closed, wh.url)
}

func (s *Stub) Send(h Handle, packet []byte) {
	wh, ok := h.(*stubHandle)
	if !ok || wh == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), packet...)
	s.Sent = append(s.Sent, StubSend{URL: wh.url, Packet: cp})
}

func (s *Stub) MTU(h Handle, configMTU uint16) uint16 {
	if h == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MTUValue
}

func (s *Stub) Timeout(h Handle, now time.Time) bool {
	wh, ok := h.(*stubHandle)
	if !ok || wh == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TimedOut[wh.url]
}

func (s *Stub) FragmentationRequired(h Handle, mtu uint16, primary []byte) {
	wh, ok := h.(*stubHandle)
	if !ok || wh == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), primary...)
	s.Fragmented = append(s.Fragmented, StubSend{URL: wh.url, Packet: cp})
}

// SetTimedOut marks every handle opened for url, earlier or later, as
// expired (or not) for Timeout.
func (s *Stub) SetTimedOut(url string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TimedOut[url] = v
}

type errOpenFailed struct{ url string }

func (e errOpenFailed) Error() string { return "stub: open " + e.url + " failed" }
