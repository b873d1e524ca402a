package tunnelpool

import (
	"testing"

	"github.com/DaviWei/reqrypt/transport"
)

func TestReconnectorWorkerSwapsInFreshTunnel(t *testing.T) {
	dir := t.TempDir()
	stub := transport.NewStub()
	p := New(stub, Config{CacheDir: dir})
	shrinkBackoff(p)

	p.mu.Lock()
	old := newRecord("a://swap", p.allocIDLocked(), TunnelInitAge)
	old.State = StateOpen
	h, _ := stub.Open(nil, "a://swap")
	old.Transport = h
	old.Reconnect = true // manager already marked this before spawning
	p.cache.insert(old)
	p.active.insert(old)
	oldID := old.ID
	p.mu.Unlock()

	p.reconnectorWorker("a://swap")

	p.mu.Lock()
	defer p.mu.Unlock()
	got := p.active.get("a://swap")
	if got == nil {
		t.Fatal("a://swap missing from active after reconnect")
	}
	if got.ID == oldID {
		t.Errorf("swapped-in record should have a new id, still %d", got.ID)
	}
	if got.State != StateOpen {
		t.Errorf("state = %s, want open", got.State)
	}
	if cacheRec := p.cache.get("a://swap"); cacheRec != got {
		t.Errorf("cache should point at the same swapped-in record as active")
	}
	if len(stub.Closed) != 1 {
		t.Errorf("old transport handle should have been closed, closed=%v", stub.Closed)
	}
}

func TestReconnectorWorkerFailureMarksDead(t *testing.T) {
	dir := t.TempDir()
	stub := transport.NewStub()
	stub.FailOpens["a://dead"] = 99
	p := New(stub, Config{CacheDir: dir})
	shrinkBackoff(p)

	p.mu.Lock()
	old := newRecord("a://dead", p.allocIDLocked(), TunnelInitAge)
	old.State = StateOpen
	old.Reconnect = true
	p.cache.insert(old)
	p.active.insert(old)
	p.mu.Unlock()

	p.reconnectorWorker("a://dead")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active.get("a://dead") != nil {
		t.Error("failed reconnect should remove the record from active")
	}
	cacheRec := p.cache.get("a://dead")
	if cacheRec == nil {
		t.Fatal("record should remain in cache")
	}
	if cacheRec.State != StateDead {
		t.Errorf("state = %s, want dead", cacheRec.State)
	}
	if cacheRec.Reconnect {
		t.Errorf("reconnect flag should be cleared")
	}
}
