package tunnelpool

import (
	"strings"
	"testing"

	"github.com/DaviWei/reqrypt/transport"
)

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := New(transport.NewStub(), Config{CacheDir: dir})

	p.mu.Lock()
	p.cache.insert(newRecord("a://x", p.allocIDLocked(), 16))
	p.cache.insert(newRecord("a://y", p.allocIDLocked(), 8))
	p.cache.insert(newRecord("a://z", p.allocIDLocked(), 0)) // age 0: must not persist
	if err := p.writeCacheLocked(); err != nil {
		t.Fatalf("writeCacheLocked: %v", err)
	}
	p.mu.Unlock()

	p2 := New(transport.NewStub(), Config{CacheDir: dir})
	if err := p2.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	got := map[string]uint8{}
	p2.mu.Lock()
	p2.cache.each(func(r *Record) { got[r.URL] = r.Age })
	p2.mu.Unlock()

	want := map[string]uint8{"a://x": 16, "a://y": 8}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d: %v", len(got), len(want), got)
	}
	for url, age := range want {
		if got[url] != age {
			t.Errorf("record %s age = %d, want %d", url, got[url], age)
		}
	}
	if _, ok := got["a://z"]; ok {
		t.Errorf("age-0 record should not be persisted")
	}
}

func TestParseCacheStopsAtMalformedLine(t *testing.T) {
	p := New(transport.NewStub(), Config{CacheDir: t.TempDir()})
	input := "a://good 10\n" + "this-line-is-bad\n" + "a://never-reached 5\n"

	p.mu.Lock()
	if err := p.parseCacheLocked(strings.NewReader(input)); err != nil {
		t.Fatalf("parseCacheLocked: %v", err)
	}
	n := p.cache.len()
	got := p.cache.get("a://good")
	unreached := p.cache.get("a://never-reached")
	p.mu.Unlock()

	if n != 1 {
		t.Fatalf("parsed %d records, want 1", n)
	}
	if got == nil || got.Age != 10 {
		t.Errorf("a://good not parsed correctly: %v", got)
	}
	if unreached != nil {
		t.Errorf("parsing should have stopped before a://never-reached")
	}
}

func TestParseCacheSkipsBlankAndCommentLines(t *testing.T) {
	p := New(transport.NewStub(), Config{CacheDir: t.TempDir()})
	input := "# header\n\n# AGE = 10\na://x 10\n\n"

	p.mu.Lock()
	err := p.parseCacheLocked(strings.NewReader(input))
	n := p.cache.len()
	p.mu.Unlock()

	if err != nil {
		t.Fatalf("parseCacheLocked: %v", err)
	}
	if n != 1 {
		t.Fatalf("parsed %d records, want 1", n)
	}
}
