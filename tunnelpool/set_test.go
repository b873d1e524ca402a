package tunnelpool

import "testing"

func TestSetInsertLookup(t *testing.T) {
	s := newSet()
	a := newRecord("a://x", 1, 16)
	b := newRecord("a://y", 2, 16)
	s.insert(a)
	s.insert(b)

	if got := s.get("a://x"); got != a {
		t.Errorf("get a://x = %v, want %v", got, a)
	}
	if got := s.get("a://missing"); got != nil {
		t.Errorf("get a://missing = %v, want nil", got)
	}
	if s.len() != 2 {
		t.Errorf("len = %d, want 2", s.len())
	}
}

func TestSetReplace(t *testing.T) {
	s := newSet()
	a := newRecord("a://x", 1, 16)
	s.insert(a)

	b := newRecord("a://x", 2, 16)
	old := s.replace(b)
	if old != a {
		t.Errorf("replace returned %v, want %v", old, a)
	}
	if s.get("a://x") != b {
		t.Errorf("get after replace did not return new record")
	}

	c := newRecord("a://nowhere", 3, 16)
	if s.replace(c) != nil {
		t.Errorf("replace of absent url should return nil")
	}
}

func TestSetDeletePreservesOrder(t *testing.T) {
	s := newSet()
	a := newRecord("a://1", 1, 16)
	b := newRecord("a://2", 2, 16)
	c := newRecord("a://3", 3, 16)
	s.insert(a)
	s.insert(b)
	s.insert(c)

	deleted := s.delete("a://2")
	if deleted != b {
		t.Fatalf("delete returned %v, want %v", deleted, b)
	}
	if s.len() != 2 {
		t.Fatalf("len = %d, want 2", s.len())
	}
	if s.records[0] != a || s.records[1] != c {
		t.Errorf("order not preserved after delete: %v", s.records)
	}

	if s.delete("a://missing") != nil {
		t.Errorf("delete of absent url should return nil")
	}
}

func TestSetGetByID(t *testing.T) {
	s := newSet()
	a := newRecord("a://1", 7, 16)
	s.insert(a)

	if got := s.getByID(7); got != a {
		t.Errorf("getByID(7) = %v, want %v", got, a)
	}
	if got := s.getByID(99); got != nil {
		t.Errorf("getByID(99) = %v, want nil", got)
	}
}
