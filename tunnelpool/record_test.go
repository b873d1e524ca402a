package tunnelpool

import "testing"

func TestAgeDownSaturatesAtZero(t *testing.T) {
	r := newRecord("wss://x", 0, 0)
	r.ageDown()
	if r.Age != 0 {
		t.Errorf("Age = %d, want 0", r.Age)
	}
}

func TestClampWeight(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.0, minWeight},
		{0.001, minWeight},
		{0.5, 0.5},
		{1.0, maxWeight},
		{10.0, maxWeight},
	}
	for _, c := range cases {
		if got := clampWeight(c.in); got != c.want {
			t.Errorf("clampWeight(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
