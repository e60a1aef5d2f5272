package ranking

import "testing"

func TestWilsonLowerBoundNoRatings(t *testing.T) {
	if b := WilsonLowerBound(0, 5, DefaultConfidence); b != 0 {
		t.Fatalf("unrated spot must score 0, got %v", b)
	}
	if b := WilsonLowerBound(-1, 3, DefaultConfidence); b != 0 {
		t.Fatalf("negative count must score 0, got %v", b)
	}
}

func TestWilsonLowerBoundRange(t *testing.T) {
	for _, n := range []int{1, 5, 100, 10000} {
		for _, avg := range []float64{1, 2.5, 3, 4.2, 5} {
			b := WilsonLowerBound(n, avg, DefaultConfidence)
			if b < 0 || b > 1 {
				t.Fatalf("bound out of range: n=%d avg=%v -> %v", n, avg, b)
			}
		}
	}
}

func TestWilsonLowerBoundMonotonicInAverage(t *testing.T) {
	for _, n := range []int{1, 10, 250} {
		prev := -1.0
		for avg := 1.0; avg <= 5.0; avg += 0.25 {
			b := WilsonLowerBound(n, avg, DefaultConfidence)
			if b < prev {
				t.Fatalf("bound decreased with rising average: n=%d avg=%v", n, avg)
			}
			prev = b
		}
	}
}

func TestWilsonLowerBoundMonotonicInCount(t *testing.T) {
	// For p > 0.5 more ratings mean more confidence, so the bound rises.
	prev := -1.0
	for _, n := range []int{1, 5, 25, 125, 625} {
		b := WilsonLowerBound(n, 4.5, DefaultConfidence)
		if b <= prev {
			t.Fatalf("bound should rise with count at avg 4.5: n=%d got %v prev %v", n, b, prev)
		}
		prev = b
	}

	// At avg 2.0 the bound still rises towards p as the interval tightens,
	// so dropping ratings must never raise it.
	prevLow := 2.0
	for _, n := range []int{625, 125, 25, 5, 1} {
		b := WilsonLowerBound(n, 2.0, DefaultConfidence)
		if b > prevLow {
			t.Fatalf("bound should shrink with fewer ratings at avg 2.0: n=%d got %v", n, b)
		}
		prevLow = b
	}
}

func TestWilsonLowerBoundDiscountsSmallSamples(t *testing.T) {
	one := WilsonLowerBound(1, 5, DefaultConfidence)
	many := WilsonLowerBound(50, 4, DefaultConfidence)
	if one >= many {
		t.Fatalf("single 5-star (%v) should rank below fifty 4-star (%v)", one, many)
	}
}

func TestWilsonLowerBoundUnknownConfidence(t *testing.T) {
	a := WilsonLowerBound(10, 4, 0.1234)
	b := WilsonLowerBound(10, 4, DefaultConfidence)
	if a != b {
		t.Fatalf("unknown confidence should fall back to default: %v vs %v", a, b)
	}
}

func TestNewRankingSeedRange(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := NewRankingSeed()
		if s < 0 || s >= 1 {
			t.Fatalf("seed out of range: %v", s)
		}
	}
}
