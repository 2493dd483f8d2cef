package ringbuf

import "testing"

func TestPushOverflowKeepsLatest(t *testing.T) {
	b := New(4)
	for i := 1; i <= 5; i++ {
		b.Push(float32(i))
	}
	got := b.LatestWindow(4)
	want := []float32{2, 3, 4, 5}
	assertSamples(t, got, want)
	if b.Cursor() != 1 {
		t.Fatalf("expected cursor 1, got %d", b.Cursor())
	}
}

func TestLatestWindowAcrossWrap(t *testing.T) {
	b := New(5)
	b.Write([]float32{1, 2, 3, 4})
	b.Write([]float32{5, 6, 7})
	assertSamples(t, b.LatestWindow(3), []float32{5, 6, 7})
	assertSamples(t, b.LatestWindow(5), []float32{3, 4, 5, 6, 7})
}

func TestLatestWindowNoStaleData(t *testing.T) {
	b := New(3)
	b.Write([]float32{1, 2, 3})
	b.Write([]float32{9, 9, 9, 4, 5, 6})
	assertSamples(t, b.LatestWindow(3), []float32{4, 5, 6})
}

func TestLatestWindowClampsToCapacity(t *testing.T) {
	b := New(3)
	b.Write([]float32{1, 2})
	got := b.LatestWindow(10)
	if len(got) != 3 {
		t.Fatalf("expected clamp to 3 samples, got %d", len(got))
	}
	assertSamples(t, got, []float32{0, 1, 2})
	if len(b.LatestWindow(0)) != 0 {
		t.Fatalf("expected empty window for n=0")
	}
}

func TestLatestWindowInto(t *testing.T) {
	b := New(4)
	b.Write([]float32{1, 2, 3, 4, 5, 6})
	dst := make([]float32, 2)
	if n := b.LatestWindowInto(dst); n != 2 {
		t.Fatalf("expected 2 samples, got %d", n)
	}
	assertSamples(t, dst, []float32{5, 6})
}

func TestWriteLargerThanCapacity(t *testing.T) {
	b := New(3)
	b.Write([]float32{1, 2, 3, 4, 5, 6, 7})
	assertSamples(t, b.LatestWindow(3), []float32{5, 6, 7})
	if b.Cursor() < 0 || b.Cursor() >= b.Cap() {
		t.Fatalf("cursor out of range: %d", b.Cursor())
	}
}

func assertSamples(t *testing.T, got, want []float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v (%v)", i, want[i], got[i], got)
		}
	}
}
