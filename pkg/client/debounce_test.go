package client

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_BurstCommitsOnlyLastValue(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var got atomic.Int64
	var commits atomic.Int64
	for v := 1; v <= 5; v++ {
		v := v
		d.Set(func() {
			got.Store(int64(v))
			commits.Add(1)
		})
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if n := commits.Load(); n != 1 {
		t.Fatalf("want exactly one commit for a burst, got %d", n)
	}
	if v := got.Load(); v != 5 {
		t.Fatalf("want last value 5 committed, got %d", v)
	}
}

func TestDebouncer_FlushCommitsImmediately(t *testing.T) {
	d := NewDebouncer(10 * time.Second)

	var commits atomic.Int64
	d.Set(func() { commits.Add(1) })
	d.Flush()

	if n := commits.Load(); n != 1 {
		t.Fatalf("want immediate commit on flush, got %d", n)
	}

	// Flush drained the pending commit, so the timer firing later is a no-op
	// and a second flush commits nothing.
	d.Flush()
	if n := commits.Load(); n != 1 {
		t.Fatalf("flush after drain must not re-commit, got %d", n)
	}
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var commits atomic.Int64
	d.Set(func() { commits.Add(1) })
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	if n := commits.Load(); n != 0 {
		t.Fatalf("stopped debouncer must not commit, got %d", n)
	}
}

func TestEditor_ClampsBeforeStaging(t *testing.T) {
	if got := clamp(120, 0, 99); got != 99 {
		t.Fatalf("want 99, got %d", got)
	}
	if got := clamp(-4, 0, 20); got != 0 {
		t.Fatalf("want 0, got %d", got)
	}
	if got := clamp(14, 1, 20); got != 14 {
		t.Fatalf("want 14, got %d", got)
	}
}
