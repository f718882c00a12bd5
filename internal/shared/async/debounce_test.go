package async

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncerCoalescesBurst(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	d := NewDebouncer(30*time.Millisecond, func(arg string) {
		mu.Lock()
		calls = append(calls, arg)
		mu.Unlock()
	})

	for _, arg := range []string{"a", "ab", "abc", "abcd", "abcde"} {
		d.Call(arg)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 invocation, got %d: %v", len(calls), calls)
	}
	if calls[0] != "abcde" {
		t.Errorf("expected last argument %q, got %q", "abcde", calls[0])
	}
}

func TestDebouncerFiresAgainAfterQuiet(t *testing.T) {
	var mu sync.Mutex
	var calls []int

	d := NewDebouncer(10*time.Millisecond, func(arg int) {
		mu.Lock()
		calls = append(calls, arg)
		mu.Unlock()
	})

	d.Call(1)
	time.Sleep(50 * time.Millisecond)
	d.Call(2)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 {
		t.Fatalf("expected 2 invocations, got %d: %v", len(calls), calls)
	}
	if calls[0] != 1 || calls[1] != 2 {
		t.Errorf("unexpected call order: %v", calls)
	}
}

func TestDebouncerStop(t *testing.T) {
	var mu sync.Mutex
	fired := false

	d := NewDebouncer(10*time.Millisecond, func(struct{}) {
		mu.Lock()
		fired = true
		mu.Unlock()
	})

	d.Call(struct{}{})
	d.Stop()
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if fired {
		t.Error("expected stopped debouncer not to fire")
	}
}

func TestDebouncerNeverFiresTwicePerCall(t *testing.T) {
	var mu sync.Mutex
	var calls []int

	d := NewDebouncer(2*time.Millisecond, func(arg int) {
		mu.Lock()
		calls = append(calls, arg)
		mu.Unlock()
	})

	// Calls straddling the quiet interval race the timer callback; a stale
	// callback must never fire alongside the freshly armed one.
	for i := 0; i < 50; i++ {
		d.Call(i)
		time.Sleep(2 * time.Millisecond)
	}
	d.Stop()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	seen := make(map[int]bool, len(calls))
	for _, v := range calls {
		if seen[v] {
			t.Fatalf("argument %d delivered twice: %v", v, calls)
		}
		seen[v] = true
	}
}

func TestDebouncerFlush(t *testing.T) {
	var mu sync.Mutex
	var calls []string

	d := NewDebouncer(time.Hour, func(arg string) {
		mu.Lock()
		calls = append(calls, arg)
		mu.Unlock()
	})

	d.Call("now")
	d.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != "now" {
		t.Fatalf("expected immediate flush with %q, got %v", "now", calls)
	}
}
