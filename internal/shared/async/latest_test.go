package async

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLatestLoaderDropsStaleResult(t *testing.T) {
	loader := NewLatestLoader[string]()

	var mu sync.Mutex
	var applied []string

	slowStarted := make(chan struct{})
	release := make(chan struct{})

	// First load resolves late.
	loader.Load(context.Background(), func(ctx context.Context) (string, error) {
		close(slowStarted)
		<-release
		return "stale", nil
	}, func(v string, err error) {
		mu.Lock()
		applied = append(applied, v)
		mu.Unlock()
	})

	<-slowStarted

	done := make(chan struct{})
	loader.Load(context.Background(), func(ctx context.Context) (string, error) {
		return "fresh", nil
	}, func(v string, err error) {
		mu.Lock()
		applied = append(applied, v)
		mu.Unlock()
		close(done)
	})

	<-done
	close(release)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(applied) != 1 {
		t.Fatalf("expected exactly 1 applied result, got %d: %v", len(applied), applied)
	}
	if applied[0] != "fresh" {
		t.Errorf("expected newest result applied, got %q", applied[0])
	}
}

func TestLatestLoaderCancelsPreviousContext(t *testing.T) {
	loader := NewLatestLoader[int]()

	cancelled := make(chan struct{})
	started := make(chan struct{})

	loader.Load(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return 0, ctx.Err()
	}, func(int, error) {})

	<-started
	loader.Load(context.Background(), func(ctx context.Context) (int, error) {
		return 1, nil
	}, func(int, error) {})

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("expected first load's context to be cancelled")
	}
}

func TestLatestLoaderSingleLoadApplies(t *testing.T) {
	loader := NewLatestLoader[int]()

	done := make(chan int, 1)
	loader.Load(context.Background(), func(ctx context.Context) (int, error) {
		return 42, nil
	}, func(v int, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- v
	})

	select {
	case v := <-done:
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("expected result to be applied")
	}
}

func TestLatestLoaderCancelSuppressesApply(t *testing.T) {
	loader := NewLatestLoader[int]()

	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	appliedCount := 0

	loader.Load(context.Background(), func(ctx context.Context) (int, error) {
		close(started)
		<-release
		return 7, nil
	}, func(int, error) {
		mu.Lock()
		appliedCount++
		mu.Unlock()
	})

	<-started
	loader.Cancel()
	close(release)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if appliedCount != 0 {
		t.Errorf("expected no apply after cancel, got %d", appliedCount)
	}
}
