package infra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGroup_Do_SingleCall(t *testing.T) {
	g := NewGroup[string]()

	called := 0
	val, shared, err := g.Do(context.Background(), "string", func(context.Context) (string, error) {
		called++
		return "P1", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shared {
		t.Error("expected shared=false for a lone caller")
	}
	if val != "P1" {
		t.Errorf("val = %q, want P1", val)
	}
	if called != 1 {
		t.Errorf("fn called %d times, want 1", called)
	}
}

func TestGroup_Do_ConcurrentSameKey(t *testing.T) {
	g := NewGroup[string]()

	var calls int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, _, err := g.Do(context.Background(), "WIKIBASE_PROPERTY_STRING", func(context.Context) (string, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return "P7", nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if val != "P7" {
				t.Errorf("val = %q, want P7", val)
			}
		}()
	}

	// Let the goroutines pile up on the in-flight call before releasing it
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fn called %d times, want 1", n)
	}
}

func TestGroup_Do_DifferentKeys(t *testing.T) {
	g := NewGroup[int]()

	var calls int32
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "key-" + string(rune('a'+i))
			_, _, _ = g.Do(context.Background(), key, func(context.Context) (int, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return i, nil
			})
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 4 {
		t.Errorf("fn called %d times, want 4", n)
	}
}

func TestGroup_Do_ErrorPropagation(t *testing.T) {
	g := NewGroup[string]()
	wantErr := errors.New("create failed")

	val, _, err := g.Do(context.Background(), "k", func(context.Context) (string, error) {
		return "", wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if val != "" {
		t.Errorf("val = %q, want empty", val)
	}
}

func TestGroup_Do_WaiterContextCanceled(t *testing.T) {
	g := NewGroup[string]()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _, _ = g.Do(context.Background(), "slow", func(context.Context) (string, error) {
			close(started)
			<-release
			return "done", nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := g.Do(ctx, "slow", func(context.Context) (string, error) {
		t.Error("waiter must not run fn")
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestGroup_InFlight(t *testing.T) {
	g := NewGroup[string]()
	if g.InFlight() != 0 {
		t.Fatalf("InFlight = %d, want 0", g.InFlight())
	}

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_, _, _ = g.Do(context.Background(), "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "", nil
		})
	}()

	<-started
	if g.InFlight() != 1 {
		t.Errorf("InFlight = %d, want 1", g.InFlight())
	}
	close(release)
	<-finished
	if g.InFlight() != 0 {
		t.Errorf("InFlight after completion = %d, want 0", g.InFlight())
	}
}

func TestGroup_Do_LeaderCancelDoesNotFailWaiters(t *testing.T) {
	g := NewGroup[string]()

	started := make(chan struct{})
	release := make(chan struct{})
	leaderCtx, cancelLeader := context.WithCancel(context.Background())

	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := g.Do(leaderCtx, "WIKIBASE_PROPERTY_STRING", func(ctx context.Context) (string, error) {
			close(started)
			select {
			case <-release:
				return "P3", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})
		leaderErr <- err
	}()
	<-started

	waiterDone := make(chan struct{})
	var val string
	var shared bool
	var err error
	go func() {
		defer close(waiterDone)
		val, shared, err = g.Do(context.Background(), "WIKIBASE_PROPERTY_STRING", func(context.Context) (string, error) {
			t.Error("waiter must not run fn")
			return "", nil
		})
	}()

	// Give the waiter time to join before the leader gives up
	time.Sleep(20 * time.Millisecond)
	cancelLeader()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader err = %v, want context.Canceled", err)
	}

	close(release)
	<-waiterDone
	if err != nil {
		t.Fatalf("waiter err = %v, want nil", err)
	}
	if !shared {
		t.Error("expected shared=true for the waiter")
	}
	if val != "P3" {
		t.Errorf("waiter val = %q, want P3", val)
	}
}

func TestGroup_Do_PanicReleasesKey(t *testing.T) {
	g := NewGroup[string]()

	_, _, err := g.Do(context.Background(), "k", func(context.Context) (string, error) {
		panic("boom")
	})
	if err == nil {
		t.Fatal("expected error from panicking fn")
	}
	if g.InFlight() != 0 {
		t.Errorf("InFlight = %d after panic, want 0", g.InFlight())
	}

	val, _, err := g.Do(context.Background(), "k", func(context.Context) (string, error) {
		return "P9", nil
	})
	if err != nil || val != "P9" {
		t.Errorf("Do after panic = (%q, %v), want (P9, nil)", val, err)
	}
}
