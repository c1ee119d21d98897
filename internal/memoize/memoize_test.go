package memoize_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/CamdenClark/zett-languageservice/internal/memoize"
)

func TestGetComputesOnce(t *testing.T) {
	var calls atomic.Int32
	m := memoize.NewMap(func(key string) (string, error) {
		calls.Add(1)
		return key + "!", nil
	})

	for i := 0; i < 3; i++ {
		got, err := m.Get("a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != "a!" {
			t.Errorf("Get() = %q, want %q", got, "a!")
		}
	}
	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}
}

func TestConcurrentGetSharesComputation(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	m := memoize.NewMap(func(key int) (int, error) {
		calls.Add(1)
		<-gate
		return key * 2, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Get(21)
			if err != nil || got != 42 {
				t.Errorf("Get() = %v, %v", got, err)
			}
		}()
	}
	close(gate)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}
}

func TestErrorsPropagateToAllCallers(t *testing.T) {
	boom := errors.New("boom")
	m := memoize.NewMap(func(string) (int, error) { return 0, boom })

	for i := 0; i < 2; i++ {
		if _, err := m.Get("k"); !errors.Is(err, boom) {
			t.Fatalf("Get() error = %v, want %v", err, boom)
		}
	}
}

func TestDeleteForcesRecompute(t *testing.T) {
	var calls atomic.Int32
	m := memoize.NewMap(func(key string) (int32, error) {
		return calls.Add(1), nil
	})

	first, _ := m.Get("k")
	m.Delete("k")
	second, _ := m.Get("k")

	if first != 1 || second != 2 {
		t.Errorf("got %d then %d, want 1 then 2", first, second)
	}
}

func TestSetInstallsThunkWithoutEvaluating(t *testing.T) {
	var evaluated atomic.Bool
	m := memoize.NewMap(func(string) (string, error) { return "loader", nil })

	m.Set("k", func() (string, error) {
		evaluated.Store(true)
		return "thunk", nil
	})
	if evaluated.Load() {
		t.Fatal("Set() evaluated its thunk eagerly")
	}
	if !m.Has("k") {
		t.Fatal("Has() = false after Set")
	}

	got, err := m.Get("k")
	if err != nil || got != "thunk" {
		t.Errorf("Get() = %q, %v, want thunk", got, err)
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	m := memoize.NewMap(func(string) (int, error) { return 0, nil })
	m.Delete("missing")
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}
