package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facegate/facegate/internal/database/mock"
)

func details(course string) Details {
	return Details{
		CourseCode:    course,
		Venue:         "LT1",
		StartTime:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		DurationHours: 1,
		AuthMode:      "face",
	}
}

func TestStartTransitionsToActive(t *testing.T) {
	store := mock.NewClassStore()
	sc := NewContext(store)

	if sc.Active() {
		t.Fatal("new context should be idle")
	}
	if sc.Current() != nil {
		t.Fatal("idle context should have no current session")
	}

	id, err := sc.Start(context.Background(), details("MEE527"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if id != 1 {
		t.Errorf("expected first session id 1, got %d", id)
	}

	cur := sc.Current()
	if cur == nil {
		t.Fatal("expected active session")
	}
	if cur.ID != id || cur.CourseCode != "MEE527" {
		t.Errorf("unexpected current session: %+v", cur)
	}
}

func TestStartSupersedesPrevious(t *testing.T) {
	store := mock.NewClassStore()
	sc := NewContext(store)

	first, err := sc.Start(context.Background(), details("MEE527"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	second, err := sc.Start(context.Background(), details("MEE527"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if second <= first {
		t.Errorf("session ids must be strictly increasing: %d then %d", first, second)
	}
	if cur := sc.Current(); cur.ID != second {
		t.Errorf("expected current session %d, got %d", second, cur.ID)
	}
}

func TestStartFailureKeepsPreviousSession(t *testing.T) {
	store := mock.NewClassStore()
	sc := NewContext(store)

	id, err := sc.Start(context.Background(), details("MEE527"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	store.InsertError = errors.New("connection reset")
	if _, err := sc.Start(context.Background(), details("EEE301")); err == nil {
		t.Fatal("expected error from failing insert")
	}

	cur := sc.Current()
	if cur == nil || cur.ID != id {
		t.Errorf("failed start must not replace the current session, got %+v", cur)
	}
}

func TestConcurrentStartsProduceDistinctIDs(t *testing.T) {
	store := mock.NewClassStore()
	sc := NewContext(store)

	const n = 20
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := sc.Start(context.Background(), details("MEE527"))
			if err != nil {
				t.Errorf("Start failed: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate session id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d distinct ids, got %d", n, len(seen))
	}
}

func TestClear(t *testing.T) {
	store := mock.NewClassStore()
	sc := NewContext(store)

	if _, err := sc.Start(context.Background(), details("MEE527")); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sc.Clear()
	if sc.Active() {
		t.Error("expected idle context after Clear")
	}
}
