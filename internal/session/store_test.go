package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func twoSum() Question {
	return Question{
		Title:       "Two Sum",
		Description: "Return indices of the two numbers that add up to target.",
		Input:       "[2,7,11,15],9",
		Output:      "[0,1]",
	}
}

func TestStore_CreateStoresQuestion(t *testing.T) {
	st := NewStore()
	q := twoSum()
	q.Explanation = "2 + 7 = 9"

	id := st.Create(q)
	if id == "" {
		t.Fatal("Expected non-empty session id")
	}

	s, err := st.Get(id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if s.Question != q {
		t.Errorf("Expected question %+v, got %+v", q, s.Question)
	}
	if s.Code != "" || s.Transcript != "" || s.Feedback != "" || s.Summary != "" {
		t.Errorf("Expected empty code/transcript/feedback/summary, got %+v", s)
	}
	if s.HasFeedback() {
		t.Error("Expected new session to have no feedback")
	}
}

func TestStore_UniqueIDs(t *testing.T) {
	st := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := st.Create(twoSum())
		if seen[id] {
			t.Fatalf("Duplicate session id %s", id)
		}
		seen[id] = true
	}
	if st.Len() != 100 {
		t.Errorf("Expected 100 sessions, got %d", st.Len())
	}
}

func TestStore_GetUnknown(t *testing.T) {
	st := NewStore()
	if _, err := st.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := st.Update("missing", func(*Session) {}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Update, got %v", err)
	}
	err := st.Exclusive(context.Background(), "missing", func() error {
		t.Error("fn should not run for an unknown session")
		return nil
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Exclusive, got %v", err)
	}
}

func TestStore_UpdateKeepsQuestion(t *testing.T) {
	st := NewStore()
	id := st.Create(twoSum())

	s, err := st.Update(id, func(s *Session) {
		s.Question.Title = "changed"
		s.ID = "changed"
		s.ApplyCode("def f(): pass")
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if s.Question.Title != "Two Sum" {
		t.Errorf("Expected question to be immutable, got title %q", s.Question.Title)
	}
	if s.ID != id {
		t.Errorf("Expected id %s, got %s", id, s.ID)
	}
	if s.Code != "def f(): pass" {
		t.Errorf("Expected code to be stored, got %q", s.Code)
	}
}

func TestSession_TranscriptAndCode(t *testing.T) {
	var s Session
	s.AppendTranscript("I will")
	s.AppendTranscript("")
	s.AppendTranscript("use a hash map")
	if s.Transcript != "I will use a hash map" {
		t.Errorf("Expected space-joined transcript, got %q", s.Transcript)
	}

	s.ApplyCode("v1")
	s.ApplyCode("")
	if s.Code != "v1" {
		t.Errorf("Expected empty code to be ignored, got %q", s.Code)
	}
	s.ApplyCode("v2")
	if s.Code != "v2" {
		t.Errorf("Expected latest code v2, got %q", s.Code)
	}
}

func TestStore_ConcurrentUpdatesSameSession(t *testing.T) {
	st := NewStore()
	id := st.Create(twoSum())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Update(id, func(s *Session) { s.AppendTranscript("x") })
		}()
	}
	wg.Wait()

	s, _ := st.Get(id)
	if got := strings.Count(s.Transcript, "x"); got != 50 {
		t.Errorf("Expected 50 fragments, got %d", got)
	}
}

func TestStore_ExclusiveSerializesSameSession(t *testing.T) {
	st := NewStore()
	id := st.Create(twoSum())

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Exclusive(context.Background(), id, func() error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("Expected at most one cycle at a time, got %d", maxInside)
	}
}

func TestStore_ExclusiveDifferentSessionsDoNotBlock(t *testing.T) {
	st := NewStore()
	a := st.Create(twoSum())
	b := st.Create(twoSum())

	release := make(chan struct{})
	holding := make(chan struct{})
	go st.Exclusive(context.Background(), a, func() error {
		close(holding)
		<-release
		return nil
	})
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ran := false
	if err := st.Exclusive(ctx, b, func() error { ran = true; return nil }); err != nil {
		t.Fatalf("Exclusive on another session failed: %v", err)
	}
	if !ran {
		t.Error("Expected cycle on a different session to run")
	}
}

func TestStore_ExclusiveHonoursContext(t *testing.T) {
	st := NewStore()
	id := st.Create(twoSum())

	release := make(chan struct{})
	holding := make(chan struct{})
	go st.Exclusive(context.Background(), id, func() error {
		close(holding)
		<-release
		return nil
	})
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := st.Exclusive(ctx, id, func() error { return fmt.Errorf("should not run") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestStore_Sweep(t *testing.T) {
	st := NewStore()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	stale := st.Create(twoSum())
	st.now = func() time.Time { return base.Add(20 * time.Minute) }
	fresh := st.Create(twoSum())

	st.now = func() time.Time { return base.Add(25 * time.Minute) }
	if removed := st.Sweep(10 * time.Minute); removed != 1 {
		t.Errorf("Expected 1 session swept, got %d", removed)
	}
	if _, err := st.Get(stale); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected stale session to be removed, got %v", err)
	}
	if _, err := st.Get(fresh); err != nil {
		t.Errorf("Expected fresh session to remain, got %v", err)
	}
	if removed := st.Sweep(0); removed != 0 {
		t.Errorf("Expected Sweep(0) to remove nothing, got %d", removed)
	}
}

func TestStore_SweepKeepsSessionInCycle(t *testing.T) {
	st := NewStore()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }
	id := st.Create(twoSum())
	st.now = func() time.Time { return base.Add(time.Hour) }

	err := st.Exclusive(context.Background(), id, func() error {
		if removed := st.Sweep(10 * time.Minute); removed != 0 {
			t.Errorf("Expected busy session to be kept, got %d removed", removed)
		}
		_, err := st.Update(id, func(s *Session) { s.Feedback = "done" })
		return err
	})
	if err != nil {
		t.Errorf("Expected cycle to finish on its session, got %v", err)
	}

	st.now = func() time.Time { return base.Add(2 * time.Hour) }
	if removed := st.Sweep(10 * time.Minute); removed != 1 {
		t.Errorf("Expected session to be swept once idle, got %d removed", removed)
	}
}
