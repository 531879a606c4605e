package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xaenox/gamer-card/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStorageGetPut(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(time.Hour)

	if _, ok, _ := s.Get(ctx, 570); ok {
		t.Fatal("expected empty cache")
	}

	want := CachedDetails{Found: true, Details: models.AppDetails{Genres: []string{"Action"}}}
	if err := s.Put(ctx, 570, want); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok, err := s.Get(ctx, 570)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if !got.Found || len(got.Details.Genres) != 1 || got.Details.Genres[0] != "Action" {
		t.Errorf("Get = %+v", got)
	}
}

func TestMemoryStorageExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStorage(time.Hour)
	s.now = clock.Now

	_ = s.Put(ctx, 1, CachedDetails{Found: false})
	_ = s.Put(ctx, 2, CachedDetails{Found: true})

	clock.Advance(30 * time.Minute)
	_ = s.Put(ctx, 2, CachedDetails{Found: true})

	clock.Advance(31 * time.Minute)
	if _, ok, _ := s.Get(ctx, 1); ok {
		t.Error("entry 1 should have expired")
	}
	if _, ok, _ := s.Get(ctx, 2); !ok {
		t.Error("entry 2 was refreshed and should still be valid")
	}

	clock.Advance(time.Hour)
	removed, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 1 || s.Len() != 0 {
		t.Errorf("Prune removed %d, %d left", removed, s.Len())
	}
}

func TestMemoryStorageConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Put(ctx, j, CachedDetails{Found: i%2 == 0})
				_, _, _ = s.Get(ctx, j)
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 100 {
		t.Errorf("Len = %d, want 100", s.Len())
	}
}

func TestResultStoreLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewResultStore(time.Hour)
	s.now = clock.Now

	id := s.Create("gaben")
	rec, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.Status != models.StatusRunning || rec.Profile != "gaben" {
		t.Errorf("record = %+v", rec)
	}

	s.SetProgress(id, models.Progress{Stage: models.StageEnrich, Done: 3, Total: 20})
	rec, _ = s.Get(id)
	if rec.Progress.Done != 3 || rec.Progress.Total != 20 {
		t.Errorf("progress = %+v", rec.Progress)
	}

	s.Complete(id, &models.Analysis{ID: id})
	rec, _ = s.Get(id)
	if rec.Status != models.StatusDone || rec.Analysis == nil || rec.Progress.Stage != models.StageDone {
		t.Errorf("record = %+v", rec)
	}

	clock.Advance(2 * time.Hour)
	if _, err := s.Get(id); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("expected expired record, got %v", err)
	}
	if n := s.Prune(); n != 1 {
		t.Errorf("Prune = %d, want 1", n)
	}
}

func TestResultStoreKeepsRunningRecords(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	s := NewResultStore(time.Minute)
	s.now = clock.Now

	running := s.Create("a")
	failed := s.Create("b")
	s.Fail(failed, "library unavailable", "make it public")

	clock.Advance(time.Hour)
	if n := s.Prune(); n != 1 {
		t.Errorf("Prune = %d, want 1", n)
	}
	if _, err := s.Get(running); err != nil {
		t.Errorf("running record should survive: %v", err)
	}
}

func TestDatabaseConfigConnString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "cards", SSLMode: "disable"}
	want := "host=db port=5433 user=u password=p dbname=cards sslmode=disable"
	if got := c.ConnString(); got != want {
		t.Errorf("ConnString = %q, want %q", got, want)
	}
}
