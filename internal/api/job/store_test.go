package job

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/sextant/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job, err := store.Create("backtest")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.ID == "" {
		t.Error("expected job ID")
	}
	if job.Status != StatusPending {
		t.Errorf("expected pending, got %s", job.Status)
	}

	retrieved, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != job.ID {
		t.Error("IDs don't match")
	}
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job, _ := store.Create("backtest")

	err := store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 50
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retrieved, _ := store.Get(job.ID)
	if retrieved.Status != StatusRunning {
		t.Errorf("expected running, got %s", retrieved.Status)
	}
	if retrieved.Progress != 50 {
		t.Errorf("expected 50, got %d", retrieved.Progress)
	}
}

func TestStore_UpdateFinishedJob(t *testing.T) {
	store := NewStore(100, time.Hour)
	job, _ := store.Create("backtest")

	store.Update(job.ID, func(j *Job) { j.Status = StatusComplete })
	if err := store.Update(job.ID, func(j *Job) { j.Status = StatusRunning }); err == nil {
		t.Error("expected error updating a finished job")
	}
}

func TestStore_MaxSize_EvictsFinished(t *testing.T) {
	store := NewStore(2, time.Hour)

	job1, _ := store.Create("backtest")
	store.Update(job1.ID, func(j *Job) { j.Status = StatusComplete })
	store.Create("backtest")

	if _, err := store.Create("backtest"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Get(job1.ID); err == nil {
		t.Error("expected job1 to be evicted")
	}
}

func TestStore_MaxSize_AllActive(t *testing.T) {
	store := NewStore(2, time.Hour)
	store.Create("backtest")
	store.Create("backtest")

	_, err := store.Create("backtest")
	if !errors.Is(err, core.ErrJobLimit) {
		t.Errorf("expected ErrJobLimit, got %v", err)
	}
}

func TestStore_TTL(t *testing.T) {
	store := NewStore(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done, _ := store.Create("backtest")
	store.Update(done.ID, func(j *Job) { j.Status = StatusFailed })
	running, _ := store.Create("backtest")

	now = now.Add(2 * time.Minute)
	store.Create("backtest")

	if _, err := store.Get(done.ID); err == nil {
		t.Error("expected expired job to be pruned")
	}
	if _, err := store.Get(running.ID); err != nil {
		t.Error("active job must not expire")
	}
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(100, time.Hour)

	_, err := store.Get("nonexistent")
	if !errors.Is(err, core.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	store := NewStore(100, time.Hour)
	store.Create("backtest")
	store.Create("sweep")

	jobs := store.List()
	if len(jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(jobs))
	}
	if store.Active("sweep") != 1 {
		t.Errorf("expected 1 active sweep, got %d", store.Active("sweep"))
	}
}

func TestStore_Subscribe(t *testing.T) {
	store := NewStore(100, time.Hour)
	job, _ := store.Create("backtest")

	ch, cancel, err := store.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	first := <-ch
	if first.Status != StatusPending {
		t.Errorf("expected pending snapshot, got %s", first.Status)
	}

	store.Update(job.ID, func(j *Job) { j.Status = StatusRunning })
	store.Update(job.ID, func(j *Job) {
		j.Status = StatusComplete
		j.Progress = 100
	})

	var last Job
	for j := range ch {
		last = j
	}
	if last.Status != StatusComplete {
		t.Errorf("expected final snapshot complete, got %s", last.Status)
	}
}

func TestStore_SubscribeFinished(t *testing.T) {
	store := NewStore(100, time.Hour)
	job, _ := store.Create("backtest")
	store.Update(job.ID, func(j *Job) { j.Status = StatusFailed })

	ch, cancel, err := store.Subscribe(job.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	j, ok := <-ch
	if !ok || j.Status != StatusFailed {
		t.Errorf("expected failed snapshot, got %v %v", j.Status, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel closed")
	}
}

func TestStore_SubscribeCancel(t *testing.T) {
	store := NewStore(100, time.Hour)
	job, _ := store.Create("backtest")

	ch, cancel, _ := store.Subscribe(job.ID)
	<-ch
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Error("expected channel closed after cancel")
	}
	if err := store.Update(job.ID, func(j *Job) { j.Status = StatusComplete }); err != nil {
		t.Errorf("Update after cancel failed: %v", err)
	}
}
