package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"tuneport/internal/jobs"
	"tuneport/internal/testsupport"
)

func TestCreateAssignsQueuedJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.Create(ctx, jobs.Request{
		SourceURL:  " https://youtu.be/dQw4w9WgXcQ ",
		PlaylistID: "pl-1",
		Title:      "Never Gonna Give You Up",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != jobs.StatusQueued || job.Progress != 0 || job.CurrentStep != "Queued" {
		t.Fatalf("unexpected initial state: %s %d %q", job.Status, job.Progress, job.CurrentStep)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.SourceURL() != "https://youtu.be/dQw4w9WgXcQ" {
		t.Fatalf("expected trimmed source url, got %q", fetched.SourceURL())
	}
	if fetched.Request.Title != "Never Gonna Give You Up" {
		t.Fatalf("request not persisted: %#v", fetched.Request)
	}
}

func TestCreateRequiresSourceAndPlaylist(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Create(ctx, jobs.Request{PlaylistID: "pl"}); err == nil {
		t.Fatal("expected error when source url missing")
	}
	if _, err := store.Create(ctx, jobs.Request{SourceURL: "https://youtu.be/x"}); err == nil {
		t.Fatal("expected error when playlist missing")
	}
}

func TestGetUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateReplacesWholeRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://youtu.be/abcdefg", "Song", "Band")

	if err := job.Transition(jobs.StatusSearching, 10, "Searching"); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	job.TrackInfo = &jobs.TrackInfo{URI: "spotify:track:1", Name: "Song", Artists: []string{"Band"}, Score: 0.91}
	job.FallbackMetadata = &jobs.FallbackMetadata{Title: "Song", Artist: "Band"}
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != jobs.StatusSearching || fetched.Progress != 10 {
		t.Fatalf("unexpected state after update: %s %d", fetched.Status, fetched.Progress)
	}
	if fetched.TrackInfo == nil || fetched.TrackInfo.URI != "spotify:track:1" || fetched.TrackInfo.Artists[0] != "Band" {
		t.Fatalf("track info not persisted: %#v", fetched.TrackInfo)
	}
	if fetched.FallbackMetadata == nil || fetched.FallbackMetadata.Artist != "Band" {
		t.Fatalf("fallback metadata not persisted: %#v", fetched.FallbackMetadata)
	}

	// Clearing a nested record removes it from storage.
	job.FallbackMetadata = nil
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	fetched, err = store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.FallbackMetadata != nil {
		t.Fatalf("expected fallback metadata cleared, got %#v", fetched.FallbackMetadata)
	}
}

func TestUpdateRejectsIllegalTransition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://youtu.be/abcdefg", "Song", "Band")

	job.Status = jobs.StatusCompleted
	err := store.Update(ctx, job)
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != jobs.StatusQueued {
		t.Fatalf("expected stored status unchanged, got %s", fetched.Status)
	}
}

func TestClaimNextTakesOldestQueued(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "https://youtu.be/first01", "One", "")
	second := testsupport.NewJob(t, store, "https://youtu.be/second2", "Two", "")

	claimed, err := store.ClaimNext(ctx, 10, "Fetching video metadata")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("expected first job claimed, got %#v", claimed)
	}
	if claimed.Status != jobs.StatusSearching || claimed.Progress != 10 || claimed.CurrentStep != "Fetching video metadata" {
		t.Fatalf("unexpected claimed state: %s %d %q", claimed.Status, claimed.Progress, claimed.CurrentStep)
	}

	claimed, err = store.ClaimNext(ctx, 10, "Fetching video metadata")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed == nil || claimed.ID != second.ID {
		t.Fatalf("expected second job claimed, got %#v", claimed)
	}

	claimed, err = store.ClaimNext(ctx, 10, "Fetching video metadata")
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected empty queue, got %#v", claimed)
	}
}

func TestClaimNextConcurrentWorkersNeverShareJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	const total = 6
	for i := 0; i < total; i++ {
		testsupport.NewJob(t, store, "https://youtu.be/concurrent", "Song", "")
	}

	var (
		mu      sync.Mutex
		claimed = map[string]int{}
		wg      sync.WaitGroup
	)
	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := store.ClaimNext(context.Background(), 10, "Searching")
				if err != nil {
					t.Errorf("ClaimNext failed: %v", err)
					return
				}
				if job == nil {
					return
				}
				mu.Lock()
				claimed[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimed) != total {
		t.Fatalf("expected %d distinct claims, got %d", total, len(claimed))
	}
	for id, count := range claimed {
		if count != 1 {
			t.Fatalf("job %s claimed %d times", id, count)
		}
	}
}

func TestListFiltersByStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a := testsupport.NewJob(t, store, "https://youtu.be/aaaaaaa", "A", "")
	b := testsupport.NewJob(t, store, "https://youtu.be/bbbbbbb", "B", "")
	if err := b.Fail("boom"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != a.ID || all[1].ID != b.ID {
		t.Fatalf("expected both jobs in creation order, got %d", len(all))
	}

	failed, err := store.List(ctx, jobs.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != b.ID || failed[0].Error != "boom" {
		t.Fatalf("unexpected failed list: %#v", failed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[jobs.StatusQueued] != 1 || stats[jobs.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}

func TestFailStrandedKeepsAwaitingFallback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name     string
		path     []jobs.Status
		expected jobs.Status
	}{
		{"searching", []jobs.Status{jobs.StatusSearching}, jobs.StatusFailed},
		{"adding", []jobs.Status{jobs.StatusSearching, jobs.StatusAdding}, jobs.StatusFailed},
		{"downloading", []jobs.Status{jobs.StatusSearching, jobs.StatusAdding, jobs.StatusDownloading}, jobs.StatusFailed},
		{"awaiting_fallback", []jobs.Status{jobs.StatusSearching, jobs.StatusAwaitingFallback}, jobs.StatusAwaitingFallback},
		{"queued", nil, jobs.StatusQueued},
	}
	ids := make([]string, len(cases))
	for i, tc := range cases {
		job := testsupport.NewJob(t, store, "https://youtu.be/"+tc.name, tc.name, "")
		for _, status := range tc.path {
			if err := job.Transition(status, 0, ""); err != nil {
				t.Fatalf("%s: Transition: %v", tc.name, err)
			}
		}
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("%s: Update failed: %v", tc.name, err)
		}
		ids[i] = job.ID
	}

	count, err := store.FailStranded(ctx)
	if err != nil {
		t.Fatalf("FailStranded failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 stranded jobs, got %d", count)
	}

	for i, tc := range cases {
		job, err := store.Get(ctx, ids[i])
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if job.Status != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, job.Status)
		}
		if tc.expected == jobs.StatusFailed && job.Error != jobs.StrandedMessage {
			t.Fatalf("%s: expected stranded message, got %q", tc.name, job.Error)
		}
	}
}

func TestRemoveAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	active := testsupport.NewJob(t, store, "https://youtu.be/active1", "Active", "")
	if err := store.Remove(ctx, active.ID); !errors.Is(err, jobs.ErrJobActive) {
		t.Fatalf("expected ErrJobActive, got %v", err)
	}

	done := testsupport.NewJob(t, store, "https://youtu.be/done001", "Done", "")
	for _, step := range []jobs.Status{jobs.StatusSearching, jobs.StatusAdding, jobs.StatusCompleted} {
		if err := done.Transition(step, 100, ""); err != nil {
			t.Fatalf("Transition: %v", err)
		}
	}
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	failed := testsupport.NewJob(t, store, "https://youtu.be/failed1", "Failed", "")
	if err := failed.Fail("nope"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	removed, err := store.ClearCompleted(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearCompleted = %d, %v", removed, err)
	}
	if err := store.Remove(ctx, failed.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := store.Get(ctx, failed.ID); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected removed job to be gone, got %v", err)
	}
	removed, err = store.ClearFailed(ctx)
	if err != nil || removed != 0 {
		t.Fatalf("ClearFailed = %d, %v", removed, err)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != active.ID {
		t.Fatalf("expected only the active job to remain, got %d", len(remaining))
	}
}

func TestReopenPreservesJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job := testsupport.NewJob(t, store, "https://youtu.be/persist", "Persist", "")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if fetched.Request.Title != "Persist" {
		t.Fatalf("unexpected job after reopen: %#v", fetched.Request)
	}
}
