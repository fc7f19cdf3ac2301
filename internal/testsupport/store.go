package testsupport

import (
	"context"
	"testing"

	"tuneport/internal/config"
	"tuneport/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob submits a queued job for sourceURL into playlist "pl-test".
func NewJob(t testing.TB, store *jobs.Store, sourceURL, title, artist string) *jobs.Job {
	t.Helper()

	job, err := store.Create(context.Background(), jobs.Request{
		SourceURL:  sourceURL,
		PlaylistID: "pl-test",
		Title:      title,
		Artist:     artist,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
