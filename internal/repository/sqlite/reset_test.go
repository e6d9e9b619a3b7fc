package sqlite

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
)

func TestResetIfStale_ClearsOncePerDay(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	for _, id := range []string{alice.ID, bob.ID} {
		if err := db.CompleteChallenge(ctx, id, "Gym"); err != nil {
			t.Fatal(err)
		}
	}

	reset, err := db.ResetIfStale(ctx, "2026-03-01")
	if err != nil || !reset {
		t.Fatalf("first ResetIfStale() = %v, %v; want true", reset, err)
	}
	if completed(t, db, alice.ID)["Gym"] || completed(t, db, bob.ID)["Gym"] {
		t.Error("flags not cleared by reset")
	}

	// Completions made after the reset survive a second check on the same day.
	if err := db.CompleteChallenge(ctx, alice.ID, "Gym"); err != nil {
		t.Fatal(err)
	}
	reset, err = db.ResetIfStale(ctx, "2026-03-01")
	if err != nil || reset {
		t.Fatalf("second ResetIfStale() = %v, %v; want false", reset, err)
	}
	if !completed(t, db, alice.ID)["Gym"] {
		t.Error("same-day check cleared a fresh completion")
	}

	marker, _ := db.LastResetDate(ctx)
	if marker != "2026-03-01" {
		t.Errorf("LastResetDate() = %q", marker)
	}

	reset, err = db.ResetIfStale(ctx, "2026-03-02")
	if err != nil || !reset {
		t.Fatalf("next-day ResetIfStale() = %v, %v; want true", reset, err)
	}
}

func TestResetIfStale_MarkerNeverMovesBack(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	if reset, err := db.ResetIfStale(ctx, "2026-03-05"); err != nil || !reset {
		t.Fatalf("ResetIfStale() = %v, %v; want true", reset, err)
	}
	if err := db.CompleteChallenge(ctx, alice.ID, "Gym"); err != nil {
		t.Fatal(err)
	}

	reset, err := db.ResetIfStale(ctx, "2026-03-04")
	if err != nil || reset {
		t.Fatalf("earlier-date ResetIfStale() = %v, %v; want false", reset, err)
	}
	if !completed(t, db, alice.ID)["Gym"] {
		t.Error("earlier date cleared a completion")
	}
	if marker, _ := db.LastResetDate(ctx); marker != "2026-03-05" {
		t.Errorf("LastResetDate() = %q, want 2026-03-05", marker)
	}
}

func TestResetIfStale_ConcurrentCallersResetOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "alice")

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reset, err := db.ResetIfStale(ctx, "2026-03-01")
			if err != nil {
				t.Errorf("ResetIfStale() error = %v", err)
				return
			}
			if reset {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("%d callers performed the reset, want exactly 1", wins.Load())
	}
}
