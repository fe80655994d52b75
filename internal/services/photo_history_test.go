package services

import (
	"testing"
	"time"

	"github.com/yungbote/streetlink-backend/internal/types"
)

func TestSetPhotoRotation(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p0, p1 := "https://cdn.example/p0.jpg", "https://cdn.example/p1.jpg"

	individual := types.Individual{PhotoURL: &p1, UpdatedAt: t0.Add(time.Hour)}
	individual.SetPhotoHistoryEntries([]types.PhotoHistoryEntry{{URL: p0, AddedAt: t0}})

	// P2 promotes, P1 rotates in at the head.
	individual = SetPhoto(individual, "https://cdn.example/p2.jpg", t0.Add(2*time.Hour))
	history := individual.PhotoHistoryEntries()
	if *individual.PhotoURL != "https://cdn.example/p2.jpg" {
		t.Fatalf("photo_url=%q", *individual.PhotoURL)
	}
	if len(history) != 2 || history[0].URL != p1 || history[1].URL != p0 {
		t.Fatalf("history=%v", history)
	}

	individual.UpdatedAt = t0.Add(2 * time.Hour)
	individual = SetPhoto(individual, "https://cdn.example/p3.jpg", t0.Add(3*time.Hour))
	history = individual.PhotoHistoryEntries()
	if len(history) != 3 || history[0].URL != "https://cdn.example/p2.jpg" {
		t.Fatalf("history after third photo=%v", history)
	}

	// Fourth photo pushes the oldest entry out; bound stays at three.
	individual.UpdatedAt = t0.Add(3 * time.Hour)
	individual = SetPhoto(individual, "https://cdn.example/p4.jpg", t0.Add(4*time.Hour))
	history = individual.PhotoHistoryEntries()
	if len(history) != 3 {
		t.Fatalf("history length=%d, want 3", len(history))
	}
	if history[0].URL != "https://cdn.example/p3.jpg" || history[2].URL != p1 {
		t.Fatalf("history after fourth photo=%v", history)
	}
	for _, entry := range history {
		if entry.URL == *individual.PhotoURL {
			t.Fatalf("current photo leaked into history: %v", history)
		}
	}
}

func TestSetPhotoFirstPhotoNoHistory(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	individual := SetPhoto(types.Individual{}, "https://cdn.example/first.jpg", now)
	if individual.PhotoURL == nil || *individual.PhotoURL != "https://cdn.example/first.jpg" {
		t.Fatalf("photo_url not set")
	}
	if entries := individual.PhotoHistoryEntries(); len(entries) != 0 {
		t.Fatalf("expected empty history, got %v", entries)
	}
}

func TestSetPhotoUsesNowWhenNoUpdatedAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	prev := "https://cdn.example/prev.jpg"
	individual := types.Individual{PhotoURL: &prev}
	individual = SetPhoto(individual, "https://cdn.example/new.jpg", now)
	history := individual.PhotoHistoryEntries()
	if len(history) != 1 || !history[0].AddedAt.Equal(now) {
		t.Fatalf("history=%v, want added_at=%v", history, now)
	}
}
