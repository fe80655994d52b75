package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&types.Category{}, &types.Individual{}, &types.Interaction{}, &types.PhotoConsent{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, dbErr := gdb.DB()
		if dbErr == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

func seedRegistry(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	for i, category := range baseRegistry(t) {
		category.CreatedAt = time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC)
		if err := gdb.Create(category).Error; err != nil {
			t.Fatalf("Failed to seed category %s: %v", category.Name, err)
		}
	}
}

func newIndividualServiceFixture(t *testing.T) (IndividualService, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	seedRegistry(t, gdb)
	log := testLogger(t)
	service := NewIndividualService(
		gdb,
		log,
		repos.NewCategoryRepo(gdb, log),
		repos.NewIndividualRepo(gdb, log),
		repos.NewInteractionRepo(gdb, log),
	)
	// Whole-second UTC timestamps survive the sqlite round trip exactly.
	service.(*individualService).now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return service, gdb
}

func TestSaveCreatesIndividualAndInteraction(t *testing.T) {
	service, gdb := newIndividualServiceFixture(t)

	transcription := "met Alex by the shelter"
	result, err := service.Save(context.Background(), SaveRequest{
		Data:          validPayload(),
		Transcription: &transcription,
		UserName:      "worker1",
		Location:      &types.Location{Latitude: 40.7, Longitude: -74.0},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if result.Individual.ID == uuid.Nil {
		t.Fatal("individual id not assigned")
	}
	if result.Individual.Name != "Alex" {
		t.Fatalf("name=%q, want Alex", result.Individual.Name)
	}
	if result.Individual.UrgencyScore != 0 {
		t.Fatalf("urgency=%d, want 0 with unweighted registry", result.Individual.UrgencyScore)
	}
	if result.Interaction.UserName != "worker1" {
		t.Fatalf("interaction user=%q", result.Interaction.UserName)
	}
	// First interaction records the full payload as changes.
	if len(result.Interaction.Changes) != len(validPayload()) {
		t.Fatalf("changes=%v, want full payload", result.Interaction.Changes)
	}

	var count int64
	if err := gdb.Model(&types.Interaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("interaction rows=%d, want 1", count)
	}
}

func TestSaveRejectsMissingRequiredOnCreate(t *testing.T) {
	service, _ := newIndividualServiceFixture(t)

	payload := validPayload()
	delete(payload, "skin_color")
	_, err := service.Save(context.Background(), SaveRequest{Data: payload, UserName: "worker1"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if apierr.Code(err) != apierr.CodeValidation {
		t.Fatalf("code=%s, want validation_error", apierr.Code(err))
	}
}

func TestSaveMergeComputesDeltaAndPreservesAbsentKeys(t *testing.T) {
	service, _ := newIndividualServiceFixture(t)
	ctx := context.Background()

	created, err := service.Save(ctx, SaveRequest{Data: validPayload(), UserName: "worker1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	firstUpdatedAt := created.Individual.UpdatedAt

	svc := service.(*individualService)
	later := firstUpdatedAt.Add(2 * time.Hour)
	svc.now = func() time.Time { return later }

	merged, err := service.Save(ctx, SaveRequest{
		Data: map[string]interface{}{
			"name":   "Alex", // unchanged
			"height": 72.0,   // changed
			"gender": "male", // new key
		},
		MergeWithID: &created.Individual.ID,
		UserName:    "worker2",
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	changes := map[string]interface{}(merged.Interaction.Changes)
	if _, ok := changes["name"]; ok {
		t.Fatalf("unchanged name must not appear in delta: %v", changes)
	}
	if len(changes) != 2 {
		t.Fatalf("delta=%v, want height and gender only", changes)
	}

	data := map[string]interface{}(merged.Individual.Data)
	if _, ok := data["weight"]; !ok {
		t.Fatal("absent key weight must be preserved")
	}
	h, _ := toFloat64(data["height"])
	if h != 72.0 {
		t.Fatalf("height=%v, want 72", data["height"])
	}
	if !merged.Individual.UpdatedAt.Equal(later) {
		t.Fatalf("updated_at=%v, want %v", merged.Individual.UpdatedAt, later)
	}
}

func TestSaveMergeNoChangeLeavesUpdatedAt(t *testing.T) {
	service, _ := newIndividualServiceFixture(t)
	ctx := context.Background()

	created, err := service.Save(ctx, SaveRequest{Data: validPayload(), UserName: "worker1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	firstUpdatedAt := created.Individual.UpdatedAt

	svc := service.(*individualService)
	svc.now = func() time.Time { return firstUpdatedAt.Add(3 * time.Hour) }

	merged, err := service.Save(ctx, SaveRequest{
		Data:        map[string]interface{}{"height": 70.0},
		MergeWithID: &created.Individual.ID,
		UserName:    "worker2",
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if !merged.Individual.UpdatedAt.Equal(firstUpdatedAt) {
		t.Fatalf("updated_at moved on a no-op merge: %v", merged.Individual.UpdatedAt)
	}
	if len(merged.Interaction.Changes) != 0 {
		t.Fatalf("delta=%v, want empty", merged.Interaction.Changes)
	}

	// The interaction is still appended even when nothing changed.
	interactions, err := service.ListInteractions(ctx, created.Individual.ID)
	if err != nil {
		t.Fatalf("ListInteractions failed: %v", err)
	}
	if len(interactions) != 2 {
		t.Fatalf("interactions=%d, want 2", len(interactions))
	}
}

func TestSaveMergeUnknownTargetIsNotFound(t *testing.T) {
	service, _ := newIndividualServiceFixture(t)

	missing := uuid.New()
	_, err := service.Save(context.Background(), SaveRequest{
		Data:        validPayload(),
		MergeWithID: &missing,
		UserName:    "worker1",
	})
	if err == nil {
		t.Fatal("expected not_found")
	}
	if apierr.Code(err) != apierr.CodeNotFound {
		t.Fatalf("code=%s, want not_found", apierr.Code(err))
	}
}

func TestSaveMergeRotatesPhotoHistory(t *testing.T) {
	service, _ := newIndividualServiceFixture(t)
	ctx := context.Background()

	p1 := "https://storage.googleapis.com/photos/p1.jpg"
	created, err := service.Save(ctx, SaveRequest{Data: validPayload(), PhotoURL: &p1, UserName: "worker1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Individual.PhotoURL == nil || *created.Individual.PhotoURL != p1 {
		t.Fatalf("photo_url=%v, want %s", created.Individual.PhotoURL, p1)
	}

	p2 := "https://storage.googleapis.com/photos/p2.jpg"
	merged, err := service.Save(ctx, SaveRequest{
		Data:        map[string]interface{}{"height": 70.0},
		MergeWithID: &created.Individual.ID,
		PhotoURL:    &p2,
		UserName:    "worker2",
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.Individual.PhotoURL == nil || *merged.Individual.PhotoURL != p2 {
		t.Fatalf("photo_url=%v, want %s", merged.Individual.PhotoURL, p2)
	}
	history := merged.Individual.PhotoHistoryEntries()
	if len(history) != 1 || history[0].URL != p1 {
		t.Fatalf("history=%v, want [p1]", history)
	}
}

func TestSetUrgencyOverride(t *testing.T) {
	service, _ := newIndividualServiceFixture(t)
	ctx := context.Background()

	created, err := service.Save(ctx, SaveRequest{Data: validPayload(), UserName: "worker1"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	over := 150
	if _, err := service.SetUrgencyOverride(ctx, created.Individual.ID, &over); err == nil {
		t.Fatal("expected rejection of out-of-range override")
	}

	over = 85
	updated, err := service.SetUrgencyOverride(ctx, created.Individual.ID, &over)
	if err != nil {
		t.Fatalf("SetUrgencyOverride failed: %v", err)
	}
	if updated.DisplayUrgency() != 85 {
		t.Fatalf("display=%d, want override 85", updated.DisplayUrgency())
	}

	cleared, err := service.SetUrgencyOverride(ctx, created.Individual.ID, nil)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if cleared.DisplayUrgency() != cleared.UrgencyScore {
		t.Fatalf("display=%d, want computed score after clear", cleared.DisplayUrgency())
	}
}
