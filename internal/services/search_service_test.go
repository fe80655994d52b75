package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/types"
)

func searchIndividual(name string, data map[string]interface{}) *types.Individual {
	return &types.Individual{
		ID:   uuid.New(),
		Name: name,
		Data: datatypes.JSONMap(data),
	}
}

func searchFixture(t *testing.T, individuals ...*types.Individual) (SearchService, *fakeInteractionRepo) {
	t.Helper()
	individualRepo := &fakeIndividualRepo{individuals: individuals}
	interactionRepo := &fakeInteractionRepo{}
	return NewSearchService(nil, testLogger(t), individualRepo, interactionRepo), interactionRepo
}

func defaultFilters() SearchFilters {
	return SearchFilters{Limit: 20}
}

func TestSearchPaginationBounds(t *testing.T) {
	service, _ := searchFixture(t)
	cases := []struct {
		name    string
		limit   int
		offset  int
		wantErr bool
	}{
		{"limit floor", 1, 0, false},
		{"limit ceiling", 20, 0, false},
		{"limit zero", 0, 0, true},
		{"limit above ceiling", 21, 0, true},
		{"offset ceiling", 20, 100, false},
		{"offset above ceiling", 20, 101, true},
		{"offset negative", 20, -1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Search(context.Background(), SearchFilters{Limit: tc.limit, Offset: tc.offset})
			if tc.wantErr && err == nil {
				t.Fatal("expected rejection")
			}
			if tc.wantErr && apierr.Code(err) != apierr.CodeValidation {
				t.Fatalf("code=%s, want validation_error", apierr.Code(err))
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// An individual stored as [25,35] matches a 30..40 window, one stored as
// [41,50] does not, and the unknown sentinel never matches an age filter.
func TestSearchAgeOverlapSemantics(t *testing.T) {
	overlapping := searchIndividual("Ana", map[string]interface{}{"approximate_age": []interface{}{25.0, 35.0}})
	outside := searchIndividual("Bo", map[string]interface{}{"approximate_age": []interface{}{41.0, 50.0}})
	unknown := searchIndividual("Cy", map[string]interface{}{"approximate_age": []interface{}{-1.0, -1.0}})
	service, _ := searchFixture(t, overlapping, outside, unknown)

	ageMin, ageMax := 30, 40
	filters := defaultFilters()
	filters.AgeMin = &ageMin
	filters.AgeMax = &ageMax

	resp, err := service.Search(context.Background(), filters)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 1 || len(resp.Individuals) != 1 {
		t.Fatalf("total=%d, want 1", resp.Total)
	}
	if resp.Individuals[0].ID != overlapping.ID {
		t.Fatalf("matched %s, want Ana", resp.Individuals[0].Name)
	}
}

func TestSearchFiltersAreANDed(t *testing.T) {
	match := searchIndividual("Dana Reed", map[string]interface{}{"gender": "female", "skin_color": "Light"})
	wrongGender := searchIndividual("Eli Reed", map[string]interface{}{"gender": "male", "skin_color": "Light"})
	wrongSkin := searchIndividual("Fay Reed", map[string]interface{}{"gender": "female", "skin_color": "Dark"})
	service, _ := searchFixture(t, match, wrongGender, wrongSkin)

	filters := defaultFilters()
	filters.Query = "reed"
	filters.Gender = "female,nonbinary"
	filters.SkinColor = "Light"

	resp, err := service.Search(context.Background(), filters)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 1 || resp.Individuals[0].ID != match.ID {
		t.Fatalf("got %v, want only Dana Reed", resp.Individuals)
	}
}

func TestSearchDangerRangeUsesDisplayedUrgency(t *testing.T) {
	override := 90
	overridden := searchIndividual("Gil", map[string]interface{}{})
	overridden.UrgencyScore = 10
	overridden.UrgencyOverride = &override
	plain := searchIndividual("Hal", map[string]interface{}{})
	plain.UrgencyScore = 10
	service, _ := searchFixture(t, overridden, plain)

	dangerMin := 50
	filters := defaultFilters()
	filters.DangerMin = &dangerMin

	resp, err := service.Search(context.Background(), filters)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 1 || resp.Individuals[0].ID != overridden.ID {
		t.Fatalf("expected only the overridden individual, got %v", resp.Individuals)
	}
	if resp.Individuals[0].UrgencyScore != 90 {
		t.Fatalf("summary urgency=%d, want displayed 90", resp.Individuals[0].UrgencyScore)
	}
}

func TestSearchDistanceSortRequiresCoordinates(t *testing.T) {
	service, _ := searchFixture(t)
	filters := defaultFilters()
	filters.Sort = "distance"
	_, err := service.Search(context.Background(), filters)
	if err == nil || apierr.Code(err) != apierr.CodeValidation {
		t.Fatalf("expected validation_error, got %v", err)
	}
}

func TestSearchDistanceSortOrdersByLastLocation(t *testing.T) {
	near := searchIndividual("Near", map[string]interface{}{})
	far := searchIndividual("Far", map[string]interface{}{})
	nowhere := searchIndividual("Nowhere", map[string]interface{}{})
	service, interactionRepo := searchFixture(t, far, nowhere, near)

	nearInteraction := &types.Interaction{IndividualID: near.ID, CreatedAt: time.Now()}
	nearInteraction.SetLocation(&types.Location{Latitude: 40.70, Longitude: -74.00})
	farInteraction := &types.Interaction{IndividualID: far.ID, CreatedAt: time.Now()}
	farInteraction.SetLocation(&types.Location{Latitude: 41.80, Longitude: -87.60})
	interactionRepo.interactions = append(interactionRepo.interactions, nearInteraction, farInteraction)

	lat, lon := 40.71, -74.01
	filters := defaultFilters()
	filters.Sort = "distance"
	filters.Lat = &lat
	filters.Lon = &lon

	resp, err := service.Search(context.Background(), filters)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Individuals) != 3 {
		t.Fatalf("total=%d, want 3", len(resp.Individuals))
	}
	if resp.Individuals[0].ID != near.ID || resp.Individuals[1].ID != far.ID || resp.Individuals[2].ID != nowhere.ID {
		t.Fatalf("order=%s,%s,%s want Near,Far,Nowhere",
			resp.Individuals[0].Name, resp.Individuals[1].Name, resp.Individuals[2].Name)
	}
}

func TestSearchDeterministicOrderAndPagination(t *testing.T) {
	a := searchIndividual("Same", map[string]interface{}{})
	b := searchIndividual("Same", map[string]interface{}{})
	c := searchIndividual("Same", map[string]interface{}{})
	service, _ := searchFixture(t, c, a, b)

	filters := defaultFilters()
	filters.Sort = "name"
	filters.Limit = 2

	first, err := service.Search(context.Background(), filters)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	filters.Offset = 2
	second, err := service.Search(context.Background(), filters)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if first.Total != 3 || second.Total != 3 {
		t.Fatalf("totals=%d,%d want 3", first.Total, second.Total)
	}
	if len(first.Individuals) != 2 || len(second.Individuals) != 1 {
		t.Fatalf("page sizes=%d,%d want 2,1", len(first.Individuals), len(second.Individuals))
	}

	// Identical names fall back to id order, so the pages never overlap and
	// repeated queries agree.
	seen := map[uuid.UUID]bool{}
	for _, item := range append(first.Individuals, second.Individuals...) {
		if seen[item.ID] {
			t.Fatalf("id %s appeared on both pages", item.ID)
		}
		seen[item.ID] = true
	}
	repeat, err := service.Search(context.Background(), SearchFilters{Sort: "name", Limit: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if repeat.Individuals[0].ID != first.Individuals[0].ID {
		t.Fatal("repeated query returned a different first page")
	}
}

func TestSearchQueryMatchesStringifiedData(t *testing.T) {
	tattoo := searchIndividual("Ira", map[string]interface{}{"notes": "Dragon tattoo on left arm"})
	other := searchIndividual("Jo", map[string]interface{}{"notes": "red jacket"})
	service, _ := searchFixture(t, tattoo, other)

	filters := defaultFilters()
	filters.Query = "dragon TATTOO"

	resp, err := service.Search(context.Background(), filters)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 1 || resp.Individuals[0].ID != tattoo.ID {
		t.Fatalf("got %v, want only Ira", resp.Individuals)
	}
}
