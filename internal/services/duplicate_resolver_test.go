package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/streetlink-backend/internal/types"
)

func namedIndividual(name string) *types.Individual {
	return &types.Individual{ID: uuid.New(), Name: name}
}

func TestResolveSkipsWithoutName(t *testing.T) {
	repo := &fakeIndividualRepo{individuals: []*types.Individual{namedIndividual("John Smith")}}
	comparator := &fakeComparator{}
	resolver := NewDuplicateResolverService(nil, testLogger(t), repo, comparator)

	for _, payload := range []map[string]interface{}{
		{},
		{"name": ""},
		{"name": "   "},
		{"height": 70.0},
	} {
		matches, err := resolver.Resolve(context.Background(), payload)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(matches) != 0 {
			t.Fatalf("expected no matches for payload %v, got %d", payload, len(matches))
		}
	}
	if comparator.calls != 0 {
		t.Fatalf("comparator should not run without a name, ran %d times", comparator.calls)
	}
	if len(repo.exactCalls) != 0 {
		t.Fatalf("retrieval should not run without a name")
	}
}

func TestResolveNoComparatorCallOnEmptyCandidates(t *testing.T) {
	repo := &fakeIndividualRepo{}
	comparator := &fakeComparator{}
	resolver := NewDuplicateResolverService(nil, testLogger(t), repo, comparator)

	matches, err := resolver.Resolve(context.Background(), map[string]interface{}{"name": "Nobody Known"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected empty non-nil matches, got %v", matches)
	}
	if comparator.calls != 0 {
		t.Fatalf("comparator must not be called with zero candidates")
	}
}

// A "Johnny Smith" payload with no exact match widens to the first name
// token and picks up the containment matches.
func TestResolveFuzzyWideningByFirstToken(t *testing.T) {
	john := namedIndividual("John Smith")
	johnny := namedIndividual("Johnny Walker")
	unrelated := namedIndividual("Maria Lopez")
	repo := &fakeIndividualRepo{individuals: []*types.Individual{john, johnny, unrelated}}
	comparator := &fakeComparator{}
	resolver := NewDuplicateResolverService(nil, testLogger(t), repo, comparator)

	matches, err := resolver.Resolve(context.Background(), map[string]interface{}{"name": "Johnny Smith"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(repo.tokenCalls) != 1 || repo.tokenCalls[0] != "Johnny" {
		t.Fatalf("expected fuzzy widening on token Johnny, got %v", repo.tokenCalls)
	}
	if comparator.calls != 1 {
		t.Fatalf("comparator should run once, ran %d times", comparator.calls)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 candidate (Johnny Walker), got %d", len(matches))
	}
	if matches[0].ID != johnny.ID {
		t.Fatalf("expected candidate %s, got %s", johnny.ID, matches[0].ID)
	}
}

func TestResolveCandidateCap(t *testing.T) {
	repo := &fakeIndividualRepo{}
	for i := 0; i < candidateCap+10; i++ {
		repo.individuals = append(repo.individuals, namedIndividual("Sam Doe"))
	}
	comparator := &fakeComparator{}
	resolver := NewDuplicateResolverService(nil, testLogger(t), repo, comparator)

	if _, err := resolver.Resolve(context.Background(), map[string]interface{}{"name": "Sam Doe"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(comparator.gotCandidates) != candidateCap {
		t.Fatalf("expected candidate set capped at %d, got %d", candidateCap, len(comparator.gotCandidates))
	}
}

func TestResolveUnionPreservesFirstSeenOrder(t *testing.T) {
	exact := namedIndividual("Ray Cole")
	fuzzyOnly := namedIndividual("Raymond Price")
	repo := &fakeIndividualRepo{individuals: []*types.Individual{fuzzyOnly, exact}}
	comparator := &fakeComparator{}
	resolver := NewDuplicateResolverService(nil, testLogger(t), repo, comparator)

	if _, err := resolver.Resolve(context.Background(), map[string]interface{}{"name": "Ray Cole"}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(comparator.gotCandidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(comparator.gotCandidates))
	}
	if comparator.gotCandidates[0].ID != exact.ID {
		t.Fatalf("exact-stage candidates must come first")
	}
	if comparator.gotCandidates[1].ID != fuzzyOnly.ID {
		t.Fatalf("fuzzy-stage candidates must follow exact matches")
	}
}
