package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}
	return log
}

type fakeIndividualRepo struct {
	individuals []*types.Individual

	exactCalls []string
	tokenCalls []string
}

func (fr *fakeIndividualRepo) Create(ctx context.Context, tx *gorm.DB, individual *types.Individual) (*types.Individual, error) {
	if individual.ID == uuid.Nil {
		individual.ID = uuid.New()
	}
	fr.individuals = append(fr.individuals, individual)
	return individual, nil
}

func (fr *fakeIndividualRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Individual, error) {
	for _, individual := range fr.individuals {
		if individual.ID == id {
			return individual, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (fr *fakeIndividualRepo) Update(ctx context.Context, tx *gorm.DB, individual *types.Individual) error {
	for i, existing := range fr.individuals {
		if existing.ID == individual.ID {
			fr.individuals[i] = individual
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (fr *fakeIndividualRepo) GetByExactName(ctx context.Context, tx *gorm.DB, name string) ([]*types.Individual, error) {
	fr.exactCalls = append(fr.exactCalls, name)
	var out []*types.Individual
	for _, individual := range fr.individuals {
		if individual.Name == name {
			out = append(out, individual)
		}
	}
	return out, nil
}

func (fr *fakeIndividualRepo) GetByNameToken(ctx context.Context, tx *gorm.DB, token string, limit int) ([]*types.Individual, error) {
	fr.tokenCalls = append(fr.tokenCalls, token)
	var out []*types.Individual
	for _, individual := range fr.individuals {
		if containsFold(individual.Name, token) {
			out = append(out, individual)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (fr *fakeIndividualRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Individual, error) {
	return fr.individuals, nil
}

type fakeInteractionRepo struct {
	interactions []*types.Interaction
}

func (fr *fakeInteractionRepo) Create(ctx context.Context, tx *gorm.DB, interaction *types.Interaction) (*types.Interaction, error) {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	fr.interactions = append(fr.interactions, interaction)
	return interaction, nil
}

func (fr *fakeInteractionRepo) ListByIndividual(ctx context.Context, tx *gorm.DB, individualID uuid.UUID) ([]*types.Interaction, error) {
	var out []*types.Interaction
	for i := len(fr.interactions) - 1; i >= 0; i-- {
		if fr.interactions[i].IndividualID == individualID {
			out = append(out, fr.interactions[i])
		}
	}
	return out, nil
}

func (fr *fakeInteractionRepo) LatestPerIndividual(ctx context.Context, tx *gorm.DB, individualIDs []uuid.UUID) (map[uuid.UUID]*types.Interaction, error) {
	out := map[uuid.UUID]*types.Interaction{}
	for _, id := range individualIDs {
		var latest *types.Interaction
		for _, in := range fr.interactions {
			if in.IndividualID != id {
				continue
			}
			if latest == nil || in.CreatedAt.After(latest.CreatedAt) {
				latest = in
			}
		}
		if latest != nil {
			out[id] = latest
		}
	}
	return out, nil
}

type fakeComparator struct {
	gotPayload    map[string]interface{}
	gotCandidates []*types.Individual
	calls         int

	matches []PotentialMatch
	err     error
}

func (fc *fakeComparator) Compare(ctx context.Context, payload map[string]interface{}, candidates []*types.Individual) ([]PotentialMatch, error) {
	fc.calls++
	fc.gotPayload = payload
	fc.gotCandidates = candidates
	if fc.err != nil {
		return nil, fc.err
	}
	if fc.matches != nil {
		return fc.matches, nil
	}
	out := make([]PotentialMatch, 0, len(candidates))
	for _, candidate := range candidates {
		out = append(out, PotentialMatch{ID: candidate.ID, Name: candidate.Name, Confidence: 50})
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
