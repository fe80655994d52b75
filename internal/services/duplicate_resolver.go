package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

const (
	exactStageTarget = 10
	candidateCap     = 50
)

// DuplicateResolverService retrieves candidate individuals for a tentative
// payload (exact name, then first-token fuzzy widening) and hands them to
// the comparator for confidence ranking.
type DuplicateResolverService interface {
	Resolve(ctx context.Context, payload map[string]interface{}) ([]PotentialMatch, error)
}

type duplicateResolverService struct {
	db             *gorm.DB
	log            *logger.Logger
	individualRepo repos.IndividualRepo
	comparator     ComparatorService
}

func NewDuplicateResolverService(db *gorm.DB, baseLog *logger.Logger, individualRepo repos.IndividualRepo, comparator ComparatorService) DuplicateResolverService {
	serviceLog := baseLog.With("service", "DuplicateResolverService")
	return &duplicateResolverService{
		db:             db,
		log:            serviceLog,
		individualRepo: individualRepo,
		comparator:     comparator,
	}
}

func (drs *duplicateResolverService) Resolve(ctx context.Context, payload map[string]interface{}) ([]PotentialMatch, error) {
	nameVal, present := payloadValue(payload, "name")
	name, _ := toStringValue(nameVal)
	name = strings.TrimSpace(name)
	if !present || name == "" {
		return []PotentialMatch{}, nil
	}

	exact, err := drs.individualRepo.GetByExactName(ctx, nil, name)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed exact-name candidate retrieval: %w", err))
	}

	candidates := exact
	if len(exact) < exactStageTarget {
		token := firstNameToken(name)
		if token != "" {
			fuzzy, fErr := drs.individualRepo.GetByNameToken(ctx, nil, token, candidateCap)
			if fErr != nil {
				return nil, apierr.Internal(fmt.Errorf("Failed fuzzy candidate retrieval: %w", fErr))
			}
			candidates = unionCandidates(exact, fuzzy)
		}
	}
	if len(candidates) > candidateCap {
		candidates = candidates[:candidateCap]
	}
	if len(candidates) == 0 {
		return []PotentialMatch{}, nil
	}

	matches, err := drs.comparator.Compare(ctx, payload, candidates)
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func firstNameToken(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// unionCandidates merges the fuzzy set into the exact set preserving
// first-seen order.
func unionCandidates(exact, fuzzy []*types.Individual) []*types.Individual {
	seen := map[uuid.UUID]bool{}
	out := make([]*types.Individual, 0, len(exact)+len(fuzzy))
	for _, individual := range exact {
		if !seen[individual.ID] {
			seen[individual.ID] = true
			out = append(out, individual)
		}
	}
	for _, individual := range fuzzy {
		if !seen[individual.ID] {
			seen[individual.ID] = true
			out = append(out, individual)
		}
	}
	return out
}
