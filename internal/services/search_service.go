package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

const (
	searchLimitMax  = 20
	searchOffsetMax = 100

	// Great-circle radius in miles.
	earthRadiusMiles = 3959.0
)

type SearchFilters struct {
	Query     string
	Gender    string
	AgeMin    *int
	AgeMax    *int
	HeightMin *float64
	HeightMax *float64
	DangerMin *int
	DangerMax *int
	HasPhoto  *bool
	SkinColor string

	Sort string
	Lat  *float64
	Lon  *float64

	Limit  int
	Offset int
}

// IndividualSummary is the search projection: no photo bytes and no photo
// URLs leave through this surface.
type IndividualSummary struct {
	ID           uuid.UUID              `json:"id"`
	Name         string                 `json:"name"`
	Data         map[string]interface{} `json:"data"`
	UrgencyScore int                    `json:"urgency_score"`
	LastSeen     *time.Time             `json:"last_seen,omitempty"`
}

type SearchResponse struct {
	Individuals []IndividualSummary `json:"individuals"`
	Total       int                 `json:"total"`
	Offset      int                 `json:"offset"`
	Limit       int                 `json:"limit"`
}

type SearchService interface {
	Search(ctx context.Context, filters SearchFilters) (*SearchResponse, error)
}

type searchService struct {
	db              *gorm.DB
	log             *logger.Logger
	individualRepo  repos.IndividualRepo
	interactionRepo repos.InteractionRepo
}

func NewSearchService(db *gorm.DB, baseLog *logger.Logger, individualRepo repos.IndividualRepo, interactionRepo repos.InteractionRepo) SearchService {
	serviceLog := baseLog.With("service", "SearchService")
	return &searchService{
		db:              db,
		log:             serviceLog,
		individualRepo:  individualRepo,
		interactionRepo: interactionRepo,
	}
}

func (ss *searchService) Search(ctx context.Context, filters SearchFilters) (*SearchResponse, error) {
	if filters.Limit < 1 || filters.Limit > searchLimitMax {
		return nil, apierr.Validationf("limit must be in [1,%d]", searchLimitMax)
	}
	if filters.Offset < 0 || filters.Offset > searchOffsetMax {
		return nil, apierr.Validationf("offset must be in [0,%d]", searchOffsetMax)
	}
	switch filters.Sort {
	case "", "danger_score", "last_seen", "name":
	case "distance":
		if filters.Lat == nil || filters.Lon == nil {
			return nil, apierr.Validationf("sort=distance requires lat and lon")
		}
	default:
		return nil, apierr.Validationf("unknown sort %q", filters.Sort)
	}

	individuals, err := ss.individualRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to load individuals: %w", err))
	}

	matched := make([]*types.Individual, 0, len(individuals))
	for _, individual := range individuals {
		if matchesFilters(individual, filters) {
			matched = append(matched, individual)
		}
	}

	ids := make([]uuid.UUID, 0, len(matched))
	for _, individual := range matched {
		ids = append(ids, individual.ID)
	}
	latest, err := ss.interactionRepo.LatestPerIndividual(ctx, nil, ids)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to load latest interactions: %w", err))
	}

	sortIndividuals(matched, latest, filters)

	total := len(matched)
	start := filters.Offset
	if start > total {
		start = total
	}
	end := start + filters.Limit
	if end > total {
		end = total
	}

	page := make([]IndividualSummary, 0, end-start)
	for _, individual := range matched[start:end] {
		summary := IndividualSummary{
			ID:           individual.ID,
			Name:         individual.Name,
			Data:         map[string]interface{}(individual.Data),
			UrgencyScore: individual.DisplayUrgency(),
		}
		if in, ok := latest[individual.ID]; ok {
			seen := in.CreatedAt
			summary.LastSeen = &seen
		}
		page = append(page, summary)
	}

	return &SearchResponse{
		Individuals: page,
		Total:       total,
		Offset:      filters.Offset,
		Limit:       filters.Limit,
	}, nil
}

func matchesFilters(individual *types.Individual, filters SearchFilters) bool {
	data := map[string]interface{}(individual.Data)

	if q := strings.TrimSpace(strings.ToLower(filters.Query)); q != "" {
		stringified, _ := json.Marshal(data)
		haystack := strings.ToLower(individual.Name) + " " + strings.ToLower(string(stringified))
		if !strings.Contains(haystack, q) {
			return false
		}
	}

	if !csvSetMatches(filters.Gender, data, "gender") {
		return false
	}
	if !csvSetMatches(filters.SkinColor, data, "skin_color") {
		return false
	}

	if filters.AgeMin != nil || filters.AgeMax != nil {
		value, present := payloadValue(data, AgeFieldName)
		if !present {
			return false
		}
		lo, hi, ok := parseAgeRange(value)
		if !ok || (lo == AgeUnknown && hi == AgeUnknown) {
			return false
		}
		// Overlap semantics: the stored range matches unless it sits fully
		// outside the filter window.
		if filters.AgeMin != nil && hi < *filters.AgeMin {
			return false
		}
		if filters.AgeMax != nil && lo > *filters.AgeMax {
			return false
		}
	}

	if filters.HeightMin != nil || filters.HeightMax != nil {
		value, present := payloadValue(data, "height")
		if !present {
			return false
		}
		height, ok := toFloat64(value)
		if !ok {
			return false
		}
		if filters.HeightMin != nil && height < *filters.HeightMin {
			return false
		}
		if filters.HeightMax != nil && height > *filters.HeightMax {
			return false
		}
	}

	if filters.DangerMin != nil || filters.DangerMax != nil {
		danger := individual.DisplayUrgency()
		if filters.DangerMin != nil && danger < *filters.DangerMin {
			return false
		}
		if filters.DangerMax != nil && danger > *filters.DangerMax {
			return false
		}
	}

	if filters.HasPhoto != nil {
		hasPhoto := individual.PhotoURL != nil && *individual.PhotoURL != ""
		if hasPhoto != *filters.HasPhoto {
			return false
		}
	}

	return true
}

func csvSetMatches(csv string, data map[string]interface{}, field string) bool {
	csv = strings.TrimSpace(csv)
	if csv == "" {
		return true
	}
	value, present := payloadValue(data, field)
	stored, ok := toStringValue(value)
	if !present || !ok {
		return false
	}
	for _, member := range strings.Split(csv, ",") {
		if strings.EqualFold(strings.TrimSpace(member), stored) {
			return true
		}
	}
	return false
}

func sortIndividuals(individuals []*types.Individual, latest map[uuid.UUID]*types.Interaction, filters SearchFilters) {
	less := func(i, j int) bool {
		return individuals[i].ID.String() < individuals[j].ID.String()
	}

	switch filters.Sort {
	case "danger_score":
		less = func(i, j int) bool {
			a, b := individuals[i].DisplayUrgency(), individuals[j].DisplayUrgency()
			if a != b {
				return a > b
			}
			return individuals[i].ID.String() < individuals[j].ID.String()
		}
	case "last_seen":
		less = func(i, j int) bool {
			a, b := lastSeenAt(latest, individuals[i].ID), lastSeenAt(latest, individuals[j].ID)
			if !a.Equal(b) {
				return a.After(b)
			}
			return individuals[i].ID.String() < individuals[j].ID.String()
		}
	case "name":
		less = func(i, j int) bool {
			a, b := strings.ToLower(individuals[i].Name), strings.ToLower(individuals[j].Name)
			if a != b {
				return a < b
			}
			return individuals[i].ID.String() < individuals[j].ID.String()
		}
	case "distance":
		less = func(i, j int) bool {
			a := distanceTo(latest, individuals[i].ID, *filters.Lat, *filters.Lon)
			b := distanceTo(latest, individuals[j].ID, *filters.Lat, *filters.Lon)
			if a != b {
				return a < b
			}
			return individuals[i].ID.String() < individuals[j].ID.String()
		}
	}

	sort.SliceStable(individuals, less)
}

func lastSeenAt(latest map[uuid.UUID]*types.Interaction, id uuid.UUID) time.Time {
	if in, ok := latest[id]; ok {
		return in.CreatedAt
	}
	return time.Time{}
}

// distanceTo resolves the haversine distance from the query point to the
// individual's most recent interaction location. Individuals with no known
// location sort last.
func distanceTo(latest map[uuid.UUID]*types.Interaction, id uuid.UUID, lat, lon float64) float64 {
	in, ok := latest[id]
	if !ok {
		return math.MaxFloat64
	}
	loc := in.LocationValue()
	if loc == nil {
		return math.MaxFloat64
	}
	return haversineMiles(lat, lon, loc.Latitude, loc.Longitude)
}

func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}
