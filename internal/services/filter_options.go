package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

const filterOptionsTTL = time.Hour

type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type FilterOptions struct {
	Genders          []string   `json:"genders"`
	SkinColors       []string   `json:"skin_colors"`
	AgeRange         IntRange   `json:"age_range"`
	HeightRange      FloatRange `json:"height_range"`
	DangerScoreRange IntRange   `json:"danger_score_range"`
	HasPhoto         []bool     `json:"has_photo"`
}

type CachedFilterOptions struct {
	Filters   FilterOptions `json:"filters"`
	CachedAt  time.Time     `json:"cached_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// FilterOptionsService maintains a process-wide snapshot of the facet
// values the search UI offers. The snapshot is rebuilt lazily after the
// TTL lapses; readers always get a complete snapshot, either the previous
// one or the freshly rebuilt one.
type FilterOptionsService interface {
	Get(ctx context.Context) (*CachedFilterOptions, error)
}

type filterOptionsService struct {
	db             *gorm.DB
	log            *logger.Logger
	individualRepo repos.IndividualRepo

	mu       sync.RWMutex
	snapshot *CachedFilterOptions

	now func() time.Time
}

func NewFilterOptionsService(db *gorm.DB, baseLog *logger.Logger, individualRepo repos.IndividualRepo) FilterOptionsService {
	serviceLog := baseLog.With("service", "FilterOptionsService")
	return &filterOptionsService{
		db:             db,
		log:            serviceLog,
		individualRepo: individualRepo,
		now:            time.Now,
	}
}

func (fs *filterOptionsService) Get(ctx context.Context) (*CachedFilterOptions, error) {
	fs.mu.RLock()
	snapshot := fs.snapshot
	fs.mu.RUnlock()
	if snapshot != nil && fs.now().Before(snapshot.ExpiresAt) {
		return snapshot, nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.snapshot != nil && fs.now().Before(fs.snapshot.ExpiresAt) {
		return fs.snapshot, nil
	}

	rebuilt, err := fs.rebuild(ctx)
	if err != nil {
		// A stale snapshot beats an error page while the rebuild is failing.
		if fs.snapshot != nil {
			fs.log.Warn("Failed to rebuild filter options, serving stale snapshot", "error", err)
			return fs.snapshot, nil
		}
		return nil, apierr.Internal(fmt.Errorf("Failed to rebuild filter options: %w", err))
	}
	fs.snapshot = rebuilt
	return fs.snapshot, nil
}

func (fs *filterOptionsService) rebuild(ctx context.Context) (*CachedFilterOptions, error) {
	individuals, err := fs.individualRepo.ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Failed to load individuals: %w", err)
	}

	var (
		genders    []string
		skinColors []string
		ageRange   IntRange
		heights    FloatRange
		danger     IntRange
		hasPhoto   []bool
	)

	var g errgroup.Group
	g.Go(func() error {
		genders = distinctStrings(individuals, "gender")
		return nil
	})
	g.Go(func() error {
		skinColors = distinctStrings(individuals, "skin_color")
		return nil
	})
	g.Go(func() error {
		ageRange = ageSpan(individuals)
		return nil
	})
	g.Go(func() error {
		heights = heightSpan(individuals)
		return nil
	})
	g.Go(func() error {
		danger = dangerSpan(individuals)
		hasPhoto = photoStates(individuals)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cachedAt := fs.now()
	return &CachedFilterOptions{
		Filters: FilterOptions{
			Genders:          genders,
			SkinColors:       skinColors,
			AgeRange:         ageRange,
			HeightRange:      heights,
			DangerScoreRange: danger,
			HasPhoto:         hasPhoto,
		},
		CachedAt:  cachedAt,
		ExpiresAt: cachedAt.Add(filterOptionsTTL),
	}, nil
}

func distinctStrings(individuals []*types.Individual, field string) []string {
	seen := map[string]string{}
	for _, individual := range individuals {
		value, present := payloadValue(map[string]interface{}(individual.Data), field)
		if !present {
			continue
		}
		s, ok := toStringValue(value)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		seen[strings.ToLower(s)] = s
	}
	out := make([]string, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ageSpan folds all non-sentinel age ranges into one envelope. The unknown
// sentinel carries no age information and is skipped.
func ageSpan(individuals []*types.Individual) IntRange {
	var span IntRange
	found := false
	for _, individual := range individuals {
		value, present := payloadValue(map[string]interface{}(individual.Data), AgeFieldName)
		if !present {
			continue
		}
		lo, hi, ok := parseAgeRange(value)
		if !ok || (lo == AgeUnknown && hi == AgeUnknown) {
			continue
		}
		if !found {
			span = IntRange{Min: lo, Max: hi}
			found = true
			continue
		}
		if lo < span.Min {
			span.Min = lo
		}
		if hi > span.Max {
			span.Max = hi
		}
	}
	return span
}

func heightSpan(individuals []*types.Individual) FloatRange {
	var span FloatRange
	found := false
	for _, individual := range individuals {
		value, present := payloadValue(map[string]interface{}(individual.Data), "height")
		if !present {
			continue
		}
		height, ok := toFloat64(value)
		if !ok {
			continue
		}
		if !found {
			span = FloatRange{Min: height, Max: height}
			found = true
			continue
		}
		if height < span.Min {
			span.Min = height
		}
		if height > span.Max {
			span.Max = height
		}
	}
	return span
}

// dangerSpan ranges over displayed urgency, so manual overrides shape the
// facet the same way they shape search results.
func dangerSpan(individuals []*types.Individual) IntRange {
	var span IntRange
	for i, individual := range individuals {
		danger := individual.DisplayUrgency()
		if i == 0 {
			span = IntRange{Min: danger, Max: danger}
			continue
		}
		if danger < span.Min {
			span.Min = danger
		}
		if danger > span.Max {
			span.Max = danger
		}
	}
	return span
}

func photoStates(individuals []*types.Individual) []bool {
	withPhoto, withoutPhoto := false, false
	for _, individual := range individuals {
		if individual.PhotoURL != nil && *individual.PhotoURL != "" {
			withPhoto = true
		} else {
			withoutPhoto = true
		}
	}
	out := []bool{}
	if withoutPhoto {
		out = append(out, false)
	}
	if withPhoto {
		out = append(out, true)
	}
	return out
}
