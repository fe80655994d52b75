package services

import (
	"time"

	"github.com/yungbote/streetlink-backend/internal/types"
)

const photoHistoryLimit = 3

// SetPhoto promotes newURL to the individual's current photo, rotating the
// previous one into the bounded history. Pure with respect to its input;
// callers persist the returned value.
func SetPhoto(individual types.Individual, newURL string, now time.Time) types.Individual {
	history := individual.PhotoHistoryEntries()

	if individual.PhotoURL != nil && *individual.PhotoURL != "" {
		addedAt := individual.UpdatedAt
		if addedAt.IsZero() {
			addedAt = now
		}
		entry := types.PhotoHistoryEntry{URL: *individual.PhotoURL, AddedAt: addedAt}
		history = append([]types.PhotoHistoryEntry{entry}, history...)
	}
	if len(history) > photoHistoryLimit {
		history = history[:photoHistoryLimit]
	}

	url := newURL
	individual.PhotoURL = &url
	individual.SetPhotoHistoryEntries(history)
	return individual
}
