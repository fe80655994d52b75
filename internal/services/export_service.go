package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

var exportHeader = []string{"name", "height", "weight", "skin_color", "danger_score", "last_seen"}

// ExportService streams the corpus as CSV. Photo fields never leave
// through this surface.
type ExportService interface {
	WriteCSV(ctx context.Context, w io.Writer) error
}

type exportService struct {
	db              *gorm.DB
	log             *logger.Logger
	individualRepo  repos.IndividualRepo
	interactionRepo repos.InteractionRepo
}

func NewExportService(db *gorm.DB, baseLog *logger.Logger, individualRepo repos.IndividualRepo, interactionRepo repos.InteractionRepo) ExportService {
	serviceLog := baseLog.With("service", "ExportService")
	return &exportService{
		db:              db,
		log:             serviceLog,
		individualRepo:  individualRepo,
		interactionRepo: interactionRepo,
	}
}

func (es *exportService) WriteCSV(ctx context.Context, w io.Writer) error {
	individuals, err := es.individualRepo.ListAll(ctx, nil)
	if err != nil {
		return apierr.Internal(fmt.Errorf("Failed to load individuals: %w", err))
	}

	ids := make([]uuid.UUID, 0, len(individuals))
	for _, individual := range individuals {
		ids = append(ids, individual.ID)
	}
	latest, err := es.interactionRepo.LatestPerIndividual(ctx, nil, ids)
	if err != nil {
		return apierr.Internal(fmt.Errorf("Failed to load latest interactions: %w", err))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return apierr.Internal(fmt.Errorf("Failed to write export header: %w", err))
	}
	for _, individual := range individuals {
		if err := cw.Write(exportRow(individual, latest)); err != nil {
			return apierr.Internal(fmt.Errorf("Failed to write export row: %w", err))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apierr.Internal(fmt.Errorf("Failed to flush export: %w", err))
	}
	es.log.Info("Export complete", "rows", len(individuals))
	return nil
}

func exportRow(individual *types.Individual, latest map[uuid.UUID]*types.Interaction) []string {
	data := map[string]interface{}(individual.Data)

	lastSeen := ""
	if in, ok := latest[individual.ID]; ok {
		lastSeen = in.CreatedAt.UTC().Format(time.RFC3339)
	}

	return []string{
		individual.Name,
		numericCell(data, "height"),
		numericCell(data, "weight"),
		stringCell(data, "skin_color"),
		strconv.Itoa(individual.DisplayUrgency()),
		lastSeen,
	}
}

// numericCell renders a stored zero as "0"; only a genuinely absent or
// unparseable value becomes the empty cell.
func numericCell(data map[string]interface{}, field string) string {
	value, present := payloadValue(data, field)
	if !present || value == nil {
		return ""
	}
	f, ok := toFloat64(value)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func stringCell(data map[string]interface{}, field string) string {
	value, present := payloadValue(data, field)
	if !present {
		return ""
	}
	s, ok := toStringValue(value)
	if !ok {
		return ""
	}
	return s
}
