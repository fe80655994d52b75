package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

// ingestionState tracks the request-scoped pipeline position, mostly for
// log context when a stage fails.
type ingestionState string

const (
	stateReceived           ingestionState = "received"
	stateTranscribed        ingestionState = "transcribed"
	stateExtracted          ingestionState = "extracted"
	stateValidated          ingestionState = "validated"
	stateResolvedCandidates ingestionState = "resolved_candidates"
	stateResponded          ingestionState = "responded"
)

type TranscribeRequest struct {
	AudioURL string          `json:"audio_url"`
	Location *types.Location `json:"location,omitempty"`
}

type TranscribeResponse struct {
	Transcription    string                 `json:"transcription"`
	CategorizedData  map[string]interface{} `json:"categorized_data"`
	MissingRequired  []string               `json:"missing_required"`
	PotentialMatches []PotentialMatch       `json:"potential_matches"`
	ValidationErrors []FieldError           `json:"validation_errors"`
}

// IngestionService runs the observation pipeline: audio reference in,
// proposed record plus candidate merges out. No retries happen at this
// level; transient retries live inside the collaborators.
type IngestionService interface {
	Ingest(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error)
}

type ingestionService struct {
	log          *logger.Logger
	categoryRepo repos.CategoryRepo
	transcriber  TranscriberService
	extraction   ExtractionService
	resolver     DuplicateResolverService
}

func NewIngestionService(
	baseLog *logger.Logger,
	categoryRepo repos.CategoryRepo,
	transcriber TranscriberService,
	extraction ExtractionService,
	resolver DuplicateResolverService,
) IngestionService {
	serviceLog := baseLog.With("service", "IngestionService")
	return &ingestionService{
		log:          serviceLog,
		categoryRepo: categoryRepo,
		transcriber:  transcriber,
		extraction:   extraction,
		resolver:     resolver,
	}
}

func (is *ingestionService) Ingest(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error) {
	state := stateReceived
	log := is.log.With("audio_url", req.AudioURL)

	if req.AudioURL == "" {
		return nil, apierr.Validationf("audio_url is required")
	}

	// The registry is reloaded per request so mid-flight schema additions
	// take effect without a restart.
	categories, err := is.categoryRepo.List(ctx, nil)
	if err != nil {
		return nil, is.stageError(state, fmt.Errorf("Failed to load category registry: %w", err))
	}

	transcript, err := is.transcriber.Transcribe(ctx, req.AudioURL)
	if err != nil {
		return nil, is.stageError(state, err)
	}
	state = stateTranscribed
	log.Debug("Transcription complete", "state", string(state))

	payload, extractionErrors, err := is.extraction.Extract(ctx, transcript, categories)
	if err != nil {
		return nil, is.stageError(state, err)
	}
	state = stateExtracted

	validation := ValidatePayload(payload, categories)
	state = stateValidated

	matches, err := is.resolver.Resolve(ctx, payload)
	if err != nil {
		return nil, is.stageError(state, err)
	}
	state = stateResolvedCandidates

	sortMatches(matches)
	state = stateResponded
	log.Info("Ingestion pipeline complete",
		"state", string(state),
		"missing_required", len(validation.MissingRequired),
		"potential_matches", len(matches),
	)

	return &TranscribeResponse{
		Transcription:    transcript,
		CategorizedData:  payload,
		MissingRequired:  validation.MissingRequired,
		PotentialMatches: matches,
		ValidationErrors: append(extractionErrors, validation.ValidationErrors...),
	}, nil
}

func (is *ingestionService) stageError(state ingestionState, err error) error {
	is.log.Error("Ingestion pipeline failed", "state", string(state), "error", err)
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apierr.Internal(err)
}

// sortMatches applies the deterministic ordering: comparator confidence
// first, id as the stable tie-break.
func sortMatches(matches []PotentialMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
}
