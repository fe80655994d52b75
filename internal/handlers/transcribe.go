package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/services"
)

type TranscribeHandler struct {
	log       *logger.Logger
	ingestion services.IngestionService
}

func NewTranscribeHandler(log *logger.Logger, ingestion services.IngestionService) *TranscribeHandler {
	handlerLog := log.With("handler", "TranscribeHandler")
	return &TranscribeHandler{log: handlerLog, ingestion: ingestion}
}

// Transcribe runs the full observation pipeline for one audio clip and
// returns the proposed record plus candidate matches. Nothing is persisted
// here; the client confirms via POST /individuals.
func (th *TranscribeHandler) Transcribe(c *gin.Context) {
	var req services.TranscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	resp, err := th.ingestion.Ingest(c.Request.Context(), req)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, resp)
}
