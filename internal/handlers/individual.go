package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/requestdata"
	"github.com/yungbote/streetlink-backend/internal/services"
)

type IndividualHandler struct {
	log         *logger.Logger
	individuals services.IndividualService
	avatars     services.AvatarService
}

func NewIndividualHandler(log *logger.Logger, individuals services.IndividualService, avatars services.AvatarService) *IndividualHandler {
	handlerLog := log.With("handler", "IndividualHandler")
	return &IndividualHandler{log: handlerLog, individuals: individuals, avatars: avatars}
}

// Save persists a confirmed observation: a fresh record when merge_with_id
// is absent, a merge into the chosen record otherwise.
func (ih *IndividualHandler) Save(c *gin.Context) {
	var req services.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserName == "" {
		RespondAPIError(c, apierr.AuthFailure(errMissingIdentity))
		return
	}
	req.UserName = rd.UserName

	result, err := ih.individuals.Save(c.Request.Context(), req)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, result)
}

func (ih *IndividualHandler) GetByID(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	individual, err := ih.individuals.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, individual)
}

func (ih *IndividualHandler) ListInteractions(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	interactions, err := ih.individuals.ListInteractions(c.Request.Context(), id)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"interactions": interactions})
}

type urgencyOverrideRequest struct {
	Override *int `json:"override"`
}

// SetUrgency sets or clears the manual urgency override. A null override
// returns the individual to the computed score.
func (ih *IndividualHandler) SetUrgency(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	var req urgencyOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondAPIError(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	individual, err := ih.individuals.SetUrgencyOverride(c.Request.Context(), id, req.Override)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, individual)
}

// Placeholder renders the initial-tile portrait for an individual. It is
// generated per request and never attached to the record, so photo
// presence filters stay truthful.
func (ih *IndividualHandler) Placeholder(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	individual, err := ih.individuals.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	tile, err := ih.avatars.GeneratePlaceholder(individual)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", tile)
}

func parseIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apierr.Validationf("invalid id %q", c.Param("id"))
	}
	return id, nil
}
