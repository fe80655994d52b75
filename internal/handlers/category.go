package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/services"
)

type CategoryHandler struct {
	log        *logger.Logger
	categories services.CategoryService
}

func NewCategoryHandler(log *logger.Logger, categories services.CategoryService) *CategoryHandler {
	handlerLog := log.With("handler", "CategoryHandler")
	return &CategoryHandler{log: handlerLog, categories: categories}
}

func (ch *CategoryHandler) List(c *gin.Context) {
	categories, err := ch.categories.List(c.Request.Context())
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondOK(c, gin.H{"categories": categories})
}

func (ch *CategoryHandler) Create(c *gin.Context) {
	var input services.CategoryCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondAPIError(c, apierr.Validationf("invalid request body: %v", err))
		return
	}
	category, err := ch.categories.Create(c.Request.Context(), nil, input)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, category)
}
