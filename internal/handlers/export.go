package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/services"
)

type ExportHandler struct {
	log    *logger.Logger
	export services.ExportService
}

func NewExportHandler(log *logger.Logger, export services.ExportService) *ExportHandler {
	handlerLog := log.With("handler", "ExportHandler")
	return &ExportHandler{log: handlerLog, export: export}
}

func (eh *ExportHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="individuals.csv"`)
	if err := eh.export.WriteCSV(c.Request.Context(), c.Writer); err != nil {
		// Headers may already be out; log and surface what we can.
		eh.log.Error("Export failed", "error", err)
		c.Status(http.StatusInternalServerError)
	}
}
