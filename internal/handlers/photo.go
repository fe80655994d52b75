package handlers

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/requestdata"
	"github.com/yungbote/streetlink-backend/internal/services"
	"github.com/yungbote/streetlink-backend/internal/types"
)

const photoUploadMaxBytes = 5 << 20

type PhotoHandler struct {
	log    *logger.Logger
	photos services.PhotoService
}

func NewPhotoHandler(log *logger.Logger, photos services.PhotoService) *PhotoHandler {
	handlerLog := log.With("handler", "PhotoHandler")
	return &PhotoHandler{log: handlerLog, photos: photos}
}

// Upload accepts one multipart photo under the "photo" field, with
// optional "individual_id" and "location" (JSON) fields alongside it.
func (ph *PhotoHandler) Upload(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserName == "" {
		RespondAPIError(c, apierr.AuthFailure(errMissingIdentity))
		return
	}

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		RespondAPIError(c, apierr.Validationf("missing photo field: %v", err))
		return
	}
	if fileHeader.Size > photoUploadMaxBytes {
		RespondAPIError(c, apierr.Validationf("photo exceeds %d byte limit", photoUploadMaxBytes))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		RespondAPIError(c, apierr.Validationf("unreadable photo: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, photoUploadMaxBytes+1))
	if err != nil {
		RespondAPIError(c, apierr.Validationf("unreadable photo: %v", err))
		return
	}
	if len(data) > photoUploadMaxBytes {
		RespondAPIError(c, apierr.Validationf("photo exceeds %d byte limit", photoUploadMaxBytes))
		return
	}

	input := services.PhotoUploadInput{
		Data:        data,
		ContentType: fileHeader.Header.Get("Content-Type"),
		UserName:    rd.UserName,
	}

	if raw := strings.TrimSpace(c.PostForm("individual_id")); raw != "" {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			RespondAPIError(c, apierr.Validationf("invalid individual_id %q", raw))
			return
		}
		input.IndividualID = &id
	}
	if raw := strings.TrimSpace(c.PostForm("location")); raw != "" {
		var loc types.Location
		if unmarshalErr := json.Unmarshal([]byte(raw), &loc); unmarshalErr != nil {
			RespondAPIError(c, apierr.Validationf("invalid location: %v", unmarshalErr))
			return
		}
		input.Location = &loc
	}

	result, err := ph.photos.Upload(c.Request.Context(), input)
	if err != nil {
		RespondAPIError(c, err)
		return
	}
	RespondCreated(c, result)
}
