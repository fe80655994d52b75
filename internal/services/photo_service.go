package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/types"
)

const (
	photoMaxBytes = 5 << 20
	photoMaxDim   = 2048

	photoUploadAttempts = 3
	photoUploadDelay    = time.Second

	photoJPEGQuality = 85
)

type PhotoUploadInput struct {
	Data         []byte
	ContentType  string
	IndividualID *uuid.UUID
	UserName     string
	Location     *types.Location
}

type PhotoUploadResult struct {
	PhotoURL  string    `json:"photo_url"`
	ConsentID uuid.UUID `json:"consent_id"`
}

type PhotoService interface {
	Upload(ctx context.Context, input PhotoUploadInput) (*PhotoUploadResult, error)
}

type photoService struct {
	db          *gorm.DB
	log         *logger.Logger
	bucket      BucketService
	consentRepo repos.PhotoConsentRepo
	now         func() time.Time
	sleep       func(time.Duration)
}

func NewPhotoService(db *gorm.DB, baseLog *logger.Logger, bucket BucketService, consentRepo repos.PhotoConsentRepo) PhotoService {
	serviceLog := baseLog.With("service", "PhotoService")
	return &photoService{
		db:          db,
		log:         serviceLog,
		bucket:      bucket,
		consentRepo: consentRepo,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

func (ps *photoService) Upload(ctx context.Context, input PhotoUploadInput) (*PhotoUploadResult, error) {
	if len(input.Data) == 0 {
		return nil, apierr.Validationf("photo payload is empty")
	}
	if len(input.Data) > photoMaxBytes {
		return nil, apierr.Validationf("photo exceeds %d byte limit", photoMaxBytes)
	}

	normalized, err := normalizeContentType(input.ContentType)
	if err != nil {
		return nil, err
	}

	encoded, err := prepareJPEG(input.Data, normalized)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("photos/%s.jpg", uuid.New().String())
	if err := ps.uploadWithRetry(ctx, key, encoded); err != nil {
		return nil, err
	}

	photoURL := ps.bucket.GetPublicURL(key)
	consent := &types.PhotoConsent{
		IndividualID: input.IndividualID,
		PhotoURL:     photoURL,
		ConsentedBy:  input.UserName,
		ConsentedAt:  ps.now(),
	}
	if input.Location != nil {
		raw, marshalErr := json.Marshal(input.Location)
		if marshalErr != nil {
			return nil, apierr.Internal(marshalErr)
		}
		consent.ConsentLocation = datatypes.JSON(raw)
	}

	err = ps.db.Transaction(func(tx *gorm.DB) error {
		_, createErr := ps.consentRepo.Create(ctx, tx, consent)
		return createErr
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to record photo consent: %w", err))
	}

	ps.log.Info("Photo stored", "key", key, "consent_id", consent.ID.String())
	return &PhotoUploadResult{PhotoURL: photoURL, ConsentID: consent.ID}, nil
}

// uploadWithRetry retries transient storage failures on a fixed delay.
// Credential rejections are terminal: retrying a bad key never helps.
func (ps *photoService) uploadWithRetry(ctx context.Context, key string, data []byte) error {
	var lastErr error
	for attempt := 1; attempt <= photoUploadAttempts; attempt++ {
		lastErr = ps.bucket.UploadFile(ctx, key, "image/jpeg", bytes.NewReader(data))
		if lastErr == nil {
			return nil
		}
		var ae *apierr.Error
		if errors.As(lastErr, &ae) && ae.Code == apierr.CodeAuthFailure {
			return lastErr
		}
		if attempt < photoUploadAttempts {
			ps.log.Warn("Photo upload attempt failed", "attempt", attempt, "error", lastErr)
			ps.sleep(photoUploadDelay)
		}
	}
	return lastErr
}

func normalizeContentType(contentType string) (string, error) {
	parsed, _, err := mime.ParseMediaType(strings.TrimSpace(contentType))
	if err != nil {
		return "", apierr.Validationf("unreadable content type %q", contentType)
	}
	switch parsed {
	case "image/jpeg", "image/png":
		return parsed, nil
	default:
		return "", apierr.Validationf("unsupported photo type %q, want image/jpeg or image/png", parsed)
	}
}

// prepareJPEG decodes the upload, downscales anything larger than
// photoMaxDim on its longest edge and re-encodes everything as JPEG so the
// bucket holds a single format.
func prepareJPEG(data []byte, contentType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	switch contentType {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	default:
		img, err = jpeg.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, apierr.Validationf("Failed to decode photo: %v", err)
	}

	img = downscale(img, photoMaxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: photoJPEGQuality}); err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to encode photo: %w", err))
	}
	return buf.Bytes(), nil
}

func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
