package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
)

// TranscriberService turns a stored audio clip into text. Only audio hosted
// in object storage under our control is accepted; arbitrary URLs are
// rejected before any network call.
type TranscriberService interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
	Close() error
}

type transcriberService struct {
	log        *logger.Logger
	client     *speech.Client
	bucketName string
	maxRetries int
}

func NewTranscriberService(log *logger.Logger, bucketName string) (TranscriberService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	serviceLog := log.With("service", "TranscriberService")

	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	ctx := context.Background()
	var c *speech.Client
	var err error
	if creds != "" {
		c, err = speech.NewClient(ctx, option.WithCredentialsFile(creds))
	} else {
		c, err = speech.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	return &transcriberService{
		log:        serviceLog,
		client:     c,
		bucketName: bucketName,
		maxRetries: 3,
	}, nil
}

func (ts *transcriberService) Close() error {
	if ts == nil || ts.client == nil {
		return nil
	}
	return ts.client.Close()
}

func (ts *transcriberService) Transcribe(ctx context.Context, audioURL string) (string, error) {
	gcsURI, err := normalizeAudioURI(audioURL, ts.bucketName)
	if err != nil {
		return "", apierr.Validation(err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	req := &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			LanguageCode:               "en-US",
			EnableAutomaticPunctuation: true,
			Encoding:                   inferAudioEncoding(gcsURI),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Uri{Uri: gcsURI},
		},
	}

	var resp *speechpb.LongRunningRecognizeResponse
	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		op, opErr := ts.client.LongRunningRecognize(ctx, req)
		if opErr == nil {
			resp, opErr = op.Wait(ctx)
		}
		if opErr == nil {
			break
		}
		if attempt >= ts.maxRetries || !isRetryableGRPC(opErr) {
			return "", apierr.Upstream(fmt.Errorf("speech longrunningrecognize: %w", opErr))
		}
		ts.log.Warn("Speech request retrying", "attempt", attempt+1, "error", opErr.Error())
		select {
		case <-ctx.Done():
			return "", apierr.Upstream(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	var full strings.Builder
	for _, r := range resp.GetResults() {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		text := strings.TrimSpace(r.Alternatives[0].Transcript)
		if text == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(text)
	}
	return full.String(), nil
}

// normalizeAudioURI maps an accepted audio reference onto a gs:// URI.
// Accepted forms: gs://<our-bucket>/key and
// https://storage.googleapis.com/<our-bucket>/key.
func normalizeAudioURI(audioURL string, bucketName string) (string, error) {
	trimmed := strings.TrimSpace(audioURL)
	if trimmed == "" {
		return "", fmt.Errorf("audio_url is required")
	}

	if strings.HasPrefix(trimmed, "gs://") {
		rest := strings.TrimPrefix(trimmed, "gs://")
		if bucketName != "" && !strings.HasPrefix(rest, bucketName+"/") {
			return "", fmt.Errorf("audio_url bucket is not allowlisted")
		}
		return trimmed, nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("audio_url is not a valid URL")
	}
	if parsed.Scheme != "https" || parsed.Host != "storage.googleapis.com" {
		return "", fmt.Errorf("audio_url host is not allowlisted")
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	if bucketName != "" && !strings.HasPrefix(path, bucketName+"/") {
		return "", fmt.Errorf("audio_url bucket is not allowlisted")
	}
	if path == "" || !strings.Contains(path, "/") {
		return "", fmt.Errorf("audio_url is missing an object key")
	}
	return "gs://" + path, nil
}

func inferAudioEncoding(gcsURI string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(filepath.Ext(gcsURI)) {
	case ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case ".flac":
		return speechpb.RecognitionConfig_FLAC
	case ".mp3":
		return speechpb.RecognitionConfig_MP3
	case ".ogg", ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func isRetryableGRPC(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}
