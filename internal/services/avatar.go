package services

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/streetlink-backend/internal/apierr"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
)

const avatarSize = 512

// Palette for placeholder backgrounds. The pick is a stable hash of the
// name so the same individual always renders the same tile.
var avatarPalette = []color.NRGBA{
	{R: 0x2E, G: 0x86, B: 0xAB, A: 0xFF},
	{R: 0xF2, G: 0x54, B: 0x5B, A: 0xFF},
	{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF},
	{R: 0x7E, G: 0x57, B: 0xC2, A: 0xFF},
	{R: 0xFF, G: 0x8F, B: 0x00, A: 0xFF},
	{R: 0x26, G: 0xA6, B: 0x9A, A: 0xFF},
}

// AvatarService renders initial-tile placeholder portraits for individuals
// without a consented photo. Tiles are generated on demand and never stored
// on the individual, so photo presence semantics stay intact.
type AvatarService interface {
	GeneratePlaceholder(individual *types.Individual) ([]byte, error)
}

type avatarService struct {
	log      *logger.Logger
	fontFace font.Face
}

func NewAvatarService(baseLog *logger.Logger) (AvatarService, error) {
	serviceLog := baseLog.With("service", "AvatarService")

	fontPath := os.Getenv("AVATAR_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("Env var AVATAR_FONT is empty")
	}
	serviceLog.Info("Loading avatar font", "font", fontPath)

	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("Failed to load avatar font: %w", err)
	}

	return &avatarService{log: serviceLog, fontFace: face}, nil
}

func (as *avatarService) GeneratePlaceholder(individual *types.Individual) ([]byte, error) {
	dc := gg.NewContext(avatarSize, avatarSize)

	dc.DrawCircle(float64(avatarSize)/2, float64(avatarSize)/2, float64(avatarSize)/2)
	dc.Clip()

	dc.SetColor(pickAvatarColor(individual.Name))
	dc.DrawRectangle(0, 0, float64(avatarSize), float64(avatarSize))
	dc.Fill()

	initials := nameInitials(individual.Name)
	dc.SetFontFace(as.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(avatarSize)/2, float64(avatarSize)/2

	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2)+5, cy+(th/2)-10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, apierr.Internal(fmt.Errorf("Failed to encode placeholder: %w", err))
	}
	return buf.Bytes(), nil
}

func pickAvatarColor(name string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return avatarPalette[int(h.Sum32())%len(avatarPalette)]
}

// nameInitials takes the first rune of the first and last name tokens.
func nameInitials(name string) string {
	tokens := strings.Fields(strings.TrimSpace(name))
	if len(tokens) == 0 {
		return "?"
	}
	first := strings.ToUpper(tokens[0][:1])
	if len(tokens) == 1 {
		return first
	}
	last := tokens[len(tokens)-1]
	return first + strings.ToUpper(last[:1])
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("Failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
