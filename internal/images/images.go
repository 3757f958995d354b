// Package images attaches generated pictures to NPC posts and keeps a character's look consistent.
package images

import (
	"context"
	"math/rand"

	"ambitious/internal/model"
)

// Image is raw encoded image bytes.
type Image struct {
	Data     []byte
	MIMEType string
}

// Model renders a prompt, optionally biased toward a reference picture of the same character.
type Model interface {
	Generate(ctx context.Context, prompt string, ref *Image) (Image, error)
}

// Storage persists bytes under key and returns a public URL.
type Storage interface {
	Put(ctx context.Context, key string, img Image) (string, error)
}

// Probability is the chance a post gets an image. Unset frequency behaves like "sometimes".
func Probability(f model.ImageFrequency) float64 {
	switch f {
	case model.ImageAlways:
		return 1
	case model.ImageRarely:
		return 0.25
	case model.ImageSometimes, "":
		return 0.5
	default:
		return 0
	}
}

// ShouldGenerate draws once against the frequency.
func ShouldGenerate(f model.ImageFrequency, rnd *rand.Rand) bool {
	p := Probability(f)
	if p >= 1 {
		return true
	}
	return rnd.Float64() < p
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
