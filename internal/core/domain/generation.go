package domain

import (
	"errors"
	"time"
)

var (
	ErrMissingUploadInput   = errors.New("image and prompt are required")
	ErrUnsupportedMediaType = errors.New("only .png, .jpg and .jpeg formats are allowed")
	ErrFileTooLarge         = errors.New("image exceeds the maximum upload size")
	ErrSimulatedFailure     = errors.New("simulated AI service error")
	ErrGenerationTimeout    = errors.New("image generation timed out")
)

// Generation is an immutable record of one prompt/image pair produced for a user.
type Generation struct {
	ID          string
	UserID      string
	Prompt      string
	ImagePath   string
	SourceKey   string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}
