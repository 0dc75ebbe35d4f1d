package ports

import (
	"context"
	"io"
	"time"
)

// UploadInput is the DTO passed from the transport layer to GenerationService.
// File is nil when the request carried no image.
type UploadInput struct {
	UserID      string
	Prompt      string
	Filename    string
	ContentType string // declared by the client
	Size        int64
	File        io.Reader
}

// GenerationView is the public projection of a generation record.
type GenerationView struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	ImagePath string    `json:"imagePath"`
	CreatedAt time.Time `json:"createdAt"`
}

// GenerationService implements the upload pipeline and history queries.
type GenerationService interface {
	Upload(ctx context.Context, in UploadInput) (*GenerationView, error)
	ListRecent(ctx context.Context, userID string) ([]GenerationView, error)
}
