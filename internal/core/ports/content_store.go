package ports

import (
	"context"
	"io"
)

// ContentStore holds uploaded and generated image bytes.
type ContentStore interface {
	// Put writes r under key and returns the public path the object is served from.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	// Copy duplicates srcKey into dstKey and returns the public path of dstKey.
	Copy(ctx context.Context, srcKey, dstKey string) (string, error)
	Delete(ctx context.Context, key string) error
}

// GeneratedImage locates the output of an ImageGenerator.
type GeneratedImage struct {
	Key  string
	Path string
}

// ImageGenerator turns a stored source image into a generated output.
type ImageGenerator interface {
	Generate(ctx context.Context, sourceKey, prompt string) (GeneratedImage, error)
}
