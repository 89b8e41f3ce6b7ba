package domain

import (
	"context"
	"errors"
)

var (
	ErrImageExists  = errors.New("image already exists")
	ErrInvalidImage = errors.New("invalid image")
)

type UploadOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

type ImageStore interface {
	// Upload stores data under path. Without Upsert an existing object is
	// left untouched and ErrImageExists is returned.
	Upload(ctx context.Context, path string, data []byte, opts UploadOptions) error

	// Remove deletes the objects at paths. Missing objects are not an error.
	Remove(ctx context.Context, paths []string) error

	PublicURL(path string) string
}

type ImageResizer interface {
	// Resize scales the image down to fit maxWidth x maxHeight and re-encodes
	// it with the given quality (1-100). It returns the encoded bytes and the
	// file extension matching the new encoding.
	Resize(data []byte, maxWidth, maxHeight, quality int) ([]byte, string, error)
}
