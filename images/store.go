// Package images stores uploaded product images. The key of a stored image is
// what a product's image field carries.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

type Driver string

const (
	DriverMemory     Driver = "memory"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

var (
	ErrNotFound = errors.New("image not found")
	ErrExists   = errors.New("image already exists")
)

// Info describes a stored image.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

type Options struct {
	Driver Driver
	Root   string
	S3     S3Config
}

// Open returns the store selected by opts.Driver (memory when empty).
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem:
		return NewFilesystem(opts.Root)
	case DriverS3:
		return NewS3(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("unknown image driver %q", opts.Driver)
	}
}
