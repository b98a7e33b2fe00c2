package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"catalogadmin/models"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxBytes = 5 << 20
	keyPrefix       = "products/"
)

var (
	ErrEmpty    = errors.New("empty image")
	ErrTooLarge = errors.New("image too large")
	ErrNotImage = errors.New("not an image")
)

// Uploader validates uploads and stores them under products/<uuid><ext>.
type Uploader struct {
	store    Store
	maxBytes int64
	baseURL  string
	log      logrus.FieldLogger
}

// NewUploader returns an uploader; baseURL is the prefix previews are served from.
func NewUploader(store Store, maxBytes int64, baseURL string, logger logrus.FieldLogger) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Uploader{
		store:    store,
		maxBytes: maxBytes,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      logger.WithFields(logrus.Fields{"component": "images", "driver": store.Driver()}),
	}
}

func (u *Uploader) MaxBytes() int64 { return u.maxBytes }

func (u *Uploader) Upload(ctx context.Context, r io.Reader) (models.ImageUpload, error) {
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return models.ImageUpload{}, err
	}
	if len(data) == 0 {
		return models.ImageUpload{}, ErrEmpty
	}
	if int64(len(data)) > u.maxBytes {
		return models.ImageUpload{}, fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(u.maxBytes)))
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return models.ImageUpload{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}

	key := keyPrefix + uuid.Must(uuid.NewV4()).String() + mt.Extension()
	info, err := u.store.Put(ctx, key, bytes.NewReader(data), mt.String())
	if err != nil {
		u.log.WithField("key", key).Errorf("Failed to store image: %v", err)
		return models.ImageUpload{}, err
	}

	u.log.WithField("key", key).Infof("Stored %s image (%s)", mt.String(), humanize.Bytes(uint64(info.Size)))
	return models.ImageUpload{
		Key:         info.Key,
		Size:        info.Size,
		SizeHuman:   humanize.Bytes(uint64(info.Size)),
		ContentType: info.ContentType,
		URL:         u.URL(info.Key),
	}, nil
}

func (u *Uploader) Open(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	return u.store.Get(ctx, key)
}

func (u *Uploader) Remove(ctx context.Context, key string) (bool, error) {
	removed, err := u.store.Delete(ctx, key)
	if err != nil {
		u.log.WithField("key", key).Errorf("Failed to delete image: %v", err)
	}
	return removed, err
}

func (u *Uploader) URL(key string) string {
	return u.baseURL + "/" + key
}
