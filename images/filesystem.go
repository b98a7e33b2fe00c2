package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Filesystem stores images under a root directory with a ".meta" JSON
// sidecar holding the content type.
type Filesystem struct {
	root string
}

type metaFile struct {
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewFilesystem(root string) (*Filesystem, error) {
	if root == "" {
		root = "./imagedata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

func (s *Filesystem) Driver() Driver { return DriverFilesystem }

const (
	metaSuffix = ".meta"
	tmpPrefix  = ".tmp-"
)

var errInvalidKey = errors.New("invalid key")

// sanitizeKey rejects keys that would escape the root or name a sidecar or
// temp file.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", errInvalidKey)
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w %q", errInvalidKey, key)
	}
	k := filepath.ToSlash(filepath.Clean(key))
	if strings.HasSuffix(k, metaSuffix) || strings.HasPrefix(pathBase(k), tmpPrefix) {
		return "", fmt.Errorf("%w %q", errInvalidKey, key)
	}
	return k, nil
}

func pathBase(k string) string {
	if i := strings.LastIndex(k, "/"); i >= 0 {
		return k[i+1:]
	}
	return k
}

func (s *Filesystem) paths(key string) (string, string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	data := filepath.Join(s.root, filepath.FromSlash(k))
	return data, data + metaSuffix, nil
}

func (s *Filesystem) Put(_ context.Context, key string, r io.Reader, contentType string) (Info, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dataPath), tmpPrefix+"*")
	if err != nil {
		return Info{}, err
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Info{}, err
	}

	now := time.Now().UTC()
	meta, err := json.Marshal(metaFile{ContentType: contentType, Size: size, CreatedAt: now})
	if err != nil {
		return Info{}, err
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return Info{}, err
	}

	return Info{Key: key, Size: size, ContentType: contentType, LastModified: now}, nil
}

// Get reports keys that can never be stored as ErrNotFound.
func (s *Filesystem) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Info{}, nil, err
	}

	info := Info{Key: key}
	if raw, err := os.ReadFile(metaPath); err == nil {
		var meta metaFile
		if json.Unmarshal(raw, &meta) == nil {
			info.ContentType = meta.ContentType
			info.LastModified = meta.CreatedAt
		}
	}
	if st, err := file.Stat(); err == nil {
		info.Size = st.Size()
		if info.LastModified.IsZero() {
			info.LastModified = st.ModTime().UTC()
		}
	}
	return info, file, nil
}

func (s *Filesystem) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return false, nil
	}

	err = os.Remove(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}
