package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LocalStore keeps images in a directory on disk that is served under urlBase.
type LocalStore struct {
	dir     string
	urlBase string
	logger  zerolog.Logger
}

// NewLocalStore creates dir if absent and returns a store writing into it.
// urlBase is the public path the parent of "uploads/" is served from, e.g. "/static".
func NewLocalStore(dir, urlBase string, logger zerolog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		urlBase: urlBase,
		logger:  logger.With().Str("component", "local-image-store").Logger(),
	}, nil
}

// Save writes body to <dir>/<sanitized filename>.
func (s *LocalStore) Save(ctx context.Context, filename string, body io.Reader) (string, bool, error) {
	ref := Ref(filename)
	if ref == "" {
		return "", false, ErrInvalidFilename
	}
	name, _ := nameFromRef(ref)
	path := filepath.Join(s.dir, name)

	created := true
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		created = false
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	}
	if err != nil {
		return "", false, fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		if created {
			_ = os.Remove(path)
		}
		return "", false, fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", false, fmt.Errorf("close %s: %w", name, err)
	}
	s.logger.Debug().Str("ref", ref).Bool("created", created).Msg("image saved")
	return ref, created, nil
}

// Delete removes the file behind ref.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	name, ok := nameFromRef(ref)
	if !ok {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// URL returns the static path of ref.
func (s *LocalStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.urlBase + "/" + ref
}
