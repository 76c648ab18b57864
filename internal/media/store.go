// Package media persists generated documents under the media root and maps
// them to public URLs.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	DefaultPublicPrefix = "/media"

	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

var (
	ErrFileExists  = errors.New("file_exists")
	ErrInvalidPath = errors.New("invalid_media_path")
	ErrNotFound    = errors.New("media_not_found")
)

// Ref locates a stored file both on disk and publicly.
type Ref struct {
	URL    string `json:"url"`
	FSPath string `json:"-"`
}

// Store writes files into an afero filesystem rooted at the media directory.
type Store struct {
	fs     afero.Fs
	root   string
	prefix string
	log    *zap.Logger
}

// NewStore returns a Store. root is only used to report FSPath values; fs
// must already be rooted there (see NewOsFs).
func NewStore(fs afero.Fs, root, publicPrefix string, log *zap.Logger) *Store {
	if publicPrefix == "" {
		publicPrefix = DefaultPublicPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		fs:     fs,
		root:   strings.TrimRight(root, "/"),
		prefix: "/" + strings.Trim(publicPrefix, "/"),
		log:    log.Named("media.store"),
	}
}

// NewOsFs returns the OS filesystem restricted to root.
func NewOsFs(root string) afero.Fs {
	return afero.NewBasePathFs(afero.NewOsFs(), root)
}

func (s *Store) Fs() afero.Fs { return s.fs }

func (s *Store) PublicPrefix() string { return s.prefix }

func (s *Store) ref(rel string) Ref {
	return Ref{URL: s.prefix + rel, FSPath: s.root + rel}
}

func relPath(subdir, fileName string) (string, error) {
	if fileName == "" || strings.ContainsAny(fileName, `/\`) || fileName == "." || fileName == ".." {
		return "", fmt.Errorf("%w: file name %q", ErrInvalidPath, fileName)
	}
	for _, part := range strings.Split(subdir, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: subdir %q", ErrInvalidPath, subdir)
		}
	}
	return path.Join("/", subdir, fileName), nil
}

// Create opens a new file for streaming. The file must not exist yet.
func (s *Store) Create(subdir, fileName string) (io.WriteCloser, Ref, error) {
	rel, err := relPath(subdir, fileName)
	if err != nil {
		return nil, Ref{}, err
	}
	if err := s.fs.MkdirAll(path.Dir(rel), dirPerm); err != nil {
		return nil, Ref{}, fmt.Errorf("create media dir: %w", err)
	}
	f, err := s.fs.OpenFile(rel, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, Ref{}, fmt.Errorf("%w: %s", ErrFileExists, rel)
		}
		return nil, Ref{}, fmt.Errorf("create media file: %w", err)
	}
	return &syncCloser{File: f}, s.ref(rel), nil
}

// Write stores data as a new file and returns its reference. A partially
// written file is removed.
func (s *Store) Write(subdir, fileName string, data []byte) (Ref, error) {
	w, ref, err := s.Create(subdir, fileName)
	if err != nil {
		return Ref{}, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		s.discard(ref)
		return Ref{}, fmt.Errorf("write media file: %w", err)
	}
	if err := w.Close(); err != nil {
		s.discard(ref)
		return Ref{}, fmt.Errorf("close media file: %w", err)
	}
	s.log.Debug("stored file", zap.String("url", ref.URL), zap.Int("bytes", len(data)))
	return ref, nil
}

func (s *Store) discard(ref Ref) {
	if err := s.Remove(ref); err != nil {
		s.log.Warn("failed to remove partial file", zap.String("url", ref.URL), zap.Error(err))
	}
}

// Remove deletes the file behind ref.
func (s *Store) Remove(ref Ref) error {
	rel, err := s.Resolve(ref.URL)
	if err != nil {
		return err
	}
	return s.fs.Remove(rel)
}

// Resolve maps a public URL path to a path inside the store. Paths outside
// the public prefix or escaping the root are rejected.
func (s *Store) Resolve(urlPath string) (string, error) {
	if urlPath != s.prefix && !strings.HasPrefix(urlPath, s.prefix+"/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, urlPath)
	}
	rel := strings.TrimPrefix(urlPath, s.prefix)
	for _, part := range strings.Split(rel, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, urlPath)
		}
	}
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, urlPath)
	}
	return clean, nil
}

// Open returns a stored regular file for reading.
func (s *Store) Open(urlPath string) (afero.File, os.FileInfo, error) {
	rel, err := s.Resolve(urlPath)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.fs.Open(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, urlPath)
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, urlPath)
	}
	return f, info, nil
}

type syncCloser struct {
	afero.File
}

func (s *syncCloser) Close() error {
	if err := s.File.Sync(); err != nil {
		_ = s.File.Close()
		return err
	}
	return s.File.Close()
}
