// Package image resolves logo references into image data the PDF backend can
// embed.
package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	defaultMediaPrefix  = "/media"
	defaultFetchTimeout = 10 * time.Second
	defaultMaxBytes     = 10 << 20
)

var (
	ErrEmptySource = errors.New("empty_image_source")
	ErrFetchFailed = errors.New("image_fetch_failed")
)

// Config tunes how sources are resolved.
type Config struct {
	// MediaPrefix is the public URL prefix of the media root, e.g. "/media".
	MediaPrefix  string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	MaxBytes     int64
}

// Loader resolves image sources. It is safe for concurrent use.
type Loader struct {
	media  afero.Fs
	local  afero.Fs
	client *http.Client
	cache  Cache
	cfg    Config
	log    *zap.Logger

	observe FetchObserver
}

// FetchObserver is told how each remote fetch was served: source is "cache"
// or "remote".
type FetchObserver func(ctx context.Context, source string, ok bool)

type Option func(*Loader)

// WithHTTPClient replaces the client used for remote fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithCache enables caching of remote fetches.
func WithCache(c Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithFetchObserver reports remote fetch outcomes to fn.
func WithFetchObserver(fn FetchObserver) Option {
	return func(l *Loader) { l.observe = fn }
}

// WithLocalFs replaces the filesystem used for plain paths.
func WithLocalFs(fs afero.Fs) Option {
	return func(l *Loader) { l.local = fs }
}

// NewLoader returns a Loader reading media paths from media, which must be
// rooted at the media directory.
func NewLoader(media afero.Fs, cfg Config, log *zap.Logger, opts ...Option) *Loader {
	if cfg.MediaPrefix == "" {
		cfg.MediaPrefix = defaultMediaPrefix
	}
	cfg.MediaPrefix = "/" + strings.Trim(cfg.MediaPrefix, "/")
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	l := &Loader{
		media:  media,
		local:  afero.NewOsFs(),
		client: &http.Client{},
		cfg:    cfg,
		log:    log.Named("document.image"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves src and returns it as PNG or JPEG data.
func (l *Loader) Load(ctx context.Context, src string) (Image, error) {
	data, err := l.Read(ctx, src)
	if err != nil {
		return Image{}, err
	}
	img, err := Decode(data)
	if err != nil {
		return Image{}, fmt.Errorf("image %s: %w", describe(src), err)
	}
	return img, nil
}

// Decode converts raw bytes the same way Load does.
func (l *Loader) Decode(data []byte) (Image, error) {
	return Decode(data)
}

// Read returns the raw bytes behind src without converting them.
func (l *Loader) Read(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, ErrEmptySource
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetch(ctx, src)
	case src == l.cfg.MediaPrefix || strings.HasPrefix(src, l.cfg.MediaPrefix+"/"):
		rel, err := l.mediaPath(src)
		if err != nil {
			return nil, err
		}
		return l.readFile(l.media, rel)
	default:
		return l.readFile(l.local, src)
	}
}

func (l *Loader) mediaPath(src string) (string, error) {
	if u, err := url.Parse(src); err == nil {
		src = u.Path
	}
	rel := strings.TrimPrefix(src, l.cfg.MediaPrefix)
	clean := path.Clean("/" + rel)
	if clean == "/" {
		return "", fmt.Errorf("media path %q names no file", src)
	}
	return clean, nil
}

func (l *Loader) readFile(fs afero.Fs, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", name, err)
	}
	defer f.Close()
	return readLimited(f, l.cfg.MaxBytes)
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if l.cache != nil {
		data, ok, err := l.cache.Get(ctx, rawURL)
		if err != nil {
			l.log.Warn("image cache lookup failed", zap.String("url", rawURL), zap.Error(err))
		} else if ok {
			l.report(ctx, "cache", true)
			return data, nil
		}
	}

	data, err := l.download(ctx, rawURL)
	l.report(ctx, "remote", err == nil)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, rawURL, data, l.cfg.CacheTTL); err != nil {
			l.log.Warn("image cache store failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return data, nil
}

func (l *Loader) report(ctx context.Context, source string, ok bool) {
	if l.observe != nil {
		l.observe(ctx, source, ok)
	}
}

func (l *Loader) download(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrFetchFailed, rawURL, resp.StatusCode)
	}
	data, err := readLimited(resp.Body, l.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	return data, nil
}

func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("image exceeds %d bytes", max)
	}
	return data, nil
}

func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data uri")
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
		if err != nil {
			return nil, fmt.Errorf("decode data uri: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return []byte(data), nil
}

func describe(src string) string {
	if strings.HasPrefix(src, "data:") {
		return "data uri"
	}
	return src
}

// Source resolves an image reference. *Loader implements it.
type Source interface {
	Load(ctx context.Context, src string) (Image, error)
}

var _ Source = (*Loader)(nil)
