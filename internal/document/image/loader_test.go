package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	stdimage "image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
)

func testImage() stdimage.Image {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 8, 4))
	for x := 0; x < 8; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{G: 180, A: 255})
		}
	}
	return img
}

func encoded(t *testing.T, enc func(*bytes.Buffer, stdimage.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, testImage()))
	return buf.Bytes()
}

func pngData(t *testing.T) []byte {
	return encoded(t, func(b *bytes.Buffer, img stdimage.Image) error { return png.Encode(b, img) })
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func (c *memCache) Get(_ context.Context, url string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[url]
	if ok {
		c.hits++
	}
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, url string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[url] = data
	return nil
}

func TestDecodePassesThroughPNGAndJPEG(t *testing.T) {
	p := pngData(t)
	img, err := Decode(p)
	require.NoError(t, err)
	assert.Equal(t, TypePNG, img.Type)
	assert.Equal(t, p, img.Data)

	j := encoded(t, func(b *bytes.Buffer, img stdimage.Image) error { return jpeg.Encode(b, img, nil) })
	img, err = Decode(j)
	require.NoError(t, err)
	assert.Equal(t, TypeJPEG, img.Type)
	assert.Equal(t, j, img.Data)
}

func TestDecodeConvertsToPNG(t *testing.T) {
	cases := map[string][]byte{
		"gif": encoded(t, func(b *bytes.Buffer, img stdimage.Image) error { return gif.Encode(b, img, nil) }),
		"bmp": encoded(t, func(b *bytes.Buffer, img stdimage.Image) error { return bmp.Encode(b, img) }),
		"svg": []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 20"><rect x="0" y="0" width="40" height="20" fill="#c00"/></svg>`),
	}
	for name, data := range cases {
		img, err := Decode(data)
		require.NoError(t, err, name)
		assert.Equal(t, TypePNG, img.Type, name)

		decoded, err := png.Decode(bytes.NewReader(img.Data))
		require.NoError(t, err, name)
		assert.Greater(t, decoded.Bounds().Dx(), 0, name)
	}
}

func TestDecodeSVGKeepsAspectRatio(t *testing.T) {
	img, err := Decode([]byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 40 20"><rect width="40" height="20"/></svg>`))
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestDecodeRejectsUnknown(t *testing.T) {
	_, err := Decode([]byte("%PDF-1.4 not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = Decode(nil)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestLoadMediaPath(t *testing.T) {
	media := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(media, "/logos/acme.png", pngData(t), 0o644))
	l := NewLoader(media, Config{}, zap.NewNop())

	img, err := l.Load(context.Background(), "/media/logos/acme.png")
	require.NoError(t, err)
	assert.Equal(t, TypePNG, img.Type)

	_, err = l.Load(context.Background(), "/media/logos/missing.png")
	assert.Error(t, err)

	_, err = l.Load(context.Background(), "/media/../logos/acme.png")
	require.NoError(t, err, "dot segments stay inside the media root")
}

func TestLoadLocalPath(t *testing.T) {
	local := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(local, "/srv/logo.png", pngData(t), 0o644))
	l := NewLoader(afero.NewMemMapFs(), Config{}, zap.NewNop(), WithLocalFs(local))

	img, err := l.Load(context.Background(), "/srv/logo.png")
	require.NoError(t, err)
	assert.Equal(t, TypePNG, img.Type)
}

func TestLoadDataURI(t *testing.T) {
	l := NewLoader(afero.NewMemMapFs(), Config{}, zap.NewNop())
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData(t))

	img, err := l.Load(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, TypePNG, img.Type)

	_, err = l.Load(context.Background(), "data:image/png;base64")
	assert.Error(t, err)
}

func TestLoadEmptySource(t *testing.T) {
	l := NewLoader(afero.NewMemMapFs(), Config{}, zap.NewNop())
	_, err := l.Load(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestLoadRemoteUsesCache(t *testing.T) {
	data := pngData(t)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	cache := &memCache{}
	var observed []string
	observer := func(_ context.Context, source string, ok bool) {
		observed = append(observed, fmt.Sprintf("%s:%t", source, ok))
	}
	l := NewLoader(afero.NewMemMapFs(), Config{CacheTTL: time.Minute}, zap.NewNop(),
		WithHTTPClient(srv.Client()), WithCache(cache), WithFetchObserver(observer))

	for i := 0; i < 3; i++ {
		img, err := l.Load(context.Background(), srv.URL+"/logo.png")
		require.NoError(t, err)
		assert.Equal(t, TypePNG, img.Type)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, cache.hits)

	_, err := l.Load(context.Background(), srv.URL+"/missing.png")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, []string{"remote:true", "cache:true", "cache:true", "remote:false"}, observed)
}

func TestLoadRemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	l := NewLoader(afero.NewMemMapFs(), Config{FetchTimeout: 50 * time.Millisecond}, zap.NewNop(),
		WithHTTPClient(srv.Client()))
	_, err := l.Load(context.Background(), srv.URL+"/slow.png")
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestCacheKeyIsStable(t *testing.T) {
	a := cacheKey("https://cdn.example.com/logo.png")
	assert.Equal(t, a, cacheKey("https://cdn.example.com/logo.png"))
	assert.NotEqual(t, a, cacheKey("https://cdn.example.com/logo2.png"))
	assert.Len(t, a, len(cacheKeyPrefix)+64)
	assert.Nil(t, NewRedisCache(nil))
}
