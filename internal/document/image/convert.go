package image

import (
	"bytes"
	"errors"
	"fmt"
	stdimage "image"
	"image/gif"
	"image/png"
	"math"

	"github.com/gabriel-vasile/mimetype"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

const (
	TypePNG  = "PNG"
	TypeJPEG = "JPG"

	// svgMaxSide is the longest side of a rasterized SVG, in pixels.
	svgMaxSide = 1024
	// svgDefaultSide is used when an SVG declares no view box.
	svgDefaultSide = 512
)

var ErrUnsupportedImage = errors.New("unsupported_image")

// Image is embeddable image data. Type is the drawing backend's image type name.
type Image struct {
	Data []byte
	Type string
	MIME string
}

// Decode sniffs data and returns it as PNG or JPEG. PNG and JPEG pass through
// untouched, other raster formats and SVG are converted to PNG.
func Decode(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	mt := mimetype.Detect(data)

	switch {
	case mt.Is("image/png"):
		return Image{Data: data, Type: TypePNG, MIME: mt.String()}, nil
	case mt.Is("image/jpeg"):
		return Image{Data: data, Type: TypeJPEG, MIME: mt.String()}, nil
	case mt.Is("image/svg+xml"):
		img, err := rasterizeSVG(data)
		if err != nil {
			return Image{}, err
		}
		return encodePNG(img, mt.String())
	}

	var (
		img stdimage.Image
		err error
	)
	r := bytes.NewReader(data)
	switch {
	case mt.Is("image/webp"):
		img, err = webp.Decode(r)
	case mt.Is("image/gif"):
		img, err = gif.Decode(r)
	case mt.Is("image/bmp"):
		img, err = bmp.Decode(r)
	case mt.Is("image/tiff"):
		img, err = tiff.Decode(r)
	default:
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, mt.String())
	}
	if err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", mt.String(), err)
	}
	return encodePNG(img, mt.String())
}

func encodePNG(img stdimage.Image, source string) (Image, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("encode png from %s: %w", source, err)
	}
	return Image{Data: buf.Bytes(), Type: TypePNG, MIME: source}, nil
}

func rasterizeSVG(data []byte) (stdimage.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.WarnErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = svgDefaultSide, svgDefaultSide
	}
	scale := math.Min(1, svgMaxSide/math.Max(w, h))
	pw := int(math.Max(1, math.Round(w*scale)))
	ph := int(math.Max(1, math.Round(h*scale)))

	icon.SetTarget(0, 0, float64(pw), float64(ph))
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, pw, ph))
	scanner := rasterx.NewScannerGV(pw, ph, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(pw, ph, scanner), 1)
	return img, nil
}
