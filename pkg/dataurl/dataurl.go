// SPDX-FileCopyrightText: © 2025 Olivier Meunier <olivier@neokraft.net>
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package dataurl converts captured image pixels to and from data: URLs for
// rr_dataURL attributes. Animated GIFs collapse to their first frame on
// decode, the same reduction applied when a multi-frame image is archived
// as a still.
package dataurl

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/gabriel-vasile/mimetype"

	// Formats a captured image may arrive in.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNotDataURL is returned when a string isn't a base64 data: URL.
	ErrNotDataURL = errors.New("dataurl: not a base64 data URL")
	// ErrMediaType is returned for an encoding target other than PNG or JPEG.
	ErrMediaType = errors.New("dataurl: unsupported media type")
)

// Options controls the encoded output: its media type (image/png or
// image/jpeg, PNG by default), the JPEG quality, and an optional maximum
// dimension above which the image is scaled down before encoding.
type Options struct {
	MediaType string
	Quality   int
	MaxDim    int
}

func (o Options) mediaType() string {
	if o.MediaType == "" {
		return "image/png"
	}
	return o.MediaType
}

func (o Options) quality() int {
	if o.Quality <= 0 || o.Quality > 100 {
		return jpeg.DefaultQuality
	}
	return o.Quality
}

// Encode renders img as a data: URL.
func Encode(img image.Image, o Options) (string, error) {
	img = fit(img, o.MaxDim)

	buf := new(bytes.Buffer)
	switch o.mediaType() {
	case "image/png":
		encoder := &png.Encoder{CompressionLevel: png.BestSpeed}
		if err := encoder.Encode(buf, img); err != nil {
			return "", err
		}
	case "image/jpeg":
		if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: o.quality()}); err != nil {
			return "", err
		}
	default:
		return "", ErrMediaType
	}

	return "data:" + o.mediaType() + ";base64," +
		base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// FromBytes renders raw image bytes as a data: URL. When the bytes already
// carry the target media type and no downscale is needed, they pass through
// without a decode/re-encode round trip.
func FromBytes(data []byte, o Options) (string, error) {
	if o.MaxDim == 0 && mimetype.Detect(data).Is(o.mediaType()) {
		return "data:" + o.mediaType() + ";base64," +
			base64.StdEncoding.EncodeToString(data), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return Encode(img, o)
}

// Decode parses a base64 data: URL back into an image and its media type.
func Decode(dataURL string) (image.Image, string, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, "", ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, "", ErrNotDataURL
	}
	mediaType := strings.TrimSuffix(meta, ";base64")

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	return img, mediaType, nil
}

// IsBlank reports whether every pixel of a data: URL's image is fully
// transparent black, the state of a canvas nothing was ever drawn to.
func IsBlank(dataURL string) (bool, error) {
	img, _, err := Decode(dataURL)
	if err != nil {
		return false, err
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r != 0 || g != 0 || bl != 0 || a != 0 {
				return false, nil
			}
		}
	}
	return true, nil
}

// fit scales img down so neither dimension exceeds maxDim, preserving the
// aspect ratio. Images already within bounds are returned as-is.
func fit(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return transform.Resize(img, w, h, transform.Linear)
}
