package utils

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Payment proof screenshots arrive from customer phones in whatever format
// the camera app produced, HEIC included. Everything is normalized to an
// upright JPEG before it reaches the object store.

var allowedProofContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/heic": true,
	"image/heif": true,
}

type ProofImageMeta struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

func ValidateProofContentType(contentType string) bool {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if ct == "" {
		return false
	}
	return allowedProofContentTypes[ct]
}

func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sample := data
	if len(sample) > 512 {
		sample = sample[:512]
	}
	return http.DetectContentType(sample)
}

func isHeifFamily(data []byte) bool {
	// ISO BMFF layout: [size:4][ftyp:4][brand:4]...
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1", "heif":
		return true
	default:
		return false
	}
}

func decodeAndAutoRotate(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if isHeifFamily(data) {
			if heicImg, heicErr := decodeHEIC(data); heicErr == nil {
				return heicImg, "heic", nil
			}
		}
		return nil, "", err
	}

	// EXIF orientation is honored best-effort; only JPEGs usually carry it.
	if strings.EqualFold(format, "jpeg") {
		if ex, exErr := exif.Decode(bytes.NewReader(data)); exErr == nil {
			if tag, tagErr := ex.Get(exif.Orientation); tagErr == nil {
				if orient, convErr := tag.Int(0); convErr == nil {
					switch orient {
					case 2:
						img = imaging.FlipH(img)
					case 3:
						img = imaging.Rotate180(img)
					case 4:
						img = imaging.FlipV(img)
					case 5:
						img = imaging.Transpose(img)
					case 6:
						img = imaging.Rotate270(img)
					case 7:
						img = imaging.Transverse(img)
					case 8:
						img = imaging.Rotate90(img)
					}
				}
			}
		}
	}

	return img, format, nil
}

// NormalizeProofImage re-encodes an uploaded proof as an upright JPEG fitting
// inside maxSide x maxSide, preserving aspect ratio.
func NormalizeProofImage(data []byte, maxSide int, quality int) ([]byte, ProofImageMeta, error) {
	if maxSide <= 0 {
		return nil, ProofImageMeta{}, errors.New("maxSide must be > 0")
	}
	img, format, err := decodeAndAutoRotate(data)
	if err != nil {
		return nil, ProofImageMeta{}, err
	}

	b := img.Bounds()
	meta := ProofImageMeta{Width: b.Dx(), Height: b.Dy(), Format: format}

	resized := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: quality}); err != nil {
		return nil, ProofImageMeta{}, err
	}
	return buf.Bytes(), meta, nil
}

// MenuThumbnail produces the square cover crop shown on the POS menu grid.
func MenuThumbnail(data []byte, size int, quality int) ([]byte, ProofImageMeta, error) {
	if size <= 0 {
		return nil, ProofImageMeta{}, errors.New("size must be > 0")
	}
	img, format, err := decodeAndAutoRotate(data)
	if err != nil {
		return nil, ProofImageMeta{}, err
	}

	b := img.Bounds()
	meta := ProofImageMeta{Width: b.Dx(), Height: b.Dy(), Format: format}

	filled := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, filled, &jpeg.Options{Quality: quality}); err != nil {
		return nil, ProofImageMeta{}, err
	}
	return buf.Bytes(), meta, nil
}
