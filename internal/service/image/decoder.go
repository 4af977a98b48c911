package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	defaultMaxWidth     = 1024
	defaultMaxSizeBytes = 10 * 1024 * 1024
	DefaultQuality      = 85
	// MaxPixels предел площади до декодирования: сжатые байты маленькие, а буфер пикселей нет.
	MaxPixels           = 40_000_000
)

var (
	ErrEmpty       = errors.New("image: empty input")
	ErrTooLarge    = errors.New("image: input exceeds size limit")
	ErrUnsupported = errors.New("image: unsupported format")
)

// Форматы, для которых зарегистрированы декодеры.
var supportedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// Decoded готовое к распознаванию изображение.
type Decoded struct {
	Image      image.Image
	MimeType   string // тип исходных байт
	Width      int
	Height     int
	OrigWidth  int
	OrigHeight int
}

// Decoder превращает загруженные байты в image.Image и уменьшает слишком широкие картинки.
type Decoder struct {
	maxSizeByte int
	maxWidth    int
}

func NewDecoder(maxSizeBytes, maxWidth int) *Decoder {
	if maxSizeBytes <= 0 {
		maxSizeBytes = defaultMaxSizeBytes
	}
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}
	return &Decoder{maxSizeByte: maxSizeBytes, maxWidth: maxWidth}
}

func (d *Decoder) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	if err := context.Cause(ctx); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > d.maxSizeByte {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(data), d.maxSizeByte)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !supportedMIME[kind.MIME.Value] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, kind.MIME.Value)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s header: %w", kind.MIME.Value, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.MIME.Value, err)
	}

	origBounds := img.Bounds()
	origWidth := origBounds.Dx()
	origHeight := origBounds.Dy()
	if origWidth == 0 || origHeight == 0 {
		return nil, fmt.Errorf("invalid image size: %dx%d", origWidth, origHeight)
	}

	resizedWidth := min(origWidth, d.maxWidth)
	resizedHeight := max(1, origHeight*resizedWidth/origWidth)
	if resizedWidth != origWidth {
		img = resize(img, resizedWidth, resizedHeight)
	}

	return &Decoded{
		Image:      img,
		MimeType:   kind.MIME.Value,
		Width:      resizedWidth,
		Height:     resizedHeight,
		OrigWidth:  origWidth,
		OrigHeight: origHeight,
	}, nil
}

// EncodeJPEG кодирует изображение в JPEG для отправки провайдеру.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	quality = min(max(quality, 1), 100)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURL формирует data URL, который принимают vision API.
func DataURL(mimeType string, data []byte) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

func resize(src image.Image, width int, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
