package image

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeKeepsSmallImage(t *testing.T) {
	d := NewDecoder(1<<20, 100)

	res, err := d.Decode(context.Background(), pngBytes(t, 40, 20))
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.MimeType)
	assert.Equal(t, 40, res.Width)
	assert.Equal(t, 20, res.Height)
	assert.Equal(t, 40, res.Image.Bounds().Dx())
}

func TestDecodeDownscalesWideImage(t *testing.T) {
	d := NewDecoder(1<<20, 50)

	res, err := d.Decode(context.Background(), pngBytes(t, 200, 100))
	require.NoError(t, err)
	assert.Equal(t, 50, res.Width)
	assert.Equal(t, 25, res.Height)
	assert.Equal(t, 200, res.OrigWidth)
	assert.Equal(t, image.Rect(0, 0, 50, 25), res.Image.Bounds())
}

func TestDecodeRejectsBadInput(t *testing.T) {
	d := NewDecoder(64, 100)

	_, err := d.Decode(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = d.Decode(context.Background(), bytes.Repeat([]byte{0xff}, 65))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = d.Decode(context.Background(), []byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

// pngHeader только сигнатура и IHDR: размеры объявлены, пикселей нет.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, w)
	chunk = binary.BigEndian.AppendUint32(chunk, h)
	chunk = append(chunk, 8, 0, 0, 0, 0) // 8 бит, grayscale
	_ = binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeRejectsHugeDimensionsBeforeDecoding(t *testing.T) {
	data := pngHeader(20000, 20000)
	require.Less(t, len(data), 64)

	_, err := NewDecoder(0, 0).Decode(context.Background(), data)
	require.ErrorIs(t, err, ErrTooLarge)
	assert.Contains(t, err.Error(), "20000x20000")
}

func TestDecodeCorruptImage(t *testing.T) {
	d := NewDecoder(1<<20, 100)
	data := pngBytes(t, 10, 10)

	_, err := d.Decode(context.Background(), data[:20])
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupported)
}

func TestDecodeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDecoder(0, 0).Decode(ctx, pngBytes(t, 4, 4))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeJPEGAndDataURL(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	data, err := EncodeJPEG(img, DefaultQuality)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	url, err := DataURL("", data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

	_, err = DataURL("image/png", nil)
	assert.ErrorIs(t, err, ErrEmpty)
}
