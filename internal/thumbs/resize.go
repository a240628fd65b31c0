package thumbs

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// Widths are the derivative sizes produced for every image, largest
// first. The largest doubles as the default for content requests.
var Widths = []int{500, 250, 100}

var errEmptyImage = errors.New("empty image")

// Resize decodes src, scales it to the target pixel width preserving
// aspect ratio, and re-encodes it in the source format. PNG, JPEG and
// GIF inputs are supported.
func Resize(src []byte, width int) ([]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid thumbnail width %d", width)
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errEmptyImage
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 90})
	case "gif":
		err = gif.Encode(&buf, scaled, nil)
	default:
		err = png.Encode(&buf, scaled)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s thumbnail: %w", format, err)
	}

	return buf.Bytes(), nil
}
