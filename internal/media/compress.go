package media

import (
	"bytes"

	"github.com/disintegration/imaging"
)

const (
	MaxWidth    = 1920
	MaxHeight   = 1080
	jpegQuality = 80
)

var encodable = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/bmp":  imaging.BMP,
	"image/tiff": imaging.TIFF,
}

// Compress downscales images larger than MaxWidth x MaxHeight, keeping the
// aspect ratio, and re-encodes them in their original format. Videos,
// small images and formats we cannot encode are returned unchanged.
func Compress(f File) (File, error) {
	format, ok := encodable[f.ContentType]
	if !ok {
		return f, nil
	}
	img, err := imaging.Decode(bytes.NewReader(f.Data), imaging.AutoOrientation(true))
	if err != nil {
		return File{}, err
	}
	bounds := img.Bounds()
	if bounds.Dx() <= MaxWidth && bounds.Dy() <= MaxHeight {
		return f, nil
	}
	resized := imaging.Fit(img, MaxWidth, MaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return File{}, err
	}
	out := f
	out.Data = buf.Bytes()
	return out, nil
}
