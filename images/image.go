// Package images - Image definition for processing utilities.
package images

import (
	"bytes"
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ErrEmptyImage is returned for images without pixels.
var ErrEmptyImage = errors.New("image has no pixels")

// Image represents an encoded image with its format and dimensions.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// Read reads and inspects an encoded image without decoding its pixels.
//
// Arguments:
//   - r: The encoded image stream.
//
// Returns:
//   - *Image: The encoded image with format and dimensions filled in.
//   - error: An error if the stream is not a supported image.
func Read(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode image config")
	}
	return &Image{
		Format: ImageFormat(format),
		Data:   data,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Open reads an encoded image from disk.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	img, err := Read(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "open %s", path)
	}
	return img, nil
}

// Decode decodes the image pixels.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: An error if the data cannot be decoded or has no pixels.
func (i *Image) Decode() (image.Image, error) {
	if i == nil || len(i.Data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s image", i.Format)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	return img, nil
}
