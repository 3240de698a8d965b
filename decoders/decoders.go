// Package decoders provides the built-in QR decoder backends. Each backend
// wraps a third-party Go library behind decoder.Decoder so the harness can
// benchmark them side by side.
package decoders

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/weiihann/qrbench/decoder"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Backend names.
const (
	NameZXing  = "gozxing"
	NameGoQR   = "goqr"
	NameTuotoo = "tuotoo"
)

// KnownDecoders returns the names of all built-in backends.
func KnownDecoders() []string {
	return []string{NameGoQR, NameZXing, NameTuotoo}
}

// Builtin returns a registry holding every built-in backend.
func Builtin() (*decoder.Registry, error) {
	reg := decoder.NewRegistry()

	for _, d := range []decoder.Decoder{
		NewZXing(),
		NewGoQR(),
		NewTuotoo(),
	} {
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// decodeImage turns encoded bytes into pixels. Every backend that needs an
// image.Image goes through here so image decoding cost is the same for all.
func decodeImage(name string, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: decode image: %v: %w",
			name, err, decoder.ErrInternal)
	}

	return img, nil
}
