package decoders

import (
	"fmt"

	"github.com/liyue201/goqr"
	"github.com/weiihann/qrbench/decoder"
)

// GoQR decodes with goqr, a Go port of the quirc recognizer.
type GoQR struct{}

// NewGoQR returns a GoQR backend.
func NewGoQR() *GoQR { return &GoQR{} }

// Name implements decoder.Decoder.
func (g *GoQR) Name() string { return NameGoQR }

// Decode implements decoder.Decoder. When several codes are found the first
// one with a non-empty payload wins.
func (g *GoQR) Decode(data []byte) (decoder.Result, error) {
	img, err := decodeImage(NameGoQR, data)
	if err != nil {
		return decoder.Result{}, err
	}

	codes, err := goqr.Recognize(img)
	if err != nil {
		return decoder.Result{}, fmt.Errorf("%s: %v: %w",
			NameGoQR, err, decoder.ErrNotFound)
	}

	if len(codes) == 0 {
		return decoder.Result{}, fmt.Errorf("%s: %w",
			NameGoQR, decoder.ErrNotFound)
	}

	for _, code := range codes {
		if len(code.Payload) > 0 {
			return decoder.Result{Text: string(code.Payload)}, nil
		}
	}

	return decoder.Result{}, fmt.Errorf("%s: empty payload: %w",
		NameGoQR, decoder.ErrMalformed)
}
