package decoders

import (
	"bytes"
	"fmt"

	"github.com/tuotoo/qrcode"
	"github.com/weiihann/qrbench/decoder"
)

// Tuotoo decodes with github.com/tuotoo/qrcode. The library reads the
// encoded image itself, so it is handed the raw bytes.
type Tuotoo struct{}

// NewTuotoo returns a Tuotoo backend.
func NewTuotoo() *Tuotoo { return &Tuotoo{} }

// Name implements decoder.Decoder.
func (t *Tuotoo) Name() string { return NameTuotoo }

// Decode implements decoder.Decoder.
func (t *Tuotoo) Decode(data []byte) (decoder.Result, error) {
	m, err := qrcode.Decode(bytes.NewReader(data))
	if err != nil {
		return decoder.Result{}, fmt.Errorf("%s: %v: %w",
			NameTuotoo, err, decoder.ErrNotFound)
	}

	if m == nil || m.Content == "" {
		return decoder.Result{}, fmt.Errorf("%s: empty payload: %w",
			NameTuotoo, decoder.ErrMalformed)
	}

	return decoder.Result{Text: m.Content}, nil
}
