package decoders

import (
	"errors"
	"fmt"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/weiihann/qrbench/decoder"
)

// ZXing decodes with gozxing, a Go port of the ZXing QR reader.
type ZXing struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewZXing returns a ZXing backend configured to try harder on difficult
// images.
func NewZXing() *ZXing {
	return &ZXing{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Name implements decoder.Decoder.
func (z *ZXing) Name() string { return NameZXing }

// Decode implements decoder.Decoder. A fresh reader is built per call since
// gozxing readers keep scratch state between Decode calls.
func (z *ZXing) Decode(data []byte) (decoder.Result, error) {
	img, err := decodeImage(NameZXing, data)
	if err != nil {
		return decoder.Result{}, err
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return decoder.Result{}, fmt.Errorf("%s: binarize: %v: %w",
			NameZXing, err, decoder.ErrInternal)
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, z.hints)
	if err != nil {
		return decoder.Result{}, zxingError(err)
	}

	// gozxing reports finder pattern centres rather than the code's outer
	// corners, so no quad is returned.
	return decoder.Result{Text: res.GetText()}, nil
}

func zxingError(err error) error {
	var (
		notFound gozxing.NotFoundException
		format   gozxing.FormatException
		checksum gozxing.ChecksumException
	)

	switch {
	case errors.As(err, &notFound):
		return fmt.Errorf("%s: %v: %w", NameZXing, err, decoder.ErrNotFound)
	case errors.As(err, &format), errors.As(err, &checksum):
		return fmt.Errorf("%s: %v: %w", NameZXing, err, decoder.ErrMalformed)
	default:
		return fmt.Errorf("%s: %v: %w", NameZXing, err, decoder.ErrInternal)
	}
}
