package harness

import (
	"math"

	"github.com/arbovm/levenshtein"
	"github.com/weiihann/qrbench/corpus"
	"github.com/weiihann/qrbench/decoder"
)

// DefaultCornerTolerance is the mean corner distance, in pixels, under
// which a reported outline counts as a correct detection.
const DefaultCornerTolerance = 50.0

// verify grades a successful decode against the image's ground truth.
// Payload ground truth takes precedence over outlines.
func verify(img corpus.Image, res decoder.Result, tolerance float64) (Status, int) {
	if img.ExpectedText != "" {
		expected := corpus.NormalizeText(img.ExpectedText)
		decoded := corpus.NormalizeText(res.Text)

		if expected == decoded {
			return StatusCorrect, 0
		}

		return StatusIncorrect, levenshtein.Distance(expected, decoded)
	}

	if len(img.ExpectedQuads) > 0 {
		if len(res.Corners) == 0 {
			return StatusNoPoints, NoEditDistance
		}

		if matchesAnyQuad(img.ExpectedQuads, res.Corners, tolerance) {
			return StatusCorrect, NoEditDistance
		}

		return StatusIncorrect, NoEditDistance
	}

	return StatusDecoded, NoEditDistance
}

// matchesAnyQuad reports whether actual lies within tolerance of any
// expected quad. The starting corner is unknown for rotated codes, so every
// cyclic rotation of actual is tried.
func matchesAnyQuad(expected [][]decoder.Point, actual []decoder.Point, tolerance float64) bool {
	if len(actual) != 4 {
		return false
	}

	for _, quad := range expected {
		if len(quad) != 4 {
			continue
		}

		best := math.MaxFloat64

		for offset := 0; offset < 4; offset++ {
			total := 0.0
			for i := 0; i < 4; i++ {
				p, q := quad[i], actual[(i+offset)%4]
				total += math.Hypot(p.X-q.X, p.Y-q.Y)
			}

			best = math.Min(best, total/4)
		}

		if best < tolerance {
			return true
		}
	}

	return false
}
