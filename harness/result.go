// Package harness runs decoder backends against a corpus and records one
// timed Attempt per decode call.
package harness

import (
	"time"

	"github.com/weiihann/qrbench/decoder"
)

// Status is the outcome of one attempt as judged against ground truth.
type Status string

const (
	// StatusCorrect means the payload or outline matched ground truth.
	StatusCorrect Status = "correct"
	// StatusIncorrect means the decoder returned something that did not
	// match ground truth.
	StatusIncorrect Status = "incorrect"
	// StatusNoPoints means an outline was expected but the decoder did not
	// report one.
	StatusNoPoints Status = "no_points"
	// StatusDecoded means the decode succeeded on an image without ground
	// truth.
	StatusDecoded Status = "decoded"
	// StatusFailed means the decoder returned an error.
	StatusFailed Status = "failed"
)

// NoEditDistance marks attempts where no payload comparison was made.
const NoEditDistance = -1

// Attempt is one (decoder, image, iteration) execution. It is never
// modified after the runner hands it to a Sink.
type Attempt struct {
	Decoder   string
	Category  string
	Image     string
	Iteration int

	Duration time.Duration
	Success  bool
	Status   Status
	Failure  decoder.FailureKind
	Error    string

	ExpectedText string
	DecodedText  string
	// EditDistance is the Levenshtein distance between ExpectedText and
	// DecodedText, or NoEditDistance.
	EditDistance int
}

// Correct reports whether the attempt matched ground truth.
func (a Attempt) Correct() bool {
	return a.Status == StatusCorrect
}

// RunSummary describes a finished run.
type RunSummary struct {
	ID        string
	Started   time.Time
	Wall      time.Duration
	Decoders  []string
	Images    int
	Attempts  int
	Successes int
	Failures  int
}
