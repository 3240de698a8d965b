package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/weiihann/qrbench/decoder"
	"github.com/weiihann/qrbench/harness"
)

// DefaultRawPath is where raw measurements go when no path is given.
const DefaultRawPath = "raw_measurements.csv"

// RawColumns is the raw measurement header. The order is part of the file
// format and must not change.
var RawColumns = []string{
	"decoder",
	"category",
	"image",
	"iteration",
	"duration_ms",
	"success",
	"status",
	"failure",
	"error",
	"expected_text",
	"decoded_text",
	"edit_distance",
}

// ErrBadHeader is returned when a raw file does not start with RawColumns.
var ErrBadHeader = errors.New("unexpected raw measurement header")

const flushEvery = 256

// CSVWriter streams attempts to a raw measurement file, one row per
// attempt. It implements harness.Sink.
type CSVWriter struct {
	w      *csv.Writer
	closer io.Closer
	path   string
	rows   int
}

// CreateCSV creates or truncates the file at path and writes the header.
// Existing content is always replaced, never appended to.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	cw, err := NewCSVWriter(f)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("write %s: %w", path, err)
	}

	cw.closer = f
	cw.path = path

	return cw, nil
}

// NewCSVWriter writes the header to w and returns a writer for the rows.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}

	if err := cw.w.Write(RawColumns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	return cw, nil
}

// Record implements harness.Sink.
func (c *CSVWriter) Record(a harness.Attempt) error {
	if err := c.w.Write(rawRow(a)); err != nil {
		return c.wrap(err)
	}

	c.rows++

	if c.rows%flushEvery == 0 {
		c.w.Flush()
		if err := c.w.Error(); err != nil {
			return c.wrap(err)
		}
	}

	return nil
}

// Rows returns the number of attempts written so far.
func (c *CSVWriter) Rows() int {
	return c.rows
}

// Close flushes buffered rows and closes the underlying file, if any.
func (c *CSVWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()

	if c.closer != nil {
		if cerr := c.closer.Close(); err == nil {
			err = cerr
		}
	}

	if err != nil {
		return c.wrap(err)
	}

	return nil
}

func (c *CSVWriter) wrap(err error) error {
	if c.path == "" {
		return fmt.Errorf("write raw measurements: %w", err)
	}

	return fmt.Errorf("write raw measurements %s: %w", c.path, err)
}

func rawRow(a harness.Attempt) []string {
	editDistance := ""
	if a.EditDistance != harness.NoEditDistance {
		editDistance = strconv.Itoa(a.EditDistance)
	}

	return []string{
		a.Decoder,
		a.Category,
		a.Image,
		strconv.Itoa(a.Iteration),
		formatMillis(a.Duration),
		strconv.FormatBool(a.Success),
		string(a.Status),
		string(a.Failure),
		a.Error,
		a.ExpectedText,
		a.DecodedText,
		editDistance,
	}
}

// formatMillis renders d as fractional milliseconds with nanosecond
// resolution.
func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 6, 64)
}

// ReadRaw parses a raw measurement file back into attempts.
func ReadRaw(r io.Reader) ([]harness.Attempt, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if !slices.Equal(header, RawColumns) {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
	}

	cr.FieldsPerRecord = len(RawColumns)

	var attempts []harness.Attempt

	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		a, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse line %d: %w", line, err)
		}

		attempts = append(attempts, a)
	}

	return attempts, nil
}

// ReadRawFile is ReadRaw over the file at path.
func ReadRawFile(path string) ([]harness.Attempt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	attempts, err := ReadRaw(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return attempts, nil
}

func parseRow(row []string) (harness.Attempt, error) {
	iteration, err := strconv.Atoi(row[3])
	if err != nil {
		return harness.Attempt{}, fmt.Errorf("iteration: %w", err)
	}

	ms, err := strconv.ParseFloat(row[4], 64)
	if err != nil {
		return harness.Attempt{}, fmt.Errorf("duration_ms: %w", err)
	}

	success, err := strconv.ParseBool(row[5])
	if err != nil {
		return harness.Attempt{}, fmt.Errorf("success: %w", err)
	}

	editDistance := harness.NoEditDistance
	if row[11] != "" {
		editDistance, err = strconv.Atoi(row[11])
		if err != nil {
			return harness.Attempt{}, fmt.Errorf("edit_distance: %w", err)
		}
	}

	return harness.Attempt{
		Decoder:      row[0],
		Category:     row[1],
		Image:        row[2],
		Iteration:    iteration,
		Duration:     time.Duration(math.Round(ms * float64(time.Millisecond))),
		Success:      success,
		Status:       harness.Status(row[6]),
		Failure:      decoder.FailureKind(row[7]),
		Error:        row[8],
		ExpectedText: row[9],
		DecodedText:  row[10],
		EditDistance: editDistance,
	}, nil
}
