package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/weiihann/qrbench/decoder"
	"github.com/weiihann/qrbench/harness"
)

func sampleAttempts() []harness.Attempt {
	return []harness.Attempt{
		{
			Decoder:      "gozxing",
			Category:     "clean",
			Image:        "clean/a.png",
			Iteration:    1,
			Duration:     1234567 * time.Nanosecond,
			Success:      true,
			Status:       harness.StatusCorrect,
			ExpectedText: "hello, world",
			DecodedText:  "hello, world",
			EditDistance: 0,
		},
		{
			Decoder:      "goqr",
			Category:     "clean",
			Image:        "clean/a.png",
			Iteration:    2,
			Duration:     2 * time.Millisecond,
			Success:      false,
			Status:       harness.StatusFailed,
			Failure:      decoder.FailureNotFound,
			Error:        "goqr: no code found",
			ExpectedText: "line one\nline \"two\"",
			EditDistance: harness.NoEditDistance,
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}

	for _, a := range sampleAttempts() {
		if err := w.Record(a); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if w.Rows() != 2 {
		t.Errorf("rows = %d, want 2", w.Rows())
	}

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	if header != strings.Join(RawColumns, ",") {
		t.Errorf("header = %q", header)
	}

	if !strings.Contains(buf.String(), ",1.234567,true,correct,") {
		t.Errorf("expected fractional millisecond duration, got:\n%s", buf.String())
	}

	got, err := ReadRaw(&buf)
	if err != nil {
		t.Fatalf("ReadRaw failed: %v", err)
	}

	want := sampleAttempts()
	if len(got) != len(want) {
		t.Fatalf("attempts = %d, want %d", len(got), len(want))
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attempt %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCreateCSVOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	if err := os.WriteFile(path, []byte("stale content\nmore stale\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := CreateCSV(path)
	if err != nil {
		t.Fatalf("CreateCSV failed: %v", err)
	}

	if err := w.Record(sampleAttempts()[0]); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("expected existing file to be replaced")
	}

	attempts, err := ReadRawFile(path)
	if err != nil {
		t.Fatalf("ReadRawFile failed: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("attempts = %d, want 1", len(attempts))
	}
}

func TestCreateCSVBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "raw.csv")

	if _, err := CreateCSV(path); err == nil {
		t.Error("expected error for unwritable path")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCSVWriterSurfacesIOErrors(t *testing.T) {
	w, err := NewCSVWriter(failingWriter{})
	if err != nil {
		t.Fatalf("NewCSVWriter failed: %v", err)
	}

	var recordErr error
	for i := 0; i < flushEvery && recordErr == nil; i++ {
		recordErr = w.Record(sampleAttempts()[0])
	}

	if recordErr == nil {
		t.Error("expected write error by the first flush")
	}
	if err := w.Close(); err == nil {
		t.Error("expected close error")
	}
}

func TestReadRawBadHeader(t *testing.T) {
	_, err := ReadRaw(strings.NewReader("library,category\nx,y\n"))
	if !errors.Is(err, ErrBadHeader) {
		t.Errorf("err = %v, want ErrBadHeader", err)
	}
}

func TestReadRawRenamedColumn(t *testing.T) {
	header := append([]string(nil), RawColumns...)
	header[0] = "library"

	_, err := ReadRaw(strings.NewReader(strings.Join(header, ",") + "\n"))
	if !errors.Is(err, ErrBadHeader) {
		t.Errorf("err = %v, want ErrBadHeader", err)
	}
}

func TestReadRawShortRow(t *testing.T) {
	input := strings.Join(RawColumns, ",") + "\n" + "gozxing,clean\n"

	_, err := ReadRaw(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected error for short row")
	}
	if errors.Is(err, ErrBadHeader) {
		t.Errorf("err = %v, want a row error", err)
	}
}

func TestReadRawBadRow(t *testing.T) {
	input := strings.Join(RawColumns, ",") + "\n" +
		"a,b,c,notanumber,1.0,true,correct,,,,,\n"

	if _, err := ReadRaw(strings.NewReader(input)); err == nil {
		t.Error("expected error for bad iteration")
	}
}
