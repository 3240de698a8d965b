package stats

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/weiihann/qrbench/corpus"
	"github.com/weiihann/qrbench/decoder"
	"github.com/weiihann/qrbench/harness"
)

func attempt(dec, category, image string, ms int, success bool) harness.Attempt {
	a := harness.Attempt{
		Decoder:  dec,
		Category: category,
		Image:    image,
		Duration: time.Duration(ms) * time.Millisecond,
		Success:  success,
		Status:   harness.StatusFailed,
	}
	if success {
		a.Status = harness.StatusCorrect
	}

	return a
}

func TestAggregateStatistics(t *testing.T) {
	attempts := []harness.Attempt{
		attempt("zxing", "clean", "a", 10, true),
		attempt("zxing", "clean", "a", 20, true),
		attempt("zxing", "clean", "b", 30, true),
		attempt("zxing", "clean", "b", 40, true),
		attempt("zxing", "clean", "b", 1000, false),
	}

	got := Aggregate(attempts)
	if len(got) != 1 {
		t.Fatalf("summaries = %d, want 1", len(got))
	}

	s := got[0]
	if s.Attempts != 5 || s.Successes != 4 || s.Failures != 1 || s.Correct != 4 {
		t.Errorf("counts = %+v", s)
	}
	if s.Images != 2 {
		t.Errorf("images = %d, want 2", s.Images)
	}
	if s.SuccessRate != 0.8 {
		t.Errorf("success rate = %v, want 0.8", s.SuccessRate)
	}
	if s.Latency == nil {
		t.Fatal("expected latency")
	}

	l := s.Latency
	if l.Mean != 25*time.Millisecond {
		t.Errorf("mean = %s, want 25ms", l.Mean)
	}
	if l.Median != 25*time.Millisecond {
		t.Errorf("median = %s, want 25ms", l.Median)
	}
	if l.Min != 10*time.Millisecond || l.Max != 40*time.Millisecond {
		t.Errorf("min/max = %s/%s, want 10ms/40ms", l.Min, l.Max)
	}

	// Sample standard deviation of 10,20,30,40 is sqrt(500/3) ≈ 12.9099ms.
	if l.StdDev < 12909*time.Microsecond || l.StdDev > 12911*time.Microsecond {
		t.Errorf("stddev = %s, want ~12.91ms", l.StdDev)
	}
}

func TestAggregateOddMedian(t *testing.T) {
	got := Aggregate([]harness.Attempt{
		attempt("a", "c", "x", 5, true),
		attempt("a", "c", "x", 1, true),
		attempt("a", "c", "x", 9, true),
	})

	if got[0].Latency.Median != 5*time.Millisecond {
		t.Errorf("median = %s, want 5ms", got[0].Latency.Median)
	}
}

func TestAggregateSingleSample(t *testing.T) {
	got := Aggregate([]harness.Attempt{attempt("a", "c", "x", 7, true)})

	l := got[0].Latency
	if l.StdDev != 0 {
		t.Errorf("stddev = %s, want 0", l.StdDev)
	}
	if l.Mean != 7*time.Millisecond || l.Median != 7*time.Millisecond {
		t.Errorf("mean/median = %s/%s, want 7ms", l.Mean, l.Median)
	}
}

func TestAggregateNoSuccesses(t *testing.T) {
	got := Aggregate([]harness.Attempt{
		attempt("broken", "clean", "a", 3, false),
		attempt("broken", "clean", "a", 4, false),
	})

	s := got[0]
	if s.SuccessRate != 0 {
		t.Errorf("success rate = %v, want 0", s.SuccessRate)
	}
	if s.Latency != nil {
		t.Errorf("latency = %+v, want nil", s.Latency)
	}
	if s.Attempts != 2 || s.Failures != 2 {
		t.Errorf("counts = %+v, want 2 attempts, 2 failures", s)
	}
}

func TestAggregateGroupsAndOrder(t *testing.T) {
	got := Aggregate([]harness.Attempt{
		attempt("b", "rotated", "r", 1, true),
		attempt("a", "rotated", "r", 1, true),
		attempt("b", "clean", "c", 1, true),
		attempt("a", "clean", "c", 1, false),
	})

	var keys []string
	for _, s := range got {
		keys = append(keys, s.Decoder+"/"+s.Category)
	}

	want := "[a/clean a/rotated b/clean b/rotated]"
	if fmt.Sprint(keys) != want {
		t.Errorf("keys = %v, want %s", keys, want)
	}
}

func TestAggregateCorrectRate(t *testing.T) {
	incorrect := attempt("a", "c", "x", 1, true)
	incorrect.Status = harness.StatusIncorrect

	got := Aggregate([]harness.Attempt{
		attempt("a", "c", "x", 1, true),
		incorrect,
		attempt("a", "c", "x", 1, false),
		attempt("a", "c", "x", 1, true),
	})

	s := got[0]
	if s.SuccessRate != 0.75 {
		t.Errorf("success rate = %v, want 0.75", s.SuccessRate)
	}
	if s.CorrectRate != 0.5 {
		t.Errorf("correct rate = %v, want 0.5", s.CorrectRate)
	}
}

func TestByDecoder(t *testing.T) {
	got := ByDecoder([]harness.Attempt{
		attempt("a", "clean", "c1", 10, true),
		attempt("a", "rotated", "r1", 30, true),
		attempt("a", "rotated", "r1", 0, false),
		attempt("b", "clean", "c1", 5, true),
	})

	if len(got) != 2 {
		t.Fatalf("summaries = %d, want 2", len(got))
	}

	a := got[0]
	if a.Decoder != "a" || a.Category != AllCategories {
		t.Errorf("key = %s/%s, want a/%s", a.Decoder, a.Category, AllCategories)
	}
	if a.Images != 2 || a.Attempts != 3 || a.Successes != 2 {
		t.Errorf("counts = %+v", a)
	}
	if a.Latency.Median != 20*time.Millisecond {
		t.Errorf("median = %s, want 20ms", a.Latency.Median)
	}
}

// Mean must lie within [min, max] for every group with a success.
func TestAggregateMeanWithinBounds(t *testing.T) {
	var attempts []harness.Attempt
	for i := 0; i < 50; i++ {
		attempts = append(attempts,
			attempt(fmt.Sprintf("d%d", i%3), fmt.Sprintf("c%d", i%4), "x",
				(i*37)%101, i%5 != 0))
	}

	for _, s := range Aggregate(attempts) {
		if s.Latency == nil {
			continue
		}

		if s.Latency.Mean < s.Latency.Min || s.Latency.Mean > s.Latency.Max {
			t.Errorf("%s/%s mean %s outside [%s, %s]", s.Decoder, s.Category,
				s.Latency.Mean, s.Latency.Min, s.Latency.Max)
		}
	}
}

// Two decoders that always succeed on a two-image category, three
// iterations each: twelve attempts, full success for both.
func TestEndToEndScenario(t *testing.T) {
	reg := decoder.NewRegistry()
	for _, name := range []string{"first", "second"} {
		err := reg.Register(decoder.Func(name, func(data []byte) (decoder.Result, error) {
			return decoder.Result{Text: string(data)}, nil
		}))
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	c, err := corpus.New([]corpus.Image{
		{ID: "clean/1.png", Category: "clean", Data: []byte("one")},
		{ID: "clean/2.png", Category: "clean", Data: []byte("two")},
	})
	if err != nil {
		t.Fatalf("corpus.New failed: %v", err)
	}

	var col harness.Collector

	_, err = harness.NewRunner(reg, nil).Run(context.Background(), c,
		harness.RunConfig{Iterations: 3}, &col)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(col.Attempts) != 12 {
		t.Fatalf("attempts = %d, want 12", len(col.Attempts))
	}

	summaries := Aggregate(col.Attempts)
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}

	for _, s := range summaries {
		if s.Category != "clean" || s.SuccessRate != 1.0 || s.Attempts != 6 {
			t.Errorf("summary = %+v, want clean with rate 1.0 over 6", s)
		}
	}
}
