package harness

// Sink receives attempts as they are produced. An error from Record aborts
// the run.
type Sink interface {
	Record(a Attempt) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(a Attempt) error

// Record implements Sink.
func (f SinkFunc) Record(a Attempt) error { return f(a) }

// Collector keeps every attempt in memory, in arrival order.
type Collector struct {
	Attempts []Attempt
}

// Record implements Sink.
func (c *Collector) Record(a Attempt) error {
	c.Attempts = append(c.Attempts, a)

	return nil
}

// Tee fans each attempt out to every sink in order, stopping at the first
// error.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(a Attempt) error {
		for _, s := range sinks {
			if err := s.Record(a); err != nil {
				return err
			}
		}

		return nil
	})
}
