package telemetry

import "errors"

// Sink receives flushed telemetry. Implementations must not retain the
// values passed to them after returning.
type Sink interface {
	WriteTelemetry(stats WindowStats) error
	WritePerf(stats PerfStats, windowEnd int) error
	WriteBookmark(b Bookmark) error
	Close() error
}

// MultiSink fans records out to several sinks. Nil entries are skipped.
type MultiSink []Sink

// WriteTelemetry writes to every sink and joins the errors.
func (m MultiSink) WriteTelemetry(stats WindowStats) error {
	var errs []error
	for _, s := range m {
		if s != nil {
			errs = append(errs, s.WriteTelemetry(stats))
		}
	}
	return errors.Join(errs...)
}

// WritePerf writes to every sink and joins the errors.
func (m MultiSink) WritePerf(stats PerfStats, windowEnd int) error {
	var errs []error
	for _, s := range m {
		if s != nil {
			errs = append(errs, s.WritePerf(stats, windowEnd))
		}
	}
	return errors.Join(errs...)
}

// WriteBookmark writes to every sink and joins the errors.
func (m MultiSink) WriteBookmark(b Bookmark) error {
	var errs []error
	for _, s := range m {
		if s != nil {
			errs = append(errs, s.WriteBookmark(b))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins the errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if s != nil {
			errs = append(errs, s.Close())
		}
	}
	return errors.Join(errs...)
}
