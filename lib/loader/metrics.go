package loader

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"sync"
)

// Metrics collects the counters of one pipeline. The Prometheus set covers
// the lifetime of the pipeline, the throughput meter covers the current job.
type Metrics struct {
	set *metrics.Set

	written       *metrics.Counter
	writeErrors   *metrics.Counter
	writeRetries  *metrics.Counter
	writeDuration *metrics.Histogram

	mu    sync.Mutex
	meter gometrics.Meter
}

func newMetrics(collection string, progress func() float64) *Metrics {
	set := metrics.NewSet()
	name := func(metric string) string {
		return fmt.Sprintf("%s{collection=%q}", metric, collection)
	}

	m := &Metrics{
		set:           set,
		written:       set.NewCounter(name("dload_documents_written_total")),
		writeErrors:   set.NewCounter(name("dload_write_errors_total")),
		writeRetries:  set.NewCounter(name("dload_write_retries_total")),
		writeDuration: set.NewHistogram(name("dload_write_duration_seconds")),
		meter:         gometrics.NilMeter{},
	}
	set.NewGauge(name("dload_progress_percent"), progress)
	return m
}

// startJob resets the throughput meter
func (m *Metrics) startJob() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meter.Stop()
	m.meter = gometrics.NewMeter()
}

// finishJob freezes the throughput meter at its final value
func (m *Metrics) finishJob() {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.meter.Snapshot()
	m.meter.Stop()
	m.meter = snapshot
}

func (m *Metrics) markWritten() {
	m.written.Inc()
	m.mu.Lock()
	m.meter.Mark(1)
	m.mu.Unlock()
}

// Rate returns the mean number of documents written per second in the current job
func (m *Metrics) Rate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meter.RateMean()
}

// Written returns the number of documents written over all jobs
func (m *Metrics) Written() uint64 {
	return m.written.Get()
}

// WriteErrors returns the number of failed write attempts over all jobs
func (m *Metrics) WriteErrors() uint64 {
	return m.writeErrors.Get()
}

// WriteRetries returns the number of retried writes over all jobs
func (m *Metrics) WriteRetries() uint64 {
	return m.writeRetries.Get()
}

// WritePrometheus writes all metrics in Prometheus text format to w
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}
