// Package metrics defines the minimal metrics surface the combiner emits
// through. The core depends only on the Backend interface; concrete backends
// (Datadog, or the default nop) are selected at startup by the CLI.
package metrics

import "sync/atomic"

// Labels carries metric dimensions, e.g. {"status": "ok"}.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush submits any buffered observations. Called at least once at
	// process shutdown.
	Flush() error
}

// nopBackend drops everything. It is the default so that core code can emit
// metrics unconditionally.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend atomic.Value // of Backend

func init() {
	backend.Store(Backend(nopBackend{}))
}

// SetBackend installs b as the process-wide backend. Intended to be called
// once during startup, before any pipeline work begins.
func SetBackend(b Backend) {
	if b == nil {
		b = nopBackend{}
	}
	backend.Store(b)
}

func current() Backend { return backend.Load().(Backend) }

// IncCounter adds delta to a counter on the installed backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the installed backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush flushes the installed backend.
func Flush() error { return current().Flush() }
