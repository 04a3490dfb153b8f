// Package metrics defines the instrumentation hooks of the interceptor with
// a no-op default and a Prometheus implementation.
package metrics

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes.
type Timer interface {
	ObserveDuration()
}

// Metrics receives cache decisions as they happen.
type Metrics interface {
	// Hit counts a lookup that found an entry, including stored absences.
	Hit(site, cache string)
	// Miss counts a lookup that found nothing.
	Miss(site, cache string)
	Put(cache string)
	Evict(cache string)
	Clear(cache string)
	// InvocationDuration times a call to the guarded target.
	InvocationDuration(site string) Timer
	InvocationError(site string)
}

type nopTimer struct{}

func (nopTimer) ObserveDuration() {}

type nop struct{}

// Nop returns a Metrics that discards everything.
func Nop() Metrics {
	return nop{}
}

func (nop) Hit(string, string)              {}
func (nop) Miss(string, string)             {}
func (nop) Put(string)                      {}
func (nop) Evict(string)                    {}
func (nop) Clear(string)                    {}
func (nop) InvocationDuration(string) Timer { return nopTimer{} }
func (nop) InvocationError(string)          {}
