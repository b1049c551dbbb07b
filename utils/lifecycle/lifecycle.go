// Package lifecycle runs the Step loop of a worker in its own goroutine and serializes its start
// and shutdown.
package lifecycle

import "errors"

var (
	// ErrBreak ends the Step loop without being logged.
	ErrBreak = errors.New("lifecycle: break")
	// ErrStartedAlready is returned by every Start after the first one.
	ErrStartedAlready = errors.New("lifecycle: started already")
	// ErrStartedAfterClose is returned by Start once Close was called.
	ErrStartedAfterClose = errors.New("lifecycle: start after close")
)

// Instance is a worker driven by a Manager. Close_ runs once, after the loop has stopped.
type Instance interface {
	Close_() //nolint:revive
	String() string
}

// AsyncInstance is a worker whose Step is called in a loop until it returns ErrBreak or, under
// StopOnError, any error. Step must return once stopCh is closed.
type AsyncInstance interface {
	Instance
	Step(stopCh <-chan struct{}) error
}

// AsyncManager owns the goroutine of an AsyncInstance.
type AsyncManager[T AsyncInstance] interface {
	Start(startFunc func(T) error) error
	Close()
	// Done is closed when the loop has exited.
	Done() <-chan struct{}
}

// ErrorPolicy decides what a failed Step does to the loop.
type ErrorPolicy int

const (
	// StopOnError ends the loop on the first error or panic.
	StopOnError ErrorPolicy = iota
	// ContinueOnError logs errors and panics and keeps stepping.
	ContinueOnError
)
