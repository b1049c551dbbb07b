package lifecycle

import (
	"errors"
	"runtime/debug"
	"sync"

	"github.com/ugparu/mp4mux/utils/logger"
)

type asyncManager[T AsyncInstance] struct {
	instance T
	policy   ErrorPolicy

	stopCh, doneCh       chan struct{}
	startOnce, closeOnce sync.Once
}

// NewAsyncManager returns a manager for instance. Nothing runs before Start.
func NewAsyncManager[T AsyncInstance](instance T, policy ErrorPolicy) AsyncManager[T] {
	return &asyncManager[T]{
		instance: instance,
		policy:   policy,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs startFunc and then the Step loop. Under StopOnError a failed startFunc is
// returned and the loop never runs.
func (m *asyncManager[T]) Start(startFunc func(T) error) error {
	select {
	case <-m.stopCh:
		return ErrStartedAfterClose
	default:
	}

	err := ErrStartedAlready
	m.startOnce.Do(func() {
		logger.Debugf(m.instance, "starting with policy %d", m.policy)
		if err = startFunc(m.instance); err != nil {
			if m.policy == StopOnError {
				close(m.doneCh)
				return
			}
			logger.Warningf(m.instance, "start failed: %v", err)
			err = nil
		}
		go m.run()
	})
	return err
}

func (m *asyncManager[T]) run() {
	defer close(m.doneCh)
	logger.Debug(m.instance, "entering main loop")
	for m.step() {
	}
}

// step runs one Step and reports whether the loop goes on.
func (m *asyncManager[T]) step() (next bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf(m.instance, "panic recovered: %v", r)
			logger.Errorf(m.instance, "%s", debug.Stack())
			next = m.policy == ContinueOnError
		}
	}()

	err := m.instance.Step(m.stopCh)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrBreak):
		return false
	}
	logger.Warningf(m.instance, "step failed: %v", err)
	return m.policy == ContinueOnError
}

// Close stops the loop, waits for it and then closes the instance.
func (m *asyncManager[T]) Close() {
	m.closeOnce.Do(func() {
		close(m.stopCh)
		m.startOnce.Do(func() {
			close(m.doneCh)
		})
		<-m.doneCh
		m.instance.Close_()
	})
}

func (m *asyncManager[T]) Done() <-chan struct{} {
	return m.doneCh
}
