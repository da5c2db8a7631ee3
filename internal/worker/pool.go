// Package worker runs fire-and-forget tasks whose failures must still be
// observed. A request can detach work (like refreshing a user profile)
// and answer immediately, while the pool guarantees that no task failure
// or panic disappears silently.
package worker

import (
	"fmt"
	"sync"

	"gift-roulette-backend/internal/common/logger"
)

type taskError struct {
	label string
	err   error
}

// Pool supervises detached tasks and funnels their failures to a single
// observer goroutine.
type Pool struct {
	wg           sync.WaitGroup
	errs         chan taskError
	observerDone chan struct{}
}

func NewPool() *Pool {
	p := &Pool{
		errs:         make(chan taskError, 16),
		observerDone: make(chan struct{}),
	}
	go p.observe()
	return p
}

func (p *Pool) observe() {
	defer close(p.observerDone)
	for te := range p.errs {
		logger.Error().
			Err(te.err).
			Str("label", te.label).
			Msg("background task failed")
	}
}

// Go runs fn on a detached goroutine. The caller is not blocked and
// never sees the result; a returned error or a panic is delivered to the
// observer and logged.
func (p *Pool) Go(label string, fn func() error) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.errs <- taskError{label: label, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		if err := fn(); err != nil {
			p.errs <- taskError{label: label, err: err}
		}
	}()
}

// Close waits for in-flight tasks and stops the observer. No Go calls
// may follow.
func (p *Pool) Close() {
	p.wg.Wait()
	close(p.errs)
	<-p.observerDone
}
