package worker

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsDetachedTasks(t *testing.T) {
	p := NewPool()

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		p.Go("task", func() error {
			ran.Add(1)
			return nil
		})
	}
	p.Close()

	assert.Equal(t, int32(5), ran.Load())
}

func TestPoolSurvivesFailuresAndPanics(t *testing.T) {
	p := NewPool()

	p.Go("failing", func() error { return errors.New("boom") })
	p.Go("panicking", func() error { panic("boom") })

	var ran atomic.Bool
	p.Go("healthy", func() error {
		ran.Store(true)
		return nil
	})

	// Close must not deadlock on buffered failures and must drain them.
	p.Close()
	assert.True(t, ran.Load())
}
