package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRunsAllTasks(t *testing.T) {
	d := New(3, nil)

	var done int64
	for i := 0; i < 50; i++ {
		d.Enqueue(func() error {
			atomic.AddInt64(&done, 1)
			return nil
		})
	}

	d.Close()
	assert.EqualValues(t, 50, atomic.LoadInt64(&done))
	assert.Zero(t, d.Pending())
}

func TestDispatcherSurvivesFailuresAndPanics(t *testing.T) {
	d := New(1, nil)

	var done int64
	d.Enqueue(func() error { return errors.New("send failed") })
	d.Enqueue(func() error { panic("boom") })
	d.Enqueue(func() error {
		atomic.AddInt64(&done, 1)
		return nil
	})

	d.Close()
	assert.EqualValues(t, 1, atomic.LoadInt64(&done),
		"worker must keep serving after failed and panicking tasks")
}

func TestDispatcherFIFOWithSingleWorker(t *testing.T) {
	d := New(1, nil)

	var mu sync.Mutex
	var order []int

	// Hold the worker so all three land in the queue first.
	release := make(chan struct{})
	d.Enqueue(func() error {
		<-release
		return nil
	})
	for i := 1; i <= 3; i++ {
		i := i
		d.Enqueue(func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}
	close(release)

	d.Close()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestEnqueueDoesNotBlock(t *testing.T) {
	d := New(1, nil)

	block := make(chan struct{})
	d.Enqueue(func() error {
		<-block
		return nil
	})

	start := time.Now()
	for i := 0; i < 1000; i++ {
		d.Enqueue(func() error { return nil })
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, d.Pending(), 1)

	close(block)
	d.Close()
}

func TestEnqueueAfterClose(t *testing.T) {
	d := New(1, nil)
	d.Close()

	var ran int64
	d.Enqueue(func() error {
		atomic.AddInt64(&ran, 1)
		return nil
	})

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&ran), "tasks after Close are dropped")
}

func TestCloseIsIdempotent(t *testing.T) {
	d := New(2, nil)
	d.Close()
	d.Close()
}
