package logger

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

var errWriterClosed = errors.New("logger: writer closed")

// job is either a line to write or, when ack is set, a flush barrier.
type job struct {
	line []byte
	ack  chan error
}

// lineWriter hands lines to a single goroutine that writes them to every sink
// in order. Callers block when the queue is full; lines are never dropped.
type lineWriter struct {
	jobs   chan job
	done   chan struct{}
	closed atomic.Bool
	stop   sync.Once
	sinks  []io.Writer

	mu     sync.Mutex
	failed error
}

func newLineWriter(sinks ...io.Writer) *lineWriter {
	w := &lineWriter{
		jobs: make(chan job, 256),
		done: make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	go w.run()
	return w
}

func (w *lineWriter) run() {
	defer close(w.done)
	for j := range w.jobs {
		if j.ack != nil {
			j.ack <- w.err()
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(j.line); err != nil {
				w.fail(err)
				break
			}
		}
	}
}

// Write queues a copy of p.
func (w *lineWriter) Write(p []byte) error {
	if w.closed.Load() {
		return errWriterClosed
	}
	if err := w.err(); err != nil {
		return err
	}
	if len(p) > 0 {
		w.jobs <- job{line: append([]byte(nil), p...)}
	}
	return nil
}

// Flush returns once every line queued before the call has been written.
func (w *lineWriter) Flush() error {
	if w.closed.Load() {
		return w.err()
	}
	ack := make(chan error, 1)
	w.jobs <- job{ack: ack}
	return <-ack
}

// Close drains the queue and returns the first write error.
func (w *lineWriter) Close() error {
	w.stop.Do(func() {
		w.closed.Store(true)
		close(w.jobs)
	})
	<-w.done
	return w.err()
}

func (w *lineWriter) err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failed
}

func (w *lineWriter) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed == nil {
		w.failed = err
	}
}
