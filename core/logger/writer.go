package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

const queueDepth = 1024

// asyncWriter fans log lines out to sinks from a single goroutine. Write
// never blocks request handling: when the queue is full the line is dropped
// and counted.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}
	closing  sync.Once

	// gate keeps Write from sending on a closed queue.
	gate   sync.RWMutex
	closed bool

	sinks   []*bufio.Writer
	dropped atomic.Uint64

	errMu    sync.Mutex
	writeErr error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:    make(chan []byte, queueDepth),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, w := range writers {
		if w != nil {
			aw.sinks = append(aw.sinks, bufio.NewWriterSize(w, bufSize))
		}
	}
	go aw.run()
	return aw
}

// run owns the sinks. Buffers are flushed whenever the queue runs dry, so a
// burst costs one flush instead of one per line.
func (w *asyncWriter) run() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.reportDropped()
				w.recordErr(w.flushSinks())
				return
			}
			w.recordErr(w.writeSinks(line))
			if len(w.queue) == 0 {
				w.recordErr(w.flushSinks())
			}
		case ack := <-w.flushReq:
			w.drainQueued()
			ack <- w.flushSinks()
		}
	}
}

// Write copies p and queues it.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	line := append([]byte(nil), p...)
	w.gate.RLock()
	defer w.gate.RUnlock()
	if w.closed {
		return errors.New("logger: writer closed")
	}
	select {
	case w.queue <- line:
	default:
		w.dropped.Add(1)
	}
	return nil
}

// Dropped reports how many lines were discarded because the queue was full.
func (w *asyncWriter) Dropped() uint64 {
	return w.dropped.Load()
}

// Flush blocks until every line queued so far has reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushReq <- ack:
		return errors.Join(<-ack, w.err())
	case <-w.done:
		return w.err()
	}
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.closing.Do(func() {
		w.gate.Lock()
		w.closed = true
		close(w.queue)
		w.gate.Unlock()
	})
	<-w.done
	return w.err()
}

func (w *asyncWriter) drainQueued() {
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				return
			}
			w.recordErr(w.writeSinks(line))
		default:
			return
		}
	}
}

func (w *asyncWriter) writeSinks(p []byte) error {
	var errs []error
	for _, sink := range w.sinks {
		if _, err := sink.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) flushSinks() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) reportDropped() {
	if n := w.dropped.Load(); n > 0 {
		w.recordErr(w.writeSinks([]byte(fmt.Sprintf("logger: dropped %d lines on full queue\n", n))))
	}
}

func (w *asyncWriter) err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) recordErr(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}
