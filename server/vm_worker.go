package server

import (
	"fmt"

	"github.com/babellang/babel/store"
)

// storeRequest represents a unit of work to be executed against the
// shared history store.
type storeRequest struct {
	fn   func(*store.History) interface{}
	done chan storeResult
}

// storeResult holds the return value from a store operation.
type storeResult struct {
	value interface{}
	err   error
}

// StoreWorker serializes all history-store access through a single
// goroutine. sqlite's write lock makes concurrent writers from many
// LSP request handlers contend and error; routing every write through
// one goroutine turns that contention into simple queuing.
type StoreWorker struct {
	history  *store.History
	requests chan storeRequest
	quit     chan struct{}
}

// NewStoreWorker creates a StoreWorker and starts the processing goroutine.
func NewStoreWorker(h *store.History) *StoreWorker {
	w := &StoreWorker{
		history:  h,
		requests: make(chan storeRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *StoreWorker) loop() {
	for {
		select {
		case req := <-w.requests:
			result := w.execute(req.fn)
			req.done <- result
		case <-w.quit:
			return
		}
	}
}

func (w *StoreWorker) execute(fn func(*store.History) interface{}) storeResult {
	var result storeResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.history)
	}()
	return result
}

// Do submits a function for execution on the store goroutine and
// blocks until it completes. Returns the result and any error
// (including panics).
func (w *StoreWorker) Do(fn func(*store.History) interface{}) (interface{}, error) {
	req := storeRequest{fn: fn, done: make(chan storeResult, 1)}
	w.requests <- req
	result := <-req.done
	return result.value, result.err
}

// Stop shuts down the worker goroutine.
func (w *StoreWorker) Stop() {
	close(w.quit)
}

// History returns the underlying store (for read-only access from
// the owning goroutine only, e.g. at shutdown).
func (w *StoreWorker) History() *store.History {
	return w.history
}
