// callback.go defines how operation outcomes are delivered to callers.

package tdevents

import "fmt"

// Callback receives the outcome of an AddEvent or UploadEvents call.
// Exactly one method is called, exactly once.
type Callback interface {
	OnSuccess()
	OnError(errorCode string, err error)
}

// CallbackFuncs adapts a pair of functions to Callback. Nil fields are
// skipped.
type CallbackFuncs struct {
	Success func()
	Error   func(errorCode string, err error)
}

// OnSuccess calls c.Success.
func (c CallbackFuncs) OnSuccess() {
	if c.Success != nil {
		c.Success()
	}
}

// OnError calls c.Error.
func (c CallbackFuncs) OnError(errorCode string, err error) {
	if c.Error != nil {
		c.Error(errorCode, err)
	}
}

// Result is a tagged operation outcome: success when Err is nil, otherwise a
// failure classified by Code.
type Result struct {
	Code string
	Err  error
}

// ResultFunc receives a Result. Transports report through it.
type ResultFunc func(Result)

// Success returns a successful Result.
func Success() Result {
	return Result{}
}

// Failure returns a failed Result. A nil err is replaced by a generic error
// naming code, so OK always reports false for failures.
func Failure(code string, err error) Result {
	if err == nil {
		err = fmt.Errorf("tdevents: operation failed (%s)", code)
	}
	return Result{Code: code, Err: err}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// deliver invokes the matching callback method.
func (r Result) deliver(cb Callback) {
	if r.OK() {
		cb.OnSuccess()
		return
	}
	cb.OnError(r.Code, r.Err)
}

type chanCallback struct {
	ch chan Result
}

func (c chanCallback) OnSuccess() {
	c.ch <- Success()
}

func (c chanCallback) OnError(errorCode string, err error) {
	c.ch <- Failure(errorCode, err)
}

// ChanCallback returns a Callback that forwards its single outcome to the
// returned channel. Use one per operation; the channel is buffered so the
// reporting goroutine never blocks.
//
//	cb, results := tdevents.ChanCallback()
//	client.UploadEvents(ctx, cb)
//	res := <-results
func ChanCallback() (Callback, <-chan Result) {
	ch := make(chan Result, 1)
	return chanCallback{ch: ch}, ch
}
