package store

import (
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// store/RateLimiter.java

/*
Rate limit IO. Typically implementations are shared across multiple
IndexInputs or IndexOutputs (for example those involved all merging).
Those IndexInputs and IndexOutputs would call Pause() whenever they
want to read bytes or write bytes.
*/
type RateLimiter interface {
	// Sets an updated mb per second rate limit.
	SetMbPerSec(mbPerSec float64)
	// The current mb per second rate limit.
	MbPerSec() float64
	/*
		Pause, if necessary, to keep the instantaneous IO rate at or below
		the target.

		Note: the implementation is thread-safe
	*/
	Pause(bytes int64) time.Duration
}

// Burst granted to a limiter, in bytes.
const rateLimitBurst = 256 * 1024

// Token bucket rate limiter: one token per byte.
type SimpleRateLimiter struct {
	sync.Mutex
	mbPerSec float64
	limiter  *rate.Limiter
}

// mbPerSec is the MB/sec max IO rate
func NewSimpleRateLimiter(mbPerSec float64) *SimpleRateLimiter {
	ans := &SimpleRateLimiter{
		limiter: rate.NewLimiter(rate.Inf, rateLimitBurst),
	}
	ans.SetMbPerSec(mbPerSec)
	return ans
}

func (srl *SimpleRateLimiter) SetMbPerSec(mbPerSec float64) {
	srl.Lock()
	defer srl.Unlock()
	srl.mbPerSec = mbPerSec
	if mbPerSec <= 0 || math.IsInf(mbPerSec, 1) || mbPerSec == math.MaxFloat64 {
		srl.limiter.SetLimit(rate.Inf)
		return
	}
	srl.limiter.SetLimit(rate.Limit(mbPerSec * 1024 * 1024))
}

func (srl *SimpleRateLimiter) MbPerSec() float64 {
	srl.Lock()
	defer srl.Unlock()
	return srl.mbPerSec
}

/*
Pause, if necessary, to keep the IO rate at or below the target. It's
best to call this with a biggish count, not one byte at a time.
*/
func (srl *SimpleRateLimiter) Pause(bytes int64) time.Duration {
	var paused time.Duration
	for bytes > 0 {
		n := bytes
		if n > rateLimitBurst {
			n = rateLimitBurst
		}
		bytes -= n
		r := srl.limiter.ReserveN(time.Now(), int(n))
		if !r.OK() {
			break
		}
		if d := r.Delay(); d > 0 {
			time.Sleep(d)
			paused += d
		}
	}
	return paused
}

// store/RateLimitedDirectoryWrapper.java

// A Directory wrapper that allows IndexOutput rate limiting using
// IO context specific rate limiters.
type RateLimitedDirectoryWrapper struct {
	Directory
	sync.RWMutex
	contextRateLimiters [IO_CONTEXT_TYPE_DEFAULT]RateLimiter
}

func NewRateLimitedDirectoryWrapper(wrapped Directory) *RateLimitedDirectoryWrapper {
	return &RateLimitedDirectoryWrapper{Directory: wrapped}
}

func (w *RateLimitedDirectoryWrapper) CreateOutput(name string, ctx IOContext) (IndexOutput, error) {
	output, err := w.Directory.CreateOutput(name, ctx)
	if err != nil {
		return nil, err
	}
	if limiter := w.rateLimiter(ctx.context); limiter != nil {
		output = newRateLimitedIndexOutput(limiter, output)
	}
	return output, nil
}

func (w *RateLimitedDirectoryWrapper) String() string {
	return fmt.Sprintf("RateLimitedDirectoryWrapper(%v)", w.Directory)
}

func (w *RateLimitedDirectoryWrapper) rateLimiter(ctx IOContextType) RateLimiter {
	assert(int(ctx) != 0)
	w.RLock()
	defer w.RUnlock()
	return w.contextRateLimiters[int(ctx)-1]
}

/*
Sets the maximum (approx) MB/sec allowed by all write IO performed by
IndexOutput created with the given context. Pass non-positive value to
have no limit.

NOTE: For already created IndexOutput instances there is no guarantee
this new rate will apply to them; it will only be guaranteed to apply
for new created IndexOutput instances.
*/
func (w *RateLimitedDirectoryWrapper) SetMaxWriteMBPerSec(mbPerSec float64, context IOContextType) {
	assert2(context != 0, "Context must not be nil")
	w.Lock()
	defer w.Unlock()
	ord := int(context) - 1
	limiter := w.contextRateLimiters[ord]
	if mbPerSec <= 0 {
		if limiter != nil {
			limiter.SetMbPerSec(math.MaxFloat64)
			w.contextRateLimiters[ord] = nil
		}
	} else if limiter != nil {
		limiter.SetMbPerSec(mbPerSec)
	} else {
		w.contextRateLimiters[ord] = NewSimpleRateLimiter(mbPerSec)
	}
}

/*
Sets the rate limiter to be used to limit (approx) MB/sec allowed by
all IO performed with the given context. Pass nil to have no limit.

Passing an instance of rate limiter compared to setting it using
SetMaxWriteMBPerSec() allows to use the same limiter instance across
several directories globally limiting IO across them.
*/
func (w *RateLimitedDirectoryWrapper) SetRateLimiter(mergeWriteRateLimiter RateLimiter, context IOContextType) {
	assert2(context != 0, "Context must not be nil")
	w.Lock()
	defer w.Unlock()
	w.contextRateLimiters[int(context)-1] = mergeWriteRateLimiter
}

// Returns the current maximum MB/sec, or 0 if not rate limited.
func (w *RateLimitedDirectoryWrapper) MaxWriteMBPerSec(context IOContextType) float64 {
	if limiter := w.rateLimiter(context); limiter != nil {
		return limiter.MbPerSec()
	}
	return 0
}

// store/RateLimitedIndexOutput.java

// Bytes accumulated before the limiter is consulted.
const rateLimitChunk = 8192

/* A rate limiting IndexOutput */
type RateLimitedIndexOutput struct {
	*IndexOutputImpl
	delegate    IndexOutput
	rateLimiter RateLimiter
	pending     int64
}

func newRateLimitedIndexOutput(rateLimiter RateLimiter, delegate IndexOutput) *RateLimitedIndexOutput {
	ans := &RateLimitedIndexOutput{
		delegate:    delegate,
		rateLimiter: rateLimiter,
	}
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

func (out *RateLimitedIndexOutput) account(n int) {
	out.pending += int64(n)
	if out.pending >= rateLimitChunk {
		out.rateLimiter.Pause(out.pending)
		out.pending = 0
	}
}

func (out *RateLimitedIndexOutput) WriteByte(b byte) error {
	out.account(1)
	return out.delegate.WriteByte(b)
}

func (out *RateLimitedIndexOutput) WriteBytes(p []byte) error {
	out.account(len(p))
	return out.delegate.WriteBytes(p)
}

func (out *RateLimitedIndexOutput) FilePointer() int64 {
	return out.delegate.FilePointer()
}

func (out *RateLimitedIndexOutput) Checksum() int64 {
	return out.delegate.Checksum()
}

func (out *RateLimitedIndexOutput) Close() error {
	if out.pending > 0 {
		out.rateLimiter.Pause(out.pending)
		out.pending = 0
	}
	return out.delegate.Close()
}

func (out *RateLimitedIndexOutput) String() string {
	return fmt.Sprintf("RateLimitedIndexOutput(%v)", out.delegate)
}
