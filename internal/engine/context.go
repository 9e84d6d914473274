package engine

import (
	"sync"
	"sync/atomic"

	"github.com/corpact/ruleflow/pkg/api"
)

type (
	// Context is the per-run data surface handed to every unit invocation.
	// Item memory is private to one packet's processing; job memory is a
	// single concurrent mapping shared by every packet and branch of the
	// job, used to accumulate per-item results for later JOB-scope blocks
	Context struct {
		jobID api.JobID
		mu    sync.RWMutex
		item  map[string]any
		job   *jobMemory
		abort *abortFlag
	}

	jobMemory struct {
		values sync.Map
	}

	abortFlag struct {
		reason atomic.Pointer[string]
	}
)

// KeyStepPrefix is the item-memory key holding the identifier of the step
// currently invoking a unit, stamped before every execution
const KeyStepPrefix = "STEP_PREFIX"

// NewContext creates the root execution context for a job
func NewContext(jobID api.JobID) *Context {
	return &Context{
		jobID: jobID,
		item:  map[string]any{},
		job:   &jobMemory{},
		abort: &abortFlag{},
	}
}

// Fork derives a context with fresh item memory that shares the parent's
// job memory and abort state. Each packet gets its own fork so item memory
// never leaks between packets
func (c *Context) Fork() *Context {
	return &Context{
		jobID: c.jobID,
		item:  map[string]any{},
		job:   c.job,
		abort: c.abort,
	}
}

// JobID returns the owning job's identifier
func (c *Context) JobID() api.JobID {
	return c.jobID
}

// Get reads a value from item memory
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.item[key]
	return v, ok
}

// Set writes a value to item memory
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.item[key] = value
}

// JobState reads a value from the job-scoped shared memory
func (c *Context) JobState(key string) (any, bool) {
	return c.job.values.Load(key)
}

// SetJobState writes a value to the job-scoped shared memory, visible to
// every subsequently executed block of the same job
func (c *Context) SetJobState(key string, value any) {
	c.job.values.Store(key, value)
}

// Amount reads an item-memory value as a decimal amount, coercing
// best-effort from whatever representation the upstream source provided
func (c *Context) Amount(key string) float64 {
	v, _ := c.Get(key)
	return api.CoerceAmount(v)
}

// String reads an item-memory value as text
func (c *Context) String(key string) string {
	v, _ := c.Get(key)
	return api.CoerceString(v)
}

// Abort signals an unrecoverable condition distinct from an ordinary step
// failure: the job terminates immediately with no compensation attempt.
// Used only for fundamentally malformed input
func (c *Context) Abort(reason string) {
	c.abort.reason.CompareAndSwap(nil, &reason)
}

// Aborted reports whether the job has been aborted, and why
func (c *Context) Aborted() (string, bool) {
	if r := c.abort.reason.Load(); r != nil {
		return *r, true
	}
	return "", false
}
