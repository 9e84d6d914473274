// Package engine turns a compiled rule table into running pipelines of
// pluggable work units. It owns the two-tier execution context, the unit
// registry, the strategy executor, the consensus coordinator, and the
// compensation controller.
//
// The engine persists nothing itself: job state lives in the execution
// context for the duration of the job, audit records flow out through the
// audit port, and consensus tickets are lost on restart
package engine
