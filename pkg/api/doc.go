// Package api defines the core data types for the transaction orchestrator
//
// This package contains all the shared types used across the engine,
// including rule definitions, execution blocks, packets, audit records,
// engine events, and HTTP messages
package api
