// Package server implements the HTTP API for the transaction engine
//
// This package provides REST endpoints for submitting jobs, casting
// consensus votes, inspecting and reloading the rule table, and a
// WebSocket event stream
package server
