// Package ruleflow is a rule-driven transaction orchestration engine
package ruleflow

const (
	// Name is the service name reported in logs and health checks
	Name = "ruleflow"

	// Version is the engine release version
	Version = "0.1.0"
)
