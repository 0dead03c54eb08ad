package model

import "time"

// Role identifies which of the two redundant clusters a descriptor belongs to
type Role string

const (
	RoleActive  Role = "active"
	RolePassive Role = "passive"
)

// ProbeOutcome describes how a single host answered a status probe
type ProbeOutcome string

const (
	ProbeOutcomeOK    ProbeOutcome = "ok"
	ProbeOutcomeEmpty ProbeOutcome = "empty"
	ProbeOutcomeError ProbeOutcome = "error"
)

// ProbeResult records one host probe during failover
type ProbeResult struct {
	Role     Role
	Host     string
	Port     int
	Outcome  ProbeOutcome
	Bytes    int
	Duration time.Duration
	Response []byte
}

// Reachable reports whether the host returned a non-empty response
func (r ProbeResult) Reachable() bool {
	return r.Outcome == ProbeOutcomeOK
}
