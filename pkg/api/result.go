package api

type (
	// RunStatus represents the lifecycle state of a run
	RunStatus string

	// TraceEntry records the execution of a single node within a run
	TraceEntry struct {
		NodeID   NodeID    `json:"node_id"`
		NodeType BlockType `json:"node_type"`
		Outcome  *Outcome  `json:"outcome,omitempty"`
		Error    string    `json:"error,omitempty"`
	}

	// RunResult is the structured result of one run: ordered trace, final
	// accumulated context, and overall status. Engine-level terminations
	// (cycle, iteration cap) set Halt rather than an error.
	RunResult struct {
		RunID   string        `json:"run_id"`
		GraphID string        `json:"graph_id"`
		Status  RunStatus     `json:"status"`
		Trace   []*TraceEntry `json:"trace"`
		Context Context       `json:"context"`
		Halt    string        `json:"halt,omitempty"`
	}
)

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

const (
	// HaltCycle flags a run stopped by the cycle guard
	HaltCycle = "cycle detected"

	// HaltIterationCap flags a run stopped by the iteration budget
	HaltIterationCap = "iteration cap exceeded"

	// HaltCancelled flags a run stopped by caller cancellation
	HaltCancelled = "cancelled"
)

// Steps returns the number of nodes executed in the run
func (r *RunResult) Steps() int {
	return len(r.Trace)
}

// LastEntry returns the final trace entry, or nil for an empty trace
func (r *RunResult) LastEntry() *TraceEntry {
	if len(r.Trace) == 0 {
		return nil
	}
	return r.Trace[len(r.Trace)-1]
}
