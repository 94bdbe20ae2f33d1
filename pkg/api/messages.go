package api

type (
	// ErrorResponse is the JSON error envelope returned by HTTP endpoints
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}

	// RunRequest is the programmatic run invocation payload
	RunRequest struct {
		Graph          *Graph  `json:"graph"`
		InitialContext Context `json:"initial_context,omitempty"`
		TenantID       string  `json:"tenant_id"`
		ActorID        string  `json:"actor_id,omitempty"`
	}

	// GraphRunSummary summarizes one graph's run triggered by an inbound
	// event
	GraphRunSummary struct {
		GraphID string    `json:"graph_id"`
		RunID   string    `json:"run_id,omitempty"`
		Status  RunStatus `json:"status"`
		Steps   int       `json:"steps"`
		Error   string    `json:"error,omitempty"`
	}

	// WebhookResponse is returned by the inbound webhook endpoint
	WebhookResponse struct {
		Accepted       bool               `json:"accepted"`
		GraphsExecuted int                `json:"graphs_executed"`
		Results        []*GraphRunSummary `json:"results,omitempty"`
	}

	// HealthResponse reports service liveness
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
	}
)
