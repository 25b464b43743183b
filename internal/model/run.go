package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind names the command that produced a run.
type RunKind string

const (
	RunKindReadmes RunKind = "readmes"
	RunKindLinks   RunKind = "links"
	RunKindEnrich  RunKind = "enrich"
	RunKindSearch  RunKind = "search"
)

// Run is one invocation of a pipeline command.
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStats holds the aggregate counts reported at the end of a run.
type RunStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	NotFound  int `json:"not_found"`
	Failed    int `json:"failed"`
	Written   int `json:"written"`
}

// FetchRecord is the ledger entry for one identifier's fetch outcome.
type FetchRecord struct {
	ID         string    `json:"id"`
	RunID      string    `json:"run_id"`
	Identifier string    `json:"identifier"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	Bytes      int       `json:"bytes"`
	CreatedAt  time.Time `json:"created_at"`
}
