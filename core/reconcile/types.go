package reconcile

// ActionType represents the type of write action.
type ActionType string

const (
	// ActionInsert adds a new record document.
	ActionInsert ActionType = "insert"
	// ActionUpdate merges changed fields into an existing document.
	ActionUpdate ActionType = "update"
)

// Action represents a planned write.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Schema is the record's schema name.
	Schema string `json:"schema"`

	// ID is the record identity.
	ID string `json:"id"`

	// Fields holds the full document for inserts and the changed fields for updates.
	Fields map[string]any `json:"fields"`
}

// Plan contains the writes produced by one change batch.
type Plan struct {
	// Actions contains planned writes, inserts first, in record discovery order.
	Actions []Action `json:"actions"`

	// Summary provides aggregate counts.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary provides aggregate statistics for a batch.
type PlanSummary struct {
	// Created and Deleted count the batch paths.
	Created int `json:"created"`
	Deleted int `json:"deleted"`

	// Matched counts (path, schema) pairs whose required fields matched.
	Matched int `json:"matched"`

	// Records counts distinct records touched by the batch.
	Records int `json:"records"`

	// Inserts and Updates count planned actions.
	Inserts int `json:"inserts"`
	Updates int `json:"updates"`

	// Derived counts derived values computed by the readiness pass.
	Derived int `json:"derived"`

	// Warnings counts non-fatal merge and parser diagnostics.
	Warnings int `json:"warnings"`
}

// Options controls plan execution.
type Options struct {
	// DryRun prevents any write if true.
	DryRun bool
}
