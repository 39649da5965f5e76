package types

// BudgetState classifies an estimated link length against the configured ceiling.
type BudgetState string

const (
	BudgetOK      BudgetState = "ok"
	BudgetWarning BudgetState = "warning"
	BudgetDanger  BudgetState = "danger"
)

// SelectionState maps a share item id to whether it is included in the link.
type SelectionState map[string]bool

// Clone returns an independent copy so in-flight estimate rounds never observe
// a toggle that happened after they started.
func (s SelectionState) Clone() SelectionState {
	out := make(SelectionState, len(s))
	for id, on := range s {
		out[id] = on
	}
	return out
}

// BudgetResult is the outcome of one estimate round. It is recomputed on every
// selection change and never persisted.
type BudgetResult struct {
	EstimatedBytes int         `json:"estimatedBytes"`
	PercentOfMax   int         `json:"percentOfMax"`
	State          BudgetState `json:"state"`
}

// SharePayload maps a semantic field name (apiKey, model, conversation, ...)
// to its collected value. Only selected items with present data appear.
// Payloads are built fresh per generation and must never be logged or persisted.
type SharePayload map[string]any
