package model

import "time"

// Phase is the coarse state of a running workflow instance.
type Phase string

const (
	PhasePending    Phase = "pending"
	PhaseMonitoring Phase = "monitoring"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseProcessing Phase = "processing"
	PhaseFetching   Phase = "fetching"
	PhaseSorting    Phase = "sorting"
	PhaseComparing  Phase = "comparing"
	PhaseStoring    Phase = "storing"
	PhaseAwarding   Phase = "awarding"
	PhaseSleeping   Phase = "sleeping"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)

// ItemError records one per-item failure inside a batch run.
type ItemError struct {
	ItemID  string `json:"item_id"`
	Message string `json:"message"`
}

// RunStatus is the transient, in-memory progress of one workflow instance.
// It lives only for the duration of the instance; on continue-as-new it is
// reset except for the explicit carry-forward (CycleCount).
type RunStatus struct {
	Phase            Phase       `json:"phase"`
	CycleCount       int         `json:"cycle_count"`
	ItemsProcessed   int         `json:"items_processed"`
	SignalsGenerated int         `json:"signals_generated"`
	SignalIDs        []string    `json:"signal_ids,omitempty"`
	Errors           []ItemError `json:"errors"`
	StartedAt        time.Time   `json:"started_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Clone returns a deep copy so query handlers can hand the status to callers
// without racing the running instance.
func (s RunStatus) Clone() RunStatus {
	out := s
	out.SignalIDs = make([]string, len(s.SignalIDs))
	copy(out.SignalIDs, s.SignalIDs)
	out.Errors = make([]ItemError, len(s.Errors))
	copy(out.Errors, s.Errors)
	return out
}
