// Package service sits between the HTTP layer and the workflow runtime.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/repository"
	"github.com/navid-fn/pulse/internal/workflow"
	"github.com/navid-fn/pulse/internal/workflows"
)

var (
	// ErrUnknownWorkflow is returned for a trigger naming no registered
	// workflow.
	ErrUnknownWorkflow = errors.New("unknown workflow")

	// ErrUnknownInstance is returned when no instance matches the id.
	ErrUnknownInstance = errors.New("unknown workflow instance")
)

// InstanceStatus is the external view of one workflow instance.
type InstanceStatus struct {
	InstanceID string           `json:"instance_id"`
	Workflow   string           `json:"workflow"`
	Running    bool             `json:"running"`
	StartedAt  time.Time        `json:"started_at"`
	Error      string           `json:"error,omitempty"`
	Status     *model.RunStatus `json:"status,omitempty"`
}

// WorkflowService exposes trigger, status, cancel, and audit access over the
// runtime.
type WorkflowService struct {
	runtime *workflow.Runtime
	worker  *workflows.Worker
	audits  repository.AuditRepository
}

// NewWorkflowService creates the service.
func NewWorkflowService(runtime *workflow.Runtime, worker *workflows.Worker, audits repository.AuditRepository) *WorkflowService {
	return &WorkflowService{
		runtime: runtime,
		worker:  worker,
		audits:  audits,
	}
}

// Trigger starts a new instance of the named workflow with the given raw JSON
// input and returns its instance id.
func (s *WorkflowService) Trigger(name string, raw json.RawMessage) (string, error) {
	def, ok := s.worker.Definitions()[name]
	if !ok {
		return "", ErrUnknownWorkflow
	}

	input, err := workflows.DecodeInput(name, raw)
	if err != nil {
		return "", err
	}

	h, err := s.runtime.Start(name, def, input)
	if err != nil {
		return "", err
	}
	return h.ID(), nil
}

// Status returns the current view of one instance, including its live
// RunStatus when the instance still answers the status query.
func (s *WorkflowService) Status(instanceID string) (InstanceStatus, error) {
	h, ok := s.runtime.Get(instanceID)
	if !ok {
		return InstanceStatus{}, ErrUnknownInstance
	}
	return s.describe(h), nil
}

// Cancel requests cooperative cancellation of one instance.
func (s *WorkflowService) Cancel(instanceID string) error {
	h, ok := s.runtime.Get(instanceID)
	if !ok {
		return ErrUnknownInstance
	}
	h.Signal(workflow.SignalCancel, nil)
	return nil
}

// Handle returns the raw handle, used by the streaming endpoint.
func (s *WorkflowService) Handle(instanceID string) (*workflow.Handle, bool) {
	return s.runtime.Get(instanceID)
}

// Describe builds an InstanceStatus from a handle.
func (s *WorkflowService) Describe(h *workflow.Handle) InstanceStatus {
	return s.describe(h)
}

func (s *WorkflowService) describe(h *workflow.Handle) InstanceStatus {
	out := InstanceStatus{
		InstanceID: h.ID(),
		Workflow:   h.Workflow(),
		Running:    h.Running(),
		StartedAt:  h.StartedAt(),
	}

	if !out.Running {
		if err := h.Err(); err != nil {
			out.Error = err.Error()
		}
	}

	// The status query briefly disappears across a continue-as-new boundary;
	// callers just get the envelope then.
	if result, err := h.Query(workflows.QueryStatus); err == nil {
		if status, ok := result.(model.RunStatus); ok {
			out.Status = &status
		}
	}
	return out
}

// RecentAudits returns the newest workflow lifecycle records.
func (s *WorkflowService) RecentAudits(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.audits.RecentAudits(ctx, limit)
}
