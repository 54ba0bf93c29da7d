package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pkt.systems/pslog"

	"stablecore/pkg/domain"
)

// Service exposes the guarded commands every screen mutates the store
// through. Each command resolves the target stable, checks the caller's
// capabilities, validates input, applies exactly one store mutation and
// returns a uniform CommandResult. Domain failures never mutate the store
// and never panic.
type Service struct {
	store   *MemoryStore
	logger  pslog.Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAuditRecorder wires an audit sink receiving one entry per command.
func WithAuditRecorder(rec AuditRecorder) ServiceOption {
	return func(s *Service) { s.audit = rec }
}

// WithMetricsRecorder wires a metrics sink receiving one observation per command.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer wires a tracer opening one span per command.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracer }
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger pslog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a service backed by the supplied store.
func NewService(store *MemoryStore, opts ...ServiceOption) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(NewMemoryStore(), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() *MemoryStore {
	return s.store
}

// commandError carries a domain failure out of a transaction closure. The
// transaction is rolled back and the result surfaces to the caller.
type commandError struct {
	result CommandResult
}

func (e commandError) Error() string { return e.result.Reason }

func failTx(reason string) error {
	return commandError{result: domain.Fail(reason)}
}

func failTxf(format string, args ...any) error {
	return commandError{result: domain.Failf(format, args...)}
}

func permissionDenied() error {
	return commandError{result: domain.PermissionDenied()}
}

// mutate runs one guarded command: fn validates and applies the mutation
// within a transaction; a returned commandError rolls everything back. On
// success the reconciliation pass runs when assignments or users changed,
// then audit, metrics and trace sinks are fed.
func (s *Service) mutate(ctx context.Context, op string, fn func(tx *Transaction) (entityID, stableID string, err error)) CommandResult {
	started := time.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, op)
	}

	var entityID, stableID, actorID string
	err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		actorID = tx.CurrentUserID()
		var err error
		entityID, stableID, err = fn(tx)
		if err != nil {
			return err
		}
		if tx.TouchedReconcileInputs() {
			tx.Reconcile()
		}
		return nil
	})

	result := domain.OK()
	if err != nil {
		if cerr, ok := err.(commandError); ok {
			result = cerr.result
		} else {
			result = domain.Fail(err.Error())
		}
	}

	s.observe(ctx, op, entityID, stableID, actorID, result, started, span, err)
	return result
}

func (s *Service) observe(ctx context.Context, op, entityID, stableID, actorID string, result CommandResult, started time.Time, span TraceSpan, err error) {
	duration := time.Since(started)
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, result.Success, duration)
	}
	if s.audit != nil {
		status := AuditStatusSuccess
		if !result.Success {
			status = AuditStatusError
		}
		s.audit.Record(ctx, AuditEntry{
			Operation: op,
			Status:    status,
			Reason:    result.Reason,
			StableID:  stableID,
			ActorID:   actorID,
			EntityID:  entityID,
		})
	}
	if span != nil {
		span.End(err)
	}
	if s.logger != nil && !result.Success {
		s.logger.Debug("command rejected", "op", op, "reason", result.Reason)
	}
}

// requireActor loads the acting user from the transaction scalars.
func requireActor(tx *Transaction) (UserProfile, error) {
	id := tx.CurrentUserID()
	if id == "" {
		return UserProfile{}, failTx("no signed-in user")
	}
	actor, ok := tx.FindUser(id)
	if !ok {
		return UserProfile{}, failTx("no signed-in user")
	}
	return actor, nil
}

// targetStable resolves the explicit stable id, falling back to the current
// selection, and verifies the stable exists.
func targetStable(tx *Transaction, explicit string) (Stable, error) {
	id := explicit
	if id == "" {
		id = tx.CurrentStableID()
	}
	if id == "" {
		return Stable{}, failTx("no stable selected")
	}
	st, ok := tx.FindStable(id)
	if !ok {
		return Stable{}, failTxf("stable %q not found", id)
	}
	return st, nil
}

func trimmed(v string) string {
	return strings.TrimSpace(v)
}

func optional(v string) *string {
	v = trimmed(v)
	if v == "" {
		return nil
	}
	return &v
}

func validDate(date string) bool {
	_, err := time.Parse(domain.DateLayout, date)
	return err == nil
}

func history(tx *Transaction, stableID, actorID, kind, format string, args ...any) {
	tx.AppendHistory(HistoryEntry{
		StableID: stableID,
		ActorID:  actorID,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Assignment commands ---------------------------------------------------------

// CreateAssignmentInput describes a new shift occurrence.
type CreateAssignmentInput struct {
	StableID            string
	Date                string
	Slot                Slot
	Label               string
	StartTime           string
	Note                string
	AssignToCurrentUser bool
}

// CreateAssignment creates a shift occurrence. The slot determines the
// display label and time of day unless the caller overrides them.
func (s *Service) CreateAssignment(ctx context.Context, input CreateAssignmentInput) (Assignment, CommandResult) {
	var created Assignment
	res := s.mutate(ctx, "create_assignment", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageAssignments {
			return "", st.ID, permissionDenied()
		}
		if !validDate(trimmed(input.Date)) {
			return "", st.ID, failTx("assignment date is required (YYYY-MM-DD)")
		}
		if input.Slot.Index() < 0 {
			return "", st.ID, failTxf("unknown shift slot %q", string(input.Slot))
		}
		if input.AssignToCurrentUser && !caps.ClaimShifts {
			return "", st.ID, permissionDenied()
		}

		a := Assignment{
			StableID:  st.ID,
			Date:      trimmed(input.Date),
			Slot:      input.Slot,
			Label:     trimmed(input.Label),
			StartTime: trimmed(input.StartTime),
			Status:    AssignmentOpen,
			Note:      optional(input.Note),
		}
		if a.Label == "" {
			a.Label = input.Slot.DefaultLabel()
		}
		if a.StartTime == "" {
			a.StartTime = input.Slot.DefaultStartTime()
		}
		if input.AssignToCurrentUser {
			id := actor.ID
			a.Status = AssignmentAssigned
			a.AssigneeID = &id
			a.AssignedVia = AssignedViaManual
		}

		created, err = tx.CreateAssignment(a)
		if err != nil {
			return "", st.ID, err
		}
		history(tx, st.ID, actor.ID, "assignment", "%s skapades för %s", created.Label, created.Date)
		return created.ID, st.ID, nil
	})
	return created, res
}

// UpdateAssignmentInput mutates an existing shift occurrence. Nil fields are
// left untouched.
type UpdateAssignmentInput struct {
	ID        string
	Slot      *Slot
	Label     *string
	StartTime *string
	Note      *string
	// AssignToCurrentUser true claims the shift for the caller; false
	// reopens it and, when the caller was the assignee, records a decline
	// so reconciliation does not hand it straight back.
	AssignToCurrentUser *bool
}

// UpdateAssignment updates a shift occurrence. Changing the slot recomputes
// the label and start time unless they are explicitly overridden in the same
// call.
func (s *Service) UpdateAssignment(ctx context.Context, input UpdateAssignmentInput) (Assignment, CommandResult) {
	var updated Assignment
	res := s.mutate(ctx, "update_assignment", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		current, ok := tx.FindAssignment(trimmed(input.ID))
		if !ok {
			return "", "", failTxf("assignment %q not found", input.ID)
		}
		caps := domain.ResolveCapabilities(&actor, current.StableID)
		if !caps.ManageAssignments {
			return current.ID, current.StableID, permissionDenied()
		}
		if current.Status == AssignmentCompleted {
			return current.ID, current.StableID, failTx("completed shifts cannot be changed")
		}
		if input.Slot != nil && input.Slot.Index() < 0 {
			return current.ID, current.StableID, failTxf("unknown shift slot %q", string(*input.Slot))
		}
		if input.AssignToCurrentUser != nil && *input.AssignToCurrentUser && !caps.ClaimShifts {
			return current.ID, current.StableID, permissionDenied()
		}

		updated, err = tx.UpdateAssignment(current.ID, func(a *Assignment) error {
			if input.Slot != nil && *input.Slot != a.Slot {
				a.Slot = *input.Slot
				a.Label = a.Slot.DefaultLabel()
				a.StartTime = a.Slot.DefaultStartTime()
			}
			if input.Label != nil && trimmed(*input.Label) != "" {
				a.Label = trimmed(*input.Label)
			}
			if input.StartTime != nil && trimmed(*input.StartTime) != "" {
				a.StartTime = trimmed(*input.StartTime)
			}
			if input.Note != nil {
				a.Note = optional(*input.Note)
			}
			if input.AssignToCurrentUser != nil {
				if *input.AssignToCurrentUser {
					id := actor.ID
					a.Status = AssignmentAssigned
					a.AssigneeID = &id
					a.AssignedVia = AssignedViaManual
					a.DeclinedBy = removeString(a.DeclinedBy, actor.ID)
				} else {
					wasAssignee := a.AssigneeID != nil && *a.AssigneeID == actor.ID
					a.Status = AssignmentOpen
					a.AssigneeID = nil
					a.AssignedVia = ""
					if wasAssignee && !a.Declined(actor.ID) {
						a.DeclinedBy = append(a.DeclinedBy, actor.ID)
					}
				}
			}
			return nil
		})
		if err != nil {
			return current.ID, current.StableID, err
		}
		return updated.ID, updated.StableID, nil
	})
	return updated, res
}

// ClaimAssignment claims an open shift for the caller.
func (s *Service) ClaimAssignment(ctx context.Context, assignmentID string) (Assignment, CommandResult) {
	var claimed Assignment
	res := s.mutate(ctx, "claim_assignment", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		current, ok := tx.FindAssignment(trimmed(assignmentID))
		if !ok {
			return "", "", failTxf("assignment %q not found", assignmentID)
		}
		caps := domain.ResolveCapabilities(&actor, current.StableID)
		if !caps.ClaimShifts {
			return current.ID, current.StableID, permissionDenied()
		}
		if current.Status != AssignmentOpen {
			return current.ID, current.StableID, failTx("shift is not open")
		}

		claimed, err = tx.UpdateAssignment(current.ID, func(a *Assignment) error {
			id := actor.ID
			a.Status = AssignmentAssigned
			a.AssigneeID = &id
			a.AssignedVia = AssignedViaManual
			a.DeclinedBy = removeString(a.DeclinedBy, actor.ID)
			return nil
		})
		if err != nil {
			return current.ID, current.StableID, err
		}
		history(tx, current.StableID, actor.ID, "assignment", "%s tog %s %s", actor.Name, claimed.Label, claimed.Date)
		return claimed.ID, claimed.StableID, nil
	})
	return claimed, res
}

// DeclineAssignment releases a shift currently assigned to the caller and
// records the decline so reconciliation will not re-offer it to them.
func (s *Service) DeclineAssignment(ctx context.Context, assignmentID string) (Assignment, CommandResult) {
	var declined Assignment
	res := s.mutate(ctx, "decline_assignment", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		current, ok := tx.FindAssignment(trimmed(assignmentID))
		if !ok {
			return "", "", failTxf("assignment %q not found", assignmentID)
		}
		caps := domain.ResolveCapabilities(&actor, current.StableID)
		if !caps.ClaimShifts {
			return current.ID, current.StableID, permissionDenied()
		}
		if current.Status != AssignmentAssigned || current.AssigneeID == nil || *current.AssigneeID != actor.ID {
			return current.ID, current.StableID, failTx("shift is not assigned to you")
		}

		declined, err = tx.UpdateAssignment(current.ID, func(a *Assignment) error {
			a.Status = AssignmentOpen
			a.AssigneeID = nil
			a.AssignedVia = ""
			if !a.Declined(actor.ID) {
				a.DeclinedBy = append(a.DeclinedBy, actor.ID)
			}
			return nil
		})
		if err != nil {
			return current.ID, current.StableID, err
		}
		history(tx, current.StableID, actor.ID, "assignment", "%s lämnade tillbaka %s %s", actor.Name, declined.Label, declined.Date)
		return declined.ID, declined.StableID, nil
	})
	return declined, res
}

// CompleteAssignment marks a shift assigned to the caller as completed.
// Completed is terminal: no command or reconciliation pass reopens it.
func (s *Service) CompleteAssignment(ctx context.Context, assignmentID string) (Assignment, CommandResult) {
	var completed Assignment
	res := s.mutate(ctx, "complete_assignment", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		current, ok := tx.FindAssignment(trimmed(assignmentID))
		if !ok {
			return "", "", failTxf("assignment %q not found", assignmentID)
		}
		caps := domain.ResolveCapabilities(&actor, current.StableID)
		if !caps.ClaimShifts {
			return current.ID, current.StableID, permissionDenied()
		}
		if current.Status != AssignmentAssigned || current.AssigneeID == nil || *current.AssigneeID != actor.ID {
			return current.ID, current.StableID, failTx("shift is not assigned to you")
		}

		completed, err = tx.UpdateAssignment(current.ID, func(a *Assignment) error {
			now := tx.now
			a.Status = AssignmentCompleted
			a.CompletedAt = &now
			return nil
		})
		if err != nil {
			return current.ID, current.StableID, err
		}
		history(tx, current.StableID, actor.ID, "assignment", "%s slutförde %s %s", actor.Name, completed.Label, completed.Date)
		return completed.ID, completed.StableID, nil
	})
	return completed, res
}

// DeleteAssignment removes a shift occurrence.
func (s *Service) DeleteAssignment(ctx context.Context, assignmentID string) CommandResult {
	return s.mutate(ctx, "delete_assignment", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		current, ok := tx.FindAssignment(trimmed(assignmentID))
		if !ok {
			return "", "", failTxf("assignment %q not found", assignmentID)
		}
		caps := domain.ResolveCapabilities(&actor, current.StableID)
		if !caps.ManageAssignments {
			return current.ID, current.StableID, permissionDenied()
		}
		if err := tx.DeleteAssignment(current.ID); err != nil {
			return current.ID, current.StableID, err
		}
		return current.ID, current.StableID, nil
	})
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
