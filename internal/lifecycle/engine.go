// Package lifecycle owns the ticket status state machine and the capability
// predicates that gate every ticket mutation.
package lifecycle

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

// MinReasonLength is the shortest accepted justification for a priority change
// or an "other" waiting reason.
const MinReasonLength = 10

// Options configures an Engine.
type Options struct {
	// AllowReopen lets Admins and Directors move tickets out of closed.
	AllowReopen bool
	Now         func() time.Time
	NewID       func() string
}

// Engine plans ticket mutations. It never writes; callers persist the returned patch.
type Engine struct {
	allowReopen bool
	now         func() time.Time
	newID       func() string
}

// WaitingInput is the payload required when entering waiting.
type WaitingInput struct {
	Reason domain.WaitingReason
	Note   string
}

// PriorityInput is a priority change with its justification.
type PriorityInput struct {
	Priority domain.TicketPriority
	Reason   string
}

// Request is everything a single save may carry. An empty Target keeps the current status.
type Request struct {
	MutationID string
	Target     domain.TicketStatus
	Note       string
	Photos     []string
	Waiting    *WaitingInput
	Priority   *PriorityInput
	Assignment *domain.Assignment
}

// NewEngine constructs the engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{allowReopen: opts.AllowReopen, now: opts.Now, newID: opts.NewID}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// CanTransition reports whether role may move a ticket from one status to another.
func (e *Engine) CanTransition(from, to domain.TicketStatus, role domain.Role) bool {
	if from == to {
		return true
	}
	if from == domain.TicketStatusClosed {
		return e.allowReopen && (role == domain.RoleAdmin || role == domain.RoleDirector)
	}
	switch role {
	case domain.RoleAdmin, domain.RoleDirector:
		return true
	case domain.RoleAreaCoach:
		return (from == domain.TicketStatusWaiting && to == domain.TicketStatusInProgress) ||
			(from == domain.TicketStatusInProgress && to == domain.TicketStatusResolved)
	case domain.RoleTechnician:
		return from != domain.TicketStatusUnassigned && to != domain.TicketStatusUnassigned
	default:
		return false
	}
}

// CanEditUrgency reports whether role may change priority.
func CanEditUrgency(role domain.Role) bool {
	return role != domain.RoleTechnician
}

// CanAssign reports whether role may change a ticket's assignee.
func CanAssign(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleDirector, domain.RoleAreaCoach:
		return true
	}
	return false
}

// Plan validates req against ticket and returns the single atomic patch that
// applies it. Nothing is planned when any precondition fails.
func (e *Engine) Plan(ticket *domain.Ticket, actor domain.Actor, req Request) (domain.TicketPatch, error) {
	current := ticket.Status
	target := current
	if req.Target != "" {
		normalized, ok := domain.NormalizeStatus(string(req.Target))
		if !ok {
			return domain.TicketPatch{}, apperrors.NewValidationError("unknown status", map[string]any{"status": string(req.Target)})
		}
		target = normalized
	}

	before := domain.AssignmentOf(ticket)
	after := before
	assignmentChanged := false
	if req.Assignment != nil {
		requested := *req.Assignment
		if requested.IsEmpty() {
			requested = domain.Unassigned
		}
		if !requested.Equal(before) {
			if !CanAssign(actor.Role) {
				return domain.TicketPatch{}, apperrors.NewForbidden(string(actor.Role) + " may not assign tickets")
			}
			after = requested
			assignmentChanged = true
		}
	}

	// Assignment drives the implicit unassigned <-> assigned moves.
	if assignmentChanged && target == current {
		switch {
		case current == domain.TicketStatusUnassigned && !after.IsEmpty():
			target = domain.TicketStatusAssigned
		case current == domain.TicketStatusAssigned && after.IsEmpty():
			target = domain.TicketStatusUnassigned
		}
	}
	if target == domain.TicketStatusUnassigned && target != current && !after.IsEmpty() {
		if !CanAssign(actor.Role) {
			return domain.TicketPatch{}, apperrors.NewForbiddenTransition(string(actor.Role), string(current), string(target))
		}
		after = domain.Unassigned
		assignmentChanged = !after.Equal(before)
	}

	statusChanged := target != current
	if statusChanged && !e.CanTransition(current, target, actor.Role) {
		return domain.TicketPatch{}, apperrors.NewForbiddenTransition(string(actor.Role), string(current), string(target))
	}
	if after.IsEmpty() && ((statusChanged && target == domain.TicketStatusAssigned) ||
		(assignmentChanged && target != domain.TicketStatusUnassigned)) {
		return domain.TicketPatch{}, apperrors.NewAssignmentRequired()
	}

	var waiting WaitingInput
	if statusChanged && target == domain.TicketStatusWaiting {
		var err error
		if waiting, err = validateWaiting(req.Waiting); err != nil {
			return domain.TicketPatch{}, err
		}
	}

	priorityChanged := false
	var newPriority domain.TicketPriority
	var priorityReason string
	if req.Priority != nil {
		if !CanEditUrgency(actor.Role) {
			return domain.TicketPatch{}, apperrors.NewForbidden(string(actor.Role) + " may not change priority")
		}
		if !req.Priority.Priority.Valid() {
			return domain.TicketPatch{}, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(req.Priority.Priority)})
		}
		if req.Priority.Priority == ticket.Priority {
			return domain.TicketPatch{}, apperrors.NewUrgencyReasonTooShort("priority is already " + string(ticket.Priority))
		}
		priorityReason = strings.TrimSpace(req.Priority.Reason)
		if utf8.RuneCountInString(priorityReason) < MinReasonLength {
			return domain.TicketPatch{}, apperrors.NewUrgencyReasonTooShort("explain the priority change in at least 10 characters")
		}
		newPriority = req.Priority.Priority
		priorityChanged = true
	}

	note := strings.TrimSpace(req.Note)
	photos := nonEmpty(req.Photos)
	hasNote := note != "" || len(photos) > 0

	if !statusChanged && !assignmentChanged && !priorityChanged && !hasNote {
		return domain.TicketPatch{}, apperrors.NewNoChanges()
	}

	now := e.now().UnixMilli()
	mutationID := req.MutationID
	if mutationID == "" {
		mutationID = e.newID()
	}
	record := func(action domain.ActivityAction) domain.ActivityRecord {
		return domain.ActivityRecord{
			Action:    action,
			By:        actor.DisplayName(),
			ByEmail:   actor.Email,
			Timestamp: now,
		}
	}

	patch := domain.TicketPatch{
		MutationID:   mutationID,
		ExpectStatus: current,
		UpdatedAt:    now,
	}
	// Technicians act on their own tickets and assignments replace a known
	// assignee, so both must still hold when the patch lands.
	if actor.Role == domain.RoleTechnician || assignmentChanged {
		expected := ticket.AssignedTo
		patch.ExpectAssignedTo = &expected
	}

	if assignmentChanged {
		assignedTo, assigneeType := after.AssignedTo, after.AssigneeType
		if after.IsEmpty() {
			assigneeType = domain.AssigneeUnassigned
		}
		patch.AssignedTo = &assignedTo
		patch.AssigneeType = &assigneeType
		rec := record(domain.ActionAssignmentChange)
		rec.AssignedTo = assignedTo
		rec.AssigneeType = assigneeType
		patch.Activity = append(patch.Activity, rec)
	}

	if statusChanged {
		status := target
		patch.Status = &status
		rec := record(domain.ActionStatusChange)
		rec.OldStatus = current
		rec.NewStatus = target
		rec.Note = note
		rec.Photos = photos
		if target == domain.TicketStatusWaiting {
			reason, reasonNote := waiting.Reason, waiting.Note
			patch.WaitingReason = &reason
			patch.WaitingReasonNote = &reasonNote
			rec.WaitingReason = reason
			rec.WaitingReasonNote = reasonNote
		} else if current == domain.TicketStatusWaiting {
			cleared, clearedNote := domain.WaitingReason(""), ""
			patch.WaitingReason = &cleared
			patch.WaitingReasonNote = &clearedNote
		}
		patch.Activity = append(patch.Activity, rec)
	}

	if priorityChanged {
		patch.Priority = &newPriority
		patch.ExpectPriority = ticket.Priority
		rec := record(domain.ActionPriorityChange)
		rec.OldPriority = ticket.Priority
		rec.NewPriority = newPriority
		rec.Note = priorityReason
		patch.Activity = append(patch.Activity, rec)
	}

	if hasNote && !statusChanged {
		rec := record(domain.ActionNote)
		rec.Note = note
		rec.Photos = photos
		patch.Activity = append(patch.Activity, rec)
	}

	return patch, nil
}

func validateWaiting(input *WaitingInput) (WaitingInput, error) {
	if input == nil || input.Reason == "" {
		return WaitingInput{}, apperrors.NewInvalidWaitingReason("a waiting reason is required")
	}
	out := WaitingInput{Reason: input.Reason, Note: strings.TrimSpace(input.Note)}
	if !out.Reason.Valid() {
		return WaitingInput{}, apperrors.NewInvalidWaitingReason("unknown waiting reason " + string(out.Reason))
	}
	if out.Reason == domain.WaitingOther && utf8.RuneCountInString(out.Note) < MinReasonLength {
		return WaitingInput{}, apperrors.NewInvalidWaitingReason("describe what the ticket is waiting on in at least 10 characters")
	}
	return out, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
