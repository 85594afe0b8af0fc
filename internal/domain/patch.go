package domain

import "errors"

// ErrPatchConflict means the patch was planned against a state the ticket no longer has.
var ErrPatchConflict = errors.New("ticket changed since it was read")

// TicketPatch is one atomic multi-field update: field changes, the activity
// records explaining them, and the refreshed timestamp travel together.
type TicketPatch struct {
	MutationID     string
	ExpectStatus   TicketStatus
	ExpectPriority TicketPriority
	// ExpectAssignedTo, when set, is the assignee the patch was authorized against.
	ExpectAssignedTo *string

	Status            *TicketStatus
	Priority          *TicketPriority
	AssignedTo        *string
	AssigneeType      *AssigneeType
	WaitingReason     *WaitingReason
	WaitingReasonNote *string

	Activity  []ActivityRecord
	UpdatedAt int64
}

// Empty reports whether the patch would change nothing.
func (p TicketPatch) Empty() bool {
	return len(p.Activity) == 0
}

// Applied reports whether a patch with this mutation id is already in the log.
func (p TicketPatch) Applied(t *Ticket) bool {
	if p.MutationID == "" {
		return false
	}
	for _, record := range t.Activity {
		if record.MutationID == p.MutationID {
			return true
		}
	}
	return false
}

// Apply mutates t in place. It returns false without touching t when the patch
// was already applied, and ErrPatchConflict when a guard no longer holds.
func (p TicketPatch) Apply(t *Ticket) (bool, error) {
	if p.Applied(t) {
		return false, nil
	}
	if p.ExpectStatus != "" && t.Status != p.ExpectStatus {
		return false, ErrPatchConflict
	}
	if p.ExpectPriority != "" && t.Priority != p.ExpectPriority {
		return false, ErrPatchConflict
	}
	if p.ExpectAssignedTo != nil && !SameEmail(t.AssignedTo, *p.ExpectAssignedTo) {
		return false, ErrPatchConflict
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.AssigneeType != nil {
		t.AssigneeType = *p.AssigneeType
	}
	if p.WaitingReason != nil {
		t.WaitingReason = *p.WaitingReason
	}
	if p.WaitingReasonNote != nil {
		t.WaitingReasonNote = *p.WaitingReasonNote
	}
	for _, record := range p.Activity {
		if record.MutationID == "" {
			record.MutationID = p.MutationID
		}
		t.Activity = append(t.Activity, record.clone())
	}
	if p.UpdatedAt > t.UpdatedAt {
		t.UpdatedAt = p.UpdatedAt
	}
	return true, nil
}
