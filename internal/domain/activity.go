package domain

// ActivityAction enumerates audit entry kinds.
type ActivityAction string

const (
	ActionCreated          ActivityAction = "created"
	ActionStatusChange     ActivityAction = "status_change"
	ActionPriorityChange   ActivityAction = "priority_change"
	ActionAssignmentChange ActivityAction = "assignment_change"
	ActionNote             ActivityAction = "note"
)

// ActivityRecord is an immutable audit trail entry appended to a ticket.
type ActivityRecord struct {
	Action            ActivityAction `json:"action"`
	By                string         `json:"by"`
	ByEmail           string         `json:"byEmail"`
	Timestamp         int64          `json:"timestamp"`
	OldStatus         TicketStatus   `json:"oldStatus,omitempty"`
	NewStatus         TicketStatus   `json:"newStatus,omitempty"`
	WaitingReason     WaitingReason  `json:"waitingReason,omitempty"`
	WaitingReasonNote string         `json:"waitingReasonNote,omitempty"`
	OldPriority       TicketPriority `json:"oldPriority,omitempty"`
	NewPriority       TicketPriority `json:"newPriority,omitempty"`
	AssignedTo        string         `json:"assignedTo,omitempty"`
	AssigneeType      AssigneeType   `json:"assigneeType,omitempty"`
	Note              string         `json:"note,omitempty"`
	Photos            []string       `json:"photos,omitempty"`
	MutationID        string         `json:"mutationId,omitempty"`
}

func (a *ActivityRecord) normalize() {
	if a.OldStatus != "" {
		if status, ok := NormalizeStatus(string(a.OldStatus)); ok {
			a.OldStatus = status
		}
	}
	if a.NewStatus != "" {
		if status, ok := NormalizeStatus(string(a.NewStatus)); ok {
			a.NewStatus = status
		}
	}
}

func (a ActivityRecord) clone() ActivityRecord {
	if a.Photos != nil {
		a.Photos = append([]string{}, a.Photos...)
	}
	return a
}
