package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DossaniParadise/rm-tracker/internal/domain"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

var fixedNow = time.UnixMilli(1760000500000)

func newTestEngine(allowReopen bool) *Engine {
	return NewEngine(Options{
		AllowReopen: allowReopen,
		Now:         func() time.Time { return fixedNow },
		NewID:       func() string { return "mutation-1" },
	})
}

var (
	admin      = domain.Actor{Email: "itsupport@dossaniparadise.com", Name: "IT Support", Role: domain.RoleAdmin, Stores: domain.AllStores()}
	director   = domain.Actor{Email: "paul@dossaniparadise.com", Name: "Paul Fernandez", Role: domain.RoleDirector, Stores: domain.Stores("BK22027")}
	coach      = domain.Actor{Email: "pedro@dossaniparadise.com", Name: "Pedro Alcantar", Role: domain.RoleAreaCoach, Stores: domain.Stores("BK22027")}
	manager    = domain.Actor{Email: "bkalvord22027@dossaniparadise.com", Name: "BK Alvord Manager", Role: domain.RoleManager, Stores: domain.Stores("BK22027")}
	technician = domain.Actor{Email: "rmtech1@dossaniparadise.com", Name: "Ronny Gossett", Role: domain.RoleTechnician}
)

func ticketIn(status domain.TicketStatus) *domain.Ticket {
	t := &domain.Ticket{
		ID:           "BK22027-PLM-0001",
		StoreCode:    "BK22027",
		Category:     domain.CategoryPlumbing,
		Priority:     domain.TicketPriorityRoutine,
		Status:       status,
		AssignedTo:   "rmtech1@dossaniparadise.com",
		AssigneeType: domain.AssigneeTech,
		CreatedAt:    1760000000000,
		UpdatedAt:    1760000000000,
		Activity: []domain.ActivityRecord{
			{Action: domain.ActionCreated, By: "BK Alvord Manager", ByEmail: manager.Email, Timestamp: 1760000000000},
		},
	}
	if status == domain.TicketStatusUnassigned {
		t.AssignedTo = ""
		t.AssigneeType = domain.AssigneeUnassigned
	}
	if status == domain.TicketStatusWaiting {
		t.WaitingReason = domain.WaitingParts
	}
	return t
}

// expectedTransition restates the authorization table independently of the engine.
func expectedTransition(role domain.Role, from, to domain.TicketStatus) bool {
	if from == to {
		return true
	}
	if from == domain.TicketStatusClosed {
		return false
	}
	switch role {
	case domain.RoleAdmin, domain.RoleDirector:
		return true
	case domain.RoleAreaCoach:
		pair := string(from) + ">" + string(to)
		return pair == "waiting>inprogress" || pair == "inprogress>resolved"
	case domain.RoleTechnician:
		return from != domain.TicketStatusUnassigned && to != domain.TicketStatusUnassigned
	}
	return false
}

func TestCanTransitionMatchesTable(t *testing.T) {
	engine := newTestEngine(false)
	roles := []domain.Role{domain.RoleAdmin, domain.RoleDirector, domain.RoleAreaCoach, domain.RoleManager, domain.RoleTechnician}
	for _, role := range roles {
		for _, from := range domain.AllStatuses {
			for _, to := range domain.AllStatuses {
				assert.Equal(t, expectedTransition(role, from, to), engine.CanTransition(from, to, role),
					"%s: %s -> %s", role, from, to)
			}
		}
	}
}

func TestReopenOption(t *testing.T) {
	engine := newTestEngine(true)
	assert.True(t, engine.CanTransition(domain.TicketStatusClosed, domain.TicketStatusInProgress, domain.RoleAdmin))
	assert.True(t, engine.CanTransition(domain.TicketStatusClosed, domain.TicketStatusAssigned, domain.RoleDirector))
	assert.False(t, engine.CanTransition(domain.TicketStatusClosed, domain.TicketStatusInProgress, domain.RoleTechnician))
	assert.False(t, newTestEngine(false).CanTransition(domain.TicketStatusClosed, domain.TicketStatusInProgress, domain.RoleAdmin))
}

func TestCapabilityPredicates(t *testing.T) {
	assert.True(t, CanEditUrgency(domain.RoleManager))
	assert.True(t, CanEditUrgency(domain.RoleAreaCoach))
	assert.False(t, CanEditUrgency(domain.RoleTechnician))

	assert.True(t, CanAssign(domain.RoleAdmin))
	assert.True(t, CanAssign(domain.RoleDirector))
	assert.True(t, CanAssign(domain.RoleAreaCoach))
	assert.False(t, CanAssign(domain.RoleManager))
	assert.False(t, CanAssign(domain.RoleTechnician))
}

func TestPlanForbiddenTransitions(t *testing.T) {
	engine := newTestEngine(false)
	for _, tc := range []struct {
		name   string
		actor  domain.Actor
		from   domain.TicketStatus
		target domain.TicketStatus
	}{
		{"manager cannot move anything", manager, domain.TicketStatusAssigned, domain.TicketStatusInProgress},
		{"technician cannot hand off", technician, domain.TicketStatusUnassigned, domain.TicketStatusAssigned},
		{"area coach cannot assign by status", coach, domain.TicketStatusUnassigned, domain.TicketStatusAssigned},
		{"area coach cannot skip to resolved", coach, domain.TicketStatusUnassigned, domain.TicketStatusResolved},
		{"closed is terminal", admin, domain.TicketStatusClosed, domain.TicketStatusInProgress},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ticket := ticketIn(tc.from)
			_, err := engine.Plan(ticket, tc.actor, Request{Target: tc.target, Note: "please look at this today"})
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeForbiddenTransition))
			assert.Len(t, ticket.Activity, 1)
		})
	}
}

func TestAreaCoachResumesWaitingTicket(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusWaiting)
	patch, err := newTestEngine(false).Plan(ticket, coach, Request{Target: domain.TicketStatusInProgress})
	require.NoError(t, err)

	applied, err := patch.Apply(ticket)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Empty(t, ticket.WaitingReason)
	assert.Empty(t, ticket.WaitingReasonNote)
}

func TestTechnicianWaitsForParts(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusInProgress)
	patch, err := newTestEngine(false).Plan(ticket, technician, Request{
		Target:  domain.TicketStatusWaiting,
		Waiting: &WaitingInput{Reason: domain.WaitingParts},
	})
	require.NoError(t, err)

	_, err = patch.Apply(ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaiting, ticket.Status)
	assert.Equal(t, domain.WaitingParts, ticket.WaitingReason)
	assert.Equal(t, "", ticket.WaitingReasonNote)

	last := ticket.Activity[len(ticket.Activity)-1]
	assert.Equal(t, domain.ActionStatusChange, last.Action)
	assert.Equal(t, domain.TicketStatusInProgress, last.OldStatus)
	assert.Equal(t, domain.TicketStatusWaiting, last.NewStatus)
	assert.Equal(t, domain.WaitingParts, last.WaitingReason)
	assert.Equal(t, "Ronny Gossett", last.By)
	assert.Equal(t, fixedNow.UnixMilli(), last.Timestamp)
	assert.Equal(t, "mutation-1", last.MutationID)
	assert.Equal(t, fixedNow.UnixMilli(), ticket.UpdatedAt)
}

func TestWaitingReasonValidation(t *testing.T) {
	engine := newTestEngine(false)
	for _, tc := range []struct {
		name    string
		waiting *WaitingInput
	}{
		{"missing payload", nil},
		{"unknown reason", &WaitingInput{Reason: "weather"}},
		{"other with short note", &WaitingInput{Reason: domain.WaitingOther, Note: "later"}},
		{"other with padded short note", &WaitingInput{Reason: domain.WaitingOther, Note: "   later     "}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ticket := ticketIn(domain.TicketStatusInProgress)
			_, err := engine.Plan(ticket, technician, Request{Target: domain.TicketStatusWaiting, Waiting: tc.waiting})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidWaitingReason))
			assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
			assert.Len(t, ticket.Activity, 1)
		})
	}

	ticket := ticketIn(domain.TicketStatusInProgress)
	patch, err := engine.Plan(ticket, technician, Request{
		Target:  domain.TicketStatusWaiting,
		Waiting: &WaitingInput{Reason: domain.WaitingOther, Note: "landlord approval"},
	})
	require.NoError(t, err)
	require.NotNil(t, patch.WaitingReasonNote)
	assert.Equal(t, "landlord approval", *patch.WaitingReasonNote)
}

func TestAssignedRequiresAssignee(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusUnassigned)
	_, err := newTestEngine(false).Plan(ticket, admin, Request{Target: domain.TicketStatusAssigned})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAssignmentRequired))
}

func TestAssigningFromUnassignedAdvancesStatus(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusUnassigned)
	patch, err := newTestEngine(false).Plan(ticket, admin, Request{
		Assignment: &domain.Assignment{AssignedTo: "Acme Plumbing", AssigneeType: domain.AssigneeVendor},
	})
	require.NoError(t, err)

	_, err = patch.Apply(ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, domain.AssigneeVendor, ticket.AssigneeType)
	assert.Equal(t, "Acme Plumbing", ticket.AssignedTo)

	require.Len(t, ticket.Activity, 3)
	assert.Equal(t, domain.ActionAssignmentChange, ticket.Activity[1].Action)
	assert.Equal(t, "Acme Plumbing", ticket.Activity[1].AssignedTo)
	assert.Equal(t, domain.ActionStatusChange, ticket.Activity[2].Action)
	assert.Equal(t, domain.TicketStatusAssigned, ticket.Activity[2].NewStatus)
}

func TestClearingAssigneeReturnsToUnassigned(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusAssigned)
	patch, err := newTestEngine(false).Plan(ticket, director, Request{Assignment: &domain.Assignment{}})
	require.NoError(t, err)

	_, err = patch.Apply(ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnassigned, ticket.Status)
	assert.Equal(t, "", ticket.AssignedTo)
	assert.Equal(t, domain.AssigneeUnassigned, ticket.AssigneeType)
}

func TestClearingAssigneeOfActiveTicketFails(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusInProgress)
	_, err := newTestEngine(false).Plan(ticket, admin, Request{Assignment: &domain.Assignment{}})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAssignmentRequired))
}

func TestAdminMovingToUnassignedClearsAssignee(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusInProgress)
	patch, err := newTestEngine(false).Plan(ticket, admin, Request{Target: domain.TicketStatusUnassigned})
	require.NoError(t, err)

	_, err = patch.Apply(ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnassigned, ticket.Status)
	assert.Equal(t, domain.AssigneeUnassigned, ticket.AssigneeType)
	require.Len(t, ticket.Activity, 3)
	assert.Equal(t, domain.ActionAssignmentChange, ticket.Activity[1].Action)
}

func TestNonAssignersCannotReassign(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusAssigned)
	_, err := newTestEngine(false).Plan(ticket, manager, Request{
		Assignment: &domain.Assignment{AssignedTo: "rmtech3@dossaniparadise.com", AssigneeType: domain.AssigneeTech},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestSameAssigneeIsNotAChange(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusAssigned)
	_, err := newTestEngine(false).Plan(ticket, manager, Request{
		Assignment: &domain.Assignment{AssignedTo: "RMTech1@dossaniparadise.com", AssigneeType: domain.AssigneeTech},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoChanges))
}

func TestNoChanges(t *testing.T) {
	engine := newTestEngine(false)
	for _, status := range domain.AllStatuses {
		for _, actor := range []domain.Actor{admin, coach, manager, technician} {
			ticket := ticketIn(status)
			_, err := engine.Plan(ticket, actor, Request{Target: status, Note: "   "})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeNoChanges), "%s %s", actor.Role, status)
			assert.True(t, apperrors.ToDomainError(err).Warning)
			assert.Len(t, ticket.Activity, 1)
		}
	}
}

func TestNoteOnly(t *testing.T) {
	ticket := ticketIn(domain.TicketStatusAssigned)
	patch, err := newTestEngine(false).Plan(ticket, manager, Request{Note: "Still dripping", Photos: []string{"data:image/png;base64,AAAA", ""}})
	require.NoError(t, err)
	assert.Nil(t, patch.Status)

	_, err = patch.Apply(ticket)
	require.NoError(t, err)
	require.Len(t, ticket.Activity, 2)
	assert.Equal(t, domain.ActionNote, ticket.Activity[1].Action)
	assert.Equal(t, "Still dripping", ticket.Activity[1].Note)
	assert.Equal(t, []string{"data:image/png;base64,AAAA"}, ticket.Activity[1].Photos)
}

func TestPriorityChange(t *testing.T) {
	engine := newTestEngine(false)

	t.Run("technician cannot", func(t *testing.T) {
		_, err := engine.Plan(ticketIn(domain.TicketStatusInProgress), technician, Request{
			Priority: &PriorityInput{Priority: domain.TicketPriorityEmergency, Reason: "water everywhere now"},
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("reason too short", func(t *testing.T) {
		_, err := engine.Plan(ticketIn(domain.TicketStatusInProgress), manager, Request{
			Priority: &PriorityInput{Priority: domain.TicketPriorityEmergency, Reason: "  flood  "},
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUrgencyReasonTooShort))
	})

	t.Run("unchanged priority", func(t *testing.T) {
		_, err := engine.Plan(ticketIn(domain.TicketStatusInProgress), manager, Request{
			Priority: &PriorityInput{Priority: domain.TicketPriorityRoutine, Reason: "it is still routine"},
		})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUrgencyReasonTooShort))
	})

	t.Run("combined with status change", func(t *testing.T) {
		ticket := ticketIn(domain.TicketStatusWaiting)
		patch, err := engine.Plan(ticket, coach, Request{
			Target:   domain.TicketStatusInProgress,
			Note:     "parts arrived",
			Priority: &PriorityInput{Priority: domain.TicketPriorityUrgent, Reason: "lunch rush tomorrow"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityRoutine, patch.ExpectPriority)

		_, err = patch.Apply(ticket)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
		assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
		require.Len(t, ticket.Activity, 3)
		assert.Equal(t, domain.ActionStatusChange, ticket.Activity[1].Action)
		assert.Equal(t, "parts arrived", ticket.Activity[1].Note)
		assert.Equal(t, domain.ActionPriorityChange, ticket.Activity[2].Action)
		assert.Equal(t, domain.TicketPriorityRoutine, ticket.Activity[2].OldPriority)
		assert.Equal(t, "lunch rush tomorrow", ticket.Activity[2].Note)
	})
}

func TestEveryStatusChangeHasOneRecord(t *testing.T) {
	engine := newTestEngine(false)
	ticket := ticketIn(domain.TicketStatusUnassigned)
	steps := []Request{
		{Assignment: &domain.Assignment{AssignedTo: "rmtech1@dossaniparadise.com", AssigneeType: domain.AssigneeTech}},
		{Target: domain.TicketStatusInProgress},
		{Target: domain.TicketStatusWaiting, Waiting: &WaitingInput{Reason: domain.WaitingVendor}},
		{Target: domain.TicketStatusInProgress},
		{Target: domain.TicketStatusResolved, Note: "replaced trap"},
		{Target: domain.TicketStatusClosed},
	}
	statuses := []domain.TicketStatus{domain.TicketStatusUnassigned}
	for i, step := range steps {
		step.MutationID = string(rune('a' + i))
		patch, err := engine.Plan(ticket, admin, step)
		require.NoError(t, err)
		_, err = patch.Apply(ticket)
		require.NoError(t, err)
		statuses = append(statuses, ticket.Status)
	}

	var changes []domain.ActivityRecord
	for _, record := range ticket.Activity {
		if record.Action == domain.ActionStatusChange {
			changes = append(changes, record)
		}
	}
	require.Len(t, changes, len(steps))
	for i, change := range changes {
		assert.Equal(t, statuses[i], change.OldStatus)
		assert.Equal(t, statuses[i+1], change.NewStatus)
	}
}

func TestPlanPinsAssigneeForTechniciansAndReassignments(t *testing.T) {
	engine := newTestEngine(false)

	patch, err := engine.Plan(ticketIn(domain.TicketStatusInProgress), technician, Request{Target: domain.TicketStatusResolved})
	require.NoError(t, err)
	require.NotNil(t, patch.ExpectAssignedTo)
	assert.Equal(t, "rmtech1@dossaniparadise.com", *patch.ExpectAssignedTo)

	patch, err = engine.Plan(ticketIn(domain.TicketStatusInProgress), admin, Request{
		Assignment: &domain.Assignment{AssignedTo: "rmtech2@dossaniparadise.com", AssigneeType: domain.AssigneeTech},
	})
	require.NoError(t, err)
	require.NotNil(t, patch.ExpectAssignedTo)
	assert.Equal(t, "rmtech1@dossaniparadise.com", *patch.ExpectAssignedTo)

	patch, err = engine.Plan(ticketIn(domain.TicketStatusInProgress), admin, Request{Target: domain.TicketStatusResolved})
	require.NoError(t, err)
	assert.Nil(t, patch.ExpectAssignedTo)
}
