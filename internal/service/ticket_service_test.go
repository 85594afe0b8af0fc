package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DossaniParadise/rm-tracker/internal/assignment"
	"github.com/DossaniParadise/rm-tracker/internal/directory"
	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/events"
	"github.com/DossaniParadise/rm-tracker/internal/lifecycle"
	"github.com/DossaniParadise/rm-tracker/internal/repository"
	apperrors "github.com/DossaniParadise/rm-tracker/pkg/util/errorutil"
)

type fixture struct {
	dir        *directory.Directory
	store      *repository.MemoryTicketStore
	dispatcher events.Dispatcher
	tickets    *TicketService
	assign     *AssignmentService
	workload   *WorkloadService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir, err := directory.Load("")
	require.NoError(t, err)

	vendors := repository.NewMemoryVendorRepository()
	require.NoError(t, vendors.Seed(context.Background(), dir.SeedVendors()))

	store := repository.NewMemoryTicketStore(nil, nil)
	dispatcher := events.NewInMemoryDispatcher()
	resolver := assignment.NewResolver(dir.Zones(), dir.Technicians())
	clock := time.UnixMilli(1760000000000)

	tickets := NewTicketService(TicketDependencies{
		TicketStore:  store,
		CounterStore: repository.NewMemoryCounterStore(),
		VendorRepo:   vendors,
		Stores:       dir,
		Engine:       lifecycle.NewEngine(lifecycle.Options{}),
		Resolver:     resolver,
		Dispatcher:   dispatcher,
		Now:          func() time.Time { return clock },
	})
	return &fixture{
		dir:        dir,
		store:      store,
		dispatcher: dispatcher,
		tickets:    tickets,
		assign: NewAssignmentService(AssignmentDependencies{
			TicketService: tickets,
			Resolver:      resolver,
			VendorRepo:    vendors,
			Stores:        dir,
			VendorEditors: dir.VendorEditors(),
		}),
		workload: NewWorkloadService(WorkloadDependencies{
			TicketStore: store,
			Stores:      dir,
			Routing:     dir.NotifyRouting(),
		}),
	}
}

func (f *fixture) actor(t *testing.T, email string) domain.Actor {
	t.Helper()
	actor, ok := f.dir.Actor(email)
	require.True(t, ok, "unknown user %s", email)
	return actor
}

func plumbingInput() TicketCreateInput {
	return TicketCreateInput{
		StoreCode:   "BK22027",
		Category:    domain.CategoryPlumbing,
		Location:    domain.LocationInterior,
		Priority:    domain.TicketPriorityUrgent,
		Description: "Mop sink is backing up",
		ContactName: "Shift lead",
	}
}

func TestCreateTicketAllocatesSequentialIDs(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")

	first, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)
	second, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)

	assert.Equal(t, "BK22027-PLM-0001", first.ID)
	assert.Equal(t, "BK22027-PLM-0002", second.ID)
	assert.Equal(t, domain.TicketStatusUnassigned, first.Status)
	assert.Equal(t, "Burger King Alvord 22027", first.StoreName)
	require.Len(t, first.Activity, 1)
	assert.Equal(t, domain.ActionCreated, first.Activity[0].Action)
	assert.Equal(t, "Ticket created", first.Activity[0].Note)
	assert.Equal(t, manager.Email, first.CreatedBy)
}

func TestCreateTicketConcurrentIDsAreUnique(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")

	const n = 25
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
			if err == nil {
				ids <- ticket.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("BK22027-PLM-%04d", i)])
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")

	input := plumbingInput()
	input.Category = "roofing"
	input.Description = "  "
	_, err := f.tickets.CreateTicket(context.Background(), manager, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	input = plumbingInput()
	input.StoreCode = "BK27082"
	_, err = f.tickets.CreateTicket(context.Background(), manager, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	input = plumbingInput()
	input.StoreCode = "NOPE"
	_, err = f.tickets.CreateTicket(context.Background(), manager, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCreateTicketDefaultsToRoutine(t *testing.T) {
	f := newFixture(t)
	input := plumbingInput()
	input.Priority = ""

	ticket, err := f.tickets.CreateTicket(context.Background(), f.actor(t, "bkalvord22027@dossaniparadise.com"), input)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityRoutine, ticket.Priority)
}

func TestCreateTicketWithAssignee(t *testing.T) {
	f := newFixture(t)
	director := f.actor(t, "paul@dossaniparadise.com")

	input := plumbingInput()
	input.Assignee = "tech:RMTECH1@dossaniparadise.com"
	ticket, err := f.tickets.CreateTicket(context.Background(), director, input)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, "rmtech1@dossaniparadise.com", ticket.AssignedTo)
	assert.Equal(t, domain.AssigneeTech, ticket.AssigneeType)
	assert.Greater(t, len(ticket.Activity), 1)

	// Area coaches cannot take a ticket out of the unassigned queue.
	_, err = f.tickets.CreateTicket(context.Background(), f.actor(t, "pedro@dossaniparadise.com"), input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbiddenTransition))
}

func TestCreateTicketRejectsWrongZoneWithoutBurningNumbers(t *testing.T) {
	f := newFixture(t)
	director := f.actor(t, "paul@dossaniparadise.com")

	input := plumbingInput()
	input.Assignee = "tech:rmtech2@dossaniparadise.com"
	_, err := f.tickets.CreateTicket(context.Background(), director, input)
	require.True(t, apperrors.HasCode(err, apperrors.CodeInvalidAssignee))

	ticket, err := f.tickets.CreateTicket(context.Background(), director, plumbingInput())
	require.NoError(t, err)
	assert.Equal(t, "BK22027-PLM-0001", ticket.ID)
}

func TestAssignTicketToVendor(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	director := f.actor(t, "paul@dossaniparadise.com")

	created, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)

	updated, err := f.assign.AssignTicket(context.Background(), director, created.ID, "vendor:acme plumbing", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, updated.Status)
	assert.Equal(t, "Acme Plumbing", updated.AssignedTo)
	assert.Equal(t, domain.AssigneeVendor, updated.AssigneeType)

	var actions []domain.ActivityAction
	for _, record := range updated.Activity {
		actions = append(actions, record.Action)
	}
	assert.Equal(t, []domain.ActivityAction{domain.ActionCreated, domain.ActionAssignmentChange, domain.ActionStatusChange}, actions)
}

func TestAssignTicketRequiresAssignerRole(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	created, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)

	_, err = f.assign.AssignTicket(context.Background(), manager, created.ID, "tech:rmtech1@dossaniparadise.com", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.assign.AssignTicket(context.Background(), f.actor(t, "itsupport@dossaniparadise.com"), created.ID, "vendor:Nobody Inc", "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidAssignee))
}

func TestTechnicianSeesOnlyAssignedTickets(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	admin := f.actor(t, "itsupport@dossaniparadise.com")
	tech := f.actor(t, "rmtech1@dossaniparadise.com")

	mine, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)
	other, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)
	_, err = f.assign.AssignTicket(context.Background(), admin, mine.ID, "tech:rmtech1@dossaniparadise.com", "")
	require.NoError(t, err)

	list, err := f.tickets.ListTickets(context.Background(), tech, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = f.tickets.GetTicket(context.Background(), tech, other.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	updated, err := f.tickets.UpdateTicket(context.Background(), tech, mine.ID, TicketUpdateInput{Status: domain.TicketStatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestListTicketsRespectsStoreScope(t *testing.T) {
	f := newFixture(t)
	alvord := f.actor(t, "bkalvord22027@dossaniparadise.com")
	alliance := f.actor(t, "bkalliance27082@dossaniparadise.com")

	_, err := f.tickets.CreateTicket(context.Background(), alvord, plumbingInput())
	require.NoError(t, err)
	input := plumbingInput()
	input.StoreCode = "BK27082"
	_, err = f.tickets.CreateTicket(context.Background(), alliance, input)
	require.NoError(t, err)

	list, err := f.tickets.ListTickets(context.Background(), alvord, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "BK22027", list[0].StoreCode)

	_, err = f.tickets.ListTickets(context.Background(), alvord, "BK27082")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	all, err := f.tickets.ListTickets(context.Background(), f.actor(t, "armaan@dossaniparadise.com"), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdateTicketRetryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	created, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)

	input := TicketUpdateInput{MutationID: "m-1", Note: "Plunger did not help"}
	first, err := f.tickets.UpdateTicket(context.Background(), manager, created.ID, input)
	require.NoError(t, err)
	second, err := f.tickets.UpdateTicket(context.Background(), manager, created.ID, input)
	require.NoError(t, err)

	assert.Len(t, first.Activity, 2)
	assert.Equal(t, first.Activity, second.Activity)
}

func TestUpdateTicketNoChanges(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	created, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)

	_, err = f.tickets.UpdateTicket(context.Background(), manager, created.ID, TicketUpdateInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoChanges))
}

func TestUpdateTicketPublishesEvents(t *testing.T) {
	f := newFixture(t)
	var mu sync.Mutex
	var got []events.EventType
	for _, eventType := range events.AllEventTypes {
		f.dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, event.Type)
			return nil
		})
	}

	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	admin := f.actor(t, "itsupport@dossaniparadise.com")
	created, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)
	_, err = f.tickets.UpdateTicket(context.Background(), admin, created.ID, TicketUpdateInput{
		Priority:       domain.TicketPriorityEmergency,
		PriorityReason: "Water on the kitchen floor",
		Note:           "Calling it in",
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []events.EventType{
		events.EventTicketCreated,
		events.EventTicketPriorityChanged,
		events.EventTicketNoteAdded,
	}, got)
}

func TestEligibleAssignees(t *testing.T) {
	f := newFixture(t)
	coach := f.actor(t, "dane@dossaniparadise.com")

	assignees, err := f.assign.EligibleAssignees(context.Background(), coach, "BK02390", domain.CategoryIT)
	require.NoError(t, err)
	assert.Equal(t, domain.ZoneEast, assignees.Zone)
	require.Len(t, assignees.Technicians, 1)
	assert.Equal(t, "rmtech2@dossaniparadise.com", assignees.Technicians[0].Email)
	require.NotEmpty(t, assignees.Vendors)
	assert.Equal(t, "Lone Star IT", assignees.Vendors[0].Name)
	assert.True(t, assignees.CanAssign)
	assert.False(t, assignees.CanManageVendors)

	_, err = f.assign.EligibleAssignees(context.Background(), coach, "BK22027", domain.CategoryIT)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}
