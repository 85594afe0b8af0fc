package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DossaniParadise/rm-tracker/internal/config"
	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/events"
	"github.com/DossaniParadise/rm-tracker/internal/projector"
)

func TestWorkloadCoversActorScope(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	admin := f.actor(t, "itsupport@dossaniparadise.com")

	input := plumbingInput()
	input.Priority = domain.TicketPriorityEmergency
	_, err := f.tickets.CreateTicket(context.Background(), manager, input)
	require.NoError(t, err)

	mine, err := f.workload.Workload(context.Background(), manager)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "BK22027", mine[0].Store.Code)
	assert.Equal(t, 1, mine[0].Counts.Open)
	assert.True(t, mine[0].Counts.HasEmergency)
	assert.Equal(t, projector.MarkerRed, mine[0].Marker.Color)

	all, err := f.workload.Workload(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, len(f.dir.Stores()))
}

func TestNotificationsIncludeRoutedCategories(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")
	director := f.actor(t, "armaan@dossaniparadise.com")
	coach := f.actor(t, "dane@dossaniparadise.com")

	input := plumbingInput()
	input.Category = domain.CategorySafety
	safety, err := f.tickets.CreateTicket(context.Background(), manager, input)
	require.NoError(t, err)
	_, err = f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)

	list, err := f.workload.Notifications(context.Background(), director)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.workload.Notifications(context.Background(), coach)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.workload.Notifications(context.Background(), manager)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, safety.ID, list[1].ID)
}

func TestWatchNotificationsDeliversChanges(t *testing.T) {
	f := newFixture(t)
	manager := f.actor(t, "bkalvord22027@dossaniparadise.com")

	var mu sync.Mutex
	var deliveries [][]*domain.Ticket
	sub, err := f.workload.WatchNotifications(context.Background(), manager, func(tickets []*domain.Ticket) {
		mu.Lock()
		defer mu.Unlock()
		deliveries = append(deliveries, tickets)
	})
	require.NoError(t, err)

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(deliveries)
	}
	require.Eventually(t, func() bool { return count() == 1 }, time.Second, 5*time.Millisecond)

	created, err := f.tickets.CreateTicket(context.Background(), manager, plumbingInput())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return count() == 2 }, time.Second, 5*time.Millisecond)

	// A ticket outside the manager's scope changes nothing they see.
	input := plumbingInput()
	input.StoreCode = "BK27082"
	_, err = f.tickets.CreateTicket(context.Background(), f.actor(t, "bkalliance27082@dossaniparadise.com"), input)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, count())

	sub.Unsubscribe()
	sub.Unsubscribe()
	_, err = f.tickets.UpdateTicket(context.Background(), manager, created.ID, TicketUpdateInput{Note: "still leaking"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, count())

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, deliveries[0])
	require.Len(t, deliveries[1], 1)
	assert.Equal(t, created.ID, deliveries[1][0].ID)
}

func TestNotificationRecipients(t *testing.T) {
	routing := domain.NotifyRouting{
		domain.CategorySafety: {"armaan@dossaniparadise.com", "ARMAAN@dossaniparadise.com", ""},
	}
	n := NewNotificationService(nil, routing, nil, config.NotificationConfig{})

	event := events.Event{
		Category:     domain.CategorySafety,
		Assignee:     "rmtech1@dossaniparadise.com",
		AssigneeType: domain.AssigneeTech,
		Actor:        events.Actor{Email: "bkalvord22027@dossaniparadise.com"},
	}
	assert.Equal(t, []string{"armaan@dossaniparadise.com", "rmtech1@dossaniparadise.com"}, n.Recipients(event))

	event.Actor.Email = "RMTECH1@dossaniparadise.com"
	assert.Equal(t, []string{"armaan@dossaniparadise.com"}, n.Recipients(event))

	event.AssigneeType = domain.AssigneeVendor
	event.Assignee = "Acme Plumbing"
	event.Category = domain.CategoryPlumbing
	assert.Empty(t, n.Recipients(event))
}

func TestNotificationServiceHandlesPublishedEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher()
	n := NewNotificationService(dispatcher, domain.NotifyRouting{
		domain.CategoryIT: {"itsupport@dossaniparadise.com"},
	}, zap.New(core), config.NotificationConfig{EmailFrom: "rm@dossaniparadise.com"})
	n.RegisterHandlers()

	event := events.Event{
		Type:     events.EventTicketNoteAdded,
		TicketID: "BK22027-IT-0001",
		Category: domain.CategoryIT,
		Actor:    events.Actor{Email: "bkalvord22027@dossaniparadise.com"},
	}
	require.NoError(t, dispatcher.Publish(context.Background(), event))

	emails := logs.FilterMessage("sendEmailNotificationStub").All()
	require.Len(t, emails, 1)
	assert.Equal(t, "BK22027-IT-0001", emails[0].ContextMap()["ticket_id"])

	n.Close()
	require.NoError(t, dispatcher.Publish(context.Background(), event))
	assert.Len(t, logs.FilterMessage("sendEmailNotificationStub").All(), 1)
}
