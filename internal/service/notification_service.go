package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/DossaniParadise/rm-tracker/internal/config"
	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/events"
)

// NotificationService fans ticket events out to the people who follow them.
type NotificationService struct {
	dispatcher events.Dispatcher
	routing    domain.NotifyRouting
	logger     *zap.Logger
	cfg        config.NotificationConfig

	mu           sync.Mutex
	unsubscribes []func()
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, routing domain.NotifyRouting, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		routing:    routing,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unsubscribes = append(n.unsubscribes,
		n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated),
		n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged),
		n.dispatcher.Subscribe(events.EventTicketPriorityChanged, n.handleTicketPriorityChanged),
		n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned),
		n.dispatcher.Subscribe(events.EventTicketNoteAdded, n.handleTicketNoteAdded),
	)
}

// Close removes every registered handler.
func (n *NotificationService) Close() {
	n.mu.Lock()
	unsubscribes := n.unsubscribes
	n.unsubscribes = nil
	n.mu.Unlock()
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
}

// Recipients returns who should hear about event: the emails routed for the
// ticket's category plus the assigned technician, minus the actor who caused it.
func (n *NotificationService) Recipients(event events.Event) []string {
	candidates := n.routing.Recipients(event.Category)
	if event.AssigneeType == domain.AssigneeTech && event.Assignee != "" {
		candidates = append(candidates, event.Assignee)
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, email := range candidates {
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" || domain.SameEmail(key, event.Actor.Email) {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, email)
	}
	return out
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketPriorityChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketPriorityChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketNoteAdded(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketNoteAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	recipients := n.Recipients(event)
	if len(recipients) == 0 {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.Strings("to", recipients),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
