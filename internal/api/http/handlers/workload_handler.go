package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/DossaniParadise/rm-tracker/internal/api/dto"
	"github.com/DossaniParadise/rm-tracker/internal/domain"
	"github.com/DossaniParadise/rm-tracker/internal/observability"
	"github.com/DossaniParadise/rm-tracker/internal/service"
)

const defaultHeartbeat = 25 * time.Second

// WorkloadHandler serves the map dashboard and the notification centre.
type WorkloadHandler struct {
	workload  *service.WorkloadService
	metrics   *observability.Metrics
	logger    *zap.Logger
	base      context.Context
	heartbeat time.Duration
}

// NewWorkloadHandler constructs handler. Open notification streams end when
// base is cancelled, so pass the server's shutdown context.
func NewWorkloadHandler(base context.Context, workload *service.WorkloadService, metrics *observability.Metrics, logger *zap.Logger) *WorkloadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadHandler{
		workload:  workload,
		metrics:   metrics,
		logger:    logger,
		base:      base,
		heartbeat: defaultHeartbeat,
	}
}

// Workload GET /api/workload.
func (h *WorkloadHandler) Workload(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	stores, err := h.workload.Workload(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stores})
}

// Notifications GET /api/notifications.
func (h *WorkloadHandler) Notifications(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	tickets, err := h.workload.Notifications(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketSummaries(tickets)})
}

// NotificationStream GET /api/notifications/stream. Sends the notification
// list as server-sent events whenever it changes.
func (h *WorkloadHandler) NotificationStream(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		h.stream(h.base, w, actor)
	}))
	return nil
}

// stream writes snapshots until ctx ends or the client goes away.
func (h *WorkloadHandler) stream(ctx context.Context, w *bufio.Writer, actor domain.Actor) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan []*domain.Ticket, 1)
	sub, err := h.workload.WatchNotifications(ctx, actor, func(tickets []*domain.Ticket) {
		// Keep only the newest snapshot for slow clients.
		for {
			select {
			case updates <- tickets:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	if err != nil {
		h.logger.Warn("notification stream subscribe failed", zap.String("actor", actor.Email), zap.Error(err))
		_ = writeEvent(w, "error", map[string]string{"message": "subscription unavailable"})
		return
	}
	defer sub.Unsubscribe()

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()
	h.logger.Debug("notification stream opened", zap.String("actor", actor.Email))

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case tickets := <-updates:
			if err := writeEvent(w, "notifications", dto.TicketSummaries(tickets)); err != nil {
				h.logger.Debug("notification stream closed", zap.String("actor", actor.Email), zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := w.WriteString(": ping\n\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				h.logger.Debug("notification stream closed", zap.String("actor", actor.Email), zap.Error(err))
				return
			}
		}
	}
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
