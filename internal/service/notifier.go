package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
)

// Notifier is the engine's view of the external notification collaborator.
// Calls are fire-and-forget: failures are logged downstream and never retried
// or surfaced to the caller.
type Notifier interface {
	NotifyAssignment(ctx context.Context, ticketID string, agent *domain.Agent, payload events.TicketAssignedPayload)
	NotifyEscalation(ctx context.Context, ticketID string, target *domain.Agent, payload events.TicketEscalatedPayload)
	NotifyStatusChange(ctx context.Context, ticketID string, payload events.TicketStatusChangedPayload)
	NotifyTimerBreached(ctx context.Context, ticketID string, payload events.TimerBreachedPayload)
}

// dispatcherNotifier publishes domain events; the subscribed notification
// service performs the actual delivery.
type dispatcherNotifier struct {
	dispatcher events.Dispatcher
}

// NewDispatcherNotifier wraps the event dispatcher as a Notifier.
func NewDispatcherNotifier(dispatcher events.Dispatcher) Notifier {
	return &dispatcherNotifier{dispatcher: dispatcher}
}

func (n *dispatcherNotifier) NotifyAssignment(ctx context.Context, ticketID string, agent *domain.Agent, payload events.TicketAssignedPayload) {
	n.publish(ctx, events.EventTicketAssigned, ticketID, payload)
}

func (n *dispatcherNotifier) NotifyEscalation(ctx context.Context, ticketID string, target *domain.Agent, payload events.TicketEscalatedPayload) {
	n.publish(ctx, events.EventTicketEscalated, ticketID, payload)
}

func (n *dispatcherNotifier) NotifyStatusChange(ctx context.Context, ticketID string, payload events.TicketStatusChangedPayload) {
	n.publish(ctx, events.EventTicketStatusChanged, ticketID, payload)
}

func (n *dispatcherNotifier) NotifyTimerBreached(ctx context.Context, ticketID string, payload events.TimerBreachedPayload) {
	n.publish(ctx, events.EventTimerBreached, ticketID, payload)
}

// publish hands the event off asynchronously so webhook delivery never holds
// up the request handler or sweep goroutine that raised it.
func (n *dispatcherNotifier) publish(ctx context.Context, eventType events.EventType, ticketID string, payload any) {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.PublishAsync(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     domain.EscalatedBySystem,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
