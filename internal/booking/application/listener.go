package application

import (
	"context"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
)

// EventPublisher turns committed booking transitions into bus events. A
// failed publish is logged and never undoes the transition.
type EventPublisher struct {
	eventBus pkgApp.EventBus[pkgDomain.Event[BookingEventData], BookingEventData]
	logger   pkgApp.AppLogger
}

func NewEventPublisher(eventBus pkgApp.EventBus[pkgDomain.Event[BookingEventData], BookingEventData], logger pkgApp.AppLogger) *EventPublisher {
	return &EventPublisher{eventBus: eventBus, logger: logger}
}

func (p *EventPublisher) BookingCreated(ctx context.Context, booking domain.Booking) {
	p.publish(ctx, NewBookingCreatedEvent(NewBookingEventData(booking)))
}

func (p *EventPublisher) BookingPaid(ctx context.Context, booking domain.Booking) {
	p.publish(ctx, NewBookingPaidEvent(NewBookingEventData(booking)))
}

func (p *EventPublisher) publish(ctx context.Context, event pkgDomain.Event[BookingEventData]) {
	if err := p.eventBus.Publish(ctx, event); err != nil {
		pkgApp.LogError(ctx, p.logger, "error publishing booking event", err, map[string]interface{}{
			"event_name": event.EventName(),
			"code":       event.Payload().Code,
		})
	}
}
