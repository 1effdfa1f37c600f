package adapter

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

type WatermillEventBus[E domain.Event[D], D any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[string][]application.EventHandler[E, D]
	mu         sync.RWMutex
	logger     application.AppLogger
	deliveries *deliveries
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewWatermillEventBus[E domain.Event[D], D any](publisher message.Publisher, subscriber message.Subscriber, logger application.AppLogger) *WatermillEventBus[E, D] {
	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillEventBus[E, D]{
		publisher:  publisher,
		subscriber: subscriber,
		handlers:   make(map[string][]application.EventHandler[E, D]),
		logger:     logger,
		deliveries: newDeliveries(DefaultMaxDeliveries),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RegisterHandler subscribes to the event topic on the first handler for
// that event; later handlers join the same subscription.
func (bus *WatermillEventBus[E, D]) RegisterHandler(eventName string, handler application.EventHandler[E, D]) {
	bus.mu.Lock()
	first := len(bus.handlers[eventName]) == 0
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	bus.mu.Unlock()

	if !first {
		return
	}

	messages, err := bus.subscriber.Subscribe(bus.ctx, eventName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return
	}

	go func() {
		for msg := range messages {
			bus.handle(eventName, msg)
		}
	}()
}

func (bus *WatermillEventBus[E, D]) handle(eventName string, msg *message.Message) {
	ctx := contextFromMessage(bus.ctx, msg)

	payload, err := application.UnmarshalPayload[D](msg.Payload)
	if err != nil {
		application.LogError(ctx, bus.logger, "error unmarshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		msg.Ack()
		return
	}

	event, ok := interface{}(&dynamicEvent[D]{eventName: eventName, payload: payload}).(E)
	if !ok {
		application.LogError(ctx, bus.logger, "error casting event", nil, map[string]interface{}{
			"event_name": eventName,
		})
		msg.Ack()
		return
	}

	bus.mu.RLock()
	handlers := append([]application.EventHandler[E, D](nil), bus.handlers[eventName]...)
	bus.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	err = joinHandlerErrors(errs)
	fields := map[string]interface{}{
		"event_name":   eventName,
		"message_uuid": msg.UUID,
	}
	dropped := bus.deliveries.settle(msg, err)
	switch {
	case err == nil:
		application.LogDebug(ctx, bus.logger, "event handled", fields)
	case dropped:
		application.LogError(ctx, bus.logger, "event dropped", err, fields)
	default:
		application.LogWarn(ctx, bus.logger, "error handling event, redelivering", err, fields)
	}
}

// joinHandlerErrors is permanent only when every failing handler said so;
// a redelivery reruns all handlers of the event.
func joinHandlerErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	joined := errors.Join(errs...)
	for _, err := range errs {
		if !application.IsPermanent(err) {
			// keep the text only, so the permanent ones do not mark the whole set
			return errors.New(joined.Error())
		}
	}
	return application.Permanent(joined)
}

func (bus *WatermillEventBus[E, D]) Publish(ctx context.Context, event E) error {
	eventName := event.EventName()

	payload, err := application.MarshalPayload(event.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	msg := newMessage(ctx, payload)
	if err := bus.publisher.Publish(eventName, msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	application.LogInfo(ctx, bus.logger, "event published", map[string]interface{}{
		"event_name":   eventName,
		"message_uuid": msg.UUID,
	})
	return nil
}

func (bus *WatermillEventBus[E, D]) Close() {
	bus.cancel()
}

type dynamicEvent[D any] struct {
	eventName string
	payload   D
}

func (e *dynamicEvent[D]) EventName() string {
	return e.eventName
}

func (e *dynamicEvent[D]) Payload() D {
	return e.payload
}
