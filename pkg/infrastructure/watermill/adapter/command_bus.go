package adapter

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

// WatermillCommandBus carries commands as JSON messages on a topic named
// after the command. Any watermill Publisher/Subscriber pair works.
type WatermillCommandBus[C domain.Command[T], T any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[string]application.CommandHandler[C, T]
	mu         sync.RWMutex
	logger     application.AppLogger
	deliveries *deliveries
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewWatermillCommandBus[C domain.Command[T], T any](publisher message.Publisher, subscriber message.Subscriber, logger application.AppLogger) *WatermillCommandBus[C, T] {
	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillCommandBus[C, T]{
		publisher:  publisher,
		subscriber: subscriber,
		handlers:   make(map[string]application.CommandHandler[C, T]),
		logger:     logger,
		deliveries: newDeliveries(DefaultMaxDeliveries),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (bus *WatermillCommandBus[C, T]) RegisterHandler(commandName string, handler application.CommandHandler[C, T]) {
	bus.mu.Lock()
	bus.handlers[commandName] = handler
	bus.mu.Unlock()

	messages, err := bus.subscriber.Subscribe(bus.ctx, commandName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to command", err, map[string]interface{}{
			"command_name": commandName,
		})
		return
	}

	go func() {
		for msg := range messages {
			bus.handle(commandName, handler, msg)
		}
	}()
}

func (bus *WatermillCommandBus[C, T]) handle(commandName string, handler application.CommandHandler[C, T], msg *message.Message) {
	ctx := contextFromMessage(bus.ctx, msg)

	payload, err := application.UnmarshalPayload[T](msg.Payload)
	if err != nil {
		application.LogError(ctx, bus.logger, "error unmarshalling command payload", err, map[string]interface{}{
			"command_name": commandName,
		})
		// a malformed payload will never succeed, drop it
		msg.Ack()
		return
	}

	command, ok := interface{}(&dynamicCommand[T]{commandName: commandName, payload: payload}).(C)
	if !ok {
		application.LogError(ctx, bus.logger, "error asserting command type", nil, map[string]interface{}{
			"command_name": commandName,
		})
		msg.Ack()
		return
	}

	err = handler.Handle(ctx, command)
	fields := map[string]interface{}{
		"command_name": commandName,
		"message_uuid": msg.UUID,
	}
	dropped := bus.deliveries.settle(msg, err)
	switch {
	case err == nil:
		application.LogInfo(ctx, bus.logger, "command handled", fields)
	case dropped:
		application.LogError(ctx, bus.logger, "command dropped", err, fields)
	default:
		application.LogWarn(ctx, bus.logger, "error handling command, redelivering", err, fields)
	}
}

// Dispatch only publishes; the handler runs asynchronously on the consumer
// side and its error never reaches the caller. Failed messages are
// redelivered up to DefaultMaxDeliveries times unless the error is
// application.Permanent.
func (bus *WatermillCommandBus[C, T]) Dispatch(ctx context.Context, command C) error {
	payload, err := application.MarshalPayload(command.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling command payload", err, map[string]interface{}{
			"command_name": command.CommandName(),
		})
		return err
	}

	msg := newMessage(ctx, payload)
	if err := bus.publisher.Publish(command.CommandName(), msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing command", err, map[string]interface{}{
			"command_name": command.CommandName(),
		})
		return err
	}

	application.LogInfo(ctx, bus.logger, "command dispatched", map[string]interface{}{
		"command_name": command.CommandName(),
		"message_uuid": msg.UUID,
	})
	return nil
}

// Close stops the consumer goroutines.
func (bus *WatermillCommandBus[C, T]) Close() {
	bus.cancel()
}

type dynamicCommand[T any] struct {
	commandName string
	payload     T
}

func (c *dynamicCommand[T]) CommandName() string {
	return c.commandName
}

func (c *dynamicCommand[T]) Payload() T {
	return c.payload
}

const requestIDMetadata = "request_id"

func newMessage(ctx context.Context, payload []byte) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if requestID, ok := application.RequestIDFromContext(ctx); ok {
		msg.Metadata.Set(requestIDMetadata, requestID)
	}
	return msg
}

func contextFromMessage(parent context.Context, msg *message.Message) context.Context {
	if requestID := msg.Metadata.Get(requestIDMetadata); requestID != "" {
		return application.WithRequestID(parent, requestID)
	}
	return parent
}
