package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

const (
	correlationMetadata = "correlation_id"
	responseSuffix      = "_response"
)

// queryResponse wraps a handler result so failures travel back to the caller.
type queryResponse struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WatermillQueryBus does request/response over two topics, matching replies
// by correlation id. It needs fan-out subscribers (gochannel); consumer
// groups that split messages between subscribers lose replies.
type WatermillQueryBus[Q domain.Query[D], D any, R any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[string]application.QueryHandler[Q, D, R]
	mu         sync.RWMutex
	logger     application.AppLogger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewWatermillQueryBus[Q domain.Query[D], D any, R any](publisher message.Publisher, subscriber message.Subscriber, logger application.AppLogger) *WatermillQueryBus[Q, D, R] {
	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillQueryBus[Q, D, R]{
		publisher:  publisher,
		subscriber: subscriber,
		handlers:   make(map[string]application.QueryHandler[Q, D, R]),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (bus *WatermillQueryBus[Q, D, R]) RegisterHandler(queryName string, handler application.QueryHandler[Q, D, R]) {
	bus.mu.Lock()
	bus.handlers[queryName] = handler
	bus.mu.Unlock()

	messages, err := bus.subscriber.Subscribe(bus.ctx, queryName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to query", err, map[string]interface{}{
			"query_name": queryName,
		})
		return
	}

	go func() {
		for msg := range messages {
			bus.handle(queryName, handler, msg)
		}
	}()
}

func (bus *WatermillQueryBus[Q, D, R]) handle(queryName string, handler application.QueryHandler[Q, D, R], msg *message.Message) {
	ctx := contextFromMessage(bus.ctx, msg)

	var response queryResponse
	payload, err := application.UnmarshalPayload[D](msg.Payload)
	if err != nil {
		response.Error = err.Error()
	} else if query, ok := interface{}(&dynamicQuery[D]{queryName: queryName, payload: payload}).(Q); !ok {
		response.Error = "query type mismatch"
	} else if result, err := handler.Handle(ctx, query); err != nil {
		response.Error = err.Error()
	} else if response.Result, err = json.Marshal(result); err != nil {
		response.Error = err.Error()
	}

	body, err := json.Marshal(response)
	// ack before replying: a blocking publisher holds the caller until the
	// query is acked, and the caller must be free to read the reply
	msg.Ack()
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling query response", err, map[string]interface{}{
			"query_name": queryName,
		})
		return
	}

	reply := newMessage(ctx, body)
	reply.Metadata.Set(correlationMetadata, msg.Metadata.Get(correlationMetadata))
	if err := bus.publisher.Publish(queryName+responseSuffix, reply); err != nil {
		application.LogError(ctx, bus.logger, "error publishing query response", err, map[string]interface{}{
			"query_name": queryName,
		})
		return
	}

	application.LogDebug(ctx, bus.logger, "query handled", map[string]interface{}{
		"query_name": queryName,
	})
}

func (bus *WatermillQueryBus[Q, D, R]) Dispatch(ctx context.Context, query Q) (R, error) {
	var zero R

	payload, err := application.MarshalPayload(query.Payload())
	if err != nil {
		return zero, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// subscribe before publishing so the reply cannot be missed
	responses, err := bus.subscriber.Subscribe(ctx, query.QueryName()+responseSuffix)
	if err != nil {
		application.LogError(ctx, bus.logger, "error subscribing to query response", err, map[string]interface{}{
			"query_name": query.QueryName(),
		})
		return zero, err
	}

	msg := newMessage(ctx, payload)
	msg.Metadata.Set(correlationMetadata, msg.UUID)
	if err := bus.publisher.Publish(query.QueryName(), msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing query", err, map[string]interface{}{
			"query_name": query.QueryName(),
		})
		return zero, err
	}

	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case reply, ok := <-responses:
			if !ok {
				return zero, ctx.Err()
			}
			reply.Ack()
			if reply.Metadata.Get(correlationMetadata) != msg.UUID {
				continue
			}

			var response queryResponse
			if err := json.Unmarshal(reply.Payload, &response); err != nil {
				return zero, err
			}
			if response.Error != "" {
				return zero, errors.New(response.Error)
			}

			var result R
			if err := json.Unmarshal(response.Result, &result); err != nil {
				return zero, err
			}
			return result, nil
		}
	}
}

func (bus *WatermillQueryBus[Q, D, R]) Close() {
	bus.cancel()
}

type dynamicQuery[D any] struct {
	queryName string
	payload   D
}

func (q *dynamicQuery[D]) QueryName() string {
	return q.queryName
}

func (q *dynamicQuery[D]) Payload() D {
	return q.payload
}
