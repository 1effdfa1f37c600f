package adapter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

type order struct {
	Code  string `json:"code"`
	Seats int    `json:"seats"`
}

type orderMessage struct {
	name string
	data order
}

func (m orderMessage) CommandName() string { return m.name }
func (m orderMessage) QueryName() string   { return m.name }
func (m orderMessage) EventName() string   { return m.name }
func (m orderMessage) Payload() order      { return m.data }

type received struct {
	payload   order
	requestID string
}

type commandRecorder chan received

func (r commandRecorder) Handle(ctx context.Context, c domain.Command[order]) error {
	requestID, _ := application.RequestIDFromContext(ctx)
	r <- received{payload: c.Payload(), requestID: requestID}
	return nil
}

type eventRecorder chan received

func (r eventRecorder) Handle(ctx context.Context, e domain.Event[order]) error {
	requestID, _ := application.RequestIDFromContext(ctx)
	r <- received{payload: e.Payload(), requestID: requestID}
	return nil
}

// failingHandler counts calls and always returns err.
type failingHandler struct {
	calls atomic.Int32
	err   error
}

func (h *failingHandler) fail() error {
	h.calls.Add(1)
	return h.err
}

type failingCommand struct{ *failingHandler }

func (h failingCommand) Handle(context.Context, domain.Command[order]) error {
	return h.fail()
}

type failingEvent struct{ *failingHandler }

func (h failingEvent) Handle(context.Context, domain.Event[order]) error {
	return h.fail()
}

type seatsQuery struct{}

func (seatsQuery) Handle(_ context.Context, q domain.Query[order]) (int, error) {
	if q.Payload().Code == "" {
		return 0, errors.New("code is required")
	}
	return q.Payload().Seats * 2, nil
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            16,
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func waitFor(t *testing.T, ch <-chan received) received {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return received{}
	}
}

func TestWatermillCommandBus(t *testing.T) {
	pubSub := newPubSub(t)
	bus := NewWatermillCommandBus[domain.Command[order], order](pubSub, pubSub, application.NopLogger{})
	t.Cleanup(bus.Close)

	recorder := make(commandRecorder, 1)
	bus.RegisterHandler("PlaceOrder", recorder)

	ctx := application.WithRequestID(context.Background(), "req-1")
	require.NoError(t, bus.Dispatch(ctx, orderMessage{name: "PlaceOrder", data: order{Code: "BUS1", Seats: 2}}))

	got := waitFor(t, recorder)
	assert.Equal(t, order{Code: "BUS1", Seats: 2}, got.payload)
	assert.Equal(t, "req-1", got.requestID)
}

func TestWatermillEventBus(t *testing.T) {
	pubSub := newPubSub(t)
	bus := NewWatermillEventBus[domain.Event[order], order](pubSub, pubSub, application.NopLogger{})
	t.Cleanup(bus.Close)

	first, second := make(eventRecorder, 1), make(eventRecorder, 1)
	bus.RegisterHandler("OrderPlaced", first)
	bus.RegisterHandler("OrderPlaced", second)

	require.NoError(t, bus.Publish(context.Background(), orderMessage{name: "OrderPlaced", data: order{Code: "BUS2"}}))

	assert.Equal(t, "BUS2", waitFor(t, first).payload.Code)
	assert.Equal(t, "BUS2", waitFor(t, second).payload.Code)
}

func TestWatermillQueryBus(t *testing.T) {
	pubSub := newPubSub(t)
	bus := NewWatermillQueryBus[domain.Query[order], order, int](pubSub, pubSub, application.NopLogger{})
	t.Cleanup(bus.Close)
	bus.RegisterHandler("CountSeats", seatsQuery{})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := bus.Dispatch(ctx, orderMessage{name: "CountSeats", data: order{Code: "BUS3", Seats: 3}})
	require.NoError(t, err)
	assert.Equal(t, 6, result)

	_, err = bus.Dispatch(ctx, orderMessage{name: "CountSeats"})
	require.EqualError(t, err, "code is required")
}

func dispatchWithin(t *testing.T, d time.Duration, dispatch func() error) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- dispatch() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(d):
		t.Fatal("dispatch did not return")
	}
}

func TestWatermillCommandBusFailingHandler(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int32
	}{
		{"permanent error is not redelivered", application.Permanent(errors.New("no booking")), 1},
		{"transient error is redelivered a bounded number of times", errors.New("database down"), DefaultMaxDeliveries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pubSub := newPubSub(t)
			bus := NewWatermillCommandBus[domain.Command[order], order](pubSub, pubSub, application.NopLogger{})
			t.Cleanup(bus.Close)

			failing := &failingHandler{err: tt.err}
			bus.RegisterHandler("PlaceOrder", failingCommand{failing})
			recorder := make(commandRecorder, 1)
			bus.RegisterHandler("CancelOrder", recorder)

			ctx := context.Background()
			dispatchWithin(t, 2*time.Second, func() error {
				return bus.Dispatch(ctx, orderMessage{name: "PlaceOrder", data: order{Code: "BUS4"}})
			})
			assert.Equal(t, tt.calls, failing.calls.Load())

			require.NoError(t, bus.Dispatch(ctx, orderMessage{name: "CancelOrder", data: order{Code: "BUS5"}}))
			assert.Equal(t, "BUS5", waitFor(t, recorder).payload.Code)
		})
	}
}

func TestWatermillEventBusFailingHandler(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		calls int32
	}{
		{"permanent error is not redelivered", application.Permanent(errors.New("bad event")), 1},
		{"transient error is redelivered a bounded number of times", errors.New("broker hiccup"), DefaultMaxDeliveries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pubSub := newPubSub(t)
			bus := NewWatermillEventBus[domain.Event[order], order](pubSub, pubSub, application.NopLogger{})
			t.Cleanup(bus.Close)

			failing := &failingHandler{err: tt.err}
			bus.RegisterHandler("OrderPlaced", failingEvent{failing})

			dispatchWithin(t, 2*time.Second, func() error {
				return bus.Publish(context.Background(), orderMessage{name: "OrderPlaced", data: order{Code: "BUS6"}})
			})
			assert.Equal(t, tt.calls, failing.calls.Load())
		})
	}
}

func TestJoinHandlerErrors(t *testing.T) {
	permanent := application.Permanent(errors.New("invalid"))
	transient := errors.New("timeout")

	assert.NoError(t, joinHandlerErrors(nil))
	assert.True(t, application.IsPermanent(joinHandlerErrors([]error{permanent})))
	assert.False(t, application.IsPermanent(joinHandlerErrors([]error{permanent, transient})))
}
