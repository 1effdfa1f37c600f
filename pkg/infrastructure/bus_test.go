package infrastructure

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

type greet struct {
	name string
	data string
}

func (g greet) CommandName() string { return g.name }
func (g greet) QueryName() string   { return g.name }
func (g greet) EventName() string   { return g.name }
func (g greet) Payload() string     { return g.data }

type commandFunc func(ctx context.Context, c domain.Command[string]) error

func (f commandFunc) Handle(ctx context.Context, c domain.Command[string]) error { return f(ctx, c) }

type queryFunc func(ctx context.Context, q domain.Query[string]) (string, error)

func (f queryFunc) Handle(ctx context.Context, q domain.Query[string]) (string, error) {
	return f(ctx, q)
}

type eventFunc func(ctx context.Context, e domain.Event[string]) error

func (f eventFunc) Handle(ctx context.Context, e domain.Event[string]) error { return f(ctx, e) }

func TestSimpleCommandBus(t *testing.T) {
	ctx := context.Background()
	bus := NewSimpleCommandBus[domain.Command[string], string](application.NopLogger{})

	err := bus.Dispatch(ctx, greet{name: "Greet", data: "hi"})
	require.ErrorIs(t, err, ErrNoCommandHandler)

	var got string
	bus.RegisterHandler("Greet", commandFunc(func(_ context.Context, c domain.Command[string]) error {
		got = c.Payload()
		return nil
	}))
	require.NoError(t, bus.Dispatch(ctx, greet{name: "Greet", data: "hi"}))
	assert.Equal(t, "hi", got)

	boom := errors.New("boom")
	bus.RegisterHandler("Fail", commandFunc(func(context.Context, domain.Command[string]) error { return boom }))
	require.ErrorIs(t, bus.Dispatch(ctx, greet{name: "Fail"}), boom)
}

func TestSimpleQueryBus(t *testing.T) {
	ctx := context.Background()
	bus := NewSimpleQueryBus[domain.Query[string], string, string](application.NopLogger{})

	_, err := bus.Dispatch(ctx, greet{name: "Echo"})
	require.ErrorIs(t, err, ErrNoQueryHandler)

	bus.RegisterHandler("Echo", queryFunc(func(_ context.Context, q domain.Query[string]) (string, error) {
		return "echo " + q.Payload(), nil
	}))
	result, err := bus.Dispatch(ctx, greet{name: "Echo", data: "x"})
	require.NoError(t, err)
	assert.Equal(t, "echo x", result)

	release := make(chan struct{})
	defer close(release)
	bus.RegisterHandler("Slow", queryFunc(func(context.Context, domain.Query[string]) (string, error) {
		<-release
		return "", nil
	}))
	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = bus.Dispatch(timeout, greet{name: "Slow"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimpleEventBus(t *testing.T) {
	ctx := context.Background()
	bus := NewSimpleEventBus[domain.Event[string], string](application.NopLogger{})

	require.NoError(t, bus.Publish(ctx, greet{name: "Nobody"}))

	var calls atomic.Int32
	count := eventFunc(func(context.Context, domain.Event[string]) error {
		calls.Add(1)
		return nil
	})
	bus.RegisterHandler("Happened", count)
	bus.RegisterHandler("Happened", count)
	require.NoError(t, bus.Publish(ctx, greet{name: "Happened"}))
	assert.Equal(t, int32(2), calls.Load())

	first, second := errors.New("first"), errors.New("second")
	bus.RegisterHandler("Broken", eventFunc(func(context.Context, domain.Event[string]) error { return first }))
	bus.RegisterHandler("Broken", eventFunc(func(context.Context, domain.Event[string]) error { return second }))
	err := bus.Publish(ctx, greet{name: "Broken"})
	require.ErrorIs(t, err, first)
	require.ErrorIs(t, err, second)
}
