package main

import (
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/bus-storefront/internal/booking"
	"github.com/mateusmacedo/bus-storefront/internal/booking/application"
	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	bookingInfra "github.com/mateusmacedo/bus-storefront/internal/booking/infrastructure"
	"github.com/mateusmacedo/bus-storefront/internal/config"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
	pkgInfra "github.com/mateusmacedo/bus-storefront/pkg/infrastructure"
	channelsAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/channels/adapter"
	kafkaAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/kafka/adapter"
	redisAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/redis/adapter"
	watermillAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/watermill/adapter"
)

type buses struct {
	commandBus bookingInfra.ConfirmPaymentBus
	queryBus   bookingInfra.FindBookingBus
	eventBus   booking.BookingEventBus
	closers    []func() error
}

func (b *buses) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i]()
	}
}

// newBuses builds the command and event buses on the configured transport.
// Booking lookups always use the in-process query bus: a reply over a
// consumer-group transport may land on another instance.
func newBuses(cfg config.EventsConfig, logger pkgApp.AppLogger) (*buses, error) {
	b := &buses{
		queryBus: pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.FindBookingData], application.FindBookingData, domain.Booking](logger),
	}

	var (
		publisher  message.Publisher
		subscriber message.Subscriber
	)

	switch cfg.Transport {
	case config.TransportSimple:
		b.commandBus = pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.ConfirmPaymentData], application.ConfirmPaymentData](logger)
		b.eventBus = pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.BookingEventData], application.BookingEventData](logger)
		return b, nil

	case config.TransportChannels:
		pubSub := channelsAdapter.NewGoChannel(logger)
		publisher, subscriber = pubSub, pubSub
		b.closers = append(b.closers, pubSub.Close)

	case config.TransportRedis:
		opts := redisAdapter.Options{
			Addr:          cfg.RedisAddr,
			ConsumerGroup: cfg.ConsumerGroup,
			Consumer:      consumerName(),
		}
		client := redisAdapter.NewRedisClient(opts)
		b.closers = append(b.closers, client.Close)

		pub, sub, err := redisAdapter.NewStreamPubSub(client, opts, logger)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("redis transport: %w", err)
		}
		publisher, subscriber = pub, sub
		b.closers = append(b.closers, pub.Close, sub.Close)

	case config.TransportKafka:
		pub, sub, err := kafkaAdapter.NewKafkaPubSub(kafkaAdapter.Options{
			Brokers:       cfg.KafkaBrokers,
			ConsumerGroup: cfg.ConsumerGroup,
			ClientID:      consumerName(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("kafka transport: %w", err)
		}
		publisher, subscriber = pub, sub
		b.closers = append(b.closers, pub.Close, sub.Close)

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}

	commandBus := watermillAdapter.NewWatermillCommandBus[pkgDomain.Command[application.ConfirmPaymentData], application.ConfirmPaymentData](publisher, subscriber, logger)
	eventBus := watermillAdapter.NewWatermillEventBus[pkgDomain.Event[application.BookingEventData], application.BookingEventData](publisher, subscriber, logger)
	b.closers = append(b.closers, func() error {
		commandBus.Close()
		eventBus.Close()
		return nil
	})
	b.commandBus = commandBus
	b.eventBus = eventBus
	return b, nil
}

func newRepository(cfg config.RepositoryConfig, logger pkgApp.AppLogger) (domain.BookingRepository, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return bookingInfra.NewGormBookingRepository(cfg.DSN, logger)
	case config.DriverMemory:
		return bookingInfra.NewInMemoryBookingRepository(logger), nil
	default:
		return nil, fmt.Errorf("unknown repository driver %q", cfg.Driver)
	}
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "bus-storefront-" + pkgInfra.GenerateUUID()
	}
	return host
}
