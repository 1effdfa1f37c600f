// Command channels runs one scripted checkout end to end over the in-process
// watermill transport: commands, events and booking lookups all travel as
// gochannel messages.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mateusmacedo/bus-storefront/internal/booking/application"
	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/booking/infrastructure"
	"github.com/mateusmacedo/bus-storefront/internal/booking/session"
	"github.com/mateusmacedo/bus-storefront/internal/catalog"
	"github.com/mateusmacedo/bus-storefront/internal/clock"
	"github.com/mateusmacedo/bus-storefront/internal/random"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
	pkgInfra "github.com/mateusmacedo/bus-storefront/pkg/infrastructure"
	channelsAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/channels/adapter"
	watermillAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/watermill/adapter"
	zapAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/zaplogger/adapter"
)

func main() {
	appLogger, err := zapAdapter.NewZapAppLogger(zapAdapter.Options{App: "bus-storefront-demo", Level: "info"})
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = pkgApp.WithRequestID(ctx, pkgInfra.GenerateUUID())

	if err := run(ctx, appLogger); err != nil {
		pkgApp.LogError(ctx, appLogger, "demo failed", err, nil)
		os.Exit(1)
	}
}

func run(ctx context.Context, appLogger pkgApp.AppLogger) error {
	pubSub := channelsAdapter.NewGoChannel(appLogger)
	defer pubSub.Close()

	commandBus := watermillAdapter.NewWatermillCommandBus[pkgDomain.Command[application.ConfirmPaymentData], application.ConfirmPaymentData](pubSub, pubSub, appLogger)
	defer commandBus.Close()
	queryBus := watermillAdapter.NewWatermillQueryBus[pkgDomain.Query[application.FindBookingData], application.FindBookingData, domain.Booking](pubSub, pubSub, appLogger)
	defer queryBus.Close()
	eventBus := watermillAdapter.NewWatermillEventBus[pkgDomain.Event[application.BookingEventData], application.BookingEventData](pubSub, pubSub, appLogger)
	defer eventBus.Close()

	repository := infrastructure.NewInMemoryBookingRepository(appLogger)
	cfg := session.DefaultConfig()
	cfg.SearchLatency, cfg.CreateLatency, cfg.ConfirmLatency = 0, 0, 0

	registry := session.NewRegistry(cfg, session.Deps{
		Clock:    clock.Real(),
		Random:   random.New(2024),
		Logger:   appLogger,
		Store:    repository,
		Listener: application.NewEventPublisher(eventBus, appLogger),
	}, pkgInfra.GenerateUUID)

	commandBus.RegisterHandler(application.ConfirmPaymentCommandName, application.NewConfirmPaymentHandler(registry, appLogger))
	queryBus.RegisterHandler(application.FindBookingQueryName, application.NewFindBookingHandler(repository, appLogger))
	eventLog := application.NewBookingEventLogHandler(appLogger)
	eventBus.RegisterHandler(application.BookingCreatedEventName, eventLog)
	eventBus.RegisterHandler(application.BookingPaidEventName, eventLog)

	s := registry.Open(ctx)
	booking, err := checkout(ctx, s)
	if err != nil {
		return err
	}

	command := application.NewConfirmPaymentCommand(application.ConfirmPaymentData{SessionID: s.ID()})
	if err := commandBus.Dispatch(ctx, command); err != nil {
		return err
	}

	found, err := queryBus.Dispatch(ctx, application.NewFindBookingQuery(application.FindBookingData{Code: booking.Code}))
	if err != nil {
		return err
	}

	fmt.Printf("%s %s %s -> %s seats %v total %s\n",
		found.Code, found.Status, found.Bus.DepartureTime, found.Bus.ArrivalTime,
		found.SelectedSeats, catalog.FormatRupiah(found.Payment.Total))
	return nil
}

func checkout(ctx context.Context, s *session.Session) (domain.Booking, error) {
	results, err := s.SearchBuses(ctx, domain.SearchCriteria{
		OriginCityID:      "jakarta",
		DestinationCityID: "bandung",
		Date:              time.Now().AddDate(0, 0, 7),
		PassengerCount:    2,
	})
	if err != nil {
		return domain.Booking{}, err
	}
	if _, err := s.SelectBus(ctx, results[0].ID); err != nil {
		return domain.Booking{}, err
	}

	for _, seat := range s.View().SeatMap {
		if len(s.SelectedSeats()) == 2 {
			break
		}
		if _, err := s.ToggleSeat(ctx, seat.ID); err != nil {
			return domain.Booking{}, err
		}
	}

	if _, err := s.InitializePassengers(ctx); err != nil {
		return domain.Booking{}, err
	}
	updates := []struct {
		index int
		field domain.PassengerField
		value string
	}{
		{0, domain.FieldFullName, "Budi Santoso"},
		{0, domain.FieldIDNumber, "3174000000000001"},
		{0, domain.FieldPhone, "081234567890"},
		{0, domain.FieldEmail, "budi@example.com"},
		{1, domain.FieldFullName, "Siti Aminah"},
		{1, domain.FieldIDNumber, "3174000000000002"},
	}
	for _, u := range updates {
		if err := s.UpdatePassenger(ctx, u.index, u.field, u.value); err != nil {
			return domain.Booking{}, err
		}
	}

	s.ApplyPromoCode(ctx, "CIPENG20")
	if err := s.SelectPayment(ctx, "bank-transfer", "bca"); err != nil {
		return domain.Booking{}, err
	}
	return s.CreateBooking(ctx)
}
