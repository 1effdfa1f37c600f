// Package booking wires the storefront checkout slice: sessions, buses,
// handlers and the HTTP routes.
package booking

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mateusmacedo/bus-storefront/internal/booking/application"
	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/booking/infrastructure"
	"github.com/mateusmacedo/bus-storefront/internal/booking/session"
	"github.com/mateusmacedo/bus-storefront/internal/clock"
	"github.com/mateusmacedo/bus-storefront/internal/random"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
)

type BookingEventBus = pkgApp.EventBus[pkgDomain.Event[application.BookingEventData], application.BookingEventData]

type Options struct {
	Session        session.Config
	RequestTimeout time.Duration
	Clock          clock.Clock
	Random         random.Source
}

type BookingSlice struct {
	sessions    *session.Registry
	httpHandler *infrastructure.BookingHTTPHandler
}

func NewBookingSlice(
	opts Options,
	commandBus infrastructure.ConfirmPaymentBus,
	queryBus infrastructure.FindBookingBus,
	eventBus BookingEventBus,
	repository domain.BookingRepository,
	idGenerator pkgDomain.IDGenerator[string],
	logger pkgApp.AppLogger,
) *BookingSlice {
	sessions := session.NewRegistry(opts.Session, session.Deps{
		Clock:    opts.Clock,
		Random:   opts.Random,
		Logger:   logger,
		Store:    repository,
		Listener: application.NewEventPublisher(eventBus, logger),
	}, idGenerator)

	commandBus.RegisterHandler(application.ConfirmPaymentCommandName, application.NewConfirmPaymentHandler(sessions, logger))
	queryBus.RegisterHandler(application.FindBookingQueryName, application.NewFindBookingHandler(repository, logger))
	eventLog := application.NewBookingEventLogHandler(logger)
	eventBus.RegisterHandler(application.BookingCreatedEventName, eventLog)
	eventBus.RegisterHandler(application.BookingPaidEventName, eventLog)

	return &BookingSlice{
		sessions:    sessions,
		httpHandler: infrastructure.NewBookingHTTPHandler(sessions, commandBus, queryBus, logger, opts.RequestTimeout),
	}
}

func (s *BookingSlice) Sessions() *session.Registry {
	return s.sessions
}

func (s *BookingSlice) RegisterRoutes(router chi.Router) {
	s.httpHandler.RegisterRoutes(router)
}
