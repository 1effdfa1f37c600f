package application

import (
	"context"
	"errors"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/booking/session"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
)

type sessionFinder interface {
	Get(id string) (*session.Session, error)
}

type confirmPaymentHandler struct {
	sessions sessionFinder
	logger   pkgApp.AppLogger
}

func (h *confirmPaymentHandler) Handle(ctx context.Context, command pkgDomain.Command[ConfirmPaymentData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	s, err := h.sessions.Get(data.SessionID)
	if err != nil {
		pkgApp.LogWarn(ctx, h.logger, "payment confirmation for unknown session", err, map[string]interface{}{
			"session_id": data.SessionID,
		})
		return classify(err)
	}

	booking, err := s.ConfirmPayment(ctx)
	if err != nil {
		return classify(err)
	}

	pkgApp.LogInfo(ctx, h.logger, "payment confirmation handled", map[string]interface{}{
		"session_id": data.SessionID,
		"code":       booking.Code,
	})
	return nil
}

// classify marks failures that no redelivery can fix: an unknown session or
// a session without a pending booking.
func classify(err error) error {
	if errors.Is(err, domain.ErrSessionNotFound) || domain.IsStepError(err) {
		return pkgApp.Permanent(err)
	}
	return err
}

func NewConfirmPaymentHandler(sessions sessionFinder, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[ConfirmPaymentData], ConfirmPaymentData] {
	return &confirmPaymentHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type findBookingHandler struct {
	repository domain.BookingRepository
	logger     pkgApp.AppLogger
}

func (h *findBookingHandler) Handle(ctx context.Context, query pkgDomain.Query[FindBookingData]) (domain.Booking, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return domain.Booking{}, ctx.Err()
	}

	data := query.Payload()
	booking, err := h.repository.FindByCode(ctx, data.Code)
	if err != nil {
		pkgApp.LogWarn(ctx, h.logger, "booking lookup failed", err, map[string]interface{}{"code": data.Code})
		return domain.Booking{}, err
	}

	pkgApp.LogDebug(ctx, h.logger, "booking found", map[string]interface{}{
		"code":   booking.Code,
		"status": string(booking.Status),
	})
	return booking, nil
}

func NewFindBookingHandler(repo domain.BookingRepository, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[FindBookingData], FindBookingData, domain.Booking] {
	return &findBookingHandler{
		repository: repo,
		logger:     logger,
	}
}

// bookingEventLogHandler writes every booking event to the audit log.
type bookingEventLogHandler struct {
	logger pkgApp.AppLogger
}

func (h *bookingEventLogHandler) Handle(ctx context.Context, event pkgDomain.Event[BookingEventData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "context cancelled", ctx.Err(), nil)
		return ctx.Err()
	}

	data := event.Payload()
	pkgApp.LogInfo(ctx, h.logger, "booking event received", map[string]interface{}{
		"event_name": event.EventName(),
		"code":       data.Code,
		"session_id": data.SessionID,
		"status":     string(data.Status),
		"total":      data.Total,
	})
	return nil
}

func NewBookingEventLogHandler(logger pkgApp.AppLogger) pkgApp.EventHandler[pkgDomain.Event[BookingEventData], BookingEventData] {
	return &bookingEventLogHandler{logger: logger}
}
