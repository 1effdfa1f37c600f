package application

import (
	"time"

	bookingDomain "github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

const (
	BookingCreatedEventName = "BookingCreated"
	BookingPaidEventName    = "BookingPaid"
)

// BookingEventData is the flat, serializable summary carried by booking
// events. Passenger identity data stays out of the event stream.
type BookingEventData struct {
	Code      string                      `json:"code"`
	SessionID string                      `json:"sessionId"`
	Status    bookingDomain.BookingStatus `json:"status"`
	OfferID   string                      `json:"offerId"`
	Seats     []string                    `json:"seats"`
	Total     int64                       `json:"total"`
	PromoCode string                      `json:"promoCode,omitempty"`
	ExpiresAt time.Time                   `json:"expiresAt"`
	PaidAt    *time.Time                  `json:"paidAt,omitempty"`
}

func NewBookingEventData(b bookingDomain.Booking) BookingEventData {
	b = b.Clone()
	return BookingEventData{
		Code:      b.Code,
		SessionID: b.SessionID,
		Status:    b.Status,
		OfferID:   b.Bus.ID,
		Seats:     b.SelectedSeats,
		Total:     b.Payment.Total,
		PromoCode: b.Payment.PromoCode,
		ExpiresAt: b.ExpiresAt,
		PaidAt:    b.PaidAt,
	}
}

type bookingEvent struct {
	name string
	data BookingEventData
}

func (e bookingEvent) EventName() string {
	return e.name
}

func (e bookingEvent) Payload() BookingEventData {
	return e.data
}

func NewBookingCreatedEvent(data BookingEventData) domain.Event[BookingEventData] {
	return bookingEvent{name: BookingCreatedEventName, data: data}
}

func NewBookingPaidEvent(data BookingEventData) domain.Event[BookingEventData] {
	return bookingEvent{name: BookingPaidEventName, data: data}
}
