package domain

import "context"

// BookingRepository backs the ticket lookup page and the booking-code
// uniqueness check.
type BookingRepository interface {
	Save(ctx context.Context, booking Booking) error
	Update(ctx context.Context, booking Booking) error
	FindByCode(ctx context.Context, code string) (Booking, error)
	Exists(ctx context.Context, code string) (bool, error)
}
