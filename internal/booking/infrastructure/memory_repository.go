package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
)

// InMemoryBookingRepository keeps deep copies so callers can never reach
// stored state through a returned booking.
type InMemoryBookingRepository struct {
	mu     sync.RWMutex
	data   map[string]domain.Booking
	logger pkgApp.AppLogger
}

func NewInMemoryBookingRepository(logger pkgApp.AppLogger) *InMemoryBookingRepository {
	return &InMemoryBookingRepository{
		data:   make(map[string]domain.Booking),
		logger: logger,
	}
}

func (r *InMemoryBookingRepository) Save(ctx context.Context, booking domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[booking.Code]; exists {
		pkgApp.LogWarn(ctx, r.logger, "booking already exists", domain.ErrBookingExists, map[string]interface{}{
			"code": booking.Code,
		})
		return fmt.Errorf("%s: %w", booking.Code, domain.ErrBookingExists)
	}

	r.data[booking.Code] = booking.Clone()
	pkgApp.LogDebug(ctx, r.logger, "booking saved", map[string]interface{}{"code": booking.Code})
	return nil
}

func (r *InMemoryBookingRepository) Update(ctx context.Context, booking domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.data[booking.Code]; !exists {
		pkgApp.LogWarn(ctx, r.logger, "booking not found", domain.ErrBookingNotFound, map[string]interface{}{
			"code": booking.Code,
		})
		return fmt.Errorf("%s: %w", booking.Code, domain.ErrBookingNotFound)
	}

	r.data[booking.Code] = booking.Clone()
	pkgApp.LogDebug(ctx, r.logger, "booking updated", map[string]interface{}{
		"code":   booking.Code,
		"status": string(booking.Status),
	})
	return nil
}

func (r *InMemoryBookingRepository) FindByCode(ctx context.Context, code string) (domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, exists := r.data[code]
	if !exists {
		return domain.Booking{}, fmt.Errorf("%s: %w", code, domain.ErrBookingNotFound)
	}
	return booking.Clone(), nil
}

func (r *InMemoryBookingRepository) Exists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.data[code]
	return exists, nil
}

func (r *InMemoryBookingRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
