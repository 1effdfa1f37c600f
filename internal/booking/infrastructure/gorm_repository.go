package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
)

// bookingRecord is the persisted shape of a booking. Nested values are
// stored as JSON columns; only the lookup and status columns are relational.
type bookingRecord struct {
	Code          string                `gorm:"primaryKey;size:16"`
	SessionID     string                `gorm:"index;size:64"`
	Status        string                `gorm:"size:16"`
	CreatedAt     time.Time
	ExpiresAt     time.Time
	PaidAt        *time.Time
	Bus           domain.BusOffer       `gorm:"serializer:json"`
	SelectedSeats []string              `gorm:"serializer:json"`
	Passengers    []domain.Passenger    `gorm:"serializer:json"`
	Payment       domain.PaymentSummary `gorm:"serializer:json"`
}

func (bookingRecord) TableName() string {
	return "bookings"
}

func newBookingRecord(b domain.Booking) bookingRecord {
	return bookingRecord{
		Code:          b.Code,
		SessionID:     b.SessionID,
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt,
		ExpiresAt:     b.ExpiresAt,
		PaidAt:        b.PaidAt,
		Bus:           b.Bus,
		SelectedSeats: b.SelectedSeats,
		Passengers:    b.Passengers,
		Payment:       b.Payment,
	}
}

func (r bookingRecord) toDomain() domain.Booking {
	return domain.Booking{
		Code:          r.Code,
		SessionID:     r.SessionID,
		Status:        domain.BookingStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		ExpiresAt:     r.ExpiresAt,
		PaidAt:        r.PaidAt,
		Bus:           r.Bus,
		SelectedSeats: r.SelectedSeats,
		Passengers:    r.Passengers,
		Payment:       r.Payment,
	}
}

type gormBookingRepository struct {
	db     *gorm.DB
	logger pkgApp.AppLogger
}

func NewGormBookingRepository(dsn string, logger pkgApp.AppLogger) (domain.BookingRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGormBookingRepositoryFromDB(db, logger)
}

// NewGormBookingRepositoryFromDB migrates the bookings table on an already
// opened connection.
func NewGormBookingRepositoryFromDB(db *gorm.DB, logger pkgApp.AppLogger) (domain.BookingRepository, error) {
	if err := db.AutoMigrate(&bookingRecord{}); err != nil {
		return nil, fmt.Errorf("migrate bookings: %w", err)
	}

	return &gormBookingRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *gormBookingRepository) Save(ctx context.Context, booking domain.Booking) error {
	record := newBookingRecord(booking)
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%s: %w", booking.Code, domain.ErrBookingExists)
		}
		pkgApp.LogError(ctx, r.logger, "failed to save booking", err, map[string]interface{}{
			"code": booking.Code,
		})
		return err
	}

	pkgApp.LogDebug(ctx, r.logger, "booking saved", map[string]interface{}{"code": booking.Code})
	return nil
}

// Update only touches the status columns; the rest of a booking is frozen.
func (r *gormBookingRepository) Update(ctx context.Context, booking domain.Booking) error {
	result := r.db.WithContext(ctx).Model(&bookingRecord{}).
		Where("code = ?", booking.Code).
		Updates(map[string]interface{}{
			"status":  string(booking.Status),
			"paid_at": booking.PaidAt,
		})
	if result.Error != nil {
		pkgApp.LogError(ctx, r.logger, "failed to update booking", result.Error, map[string]interface{}{
			"code": booking.Code,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", booking.Code, domain.ErrBookingNotFound)
	}

	pkgApp.LogDebug(ctx, r.logger, "booking updated", map[string]interface{}{
		"code":   booking.Code,
		"status": string(booking.Status),
	})
	return nil
}

func (r *gormBookingRepository) FindByCode(ctx context.Context, code string) (domain.Booking, error) {
	var record bookingRecord
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Booking{}, fmt.Errorf("%s: %w", code, domain.ErrBookingNotFound)
	}
	if err != nil {
		pkgApp.LogError(ctx, r.logger, "failed to find booking", err, map[string]interface{}{"code": code})
		return domain.Booking{}, err
	}
	return record.toDomain(), nil
}

func (r *gormBookingRepository) Exists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&bookingRecord{}).Where("code = ?", code).Count(&count).Error; err != nil {
		pkgApp.LogError(ctx, r.logger, "failed to check booking code", err, map[string]interface{}{"code": code})
		return false, err
	}
	return count > 0, nil
}
