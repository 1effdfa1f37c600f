package domain

import (
	"slices"
	"time"
)

// DateLayout is the wire format of a travel date.
const DateLayout = "2006-01-02"

type SearchCriteria struct {
	OriginCityID      string    `json:"originCityId"`
	DestinationCityID string    `json:"destinationCityId"`
	Date              time.Time `json:"date"`
	PassengerCount    int       `json:"passengerCount"`
}

// BusOffer is one bookable departure. Offers are immutable once generated.
type BusOffer struct {
	ID                 string    `json:"id"`
	DisplayName        string    `json:"displayName"`
	BusClassID         string    `json:"busClassId"`
	DepartureTime      string    `json:"departureTime"`
	ArrivalTime        string    `json:"arrivalTime"`
	DurationHours      int       `json:"durationHours"`
	UnitPrice          int64     `json:"unitPrice"`
	AvailableSeatCount int       `json:"availableSeatCount"`
	TotalSeatCount     int       `json:"totalSeatCount"`
	FacilityIDs        []string  `json:"facilityIds"`
	OriginCityID       string    `json:"originCityId"`
	DestinationCityID  string    `json:"destinationCityId"`
	Date               time.Time `json:"date"`
}

func (o BusOffer) HasFacility(id string) bool {
	return slices.Contains(o.FacilityIDs, id)
}

// Clone returns a copy that does not share the facility slice.
func (o BusOffer) Clone() BusOffer {
	o.FacilityIDs = append([]string(nil), o.FacilityIDs...)
	return o
}

// Seat is a cell of the seat map. Booked is fixed at generation; Selected is
// derived from the session's selection when a view is built.
type Seat struct {
	ID           string `json:"id"`
	Number       int    `json:"number"`
	RowIndex     int    `json:"rowIndex"`
	ColumnIndex  int    `json:"columnIndex"`
	ColumnLetter string `json:"columnLetter"`
	Booked       bool   `json:"isBooked"`
	Selected     bool   `json:"isSelected"`
}

type IDType string

const (
	IDTypeNationalID    IDType = "national-id"
	IDTypeDriverLicense IDType = "driver-license"
	IDTypePassport      IDType = "passport"
)

func (t IDType) Valid() bool {
	switch t {
	case IDTypeNationalID, IDTypeDriverLicense, IDTypePassport:
		return true
	}
	return false
}

// Passenger is bound to one selected seat. Phone and Email are only carried
// by the passenger at index 0, the contact person of the booking.
type Passenger struct {
	SeatID   string `json:"seatId"`
	FullName string `json:"fullName"`
	IDType   IDType `json:"idType"`
	IDNumber string `json:"idNumber"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

type PassengerField string

const (
	FieldFullName PassengerField = "fullName"
	FieldIDType   PassengerField = "idType"
	FieldIDNumber PassengerField = "idNumber"
	FieldPhone    PassengerField = "phone"
	FieldEmail    PassengerField = "email"
)

// ContactOnly reports whether the field may only be set on passenger 0.
func (f PassengerField) ContactOnly() bool {
	return f == FieldPhone || f == FieldEmail
}

type PromoState struct {
	Code             string  `json:"code,omitempty"`
	DiscountFraction float64 `json:"discountFraction"`
}

func (p PromoState) Active() bool {
	return p.Code != ""
}

type PaymentSelection struct {
	MethodID string `json:"methodId"`
	OptionID string `json:"optionId"`
}

func (p PaymentSelection) Complete() bool {
	return p.MethodID != "" && p.OptionID != ""
}

type BookingStatus string

const (
	StatusPending BookingStatus = "pending"
	StatusPaid    BookingStatus = "paid"
)

type PaymentSummary struct {
	MethodID  string `json:"methodId"`
	OptionID  string `json:"optionId"`
	Subtotal  int64  `json:"subtotal"`
	Discount  int64  `json:"discount"`
	PromoCode string `json:"promoCode,omitempty"`
	Total     int64  `json:"total"`
}

// Booking is the frozen snapshot taken at creation. Only Status changes
// afterwards, and only from pending to paid.
type Booking struct {
	Code          string         `json:"code"`
	SessionID     string         `json:"sessionId"`
	Status        BookingStatus  `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
	ExpiresAt     time.Time      `json:"expiresAt"`
	PaidAt        *time.Time     `json:"paidAt,omitempty"`
	Bus           BusOffer       `json:"bus"`
	SelectedSeats []string       `json:"selectedSeats"`
	Passengers    []Passenger    `json:"passengers"`
	Payment       PaymentSummary `json:"payment"`
}

// Clone returns a deep copy that shares no slices with b.
func (b Booking) Clone() Booking {
	b.Bus = b.Bus.Clone()
	b.SelectedSeats = append([]string(nil), b.SelectedSeats...)
	b.Passengers = append([]Passenger(nil), b.Passengers...)
	if b.PaidAt != nil {
		paidAt := *b.PaidAt
		b.PaidAt = &paidAt
	}
	return b
}

// Expired reports whether the payment window has passed. Advisory only.
func (b Booking) Expired(now time.Time) bool {
	return b.Status == StatusPending && !now.Before(b.ExpiresAt)
}

// Remaining is the time left to pay, zero once expired or paid.
func (b Booking) Remaining(now time.Time) time.Duration {
	if b.Status != StatusPending || !now.Before(b.ExpiresAt) {
		return 0
	}
	return b.ExpiresAt.Sub(now)
}

// CloneOffers deep-copies a result list.
func CloneOffers(offers []BusOffer) []BusOffer {
	if offers == nil {
		return nil
	}
	out := make([]BusOffer, len(offers))
	for i, o := range offers {
		out[i] = o.Clone()
	}
	return out
}
