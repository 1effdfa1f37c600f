package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPassengers() []Passenger {
	return []Passenger{
		{SeatID: "1A", FullName: "Budi Santoso", IDType: IDTypeNationalID, IDNumber: "3174", Phone: "081234567890", Email: "budi@example.com"},
		{SeatID: "1B", FullName: "Siti Aminah", IDType: IDTypePassport, IDNumber: "X123"},
	}
}

func TestValidatePassengers(t *testing.T) {
	require.NoError(t, ValidatePassengers(validPassengers()))

	tests := []struct {
		name   string
		mutate func([]Passenger)
		field  string
	}{
		{"missing name", func(p []Passenger) { p[1].FullName = " " }, "passengers[1].fullName"},
		{"bad id type", func(p []Passenger) { p[1].IDType = "card" }, "passengers[1].idType"},
		{"missing id number", func(p []Passenger) { p[0].IDNumber = "" }, "passengers[0].idNumber"},
		{"short phone", func(p []Passenger) { p[0].Phone = "1234" }, "passengers[0].phone"},
		{"letters in phone", func(p []Passenger) { p[0].Phone = "0812-3456-7890" }, "passengers[0].phone"},
		{"bad email", func(p []Passenger) { p[0].Email = "budi" }, "passengers[0].email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passengers := validPassengers()
			tt.mutate(passengers)

			inputErr := AsInputError(ValidatePassengers(passengers))
			require.NotNil(t, inputErr)
			assert.Contains(t, inputErr.Fields(), tt.field)
		})
	}
}

func TestSearchCriteriaNormalize(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	c := SearchCriteria{Date: time.Date(2026, 3, 4, 22, 30, 0, 0, jakarta)}

	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), c.Normalize().Date)
}

func TestBookingExpiry(t *testing.T) {
	created := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{Status: StatusPending, CreatedAt: created, ExpiresAt: created.Add(15 * time.Minute)}

	assert.False(t, b.Expired(created))
	assert.Equal(t, 15*time.Minute, b.Remaining(created))
	assert.True(t, b.Expired(created.Add(15*time.Minute)))
	assert.Zero(t, b.Remaining(created.Add(time.Hour)))

	b.Status = StatusPaid
	assert.False(t, b.Expired(created.Add(time.Hour)))
	assert.Zero(t, b.Remaining(created))
}

func TestBookingClone(t *testing.T) {
	paidAt := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	b := Booking{
		Bus:           BusOffer{FacilityIDs: []string{"ac"}},
		SelectedSeats: []string{"1A"},
		Passengers:    validPassengers(),
		PaidAt:        &paidAt,
	}

	c := b.Clone()
	c.Bus.FacilityIDs[0] = "wifi"
	c.SelectedSeats[0] = "2B"
	c.Passengers[0].FullName = "x"
	*c.PaidAt = paidAt.Add(time.Hour)

	assert.Equal(t, "ac", b.Bus.FacilityIDs[0])
	assert.Equal(t, "1A", b.SelectedSeats[0])
	assert.Equal(t, "Budi Santoso", b.Passengers[0].FullName)
	assert.Equal(t, paidAt, *b.PaidAt)
}

func TestStep(t *testing.T) {
	assert.Equal(t, "booked-pending", StepBookedPending.String())
	assert.Equal(t, "unknown", Step(99).String())

	data, err := json.Marshal(struct {
		Step Step `json:"step"`
	}{StepSeatsChosen})
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"seats-chosen"}`, string(data))
}

func TestStepError(t *testing.T) {
	var err error = &StepError{Operation: "toggle-seat", Current: StepSearched, Required: StepBusSelected, Err: ErrBusNotSelected}
	wrapped := fmt.Errorf("request: %w", err)

	assert.True(t, IsStepError(wrapped))
	assert.True(t, errors.Is(wrapped, ErrBusNotSelected))
	assert.Contains(t, err.Error(), "bus-selected")
	assert.False(t, IsStepError(ErrBusNotSelected))
}

func TestInputError(t *testing.T) {
	ie := NewInputError()
	assert.NoError(t, ie.OrNil())

	ie.Add("email", "provide a valid email")
	err := fmt.Errorf("wrapped: %w", ie.OrNil())

	assert.Same(t, ie, AsInputError(err))
	assert.Nil(t, AsInputError(errors.New("other")))
	assert.Nil(t, AsInputError(nil))
}
