package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/booking/offers"
)

func TestStatusFor(t *testing.T) {
	inputErr := domain.NewInputError()
	inputErr.Add("date", "required")

	tests := []struct {
		err  error
		want int
	}{
		{inputErr, http.StatusUnprocessableEntity},
		{&domain.StepError{Operation: "toggle-seat", Err: domain.ErrBusNotSelected}, http.StatusConflict},
		{fmt.Errorf("x: %w", domain.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", domain.ErrBookingNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", domain.ErrUnknownOffer), http.StatusBadRequest},
		{fmt.Errorf("x: %w", domain.ErrPassengerIndex), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{domain.ErrCodeExhausted, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestParseFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/offers?class=economy,%20business&facility=wifi&from=07:00&to=13:30&maxPrice=150000&sort=price", nil)

	filter, err := parseFilter(r)
	require.NoError(t, err)

	assert.Equal(t, offers.Filter{
		ClassIDs:    []string{"economy", "business"},
		FacilityIDs: []string{"wifi"},
		DepartFrom:  "07:00",
		DepartTo:    "13:30",
		MaxPrice:    150_000,
		Sort:        offers.SortPrice,
	}, filter)

	_, err = parseFilter(httptest.NewRequest(http.MethodGet, "/offers?maxPrice=cheap", nil))
	require.NotNil(t, domain.AsInputError(err))
}

func TestSearchRequestCriteria(t *testing.T) {
	criteria, err := searchRequest{OriginCityID: "jakarta", DestinationCityID: "bandung", Date: "2026-01-01", PassengerCount: 2}.criteria()
	require.NoError(t, err)
	assert.Equal(t, 2026, criteria.Date.Year())

	_, err = searchRequest{Date: "01/01/2026"}.criteria()
	require.NotNil(t, domain.AsInputError(err))
}
