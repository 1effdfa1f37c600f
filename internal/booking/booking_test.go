package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateusmacedo/bus-storefront/internal/booking/application"
	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/booking/infrastructure"
	"github.com/mateusmacedo/bus-storefront/internal/booking/session"
	"github.com/mateusmacedo/bus-storefront/internal/clock"
	"github.com/mateusmacedo/bus-storefront/internal/random"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
	pkgInfra "github.com/mateusmacedo/bus-storefront/pkg/infrastructure"
	channelsAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/channels/adapter"
	watermillAdapter "github.com/mateusmacedo/bus-storefront/pkg/infrastructure/watermill/adapter"
)

type testServer struct {
	*httptest.Server
	repo  *infrastructure.InMemoryBookingRepository
	slice *BookingSlice
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	return newTestServerWith(t, pkgInfra.NewSimpleCommandBus[pkgDomain.Command[application.ConfirmPaymentData], application.ConfirmPaymentData](pkgApp.NopLogger{}))
}

func newTestServerWith(t *testing.T, commandBus infrastructure.ConfirmPaymentBus) testServer {
	t.Helper()
	logger := pkgApp.NopLogger{}

	cfg := session.DefaultConfig()
	cfg.BookedProbability = 0

	repo := infrastructure.NewInMemoryBookingRepository(logger)
	slice := NewBookingSlice(
		Options{
			Session: cfg,
			Clock:   clock.NewFake(time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)),
			Random:  random.New(99),
		},
		commandBus,
		pkgInfra.NewSimpleQueryBus[pkgDomain.Query[application.FindBookingData], application.FindBookingData, domain.Booking](logger),
		pkgInfra.NewSimpleEventBus[pkgDomain.Event[application.BookingEventData], application.BookingEventData](logger),
		repo,
		pkgInfra.GenerateUUID,
		logger,
	)

	router := chi.NewRouter()
	slice.RegisterRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return testServer{Server: server, repo: repo, slice: slice}
}

func (s testServer) do(t *testing.T, method, path string, body interface{}, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type sessionBody struct {
	ID            string          `json:"id"`
	Step          string          `json:"step"`
	SelectedSeats []string        `json:"selectedSeats"`
	Total         int64           `json:"total"`
	Booking       *domain.Booking `json:"booking"`
}

func TestCheckoutOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	var opened sessionBody
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/sessions", nil, &opened))
	require.NotEmpty(t, opened.ID)
	assert.Equal(t, "no-search", opened.Step)
	base := "/sessions/" + opened.ID

	var search struct {
		Results []domain.BusOffer `json:"results"`
		Step    string            `json:"step"`
	}
	status := srv.do(t, http.MethodPost, base+"/search", map[string]interface{}{
		"originCityId":      "jakarta",
		"destinationCityId": "bandung",
		"date":              "2026-01-01",
		"passengerCount":    2,
	}, &search)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, search.Results, 24)
	assert.Equal(t, "searched", search.Step)

	var filtered struct {
		Results []domain.BusOffer `json:"results"`
	}
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, base+"/offers?class=economy&sort=price", nil, &filtered))
	assert.Len(t, filtered.Results, 8)

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, base+"/bus", map[string]string{
		"offerId": "jakarta-bandung-20260101-0530-economy",
	}, nil))

	for _, seat := range []string{"1A", "1B"} {
		require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, base+"/seats/"+seat+"/toggle", nil, nil))
	}

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, base+"/passengers", nil, nil))
	updates := []struct {
		index        string
		field, value string
	}{
		{"0", "fullName", "Budi Santoso"},
		{"0", "idNumber", "3174000000000001"},
		{"0", "phone", "081234567890"},
		{"0", "email", "budi@example.com"},
		{"1", "fullName", "Siti Aminah"},
		{"1", "idType", "passport"},
		{"1", "idNumber", "X1234567"},
	}
	for _, u := range updates {
		status := srv.do(t, http.MethodPatch, base+"/passengers/"+u.index, map[string]string{"field": u.field, "value": u.value}, nil)
		require.Equal(t, http.StatusOK, status, u.field)
	}

	var promo struct {
		Applied  bool  `json:"applied"`
		Discount int64 `json:"discount"`
		Total    int64 `json:"total"`
	}
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, base+"/promo", map[string]string{"code": "cipeng20"}, &promo))
	assert.True(t, promo.Applied)
	assert.Equal(t, int64(32_000), promo.Discount)
	assert.Equal(t, int64(128_000), promo.Total)

	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, base+"/payment", map[string]string{
		"methodId": "e-wallet",
		"optionId": "gopay",
	}, nil))

	var created domain.Booking
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, base+"/booking", nil, &created))
	assert.Equal(t, domain.StatusPending, created.Status)
	assert.Equal(t, int64(128_000), created.Payment.Total)

	var confirmed sessionBody
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, base+"/booking/confirm", nil, &confirmed))
	assert.Equal(t, "booked-paid", confirmed.Step)
	require.NotNil(t, confirmed.Booking)
	assert.Equal(t, domain.StatusPaid, confirmed.Booking.Status)

	var found domain.Booking
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/bookings/"+created.Code, nil, &found))
	assert.Equal(t, domain.StatusPaid, found.Status)
	assert.Equal(t, created.Passengers, found.Passengers)

	var reset sessionBody
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, base+"/reset", nil, &reset))
	assert.Equal(t, "searched", reset.Step)
	assert.Nil(t, reset.Booking)

	require.Equal(t, http.StatusNoContent, srv.do(t, http.MethodDelete, base, nil, nil))
	require.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, base, nil, &map[string]interface{}{}))
}

func TestHTTPErrors(t *testing.T) {
	srv := newTestServer(t)

	var opened sessionBody
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/sessions", nil, &opened))
	base := "/sessions/" + opened.ID

	var body struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}

	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, base+"/seats/1A/toggle", nil, &body))
	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, base+"/booking/confirm", nil, &body))

	status := srv.do(t, http.MethodPost, base+"/search", map[string]interface{}{
		"originCityId": "jakarta",
		"date":         "tomorrow",
	}, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Fields, "date")

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/bookings/BUSNOPE0000", nil, &body))
	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodGet, "/sessions/unknown", nil, &body))
	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPatch, base+"/passengers/x", map[string]string{}, &body))
}

func TestCatalogAndLiveness(t *testing.T) {
	srv := newTestServer(t)

	var live map[string]string
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/liveness", nil, &live))
	assert.Equal(t, "ok", live["status"])

	var catalog struct {
		Cities         []map[string]interface{} `json:"cities"`
		BusClasses     []map[string]interface{} `json:"busClasses"`
		PaymentMethods []map[string]interface{} `json:"paymentMethods"`
	}
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/catalog", nil, &catalog))
	assert.NotEmpty(t, catalog.Cities)
	assert.Len(t, catalog.BusClasses, 3)
	assert.Len(t, catalog.PaymentMethods, 4)
}

func TestConfirmOverAsyncBus(t *testing.T) {
	logger := pkgApp.NopLogger{}
	pubSub := channelsAdapter.NewGoChannel(logger)
	t.Cleanup(func() { _ = pubSub.Close() })
	commandBus := watermillAdapter.NewWatermillCommandBus[pkgDomain.Command[application.ConfirmPaymentData], application.ConfirmPaymentData](pubSub, pubSub, logger)
	t.Cleanup(commandBus.Close)

	srv := newTestServerWith(t, commandBus)

	var opened sessionBody
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/sessions", nil, &opened))
	base := "/sessions/" + opened.ID

	var body map[string]interface{}
	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, base+"/booking/confirm", nil, &body))

	s, err := srv.slice.Sessions().Get(opened.ID)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = s.SearchBuses(ctx, domain.SearchCriteria{
		OriginCityID:      "jakarta",
		DestinationCityID: "bandung",
		Date:              time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PassengerCount:    1,
	})
	require.NoError(t, err)
	_, err = s.SelectBus(ctx, "jakarta-bandung-20260101-0530-economy")
	require.NoError(t, err)
	_, err = s.ToggleSeat(ctx, "2A")
	require.NoError(t, err)
	_, err = s.InitializePassengers(ctx)
	require.NoError(t, err)
	require.NoError(t, s.UpdatePassenger(ctx, 0, domain.FieldFullName, "Budi Santoso"))
	require.NoError(t, s.UpdatePassenger(ctx, 0, domain.FieldIDNumber, "3174000000000001"))
	require.NoError(t, s.UpdatePassenger(ctx, 0, domain.FieldPhone, "081234567890"))
	require.NoError(t, s.UpdatePassenger(ctx, 0, domain.FieldEmail, "budi@example.com"))
	require.NoError(t, s.SelectPayment(ctx, "e-wallet", "gopay"))
	booking, err := s.CreateBooking(ctx)
	require.NoError(t, err)

	assert.Equal(t, http.StatusAccepted, srv.do(t, http.MethodPost, base+"/booking/confirm", nil, &body))

	stored, err := srv.repo.FindByCode(ctx, booking.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
}
