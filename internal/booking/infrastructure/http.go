package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mateusmacedo/bus-storefront/internal/booking/application"
	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/booking/offers"
	"github.com/mateusmacedo/bus-storefront/internal/booking/session"
	"github.com/mateusmacedo/bus-storefront/internal/catalog"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
	pkgDomain "github.com/mateusmacedo/bus-storefront/pkg/domain"
)

type ConfirmPaymentBus = pkgApp.CommandBus[pkgDomain.Command[application.ConfirmPaymentData], application.ConfirmPaymentData]

type FindBookingBus = pkgApp.QueryBus[pkgDomain.Query[application.FindBookingData], application.FindBookingData, domain.Booking]

type BookingHTTPHandler struct {
	sessions   *session.Registry
	commandBus ConfirmPaymentBus
	queryBus   FindBookingBus
	logger     pkgApp.AppLogger
	timeout    time.Duration
}

func NewBookingHTTPHandler(sessions *session.Registry, commandBus ConfirmPaymentBus, queryBus FindBookingBus, logger pkgApp.AppLogger, timeout time.Duration) *BookingHTTPHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BookingHTTPHandler{
		sessions:   sessions,
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
		timeout:    timeout,
	}
}

func (h *BookingHTTPHandler) RegisterRoutes(router chi.Router) {
	router.Get("/liveness", h.HandleLiveness)
	router.Get("/catalog", h.HandleCatalog)
	router.Get("/bookings/{code}", h.HandleFindBooking)

	router.Post("/sessions", h.HandleOpenSession)
	router.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.HandleGetSession)
		r.Delete("/", h.HandleCloseSession)
		r.Post("/search", h.HandleSearch)
		r.Get("/offers", h.HandleOffers)
		r.Post("/bus", h.HandleSelectBus)
		r.Post("/seats/{seatID}/toggle", h.HandleToggleSeat)
		r.Post("/passengers", h.HandleInitPassengers)
		r.Patch("/passengers/{index}", h.HandleUpdatePassenger)
		r.Post("/promo", h.HandleApplyPromo)
		r.Post("/payment", h.HandleSelectPayment)
		r.Post("/booking", h.HandleCreateBooking)
		r.Post("/booking/confirm", h.HandleConfirmPayment)
		r.Post("/reset", h.HandleReset)
	})
}

// RequestContext copies chi's request id into the context key read by the
// logger adapters.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestID := middleware.GetReqID(r.Context()); requestID != "" {
			r = r.WithContext(pkgApp.WithRequestID(r.Context(), requestID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request through the application logger.
func RequestLogger(logger pkgApp.AppLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			pkgApp.LogInfo(r.Context(), logger, "http request", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			})
		})
	}
}

func (h *BookingHTTPHandler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *BookingHTTPHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cities":         catalog.Cities(),
		"busClasses":     catalog.BusClasses(),
		"facilities":     catalog.Facilities(),
		"paymentMethods": catalog.PaymentMethods(),
	})
}

func (h *BookingHTTPHandler) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Open(r.Context())
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *BookingHTTPHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *BookingHTTPHandler) HandleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type searchRequest struct {
	OriginCityID      string `json:"originCityId"`
	DestinationCityID string `json:"destinationCityId"`
	Date              string `json:"date"`
	PassengerCount    int    `json:"passengerCount"`
}

func (req searchRequest) criteria() (domain.SearchCriteria, error) {
	criteria := domain.SearchCriteria{
		OriginCityID:      req.OriginCityID,
		DestinationCityID: req.DestinationCityID,
		PassengerCount:    req.PassengerCount,
	}
	if req.Date == "" {
		return criteria, nil
	}

	date, err := time.Parse(domain.DateLayout, req.Date)
	if err != nil {
		inputErr := domain.NewInputError()
		inputErr.Add("date", "use the YYYY-MM-DD format")
		return criteria, inputErr
	}
	criteria.Date = date
	return criteria, nil
}

func (h *BookingHTTPHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if !h.decode(w, r, &req) {
		return
	}
	criteria, err := req.criteria()
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results, err := s.SearchBuses(ctx, criteria)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results, "step": s.Step()})
}

func (h *BookingHTTPHandler) HandleOffers(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": filter.Apply(s.Results())})
}

func parseFilter(r *http.Request) (offers.Filter, error) {
	q := r.URL.Query()
	filter := offers.Filter{
		ClassIDs:    splitList(q.Get("class")),
		FacilityIDs: splitList(q.Get("facility")),
		DepartFrom:  q.Get("from"),
		DepartTo:    q.Get("to"),
		Sort:        offers.SortKey(q.Get("sort")),
	}

	if raw := q.Get("maxPrice"); raw != "" {
		maxPrice, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxPrice < 0 {
			inputErr := domain.NewInputError()
			inputErr.Add("maxPrice", "use a positive whole number")
			return filter, inputErr
		}
		filter.MaxPrice = maxPrice
	}
	return filter, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *BookingHTTPHandler) HandleSelectBus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		OfferID string `json:"offerId"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if _, err := s.SelectBus(r.Context(), req.OfferID); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *BookingHTTPHandler) HandleToggleSeat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	outcome, err := s.ToggleSeat(r.Context(), chi.URLParam(r, "seatID"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"outcome": outcome, "session": s.View()})
}

func (h *BookingHTTPHandler) HandleInitPassengers(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	passengers, err := s.InitializePassengers(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"passengers": passengers})
}

func (h *BookingHTTPHandler) HandleUpdatePassenger(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "passenger index must be a number", nil)
		return
	}

	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := s.UpdatePassenger(r.Context(), index, domain.PassengerField(req.Field), req.Value); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"passengers": s.Passengers()})
}

func (h *BookingHTTPHandler) HandleApplyPromo(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	applied := s.ApplyPromoCode(r.Context(), req.Code)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applied":  applied,
		"promo":    s.Promo(),
		"subtotal": s.CalculateSubtotal(),
		"discount": s.CalculateDiscount(),
		"total":    s.CalculateTotalPrice(),
	})
}

func (h *BookingHTTPHandler) HandleSelectPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req domain.PaymentSelection
	if !h.decode(w, r, &req) {
		return
	}

	if err := s.SelectPayment(r.Context(), req.MethodID, req.OptionID); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *BookingHTTPHandler) HandleCreateBooking(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	booking, err := s.CreateBooking(ctx)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

// HandleConfirmPayment is the payment provider callback. A synchronous bus
// answers 200 with the paid session. An asynchronous bus answers 202 once the
// command is published; the confirmation lands after the response, so the
// session is checked for a pending booking up front.
func (h *BookingHTTPHandler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	synchronous := isSynchronous(h.commandBus)
	if !synchronous {
		if _, err := s.PendingBooking(); err != nil {
			h.handleError(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	command := application.NewConfirmPaymentCommand(application.ConfirmPaymentData{SessionID: s.ID()})
	if err := h.commandBus.Dispatch(ctx, command); err != nil {
		h.handleError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if synchronous {
		status = http.StatusOK
	}
	writeJSON(w, status, s.View())
}

func isSynchronous(bus interface{}) bool {
	s, ok := bus.(interface{ Synchronous() bool })
	return ok && s.Synchronous()
}

func (h *BookingHTTPHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	s.ResetBooking(r.Context())
	writeJSON(w, http.StatusOK, s.View())
}

func (h *BookingHTTPHandler) HandleFindBooking(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	query := application.NewFindBookingQuery(application.FindBookingData{Code: code})

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	booking, err := h.queryBus.Dispatch(ctx, query)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHTTPHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *BookingHTTPHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		pkgApp.LogDebug(r.Context(), h.logger, "invalid request body", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

func (h *BookingHTTPHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		pkgApp.LogError(r.Context(), h.logger, "request failed", err, map[string]interface{}{
			"path": r.URL.Path,
		})
	}

	var fields map[string][]string
	if inputErr := domain.AsInputError(err); inputErr != nil {
		fields = inputErr.Fields()
	}
	writeError(w, status, err.Error(), fields)
}

func statusFor(err error) int {
	switch {
	case domain.AsInputError(err) != nil:
		return http.StatusUnprocessableEntity
	case domain.IsStepError(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownOffer),
		errors.Is(err, domain.ErrUnknownPaymentOption),
		errors.Is(err, domain.ErrPassengerIndex):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrCodeExhausted):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	body := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	writeJSON(w, status, body)
}
