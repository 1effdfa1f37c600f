// Package session implements the checkout state machine of one browsing
// session: search, bus selection, seat selection, passengers, payment and
// booking, with the derived pricing.
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/booking/offers"
	"github.com/mateusmacedo/bus-storefront/internal/booking/seatmap"
	"github.com/mateusmacedo/bus-storefront/internal/catalog"
	"github.com/mateusmacedo/bus-storefront/internal/clock"
	"github.com/mateusmacedo/bus-storefront/internal/random"
	pkgApp "github.com/mateusmacedo/bus-storefront/pkg/application"
)

type Config struct {
	SearchLatency     time.Duration
	CreateLatency     time.Duration
	ConfirmLatency    time.Duration
	Hold              time.Duration
	BookedProbability float64
	CodeAttempts      int
}

func DefaultConfig() Config {
	return Config{
		SearchLatency:     800 * time.Millisecond,
		CreateLatency:     500 * time.Millisecond,
		ConfirmLatency:    1500 * time.Millisecond,
		Hold:              15 * time.Minute,
		BookedProbability: seatmap.DefaultBookedProbability,
		CodeAttempts:      5,
	}
}

type bookingStore interface {
	Save(ctx context.Context, booking domain.Booking) error
	Update(ctx context.Context, booking domain.Booking) error
	Exists(ctx context.Context, code string) (bool, error)
}

// Listener is told about committed booking transitions. Implementations
// must not call back into the session.
type Listener interface {
	BookingCreated(ctx context.Context, booking domain.Booking)
	BookingPaid(ctx context.Context, booking domain.Booking)
}

type Deps struct {
	Clock    clock.Clock
	Random   random.Source
	Logger   pkgApp.AppLogger
	Store    bookingStore
	Listener Listener
}

type SeatToggle string

const (
	SeatIgnored    SeatToggle = "ignored"
	SeatSelected   SeatToggle = "selected"
	SeatDeselected SeatToggle = "deselected"
	// SeatSwapped means the selection was full and the oldest seat made room.
	SeatSwapped SeatToggle = "swapped"
)

type state struct {
	step       domain.Step
	searching  bool
	criteria   *domain.SearchCriteria
	results    []domain.BusOffer
	bus        *domain.BusOffer
	seatMap    []domain.Seat
	selected   []string
	passengers []domain.Passenger
	promo      domain.PromoState
	payment    domain.PaymentSelection
	booking    *domain.Booking
}

// Session owns the mutable checkout state. Mutating operations are
// serialized by op; mu only guards reads against an in-flight commit, so a
// View taken during a simulated delay sees the searching flag.
type Session struct {
	id       string
	cfg      Config
	clock    clock.Clock
	rnd      random.Source
	offers   *offers.Generator
	seats    *seatmap.Generator
	store    bookingStore
	listener Listener
	logger   pkgApp.AppLogger

	op         sync.Mutex
	mu         sync.RWMutex
	state      state
	lastActive time.Time
}

func New(id string, cfg Config, deps Deps) *Session {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Random == nil {
		deps.Random = random.New(0)
	}
	if deps.Logger == nil {
		deps.Logger = pkgApp.NopLogger{}
	}

	return &Session{
		id:         id,
		cfg:        cfg,
		clock:      deps.Clock,
		rnd:        deps.Random,
		offers:     offers.NewGenerator(deps.Random),
		seats:      seatmap.NewGenerator(deps.Random),
		store:      deps.Store,
		listener:   deps.Listener,
		logger:     deps.Logger,
		lastActive: deps.Clock.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Step reports the booked steps while a booking is active, otherwise the
// checkout step.
func (s *Session) Step() domain.Step {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentStep()
}

func (s *Session) currentStep() domain.Step {
	if b := s.state.booking; b != nil {
		if b.Status == domain.StatusPaid {
			return domain.StepBookedPaid
		}
		return domain.StepBookedPending
	}
	return s.state.step
}

func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.lastActive = s.clock.Now()
}

func (s *Session) stepError(operation string, required domain.Step, err error) error {
	return &domain.StepError{
		Operation: operation,
		Current:   s.currentStep(),
		Required:  required,
		Err:       err,
	}
}

func (s *Session) logFields(fields map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		"session_id": s.id,
		"step":       s.currentStep().String(),
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (s *Session) rejected(ctx context.Context, operation string, err error) error {
	pkgApp.LogWarn(ctx, s.logger, "operation rejected", err, s.logFields(map[string]interface{}{
		"operation": operation,
	}))
	return err
}

// SearchBuses replaces criteria and results wholesale, dropping any bus,
// seat, passenger and payment choice made against the previous search,
// together with a booking created from them.
func (s *Session) SearchBuses(ctx context.Context, criteria domain.SearchCriteria) ([]domain.BusOffer, error) {
	criteria = criteria.Normalize()
	if err := criteria.Validate(); err != nil {
		return nil, s.rejected(ctx, "search", err)
	}

	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	s.state.searching = true
	s.touch()
	s.mu.Unlock()

	if err := clock.Wait(ctx, s.clock, s.cfg.SearchLatency); err != nil {
		s.mu.Lock()
		s.state.searching = false
		s.mu.Unlock()
		return nil, err
	}

	results := s.offers.Generate(criteria.OriginCityID, criteria.DestinationCityID, criteria.Date)

	s.mu.Lock()
	s.state.searching = false
	s.state.criteria = &criteria
	s.state.results = results
	s.clearBus()
	s.state.step = domain.StepSearched
	s.touch()
	fields := s.logFields(map[string]interface{}{
		"origin":          criteria.OriginCityID,
		"destination":     criteria.DestinationCityID,
		"date":            criteria.Date.Format(domain.DateLayout),
		"passenger_count": criteria.PassengerCount,
		"offers":          len(results),
	})
	s.mu.Unlock()

	pkgApp.LogInfo(ctx, s.logger, "buses searched", fields)
	return domain.CloneOffers(results), nil
}

// SelectBus picks an offer of the current results and lays out a fresh seat
// map for it. Earlier seat, passenger and payment choices are dropped.
func (s *Session) SelectBus(ctx context.Context, offerID string) (domain.BusOffer, error) {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.criteria == nil {
		return domain.BusOffer{}, s.rejected(ctx, "select-bus", s.stepError("select-bus", domain.StepSearched, domain.ErrNoSearch))
	}

	idx := slices.IndexFunc(s.state.results, func(o domain.BusOffer) bool { return o.ID == offerID })
	if idx < 0 {
		return domain.BusOffer{}, s.rejected(ctx, "select-bus", fmt.Errorf("%s: %w", offerID, domain.ErrUnknownOffer))
	}

	offer := s.state.results[idx].Clone()
	s.state.bus = &offer
	s.state.seatMap = s.seats.Generate(offer.TotalSeatCount, s.cfg.BookedProbability)
	s.clearSeats()
	s.state.step = domain.StepBusSelected
	s.touch()

	pkgApp.LogInfo(ctx, s.logger, "bus selected", s.logFields(map[string]interface{}{
		"offer_id":   offer.ID,
		"unit_price": offer.UnitPrice,
		"seats":      len(s.state.seatMap),
	}))
	return offer.Clone(), nil
}

// ToggleSeat flips a seat in or out of the selection. Unknown and booked
// seats are ignored. When the selection already holds one seat per
// passenger, the oldest selected seat is evicted to make room.
func (s *Session) ToggleSeat(ctx context.Context, seatID string) (SeatToggle, error) {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.bus == nil {
		return SeatIgnored, s.rejected(ctx, "toggle-seat", s.stepError("toggle-seat", domain.StepBusSelected, domain.ErrBusNotSelected))
	}

	idx := slices.IndexFunc(s.state.seatMap, func(seat domain.Seat) bool { return seat.ID == seatID })
	if idx < 0 || s.state.seatMap[idx].Booked {
		pkgApp.LogDebug(ctx, s.logger, "seat ignored", s.logFields(map[string]interface{}{"seat_id": seatID}))
		return SeatIgnored, nil
	}

	var outcome SeatToggle
	selected := s.state.selected
	switch pos := slices.Index(selected, seatID); {
	case pos >= 0:
		selected = slices.Delete(selected, pos, pos+1)
		outcome = SeatDeselected
	case len(selected) < s.state.criteria.PassengerCount:
		selected = append(selected, seatID)
		outcome = SeatSelected
	default:
		selected = append(selected[1:], seatID)
		outcome = SeatSwapped
	}

	s.state.selected = selected
	s.clearPassengers()
	if len(selected) > 0 {
		s.state.step = domain.StepSeatsChosen
	} else {
		s.state.step = domain.StepBusSelected
	}
	s.touch()

	pkgApp.LogInfo(ctx, s.logger, "seat toggled", s.logFields(map[string]interface{}{
		"seat_id":  seatID,
		"outcome":  string(outcome),
		"selected": slices.Clone(selected),
	}))
	return outcome, nil
}

// InitializePassengers derives one empty record per selected seat in
// selection order, discarding any previous records.
func (s *Session) InitializePassengers(ctx context.Context) ([]domain.Passenger, error) {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.bus == nil {
		return nil, s.rejected(ctx, "init-passengers", s.stepError("init-passengers", domain.StepSeatsChosen, domain.ErrBusNotSelected))
	}
	if len(s.state.selected) == 0 {
		return nil, s.rejected(ctx, "init-passengers", s.stepError("init-passengers", domain.StepSeatsChosen, domain.ErrNoSeatsSelected))
	}

	passengers := make([]domain.Passenger, len(s.state.selected))
	for i, seatID := range s.state.selected {
		passengers[i] = domain.Passenger{SeatID: seatID, IDType: domain.IDTypeNationalID}
	}
	s.state.passengers = passengers
	s.state.payment = domain.PaymentSelection{}
	s.state.step = domain.StepPassengersEntered
	s.touch()

	pkgApp.LogInfo(ctx, s.logger, "passengers initialized", s.logFields(map[string]interface{}{
		"passengers": len(passengers),
	}))
	return slices.Clone(passengers), nil
}

// UpdatePassenger sets one field of the passenger at index. Contact fields
// are only accepted on index 0.
func (s *Session) UpdatePassenger(ctx context.Context, index int, field domain.PassengerField, value string) error {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.passengers == nil {
		return s.rejected(ctx, "update-passenger", s.stepError("update-passenger", domain.StepPassengersEntered, domain.ErrPassengersMissing))
	}
	if index < 0 || index >= len(s.state.passengers) {
		return s.rejected(ctx, "update-passenger", fmt.Errorf("index %d of %d: %w", index, len(s.state.passengers), domain.ErrPassengerIndex))
	}

	inputErr := domain.NewInputError()
	key := fmt.Sprintf("passengers[%d].%s", index, field)
	value = strings.TrimSpace(value)
	p := &s.state.passengers[index]

	if field.ContactOnly() && index != 0 {
		inputErr.Add(key, "contact details belong to the first passenger")
		return s.rejected(ctx, "update-passenger", inputErr)
	}

	switch field {
	case domain.FieldFullName:
		p.FullName = value
	case domain.FieldIDType:
		idType := domain.IDType(value)
		if !idType.Valid() {
			inputErr.Add(key, "choose national-id, driver-license or passport")
			return s.rejected(ctx, "update-passenger", inputErr)
		}
		p.IDType = idType
	case domain.FieldIDNumber:
		p.IDNumber = value
	case domain.FieldPhone:
		p.Phone = value
	case domain.FieldEmail:
		p.Email = value
	default:
		inputErr.Add(string(field), "unknown passenger field")
		return s.rejected(ctx, "update-passenger", inputErr)
	}
	s.touch()

	pkgApp.LogDebug(ctx, s.logger, "passenger updated", s.logFields(map[string]interface{}{
		"index": index,
		"field": string(field),
	}))
	return nil
}

// ApplyPromoCode reports whether the code exists. A miss leaves the current
// promo in place.
func (s *Session) ApplyPromoCode(ctx context.Context, code string) bool {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()
	normalized, fraction, ok := catalog.LookupPromo(code)
	if !ok {
		pkgApp.LogInfo(ctx, s.logger, "promo code rejected", s.logFields(map[string]interface{}{
			"code": code,
		}))
		return false
	}

	s.state.promo = domain.PromoState{Code: normalized, DiscountFraction: fraction}
	pkgApp.LogInfo(ctx, s.logger, "promo code applied", s.logFields(map[string]interface{}{
		"code":     normalized,
		"fraction": fraction,
	}))
	return true
}

// SelectPayment records the method and concrete option, both required
// before a booking can be created.
func (s *Session) SelectPayment(ctx context.Context, methodID, optionID string) error {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.passengers == nil {
		return s.rejected(ctx, "select-payment", s.stepError("select-payment", domain.StepPassengersEntered, domain.ErrPassengersMissing))
	}
	if _, _, ok := catalog.PaymentOptionByID(methodID, optionID); !ok {
		return s.rejected(ctx, "select-payment", fmt.Errorf("%s/%s: %w", methodID, optionID, domain.ErrUnknownPaymentOption))
	}

	s.state.payment = domain.PaymentSelection{MethodID: methodID, OptionID: optionID}
	s.state.step = domain.StepPaymentChosen
	s.touch()

	pkgApp.LogInfo(ctx, s.logger, "payment selected", s.logFields(map[string]interface{}{
		"method": methodID,
		"option": optionID,
	}))
	return nil
}

func (s *Session) CalculateSubtotal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subtotal()
}

func (s *Session) CalculateDiscount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Discount(s.subtotal(), s.state.promo.DiscountFraction)
}

func (s *Session) CalculateTotalPrice() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Total(s.subtotal(), s.state.promo.DiscountFraction)
}

func (s *Session) subtotal() int64 {
	if s.state.bus == nil {
		return 0
	}
	return Subtotal(s.state.bus.UnitPrice, len(s.state.selected))
}

// CreateBooking freezes the current cart into a pending booking that must be
// paid within the hold window. Every call issues a new code; nothing is
// deduplicated against an earlier booking of the same cart.
func (s *Session) CreateBooking(ctx context.Context) (domain.Booking, error) {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	draft, err := s.draftBooking()
	s.mu.RUnlock()
	if err != nil {
		return domain.Booking{}, s.rejected(ctx, "create-booking", err)
	}

	if err := clock.Wait(ctx, s.clock, s.cfg.CreateLatency); err != nil {
		return domain.Booking{}, err
	}

	code, err := uniqueCode(ctx, s.rnd, s.store, s.cfg.CodeAttempts)
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "booking code generation failed", err, s.logFields(nil))
		return domain.Booking{}, err
	}

	now := s.clock.Now()
	draft.Code = code
	draft.SessionID = s.id
	draft.Status = domain.StatusPending
	draft.CreatedAt = now
	draft.ExpiresAt = now.Add(s.cfg.Hold)

	if s.store != nil {
		if err := s.store.Save(ctx, draft.Clone()); err != nil {
			pkgApp.LogError(ctx, s.logger, "booking save failed", err, s.logFields(map[string]interface{}{"code": code}))
			return domain.Booking{}, fmt.Errorf("save booking %s: %w", code, err)
		}
	}

	s.mu.Lock()
	active := draft.Clone()
	s.state.booking = &active
	s.touch()
	fields := s.logFields(map[string]interface{}{
		"code":       code,
		"total":      draft.Payment.Total,
		"expires_at": draft.ExpiresAt,
	})
	s.mu.Unlock()

	pkgApp.LogInfo(ctx, s.logger, "booking created", fields)
	if s.listener != nil {
		s.listener.BookingCreated(ctx, draft.Clone())
	}
	return draft, nil
}

func (s *Session) draftBooking() (domain.Booking, error) {
	const op = "create-booking"

	switch {
	case s.state.bus == nil:
		return domain.Booking{}, s.stepError(op, domain.StepPaymentChosen, domain.ErrBusNotSelected)
	case len(s.state.selected) == 0:
		return domain.Booking{}, s.stepError(op, domain.StepPaymentChosen, domain.ErrNoSeatsSelected)
	case len(s.state.passengers) != len(s.state.selected):
		return domain.Booking{}, s.stepError(op, domain.StepPaymentChosen, domain.ErrPassengersMissing)
	case !s.state.payment.Complete():
		return domain.Booking{}, s.stepError(op, domain.StepPaymentChosen, domain.ErrPaymentMissing)
	}

	if err := domain.ValidatePassengers(s.state.passengers); err != nil {
		return domain.Booking{}, err
	}

	subtotal := s.subtotal()
	fraction := s.state.promo.DiscountFraction
	return domain.Booking{
		Bus:           s.state.bus.Clone(),
		SelectedSeats: slices.Clone(s.state.selected),
		Passengers:    slices.Clone(s.state.passengers),
		Payment: domain.PaymentSummary{
			MethodID:  s.state.payment.MethodID,
			OptionID:  s.state.payment.OptionID,
			Subtotal:  subtotal,
			Discount:  Discount(subtotal, fraction),
			PromoCode: s.state.promo.Code,
			Total:     Total(subtotal, fraction),
		},
	}, nil
}

// ConfirmPayment moves the active booking from pending to paid. The caller
// is trusted: there is no gateway to verify the payment against. Confirming
// a paid booking is a no-op. Expiry is not checked here; the hold is a hint
// for the presentation layer.
func (s *Session) ConfirmPayment(ctx context.Context) (domain.Booking, error) {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	active := s.state.booking
	var current domain.Booking
	if active != nil {
		current = active.Clone()
	}
	s.mu.RUnlock()

	if active == nil {
		s.mu.RLock()
		err := s.stepError("confirm-payment", domain.StepBookedPending, domain.ErrNoActiveBooking)
		s.mu.RUnlock()
		return domain.Booking{}, s.rejected(ctx, "confirm-payment", err)
	}
	if current.Status == domain.StatusPaid {
		return current, nil
	}

	if err := clock.Wait(ctx, s.clock, s.cfg.ConfirmLatency); err != nil {
		return domain.Booking{}, err
	}

	paidAt := s.clock.Now()
	current.Status = domain.StatusPaid
	current.PaidAt = &paidAt

	if s.store != nil {
		if err := s.store.Update(ctx, current.Clone()); err != nil {
			pkgApp.LogError(ctx, s.logger, "booking update failed", err, s.logFields(map[string]interface{}{"code": current.Code}))
			return domain.Booking{}, fmt.Errorf("update booking %s: %w", current.Code, err)
		}
	}

	s.mu.Lock()
	paid := current.Clone()
	s.state.booking = &paid
	s.touch()
	fields := s.logFields(map[string]interface{}{"code": current.Code})
	s.mu.Unlock()

	pkgApp.LogInfo(ctx, s.logger, "payment confirmed", fields)
	if s.listener != nil {
		s.listener.BookingPaid(ctx, current.Clone())
	}
	return current, nil
}

// ResetBooking discards everything but the last search, so the results can
// be reused for the next booking.
func (s *Session) ResetBooking(ctx context.Context) {
	s.op.Lock()
	defer s.op.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearBus()
	s.state.promo = domain.PromoState{}
	if s.state.criteria != nil {
		s.state.step = domain.StepSearched
	} else {
		s.state.step = domain.StepNoSearch
	}
	s.touch()

	pkgApp.LogInfo(ctx, s.logger, "booking reset", s.logFields(nil))
}

// PendingBooking returns a copy of the active booking, or the error
// ConfirmPayment would reject the session with.
func (s *Session) PendingBooking() (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.booking == nil {
		return domain.Booking{}, s.stepError("confirm-payment", domain.StepBookedPending, domain.ErrNoActiveBooking)
	}
	return s.state.booking.Clone(), nil
}

// Booking returns a copy of the active booking.
func (s *Session) Booking() (domain.Booking, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.booking == nil {
		return domain.Booking{}, false
	}
	return s.state.booking.Clone(), true
}

func (s *Session) Results() []domain.BusOffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneOffers(s.state.results)
}

func (s *Session) SelectedSeats() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.selected)
}

func (s *Session) Passengers() []domain.Passenger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.passengers)
}

func (s *Session) Promo() domain.PromoState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.promo
}

func (s *Session) clearBus() {
	s.state.bus = nil
	s.state.seatMap = nil
	s.clearSeats()
}

// clearSeats also discards the active booking: it snapshots a cart that no
// longer exists.
func (s *Session) clearSeats() {
	s.state.selected = nil
	s.state.booking = nil
	s.clearPassengers()
}

func (s *Session) clearPassengers() {
	s.state.passengers = nil
	s.state.payment = domain.PaymentSelection{}
}
