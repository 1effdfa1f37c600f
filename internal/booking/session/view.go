package session

import (
	"slices"
	"time"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
)

// View is a self-contained snapshot of a session for rendering. It shares no
// memory with the session.
type View struct {
	ID            string                  `json:"id"`
	Step          domain.Step             `json:"step"`
	Searching     bool                    `json:"isSearching"`
	Criteria      *domain.SearchCriteria  `json:"criteria,omitempty"`
	Results       []domain.BusOffer       `json:"results"`
	SelectedBus   *domain.BusOffer        `json:"selectedBus,omitempty"`
	SeatMap       []domain.Seat           `json:"seatMap"`
	SelectedSeats []string                `json:"selectedSeats"`
	Passengers    []domain.Passenger      `json:"passengers"`
	Promo         domain.PromoState       `json:"promo"`
	Payment       domain.PaymentSelection `json:"payment"`
	Subtotal      int64                   `json:"subtotal"`
	Discount      int64                   `json:"discount"`
	Total         int64                   `json:"total"`
	Booking       *domain.Booking         `json:"booking,omitempty"`
	Expired       bool                    `json:"isExpired"`
	Remaining     time.Duration           `json:"remainingNanos"`
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	subtotal := s.subtotal()
	v := View{
		ID:            s.id,
		Step:          s.currentStep(),
		Searching:     st.searching,
		Results:       domain.CloneOffers(st.results),
		SelectedSeats: slices.Clone(st.selected),
		Passengers:    slices.Clone(st.passengers),
		Promo:         st.promo,
		Payment:       st.payment,
		Subtotal:      subtotal,
		Discount:      Discount(subtotal, st.promo.DiscountFraction),
		Total:         Total(subtotal, st.promo.DiscountFraction),
	}

	if st.criteria != nil {
		criteria := *st.criteria
		v.Criteria = &criteria
	}
	if st.bus != nil {
		bus := st.bus.Clone()
		v.SelectedBus = &bus
	}
	if st.seatMap != nil {
		v.SeatMap = make([]domain.Seat, len(st.seatMap))
		for i, seat := range st.seatMap {
			seat.Selected = slices.Contains(st.selected, seat.ID)
			v.SeatMap[i] = seat
		}
	}
	if st.booking != nil {
		booking := st.booking.Clone()
		now := s.clock.Now()
		v.Booking = &booking
		v.Expired = booking.Expired(now)
		v.Remaining = booking.Remaining(now)
	}
	return v
}
