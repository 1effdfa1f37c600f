package offers

import (
	"slices"
	"sort"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
)

type SortKey string

const (
	SortDeparture SortKey = "departure"
	SortPrice     SortKey = "price"
	SortDuration  SortKey = "duration"
)

// Filter mirrors the listing page filters. Zero values disable a criterion.
type Filter struct {
	ClassIDs    []string
	FacilityIDs []string
	DepartFrom  string
	DepartTo    string
	MaxPrice    int64
	Sort        SortKey
}

func (f Filter) matches(o domain.BusOffer) bool {
	if len(f.ClassIDs) > 0 && !slices.Contains(f.ClassIDs, o.BusClassID) {
		return false
	}
	for _, facility := range f.FacilityIDs {
		if !o.HasFacility(facility) {
			return false
		}
	}
	if f.DepartFrom != "" && o.DepartureTime < f.DepartFrom {
		return false
	}
	if f.DepartTo != "" && o.DepartureTime > f.DepartTo {
		return false
	}
	if f.MaxPrice > 0 && o.UnitPrice > f.MaxPrice {
		return false
	}
	return true
}

// Apply returns a new slice; the input is left untouched.
func (f Filter) Apply(offers []domain.BusOffer) []domain.BusOffer {
	result := make([]domain.BusOffer, 0, len(offers))
	for _, o := range offers {
		if f.matches(o) {
			result = append(result, o.Clone())
		}
	}

	switch f.Sort {
	case SortPrice:
		sort.SliceStable(result, func(i, j int) bool { return result[i].UnitPrice < result[j].UnitPrice })
	case SortDuration:
		sort.SliceStable(result, func(i, j int) bool { return result[i].DurationHours < result[j].DurationHours })
	default:
		sort.SliceStable(result, func(i, j int) bool { return result[i].DepartureTime < result[j].DepartureTime })
	}
	return result
}
