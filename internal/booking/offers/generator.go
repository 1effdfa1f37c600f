// Package offers generates the synthetic bus departures returned by a search
// and filters them for the listing page.
package offers

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/catalog"
	"github.com/mateusmacedo/bus-storefront/internal/random"
)

const (
	minDurationHours  = 4
	maxDurationHours  = 7
	minAvailableSeats = 5
	maxAvailableSeats = 24
	facilityChance    = 0.7
)

// DepartureTimes are the fixed daily slots, zero-padded so lexicographic
// order is chronological.
var DepartureTimes = []string{"05:30", "07:00", "09:15", "11:00", "13:30", "16:00", "19:00", "22:45"}

var operators = []string{
	"Sinar Jaya", "Rosalia Indah", "Pahala Kencana", "Harapan Jaya",
	"Lorena", "Primajasa", "Kramat Djati", "Gunung Harta",
}

type Generator struct {
	rnd random.Source
}

func NewGenerator(rnd random.Source) *Generator {
	return &Generator{rnd: rnd}
}

// Generate always returns len(DepartureTimes) offers per bus class, sorted by
// departure time. Unknown city ids only affect the display name.
func (g *Generator) Generate(originCityID, destinationCityID string, date time.Time) []domain.BusOffer {
	basePrice := catalog.RouteBasePrice(originCityID, destinationCityID)
	classes := catalog.BusClasses()

	result := make([]domain.BusOffer, 0, len(DepartureTimes)*len(classes))
	for _, departure := range DepartureTimes {
		for _, class := range classes {
			result = append(result, g.offer(originCityID, destinationCityID, date, departure, class, basePrice))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DepartureTime < result[j].DepartureTime
	})
	return result
}

func (g *Generator) offer(origin, destination string, date time.Time, departure string, class catalog.BusClass, basePrice int64) domain.BusOffer {
	operator := operators[g.rnd.IntN(len(operators))]
	duration := minDurationHours + g.rnd.IntN(maxDurationHours-minDurationHours+1)

	return domain.BusOffer{
		ID:                 offerID(origin, destination, date, departure, class.ID),
		DisplayName:        fmt.Sprintf("%s %s", operator, class.Name),
		BusClassID:         class.ID,
		DepartureTime:      departure,
		ArrivalTime:        ArrivalTime(departure, duration),
		DurationHours:      duration,
		UnitPrice:          int64(math.Round(float64(basePrice) * class.Multiplier)),
		AvailableSeatCount: minAvailableSeats + g.rnd.IntN(maxAvailableSeats-minAvailableSeats+1),
		TotalSeatCount:     class.TotalSeats,
		FacilityIDs:        g.facilities(),
		OriginCityID:       origin,
		DestinationCityID:  destination,
		Date:               date,
	}
}

// facilities keeps each catalog facility with facilityChance; AC is always present.
func (g *Generator) facilities() []string {
	var ids []string
	hasAC := false
	for _, f := range catalog.Facilities() {
		if g.rnd.Float64() < facilityChance {
			ids = append(ids, f.ID)
			hasAC = hasAC || f.ID == catalog.FacilityAC
		}
	}
	if !hasAC {
		ids = append([]string{catalog.FacilityAC}, ids...)
	}
	return ids
}

// ArrivalTime adds whole hours to an HH:MM time, wrapping past midnight and
// keeping the minutes.
func ArrivalTime(departure string, durationHours int) string {
	var hour, minute int
	if _, err := fmt.Sscanf(departure, "%d:%d", &hour, &minute); err != nil {
		return departure
	}
	return fmt.Sprintf("%02d:%02d", (hour+durationHours)%24, minute)
}

func offerID(origin, destination string, date time.Time, departure, classID string) string {
	return fmt.Sprintf("%s-%s-%s-%s%s-%s",
		origin, destination, date.Format("20060102"), departure[:2], departure[3:], classID)
}
