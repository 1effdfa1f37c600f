package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"
)

func (c SearchCriteria) Validate() error {
	inputErr := NewInputError()

	if strings.TrimSpace(c.OriginCityID) == "" {
		inputErr.Add("originCityId", "provide an origin city")
	}
	if strings.TrimSpace(c.DestinationCityID) == "" {
		inputErr.Add("destinationCityId", "provide a destination city")
	}
	if c.OriginCityID != "" && c.OriginCityID == c.DestinationCityID {
		inputErr.Add("destinationCityId", "destination must differ from origin")
	}
	if c.Date.IsZero() {
		inputErr.Add("date", "provide a travel date")
	}
	if c.PassengerCount < 1 {
		inputErr.Add("passengerCount", "at least one passenger is required")
	}

	return inputErr.OrNil()
}

// Normalize drops the time of day from the travel date.
func (c SearchCriteria) Normalize() SearchCriteria {
	if !c.Date.IsZero() {
		y, m, d := c.Date.Date()
		c.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return c
}

// ValidatePassengers checks the records are complete enough to book.
func ValidatePassengers(passengers []Passenger) error {
	inputErr := NewInputError()

	for i, p := range passengers {
		prefix := fmt.Sprintf("passengers[%d]", i)
		if strings.TrimSpace(p.FullName) == "" {
			inputErr.Add(prefix+".fullName", "provide the passenger name")
		}
		if !p.IDType.Valid() {
			inputErr.Add(prefix+".idType", "choose national-id, driver-license or passport")
		}
		if strings.TrimSpace(p.IDNumber) == "" {
			inputErr.Add(prefix+".idNumber", "provide the identity number")
		}
		if i > 0 {
			continue
		}
		if !validPhone(p.Phone) {
			inputErr.Add(prefix+".phone", "provide a valid phone number")
		}
		if _, err := mail.ParseAddress(p.Email); err != nil {
			inputErr.Add(prefix+".email", "provide a valid email")
		}
	}

	return inputErr.OrNil()
}

func validPhone(phone string) bool {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if len(phone) < 8 || len(phone) > 15 {
		return false
	}
	for _, r := range phone {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
