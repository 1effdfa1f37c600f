package session

import "math"

// Subtotal is the unit price times the number of selected seats.
func Subtotal(unitPrice int64, seatCount int) int64 {
	if seatCount <= 0 || unitPrice <= 0 {
		return 0
	}
	return unitPrice * int64(seatCount)
}

// Discount rounds to the nearest whole rupiah.
func Discount(subtotal int64, fraction float64) int64 {
	if subtotal <= 0 || fraction <= 0 {
		return 0
	}
	return int64(math.Round(float64(subtotal) * fraction))
}

// Total never goes below zero because promo fractions stay under one.
func Total(subtotal int64, fraction float64) int64 {
	return subtotal - Discount(subtotal, fraction)
}
