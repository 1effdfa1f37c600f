// Package seatmap lays out the seats of a bus, four per row (A-D), with a
// random share already booked.
package seatmap

import (
	"fmt"

	"github.com/mateusmacedo/bus-storefront/internal/booking/domain"
	"github.com/mateusmacedo/bus-storefront/internal/random"
)

const (
	SeatsPerRow = 4

	DefaultBookedProbability = 0.3
)

var columnLetters = [SeatsPerRow]string{"A", "B", "C", "D"}

type Generator struct {
	rnd random.Source
}

func NewGenerator(rnd random.Source) *Generator {
	return &Generator{rnd: rnd}
}

// Generate returns exactly totalSeats seats in row-major order. The last row
// is short when totalSeats is not a multiple of four. Each seat is rolled
// once against bookedProbability.
func (g *Generator) Generate(totalSeats int, bookedProbability float64) []domain.Seat {
	if totalSeats <= 0 {
		return nil
	}

	rows := (totalSeats + SeatsPerRow - 1) / SeatsPerRow
	seats := make([]domain.Seat, 0, totalSeats)
	for row := 0; row < rows; row++ {
		for col := 0; col < SeatsPerRow && len(seats) < totalSeats; col++ {
			seats = append(seats, domain.Seat{
				ID:           SeatID(row, col),
				Number:       row*SeatsPerRow + col + 1,
				RowIndex:     row,
				ColumnIndex:  col,
				ColumnLetter: columnLetters[col],
				Booked:       g.rnd.Float64() < bookedProbability,
			})
		}
	}
	return seats
}

// SeatID is the 1-based row number followed by the column letter, e.g. "3B".
func SeatID(rowIndex, columnIndex int) string {
	return fmt.Sprintf("%d%s", rowIndex+1, columnLetters[columnIndex])
}
