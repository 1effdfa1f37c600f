package application

import (
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

const FindBookingQueryName = "FindBooking"

type FindBookingData struct {
	Code string `json:"code"`
}

type findBookingQuery struct {
	data FindBookingData
}

func (q findBookingQuery) QueryName() string {
	return FindBookingQueryName
}

func (q findBookingQuery) Payload() FindBookingData {
	return q.data
}

func NewFindBookingQuery(data FindBookingData) domain.Query[FindBookingData] {
	return findBookingQuery{data: data}
}
