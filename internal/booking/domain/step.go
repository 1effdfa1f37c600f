package domain

import "encoding/json"

// Step is the explicit position of a session in the checkout pipeline.
type Step int

const (
	StepNoSearch Step = iota
	StepSearched
	StepBusSelected
	StepSeatsChosen
	StepPassengersEntered
	StepPaymentChosen
	StepBookedPending
	StepBookedPaid
)

var stepNames = map[Step]string{
	StepNoSearch:          "no-search",
	StepSearched:          "searched",
	StepBusSelected:       "bus-selected",
	StepSeatsChosen:       "seats-chosen",
	StepPassengersEntered: "passengers-entered",
	StepPaymentChosen:     "payment-chosen",
	StepBookedPending:     "booked-pending",
	StepBookedPaid:        "booked-paid",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
