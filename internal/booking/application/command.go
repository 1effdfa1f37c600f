package application

import (
	"github.com/mateusmacedo/bus-storefront/pkg/domain"
)

const ConfirmPaymentCommandName = "ConfirmPayment"

// ConfirmPaymentData identifies the session whose active booking was paid.
// It is what a payment provider callback would deliver.
type ConfirmPaymentData struct {
	SessionID string `json:"sessionId"`
}

type confirmPaymentCommand struct {
	data ConfirmPaymentData
}

func (c confirmPaymentCommand) CommandName() string {
	return ConfirmPaymentCommandName
}

func (c confirmPaymentCommand) Payload() ConfirmPaymentData {
	return c.data
}

func NewConfirmPaymentCommand(data ConfirmPaymentData) domain.Command[ConfirmPaymentData] {
	return confirmPaymentCommand{data: data}
}
