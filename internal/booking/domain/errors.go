package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoSearch             = errors.New("no search has been made")
	ErrBusNotSelected       = errors.New("no bus selected")
	ErrNoSeatsSelected      = errors.New("no seats selected")
	ErrPassengersMissing    = errors.New("passengers not initialized")
	ErrPaymentMissing       = errors.New("payment method not selected")
	ErrNoActiveBooking      = errors.New("no active booking")
	ErrUnknownOffer         = errors.New("offer is not part of the current results")
	ErrUnknownPaymentOption = errors.New("unknown payment method or option")
	ErrPassengerIndex       = errors.New("passenger index out of range")
	ErrSessionNotFound      = errors.New("session not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrBookingExists        = errors.New("booking already exists")
	ErrCodeExhausted        = errors.New("could not generate a unique booking code")
)

// StepError is returned when an operation is invoked before the session
// reached the step it needs. It unwraps to the sentinel naming the missing
// prerequisite.
type StepError struct {
	Operation string
	Current   Step
	Required  Step
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s requires step %s, session is at %s: %v", e.Operation, e.Required, e.Current, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func IsStepError(err error) bool {
	var stepErr *StepError
	return errors.As(err, &stepErr)
}

// InputError collects validation messages per field.
type InputError struct {
	fields map[string][]string
}

func NewInputError() *InputError {
	return &InputError{fields: make(map[string][]string)}
}

func AsInputError(err error) *InputError {
	if err == nil {
		return nil
	}

	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return inputErr
	}
	return nil
}

func (ie *InputError) Add(field, msg string) {
	ie.fields[field] = append(ie.fields[field], msg)
}

func (ie *InputError) Empty() bool {
	return len(ie.fields) == 0
}

// OrNil returns nil when nothing was collected.
func (ie *InputError) OrNil() error {
	if ie.Empty() {
		return nil
	}
	return ie
}

func (ie *InputError) Error() string {
	return fmt.Sprintf("invalid input: %v", ie.fields)
}

func (ie *InputError) Fields() map[string][]string {
	return ie.fields
}
