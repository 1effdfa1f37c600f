package domain

// Event is a fact that already happened, routed by EventName.
type Event[T any] interface {
	EventName() string
	Payload() T
}
