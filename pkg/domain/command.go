package domain

// Command is an intent to change state, routed by CommandName.
type Command[T any] interface {
	CommandName() string
	Payload() T
}
