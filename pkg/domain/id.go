package domain

// IDGenerator produces a new identifier on every call.
type IDGenerator[T any] func() T
