package domain

// Query is a read request, routed by QueryName.
type Query[T any] interface {
	QueryName() string
	Payload() T
}
