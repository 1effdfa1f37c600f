package infrastructure

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNoCommandHandler = errors.New("no handler registered for command")
	ErrNoQueryHandler   = errors.New("no handler registered for query")
)

func GenerateUUID() string {
	return uuid.New().String()
}
