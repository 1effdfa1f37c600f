package adapter

import (
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/bus-storefront/pkg/application"
)

// DefaultMaxDeliveries bounds how often a message whose handler keeps
// failing is handed back to the subscriber.
const DefaultMaxDeliveries = 5

// deliveries counts failed attempts per message UUID on this consumer.
type deliveries struct {
	mu       sync.Mutex
	max      int
	attempts map[string]int
}

func newDeliveries(limit int) *deliveries {
	if limit < 1 {
		limit = 1
	}
	return &deliveries{max: limit, attempts: make(map[string]int)}
}

// settle acks or nacks msg after a handler returned err and reports whether
// the message was dropped without success.
func (d *deliveries) settle(msg *message.Message, err error) (dropped bool) {
	if err == nil {
		d.forget(msg.UUID)
		msg.Ack()
		return false
	}
	if application.IsPermanent(err) {
		d.forget(msg.UUID)
		msg.Ack()
		return true
	}

	d.mu.Lock()
	d.attempts[msg.UUID]++
	exhausted := d.attempts[msg.UUID] >= d.max
	if exhausted {
		delete(d.attempts, msg.UUID)
	}
	d.mu.Unlock()

	if exhausted {
		msg.Ack()
		return true
	}
	msg.Nack()
	return false
}

func (d *deliveries) forget(uuid string) {
	d.mu.Lock()
	delete(d.attempts, uuid)
	d.mu.Unlock()
}
