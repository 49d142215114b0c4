package mail

import (
	"context"
	"sync"
)

// Outbox keeps sent messages in memory.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	// Err, when set, is returned by Send and nothing is stored.
	Err error
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// Last returns the most recent message and whether there is one.
func (o *Outbox) Last() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return Message{}, false
	}
	return o.messages[len(o.messages)-1], true
}
