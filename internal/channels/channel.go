// Package channels delivers rendered messages to a subscriber over email or SMS.
package channels

import (
	"context"
	"errors"

	"weather-notifier/internal/models"
)

var (
	ErrChannelDisabled = errors.New("CHANNEL_DISABLED")
	ErrSendFailed      = errors.New("NOTIFICATION_SEND_FAILED")
)

// Channel is one delivery method. Email and SMS are the only implementations.
type Channel interface {
	Method() models.Method
	// Contact returns the subscriber's address for this channel, or "".
	Contact(sub models.Subscriber) string
	Send(ctx context.Context, to, message string) error
}

// Registry resolves a method to its channel.
type Registry struct {
	channels map[models.Method]Channel
}

func NewRegistry(chs ...Channel) *Registry {
	r := &Registry{channels: make(map[models.Method]Channel, len(chs))}
	for _, ch := range chs {
		r.channels[ch.Method()] = ch
	}
	return r
}

func (r *Registry) Get(m models.Method) (Channel, bool) {
	ch, ok := r.channels[m]
	return ch, ok
}
