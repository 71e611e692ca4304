package notifications

import (
	"context"

	"nodeback/internal/models"
)

// Publisher sends live events to a user's connections. With Redis the event
// goes through pub/sub and every instance's hub delivers it; without Redis
// it is delivered to the local hub directly.
type Publisher struct {
	hub      *Hub
	notifier *Notifier
}

// NewPublisher returns a Publisher. Either argument may be nil.
func NewPublisher(hub *Hub, notifier *Notifier) *Publisher {
	return &Publisher{hub: hub, notifier: notifier}
}

// PublishNotification pushes a notification event to its recipient.
func (p *Publisher) PublishNotification(ctx context.Context, n *models.Notification) error {
	return p.publish(ctx, n.ToUserID, Event{Type: EventNotification, Payload: n})
}

// PublishLogout tells every live session of userID to sign out.
func (p *Publisher) PublishLogout(ctx context.Context, userID uint) error {
	return p.publish(ctx, userID, Event{Type: EventLogoutUser})
}

func (p *Publisher) publish(ctx context.Context, userID uint, e Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	if p.notifier.Enabled() {
		return p.notifier.PublishUser(ctx, userID, data)
	}
	if p.hub != nil {
		p.hub.Deliver(userID, data)
	}
	return nil
}
