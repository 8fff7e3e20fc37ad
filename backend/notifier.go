package backend

import "context"

// Notification is one message for a user's notification panel.
type Notification struct {
	Type  string
	Title string
	Body  string
	Data  Record
}

// Notifier delivers notifications as a side effect of content
// mutations. It is an optional capability: components take a Notifier
// and callers who don't care pass NopNotifier.
type Notifier interface {
	Notify(ctx context.Context, userID string, n Notification) error
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, userID string, n Notification) error {
	return nil
}
