package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/plusopinion/go-client-core/backend"
	"github.com/plusopinion/go-client-core/persist"
)

// CounterKey is the durable-storage key holding the last known unread
// count.
const CounterKey = "unread_count"

// UnreadCounter tracks one user's unread notification count.
type UnreadCounter struct {
	client   backend.Client
	store    persist.Store
	notifier backend.Notifier
	userID   string
	log      *slog.Logger
	now      func() time.Time
}

// CounterOption configures an UnreadCounter.
type CounterOption func(*UnreadCounter)

func WithCounterLogger(log *slog.Logger) CounterOption {
	return func(c *UnreadCounter) { c.log = log }
}

func WithCounterClock(now func() time.Time) CounterOption {
	return func(c *UnreadCounter) { c.now = now }
}

// WithCounterNotifier surfaces newly inserted notifications through n in
// addition to updating the count.
func WithCounterNotifier(n backend.Notifier) CounterOption {
	return func(c *UnreadCounter) { c.notifier = n }
}

// NewUnreadCounter builds a counter for the given user. The store may
// be nil, in which case Cached always reports zero and refreshes are
// not mirrored.
func NewUnreadCounter(client backend.Client, store persist.Store, userID string, opts ...CounterOption) *UnreadCounter {
	c := &UnreadCounter{
		client:   client,
		store:    store,
		notifier: backend.NopNotifier{},
		userID:   userID,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cached returns the last mirrored count without touching the network.
// Any read or decode problem reports zero; the badge corrects itself on
// the next Refresh.
func (c *UnreadCounter) Cached(ctx context.Context) int {
	if c.store == nil {
		return 0
	}

	entry, ok, err := c.store.Load(ctx, CounterKey)
	if err != nil || !ok {
		return 0
	}

	var count int
	if err := json.Unmarshal(entry.Value, &count); err != nil {
		return 0
	}
	if count < 0 {
		return 0
	}
	return count
}

// Refresh counts the user's unread notifications on the backend and
// mirrors the result. Mirror failures are logged and swallowed; the
// fresh count is still returned.
func (c *UnreadCounter) Refresh(ctx context.Context) (int, error) {
	rows, err := c.client.Select(ctx, "notifications",
		backend.Eq("user_id", c.userID),
		backend.Eq("is_read", false),
	)
	if err != nil {
		return 0, err
	}

	count := len(rows)
	c.mirror(ctx, count)
	return count, nil
}

// Watch delivers the unread count to onChange: first the cached value
// when it is positive, then a fresh fetch, then a new fetch after every
// change to the user's notification rows. The returned func cancels the
// realtime subscription.
func (c *UnreadCounter) Watch(ctx context.Context, onChange func(int)) (func(), error) {
	if cached := c.Cached(ctx); cached > 0 {
		onChange(cached)
	}

	count, err := c.Refresh(ctx)
	if err != nil {
		c.log.Error("initial unread count fetch failed", "error", err)
	} else {
		onChange(count)
	}

	return c.client.Subscribe(ctx, "notifications", func(ev backend.Event) {
		if ev.Action == backend.EventInsert {
			c.surface(ctx, ev.Record)
		}
		count, err := c.Refresh(ctx)
		if err != nil {
			c.log.Error("unread count refetch failed", "error", err)
			return
		}
		onChange(count)
	}, backend.Eq("user_id", c.userID))
}

// surface forwards a freshly inserted notification row to the configured
// Notifier so it can be shown immediately. Delivery failure is logged;
// the row is still counted.
func (c *UnreadCounter) surface(ctx context.Context, record backend.Record) {
	n := backend.Notification{Data: record}
	if v, ok := record["type"].(string); ok {
		n.Type = v
	}
	if v, ok := record["title"].(string); ok {
		n.Title = v
	}
	if v, ok := record["message"].(string); ok {
		n.Body = v
	}

	if err := c.notifier.Notify(ctx, c.userID, n); err != nil {
		c.log.Warn("notification delivery failed", "type", n.Type, "error", err)
	}
}

func (c *UnreadCounter) mirror(ctx context.Context, count int) {
	if c.store == nil {
		return
	}

	value, err := json.Marshal(count)
	if err != nil {
		return
	}
	if err := c.store.Save(ctx, persist.Entry{
		Key:     CounterKey,
		Value:   value,
		SavedAt: c.now(),
	}); err != nil {
		c.log.Warn("unread count mirror failed", "error", err)
	}
}
