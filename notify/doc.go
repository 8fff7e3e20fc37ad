// Package notify maintains the unread-notification badge count. The
// count is mirrored into durable storage so a fresh session can render
// the badge instantly from the last known value, then corrected by a
// backend fetch, then kept live by a realtime subscription on the
// user's notification rows.
package notify
