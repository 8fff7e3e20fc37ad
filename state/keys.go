package state

import "strings"

// Namespace identifies a class of state keys eligible for durable
// mirroring. Keys are matched by prefix: "bookmarks_u-42" falls under
// NamespaceBookmarks.
type Namespace string

const (
	// NamespaceUserProfile covers the signed-in user's profile data.
	NamespaceUserProfile Namespace = "user_profile"

	// NamespaceBookmarks covers bookmarked posts and notifications.
	NamespaceBookmarks Namespace = "bookmarks"

	// NamespaceHiddenItems covers posts, brands, and users the user hid.
	NamespaceHiddenItems Namespace = "hidden_items"

	// NamespaceSettings covers application settings.
	NamespaceSettings Namespace = "app_settings"
)

// persistableNamespaces is the complete allow-list of durably mirrored key
// namespaces. Anything outside it lives in memory only.
var persistableNamespaces = []Namespace{
	NamespaceUserProfile,
	NamespaceBookmarks,
	NamespaceHiddenItems,
	NamespaceSettings,
}

// Persistable reports whether key belongs to a namespace on the durable
// allow-list.
func Persistable(key string) bool {
	for _, ns := range persistableNamespaces {
		if strings.HasPrefix(key, string(ns)) {
			return true
		}
	}
	return false
}

// PersistableNamespaces returns a copy of the allow-list.
func PersistableNamespaces() []Namespace {
	out := make([]Namespace, len(persistableNamespaces))
	copy(out, persistableNamespaces)
	return out
}
