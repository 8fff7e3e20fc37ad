package router

import "sync"

// History abstracts the navigation history stack so the Router can be
// driven by a real browser bridge or an in-process implementation.
type History interface {
	// Push appends a new entry carrying the display path and state.
	Push(path string, state map[string]any)
	// Replace overwrites the current entry.
	Replace(path string, state map[string]any)
	// Back moves to the previous entry if one exists.
	Back()
	// Forward moves to the next entry if one exists.
	Forward()
	// Location returns the display path of the current entry.
	Location() string
}

// Viewport abstracts the scrollable surface whose offset the Router
// saves when leaving a route and restores when returning to it.
type Viewport interface {
	ScrollOffset() int
	ScrollTo(offset int)
}

// HistoryEntry is one stack frame of a MemoryHistory.
type HistoryEntry struct {
	Path  string
	State map[string]any
}

// MemoryHistory is an in-process History backed by a slice of entries
// and a cursor. Pushing while the cursor sits before the end truncates
// the forward entries, matching browser stack semantics.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
	index   int
}

// NewMemoryHistory returns a history seeded with a single entry for the
// given path.
func NewMemoryHistory(path string) *MemoryHistory {
	return &MemoryHistory{
		entries: []HistoryEntry{{Path: path}},
	}
}

func (h *MemoryHistory) Push(path string, state map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries[:h.index+1], HistoryEntry{Path: path, State: state})
	h.index = len(h.entries) - 1
}

func (h *MemoryHistory) Replace(path string, state map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.index] = HistoryEntry{Path: path, State: state}
}

func (h *MemoryHistory) Back() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index > 0 {
		h.index--
	}
}

func (h *MemoryHistory) Forward() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.index < len(h.entries)-1 {
		h.index++
	}
}

func (h *MemoryHistory) Location() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.entries[h.index].Path
}

// Current returns the entry under the cursor.
func (h *MemoryHistory) Current() HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.entries[h.index]
}

// Len returns the number of entries on the stack.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.entries)
}

// MemoryViewport is an in-process Viewport holding a single offset.
type MemoryViewport struct {
	mu     sync.Mutex
	offset int
}

func NewMemoryViewport() *MemoryViewport {
	return &MemoryViewport{}
}

func (v *MemoryViewport) ScrollOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.offset
}

func (v *MemoryViewport) ScrollTo(offset int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.offset = offset
}
