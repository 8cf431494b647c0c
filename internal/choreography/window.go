package choreography

// DefaultWindowCapacity is how many recent move tokens are kept out of the next candidate pool
const DefaultWindowCapacity = 20

// RecentWindow is a bounded FIFO set of recently used move tokens.
// It is a value: Add returns a new window and leaves the receiver unchanged.
type RecentWindow struct {
	items    []string
	capacity int
}

// NewRecentWindow creates an empty window; non-positive capacities use DefaultWindowCapacity
func NewRecentWindow(capacity int) RecentWindow {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return RecentWindow{capacity: capacity}
}

// Add appends tokens that are not already present, evicting the oldest past capacity
func (w RecentWindow) Add(tokens ...string) RecentWindow {
	capacity := w.capacity
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}

	items := make([]string, len(w.items), len(w.items)+len(tokens))
	copy(items, w.items)
	for _, token := range tokens {
		if token == "" || contains(items, token) {
			continue
		}
		items = append(items, token)
	}
	if over := len(items) - capacity; over > 0 {
		items = append([]string(nil), items[over:]...)
	}
	return RecentWindow{items: items, capacity: capacity}
}

// Contains reports whether token is in the window
func (w RecentWindow) Contains(token string) bool {
	return contains(w.items, token)
}

// Items returns the tokens oldest first
func (w RecentWindow) Items() []string {
	return append([]string(nil), w.items...)
}

// Len returns the number of tokens held
func (w RecentWindow) Len() int {
	return len(w.items)
}

// AvoidSet returns the tokens as a set for pool sampling
func (w RecentWindow) AvoidSet() map[string]bool {
	set := make(map[string]bool, len(w.items))
	for _, token := range w.items {
		set[token] = true
	}
	return set
}

func contains(items []string, token string) bool {
	for _, item := range items {
		if item == token {
			return true
		}
	}
	return false
}
