package models

// UnreadMarker is the value stored for unread spaces in the persisted map.
const UnreadMarker = "unread"

// UnreadSet is the set of space IDs that have unread messages.
type UnreadSet map[string]struct{}

// NewUnreadSet builds a set from IDs, ignoring empty ones.
func NewUnreadSet(ids ...string) UnreadSet {
	set := make(UnreadSet, len(ids))
	for _, id := range ids {
		set.Add(id)
	}
	return set
}

// Add marks a space unread.
func (s UnreadSet) Add(id string) {
	if id == "" {
		return
	}
	s[id] = struct{}{}
}

// Remove clears a space's unread mark.
func (s UnreadSet) Remove(id string) {
	delete(s, id)
}

// Has reports whether a space is unread.
func (s UnreadSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy.
func (s UnreadSet) Clone() UnreadSet {
	out := make(UnreadSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Ordered returns the members of the set following the given order. IDs
// in the set but absent from order are dropped.
func (s UnreadSet) Ordered(order []string) []string {
	out := make([]string, 0, len(s))
	for _, id := range order {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// States converts the set to its persisted map form.
func (s UnreadSet) States() map[string]string {
	out := make(map[string]string, len(s))
	for id := range s {
		out[id] = UnreadMarker
	}
	return out
}

// UnreadSetFromStates converts the persisted map back to a set. Presence of
// a key means unread, whatever the marker value.
func UnreadSetFromStates(states map[string]string) UnreadSet {
	set := make(UnreadSet, len(states))
	for id := range states {
		set.Add(id)
	}
	return set
}
