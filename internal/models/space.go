// Package models defines the chat domain types shared by the cache, the
// gateway, and the UI.
package models

import (
	"strings"
	"time"
)

// SpaceType categorizes a space.
type SpaceType string

const (
	SpaceTypeRoom          SpaceType = "SPACE"
	SpaceTypeGroupChat     SpaceType = "GROUP_CHAT"
	SpaceTypeDirectMessage SpaceType = "DIRECT_MESSAGE"
)

// IsDirect reports whether the space is a one-to-one or small group DM.
func (t SpaceType) IsDirect() bool {
	return t == SpaceTypeDirectMessage || t == SpaceTypeGroupChat
}

// Space is a conversation container. Identity is ID.
type Space struct {
	// ID is the trailing segment of the resource name (spaces/AAAA -> AAAA).
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName,omitempty"`
	Type        SpaceType `json:"type,omitempty"`
	MemberCount int       `json:"memberCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Title is the label shown for the space in lists.
func (s Space) Title() string {
	if strings.TrimSpace(s.DisplayName) != "" {
		return s.DisplayName
	}
	if s.Type == SpaceTypeDirectMessage {
		return "Direct message"
	}
	return s.ID
}

// SpaceID extracts the space ID from a fully-qualified name.
// "spaces/AAAA" and "AAAA" both yield "AAAA".
func SpaceID(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, "/")
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// SpaceResourceName normalizes an ID or name to "spaces/<id>".
func SpaceResourceName(idOrName string) string {
	id := SpaceID(idOrName)
	if id == "" {
		return ""
	}
	return "spaces/" + id
}

// SpaceIDs returns the IDs of spaces in order.
func SpaceIDs(spaces []Space) []string {
	out := make([]string, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, s.ID)
	}
	return out
}

// SameSpaceOrder reports whether two space lists carry the same IDs in the
// same order.
func SameSpaceOrder(a, b []Space) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}
