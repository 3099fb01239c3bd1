package models

import "strings"

// Member is a user's membership in a space.
type Member struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// NameMap builds a user ID -> display name map from members, then applies
// overrides on top. Overrides always win.
func NameMap(members []Member, overrides map[string]string) map[string]string {
	out := make(map[string]string, len(members)+len(overrides))
	for _, m := range members {
		if m.UserID == "" || strings.TrimSpace(m.DisplayName) == "" {
			continue
		}
		out[m.UserID] = m.DisplayName
	}
	for id, name := range overrides {
		if id == "" || strings.TrimSpace(name) == "" {
			continue
		}
		out[id] = name
	}
	return out
}

// SenderName resolves the name to show for a message. resolved is false
// when neither the message nor the name map knows the sender.
func SenderName(msg Message, names map[string]string) (name string, resolved bool) {
	if strings.TrimSpace(msg.SenderDisplayName) != "" {
		return msg.SenderDisplayName, true
	}
	if n, ok := names[msg.SenderID]; ok && n != "" {
		return n, true
	}
	if msg.SenderID != "" {
		return msg.SenderID, false
	}
	return "Unknown", false
}
