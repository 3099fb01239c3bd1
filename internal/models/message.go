package models

import "strings"

// Message is a single chat message. Identity is ID (the message resource
// name, e.g. spaces/AAAA/messages/BBBB).
type Message struct {
	ID                string `json:"id"`
	SpaceID           string `json:"spaceId,omitempty"`
	SenderID          string `json:"senderId,omitempty"`
	SenderDisplayName string `json:"senderDisplayName,omitempty"`
	Text              string `json:"text"`
	// CreatedAt is kept verbatim as the API's RFC3339 UTC string so that
	// read-state comparisons can be done lexicographically.
	CreatedAt   string       `json:"createdAt,omitempty"`
	Reactions   []Reaction   `json:"reactions,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Reaction is an aggregated emoji reaction on a message.
type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Attachment describes a file attached to a message.
type Attachment struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url,omitempty"`
}

// SameMessages reports whether two message lists are equal for display
// purposes: same length and, position by position, same ID and text.
// Reactions and attachments are deliberately not compared.
func SameMessages(a, b []Message) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}

// Latest returns the newest message of a chronologically ordered list.
func Latest(messages []Message) (Message, bool) {
	if len(messages) == 0 {
		return Message{}, false
	}
	return messages[len(messages)-1], true
}

// MessageSpaceID returns the space ID embedded in a message resource name
// (spaces/AAAA/messages/BBBB -> AAAA), or "" if name is not one.
func MessageSpaceID(name string) string {
	parts := strings.Split(strings.Trim(strings.TrimSpace(name), "/"), "/")
	if len(parts) < 4 || parts[0] != "spaces" || parts[2] != "messages" {
		return ""
	}
	return parts[1]
}
