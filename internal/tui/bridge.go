package tui

import (
	"maps"
	"slices"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
	"github.com/cipher-shad0w/google-chat-cli/internal/reconcile"
)

type spacesRenderedMsg struct {
	spaces []models.Space
	unread models.UnreadSet
}

type messagesRenderedMsg struct {
	spaceID  string
	messages []models.Message
	names    map[string]string
}

type unreadChangedMsg struct {
	spaceIDs []string
}

type noticeMsg struct {
	text     string
	severity reconcile.Severity
}

// Sender is the part of *tea.Program the bridge uses.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge implements reconcile.Renderer by forwarding every call into the
// bubbletea program as a message. Data is copied so the model never shares
// memory with the controller.
type Bridge struct {
	mu     sync.RWMutex
	sender Sender
}

var _ reconcile.Renderer = (*Bridge)(nil)

// NewBridge creates a bridge. Calls made before Attach are dropped.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach connects the bridge to a running program.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	b.sender = s
	b.mu.Unlock()
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.RLock()
	s := b.sender
	b.mu.RUnlock()
	if s != nil {
		s.Send(msg)
	}
}

func (b *Bridge) OnSpacesRendered(spaces []models.Space, unread models.UnreadSet) {
	b.send(spacesRenderedMsg{spaces: slices.Clone(spaces), unread: unread.Clone()})
}

func (b *Bridge) OnMessagesRendered(spaceID string, messages []models.Message, names map[string]string) {
	b.send(messagesRenderedMsg{spaceID: spaceID, messages: slices.Clone(messages), names: maps.Clone(names)})
}

func (b *Bridge) OnUnreadIndicatorsChanged(spaceIDs []string) {
	b.send(unreadChangedMsg{spaceIDs: slices.Clone(spaceIDs)})
}

func (b *Bridge) OnTransientNotice(message string, severity reconcile.Severity) {
	b.send(noticeMsg{text: message, severity: severity})
}
