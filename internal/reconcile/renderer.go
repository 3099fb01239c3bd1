package reconcile

import (
	"context"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

// Severity grades a transient notice.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Renderer receives display updates. All calls are made from the
// controller's loop goroutine, one at a time.
type Renderer interface {
	OnSpacesRendered(spaces []models.Space, unread models.UnreadSet)
	OnMessagesRendered(spaceID string, messages []models.Message, names map[string]string)
	OnUnreadIndicatorsChanged(spaceIDs []string)
	OnTransientNotice(message string, severity Severity)
}

type nopRenderer struct{}

func (nopRenderer) OnSpacesRendered([]models.Space, models.UnreadSet)              {}
func (nopRenderer) OnMessagesRendered(string, []models.Message, map[string]string) {}
func (nopRenderer) OnUnreadIndicatorsChanged([]string)                             {}
func (nopRenderer) OnTransientNotice(string, Severity)                             {}

// Notifier alerts the user about spaces that just became unread.
type Notifier interface {
	NotifyUnread(ctx context.Context, spaces []models.Space) error
}

// NameSource supplies user-chosen display names that override member names.
type NameSource interface {
	Overrides() map[string]string
}

// Prober computes the unread set for a list of spaces.
type Prober interface {
	Probe(ctx context.Context, spaceIDs []string) models.UnreadSet
}

// Phase is where a reconciler is in its show-cached-then-refresh cycle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseShowingCached Phase = "showing_cached"
	PhaseRefreshing    Phase = "refreshing"
	PhaseSettled       Phase = "settled"
)

// Phases reports both reconcilers.
type Phases struct {
	Spaces   Phase
	Messages Phase
	// Focused is the space whose messages are displayed.
	Focused string
}
