// Package reconcile keeps the displayed spaces and messages in step with
// the on-disk cache and the remote service. It shows cached data first,
// refreshes in the background and only re-renders when something changed.
package reconcile

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cipher-shad0w/google-chat-cli/internal/cache"
	"github.com/cipher-shad0w/google-chat-cli/internal/gateway"
	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

// Controller errors.
var (
	ErrStopped        = errors.New("controller stopped")
	ErrAlreadyRunning = errors.New("controller already running")
)

// DefaultPageSize is the number of messages fetched per space.
const DefaultPageSize = 25

const eventBuffer = 64

// Config wires a Controller.
type Config struct {
	Gateway  gateway.Gateway
	Cache    *cache.Cache
	Prober   Prober
	Renderer Renderer

	// Names and Notifier are optional.
	Names    NameSource
	Notifier Notifier

	PageSize     int
	PollInterval time.Duration
}

// Controller owns every piece of displayed state. Only the Run goroutine
// reads or writes it; everything else talks to Run through events.
type Controller struct {
	gw       gateway.Gateway
	cache    *cache.Cache
	prober   Prober
	renderer Renderer
	names    NameSource
	notifier Notifier
	pageSize int
	poller   *Poller
	logger   zerolog.Logger

	events  chan event
	stopped chan struct{}
	started atomic.Bool

	// Loop-owned state.
	spaces        []models.Space
	spacesShown   bool
	spacesPhase   Phase
	spacesGen     int
	unread        models.UnreadSet
	unreadKnown   bool
	probeSeq      int
	focused       string
	messages      []models.Message
	userNames     map[string]string
	messagesShown bool
	messagesPhase Phase
	messagesGen   int
	lastMarked    map[string]string
}

// New creates a controller. Call Run to start it.
func New(cfg Config) *Controller {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	c := &Controller{
		gw:            cfg.Gateway,
		cache:         cfg.Cache,
		prober:        cfg.Prober,
		renderer:      cfg.Renderer,
		names:         cfg.Names,
		notifier:      cfg.Notifier,
		pageSize:      pageSize,
		logger:        logging.Component("reconcile"),
		events:        make(chan event, eventBuffer),
		stopped:       make(chan struct{}),
		unread:        models.NewUnreadSet(),
		spacesPhase:   PhaseIdle,
		messagesPhase: PhaseIdle,
		lastMarked:    map[string]string{},
	}
	if c.renderer == nil {
		c.renderer = nopRenderer{}
	}
	c.poller = NewPoller(cfg.PollInterval, c.Poll)
	return c
}

// Run processes events until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if err := c.poller.Start(ctx); err != nil {
		close(c.stopped)
		return err
	}
	defer func() {
		// Unblock a tick waiting on the event channel before waiting for
		// the poller to exit.
		close(c.stopped)
		_ = c.poller.Stop()
	}()

	c.logger.Info().Int("page_size", c.pageSize).Dur("poll_interval", c.poller.Interval()).Msg("controller running")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("controller stopping")
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// LoadSpaces shows cached spaces, then refreshes them.
func (c *Controller) LoadSpaces() { c.request(loadSpacesRequest{}) }

// SelectSpace focuses a space and loads its messages.
func (c *Controller) SelectSpace(spaceID string) {
	c.request(selectSpaceRequest{spaceID: models.SpaceID(spaceID)})
}

// Poll refreshes the focused space's messages.
func (c *Controller) Poll() { c.request(pollRequest{}) }

// HardRefresh wipes the cache and reloads everything.
func (c *Controller) HardRefresh() { c.request(hardRefreshRequest{}) }

// Send posts text to the focused space.
func (c *Controller) Send(text string) {
	c.request(mutationRequest{kind: mutationSend, text: text})
}

// Edit replaces a message's text.
func (c *Controller) Edit(messageName, text string) {
	c.request(mutationRequest{kind: mutationEdit, messageName: messageName, text: text})
}

// Delete removes a message.
func (c *Controller) Delete(messageName string) {
	c.request(mutationRequest{kind: mutationDelete, messageName: messageName})
}

// React adds an emoji reaction to a message.
func (c *Controller) React(messageName, emoji string) {
	c.request(mutationRequest{kind: mutationReact, messageName: messageName, emoji: emoji})
}

// Phases returns the current reconciler phases.
func (c *Controller) Phases(ctx context.Context) (Phases, error) {
	reply := make(chan Phases, 1)
	select {
	case c.events <- phasesRequest{reply: reply}:
	case <-c.stopped:
		return Phases{}, ErrStopped
	case <-ctx.Done():
		return Phases{}, ctx.Err()
	}
	select {
	case p := <-reply:
		return p, nil
	case <-c.stopped:
		return Phases{}, ErrStopped
	case <-ctx.Done():
		return Phases{}, ctx.Err()
	}
}

func (c *Controller) request(ev event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

// post delivers a background result. Results that arrive after shutdown
// are dropped.
func (c *Controller) post(ctx context.Context, ev event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	case <-c.stopped:
	}
}

func (c *Controller) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case loadSpacesRequest:
		c.startSpaces(ctx)
	case spacesCached:
		c.applySpacesCached(ev)
	case spacesFetched:
		c.applySpacesFetched(ctx, ev)
	case unreadProbed:
		c.applyUnread(ctx, ev)

	case selectSpaceRequest:
		c.selectSpace(ctx, ev.spaceID)
	case pollRequest:
		c.poll(ctx)
	case messagesCached:
		c.applyMessagesCached(ev)
	case messagesFetched:
		c.applyMessagesFetched(ctx, ev)
	case readStateSubmitted:
		c.applyReadState(ev)

	case hardRefreshRequest:
		c.hardRefresh(ctx)
	case cacheCleared:
		c.notice("Cache cleared, reloading", SeverityInfo)
		c.spacesShown = false
		c.startSpaces(ctx)
		if c.focused != "" {
			c.messagesShown = false
			c.startMessages(ctx, c.focused, true)
		}

	case mutationRequest:
		c.mutate(ctx, ev)
	case mutationDone:
		c.applyMutation(ctx, ev)

	case phasesRequest:
		ev.reply <- Phases{Spaces: c.spacesPhase, Messages: c.messagesPhase, Focused: c.focused}
	}
}

func (c *Controller) notice(msg string, severity Severity) {
	c.renderer.OnTransientNotice(msg, severity)
}

func (c *Controller) hardRefresh(ctx context.Context) {
	c.logger.Info().Msg("hard refresh")
	// Loads already in flight would write back what is being cleared.
	c.spacesGen++
	c.messagesGen++
	go func() {
		c.cache.InvalidateAll()
		c.post(ctx, cacheCleared{})
	}()
}

func (c *Controller) overrides() map[string]string {
	if c.names == nil {
		return nil
	}
	return c.names.Overrides()
}

func severityFor(err error) Severity {
	if errors.Is(err, gateway.ErrAuth) || errors.Is(err, gateway.ErrBinaryNotFound) {
		return SeverityError
	}
	return SeverityWarning
}

func describe(prefix string, err error) string {
	return strings.TrimSpace(prefix + ": " + gateway.Describe(err))
}

func sameNames(a, b map[string]string) bool {
	return maps.Equal(a, b)
}
