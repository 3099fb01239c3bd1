package reconcile

import (
	"context"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

func (c *Controller) selectSpace(ctx context.Context, spaceID string) {
	if spaceID == "" {
		return
	}
	c.focused = spaceID
	c.messages = nil
	c.userNames = nil
	c.messagesShown = false

	if c.unread.Has(spaceID) {
		c.unread.Remove(spaceID)
		c.renderer.OnUnreadIndicatorsChanged(c.unread.Ordered(models.SpaceIDs(c.spaces)))
		c.cache.SetUnreadStates(c.unread.Clone())
	}

	c.poller.Reset()
	c.startMessages(ctx, spaceID, true)
}

func (c *Controller) poll(ctx context.Context) {
	if c.focused == "" {
		return
	}
	if c.messagesPhase == PhaseShowingCached || c.messagesPhase == PhaseRefreshing {
		c.logger.Debug().Str("space_id", c.focused).Msg("poll skipped, refresh in flight")
		return
	}
	c.startMessages(ctx, c.focused, false)
}

// startMessages runs the message reconciler for one space. With showCached
// the cached copy is posted before the fetch starts.
func (c *Controller) startMessages(ctx context.Context, spaceID string, showCached bool) {
	if showCached {
		c.messagesPhase = PhaseShowingCached
	} else {
		c.messagesPhase = PhaseRefreshing
	}
	c.messagesGen++
	gen := c.messagesGen
	overrides := c.overrides()

	go func() {
		if showCached {
			msgs, found := c.cache.GetMessages(spaceID)
			var names map[string]string
			if found {
				members, _ := c.cache.GetMembers(spaceID)
				names = models.NameMap(members, overrides)
			}
			c.post(ctx, messagesCached{gen: gen, spaceID: spaceID, messages: msgs, names: names, found: found})
		}

		msgs, err := c.gw.FetchMessages(ctx, spaceID, c.pageSize)
		var names map[string]string
		if err == nil {
			names = models.NameMap(c.members(ctx, spaceID), overrides)
		}
		c.post(ctx, messagesFetched{gen: gen, spaceID: spaceID, messages: msgs, names: names, err: err})
	}()
}

// members returns the space's members from the cache while they are fresh,
// otherwise from the gateway. A failed fetch yields no members.
func (c *Controller) members(ctx context.Context, spaceID string) []models.Member {
	if members, ok := c.cache.GetMembers(spaceID); ok {
		return members
	}
	members, err := c.gw.FetchMembers(ctx, spaceID)
	if err != nil {
		logger := logging.WithSpace(c.logger, spaceID)
		logger.Debug().Err(err).Msg("member fetch failed")
		return nil
	}
	c.cache.SetMembers(spaceID, members)
	return members
}

func (c *Controller) applyMessagesCached(ev messagesCached) {
	if ev.spaceID != c.focused || ev.gen != c.messagesGen {
		return
	}
	c.messagesPhase = PhaseRefreshing
	if !ev.found || c.messagesShown {
		return
	}
	c.messages = ev.messages
	c.userNames = ev.names
	c.messagesShown = true
	c.renderer.OnMessagesRendered(ev.spaceID, ev.messages, ev.names)
}

func (c *Controller) applyMessagesFetched(ctx context.Context, ev messagesFetched) {
	logger := logging.WithSpace(c.logger, ev.spaceID)
	if ev.spaceID != c.focused {
		logger.Debug().Str("focused", c.focused).Msg("discarding messages for unfocused space")
		return
	}
	if ev.gen != c.messagesGen {
		// A newer load for this space was started after this one, for
		// example by a reselect or the reload after a send.
		logger.Debug().Int("gen", ev.gen).Int("latest", c.messagesGen).Msg("discarding superseded messages")
		return
	}
	c.messagesPhase = PhaseSettled
	if ev.err != nil {
		logger.Warn().Err(ev.err).Msg("message refresh failed")
		c.notice(describe("Could not load messages", ev.err), severityFor(ev.err))
		return
	}
	c.cache.SetMessages(ev.spaceID, ev.messages)

	changed := !c.messagesShown ||
		!models.SameMessages(c.messages, ev.messages) ||
		!sameNames(c.userNames, ev.names)
	c.messages = ev.messages
	c.userNames = ev.names
	c.messagesShown = true
	if changed {
		c.renderer.OnMessagesRendered(ev.spaceID, ev.messages, ev.names)
	} else {
		logger.Debug().Msg("messages unchanged")
	}

	c.markRead(ctx, ev.spaceID, ev.messages)
}

// markRead submits the newest message time as the space's read state, once
// per distinct time.
func (c *Controller) markRead(ctx context.Context, spaceID string, msgs []models.Message) {
	latest, ok := models.Latest(msgs)
	if !ok || latest.CreatedAt == "" {
		return
	}
	if c.lastMarked[spaceID] == latest.CreatedAt {
		return
	}
	c.lastMarked[spaceID] = latest.CreatedAt

	createdAt := latest.CreatedAt
	go func() {
		err := c.gw.SubmitReadState(ctx, spaceID, createdAt)
		c.post(ctx, readStateSubmitted{spaceID: spaceID, createdAt: createdAt, err: err})
	}()
}

func (c *Controller) applyReadState(ev readStateSubmitted) {
	logger := logging.WithSpace(c.logger, ev.spaceID)
	if ev.err == nil {
		logger.Debug().Str("last_read", ev.createdAt).Msg("marked read")
		return
	}
	if c.lastMarked[ev.spaceID] == ev.createdAt {
		delete(c.lastMarked, ev.spaceID)
	}
	logger.Warn().Err(ev.err).Msg("mark read failed")
	c.notice(describe("Could not mark "+c.spaceName(ev.spaceID)+" as read", ev.err), SeverityWarning)
}
