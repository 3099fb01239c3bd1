package reconcile

import (
	"context"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

func (c *Controller) startSpaces(ctx context.Context) {
	c.spacesPhase = PhaseShowingCached
	c.spacesGen++
	gen := c.spacesGen
	go func() {
		spaces, found := c.cache.GetSpaces()
		unread, hasUnread := c.cache.GetUnreadStates()
		c.post(ctx, spacesCached{gen: gen, spaces: spaces, found: found, unread: unread, hasUnread: hasUnread})

		fetched, err := c.gw.FetchSpaces(ctx)
		c.post(ctx, spacesFetched{gen: gen, spaces: fetched, err: err})
	}()
}

func (c *Controller) applySpacesCached(ev spacesCached) {
	if ev.gen != c.spacesGen {
		return
	}
	c.spacesPhase = PhaseRefreshing
	if ev.hasUnread && !c.unreadKnown {
		c.unread = ev.unread
		c.unread.Remove(c.focused)
		c.unreadKnown = true
	}
	if !ev.found || c.spacesShown {
		return
	}
	c.spaces = ev.spaces
	c.spacesShown = true
	c.logger.Debug().Int("spaces", len(ev.spaces)).Msg("showing cached spaces")
	c.renderer.OnSpacesRendered(ev.spaces, c.unread.Clone())
}

func (c *Controller) applySpacesFetched(ctx context.Context, ev spacesFetched) {
	if ev.gen != c.spacesGen {
		c.logger.Debug().Int("gen", ev.gen).Msg("discarding superseded space list")
		return
	}
	c.spacesPhase = PhaseSettled
	if ev.err != nil {
		c.logger.Warn().Err(ev.err).Msg("space refresh failed")
		c.notice(describe("Could not load spaces", ev.err), severityFor(ev.err))
		return
	}
	c.cache.SetSpaces(ev.spaces)

	changed := !c.spacesShown || !models.SameSpaceOrder(c.spaces, ev.spaces)
	c.spaces = ev.spaces
	if changed {
		c.spacesShown = true
		c.renderer.OnSpacesRendered(ev.spaces, c.unread.Clone())
	} else {
		c.logger.Debug().Msg("spaces unchanged")
	}

	c.startProbe(ctx)
}

func (c *Controller) startProbe(ctx context.Context) {
	if c.prober == nil {
		return
	}
	c.probeSeq++
	seq := c.probeSeq
	ids := models.SpaceIDs(c.spaces)
	go func() {
		set := c.prober.Probe(ctx, ids)
		if ctx.Err() != nil {
			return
		}
		c.post(ctx, unreadProbed{seq: seq, set: set})
	}()
}

func (c *Controller) applyUnread(ctx context.Context, ev unreadProbed) {
	if ev.seq != c.probeSeq {
		c.logger.Debug().Int("seq", ev.seq).Msg("discarding stale unread probe")
		return
	}

	set := ev.set.Clone()
	// The focused space is marked read as soon as its messages settle.
	set.Remove(c.focused)

	var fresh []models.Space
	if c.unreadKnown {
		for _, s := range c.spaces {
			if set.Has(s.ID) && !c.unread.Has(s.ID) {
				fresh = append(fresh, s)
			}
		}
	}
	c.unread = set
	c.unreadKnown = true
	c.cache.SetUnreadStates(set.Clone())

	if len(set) > 0 {
		c.renderer.OnUnreadIndicatorsChanged(set.Ordered(models.SpaceIDs(c.spaces)))
	}

	if len(fresh) > 0 && c.notifier != nil {
		notifier := c.notifier
		go func() {
			if err := notifier.NotifyUnread(ctx, fresh); err != nil {
				c.logger.Debug().Err(err).Msg("notification failed")
			}
		}()
	}
}

// spaceName returns the display title of a known space.
func (c *Controller) spaceName(spaceID string) string {
	for _, s := range c.spaces {
		if s.ID == spaceID {
			return s.Title()
		}
	}
	return spaceID
}
