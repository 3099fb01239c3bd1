package reconcile

import (
	"context"
	"strings"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

type mutationLabels struct {
	ok   string
	fail string
}

var labels = map[mutationKind]mutationLabels{
	mutationSend:   {ok: "Message sent", fail: "Send failed"},
	mutationEdit:   {ok: "Message edited", fail: "Edit failed"},
	mutationDelete: {ok: "Message deleted", fail: "Delete failed"},
	mutationReact:  {ok: "Reaction added", fail: "Reaction failed"},
}

func (c *Controller) mutate(ctx context.Context, req mutationRequest) {
	spaceID := c.focused
	if req.kind != mutationSend {
		if id := models.MessageSpaceID(req.messageName); id != "" {
			spaceID = id
		}
		if strings.TrimSpace(req.messageName) == "" {
			c.notice("No message selected", SeverityWarning)
			return
		}
	}
	if spaceID == "" {
		c.notice("No space selected", SeverityWarning)
		return
	}

	c.logger.Info().Str("space_id", spaceID).Str("kind", string(req.kind)).Msg("mutation started")
	go func() {
		var err error
		switch req.kind {
		case mutationSend:
			err = c.gw.SendMessage(ctx, spaceID, req.text)
		case mutationEdit:
			err = c.gw.EditMessage(ctx, req.messageName, req.text)
		case mutationDelete:
			err = c.gw.DeleteMessage(ctx, req.messageName)
		case mutationReact:
			err = c.gw.React(ctx, req.messageName, req.emoji)
		}
		if err == nil {
			c.cache.InvalidateMessages(spaceID)
		}
		c.post(ctx, mutationDone{kind: req.kind, spaceID: spaceID, err: err})
	}()
}

func (c *Controller) applyMutation(ctx context.Context, ev mutationDone) {
	l := labels[ev.kind]
	if ev.err != nil {
		c.logger.Warn().Err(ev.err).Str("space_id", ev.spaceID).Str("kind", string(ev.kind)).Msg("mutation failed")
		c.notice(describe(l.fail, ev.err), severityFor(ev.err))
		return
	}
	c.notice(l.ok, SeverityInfo)
	if ev.spaceID == c.focused {
		// The reload after a mutation always renders, so reaction-only
		// changes show up here even though polling skips them.
		c.messagesShown = false
		c.startMessages(ctx, ev.spaceID, true)
	}
}
