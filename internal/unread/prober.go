// Package unread determines which spaces have messages newer than the
// user's last-read time.
package unread

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

// Defaults used when the caller passes zero values.
const (
	DefaultWorkers = 8
	DefaultTimeout = 20 * time.Second
)

// Fetcher is the slice of the gateway the prober needs.
type Fetcher interface {
	FetchReadState(ctx context.Context, spaceID string) (string, bool, error)
	FetchMessages(ctx context.Context, spaceID string, limit int) ([]models.Message, error)
}

// Result is the outcome of checking one space.
type Result struct {
	SpaceID string
	Unread  bool
	Err     error
}

// Prober checks spaces concurrently with a fixed number of workers.
type Prober struct {
	fetcher Fetcher
	workers int
	timeout time.Duration
	logger  zerolog.Logger
}

// NewProber creates a prober. workers and timeout fall back to the
// defaults when not positive.
func NewProber(fetcher Fetcher, workers int, timeout time.Duration) *Prober {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		fetcher: fetcher,
		workers: workers,
		timeout: timeout,
		logger:  logging.Component("unread"),
	}
}

// Probe checks every space and returns the unread ones. A space whose
// check fails for any reason counts as read; one failure never affects
// the others.
func (p *Prober) Probe(ctx context.Context, spaceIDs []string) models.UnreadSet {
	ids := dedupe(spaceIDs)
	unread := models.NewUnreadSet()
	if len(ids) == 0 {
		return unread
	}

	results := make(chan Result, len(ids))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			results <- p.check(ctx, id)
			return nil
		})
	}

	failed := 0
	for range ids {
		res := <-results
		if res.Err != nil {
			failed++
			p.logger.Debug().Err(res.Err).Str("space_id", res.SpaceID).Msg("unread check failed")
			continue
		}
		if res.Unread {
			unread.Add(res.SpaceID)
		}
	}
	_ = g.Wait()

	p.logger.Debug().
		Int("spaces", len(ids)).
		Int("unread", len(unread)).
		Int("failed", failed).
		Msg("unread probe finished")
	return unread
}

func (p *Prober) check(ctx context.Context, spaceID string) (res Result) {
	res.SpaceID = spaceID
	defer func() {
		if r := recover(); r != nil {
			res = Result{SpaceID: spaceID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	lastRead, ok, err := p.fetcher.FetchReadState(ctx, spaceID)
	if err != nil {
		res.Err = err
		return res
	}
	if !ok {
		return res
	}

	msgs, err := p.fetcher.FetchMessages(ctx, spaceID, 1)
	if err != nil {
		res.Err = err
		return res
	}
	latest, ok := models.Latest(msgs)
	if !ok {
		return res
	}
	res.Unread = IsNewer(latest.CreatedAt, lastRead)
	return res
}

// IsNewer reports whether createdAt is strictly after lastRead. Both are
// RFC 3339 timestamps; when either fails to parse they are compared as
// strings.
func IsNewer(createdAt, lastRead string) bool {
	if createdAt == "" {
		return false
	}
	a, errA := time.Parse(time.RFC3339Nano, createdAt)
	b, errB := time.Parse(time.RFC3339Nano, lastRead)
	if errA == nil && errB == nil {
		return a.After(b)
	}
	return createdAt > lastRead
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
