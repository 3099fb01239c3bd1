package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cipher-shad0w/google-chat-cli/internal/cache"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

type fakeGateway struct {
	mu          sync.Mutex
	spaces      []models.Space
	spacesErr   error
	messages    map[string][]models.Message
	messagesErr map[string]error
	members     map[string][]models.Member
	membersErr  error
	gates       map[string]chan struct{}
	submitErr   error
	mutateErr   error

	calls     map[string]int
	submitted []string
	mutations []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		messages:    map[string][]models.Message{},
		messagesErr: map[string]error{},
		members:     map[string][]models.Member{},
		gates:       map[string]chan struct{}{},
		calls:       map[string]int{},
	}
}

func (g *fakeGateway) count(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[key]
}

func (g *fakeGateway) setMessages(spaceID string, msgs []models.Message) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages[spaceID] = msgs
}

func (g *fakeGateway) submissions() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.submitted...)
}

func (g *fakeGateway) mutationLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.mutations...)
}

func (g *fakeGateway) FetchSpaces(ctx context.Context) ([]models.Space, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["spaces"]++
	return append([]models.Space(nil), g.spaces...), g.spacesErr
}

// setGate makes later message fetches for spaceID wait until gate is
// closed. A nil gate removes it.
func (g *fakeGateway) setGate(spaceID string, gate chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gate == nil {
		delete(g.gates, spaceID)
		return
	}
	g.gates[spaceID] = gate
}

// FetchMessages answers with the messages held when the call was made, so a
// gated call returns an older snapshot.
func (g *fakeGateway) FetchMessages(ctx context.Context, spaceID string, limit int) ([]models.Message, error) {
	g.mu.Lock()
	g.calls["messages:"+spaceID]++
	gate := g.gates[spaceID]
	snapshot := append([]models.Message(nil), g.messages[spaceID]...)
	err := g.messagesErr[spaceID]
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (g *fakeGateway) FetchMembers(ctx context.Context, spaceID string) ([]models.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["members:"+spaceID]++
	if g.membersErr != nil {
		return nil, g.membersErr
	}
	return g.members[spaceID], nil
}

func (g *fakeGateway) FetchReadState(ctx context.Context, spaceID string) (string, bool, error) {
	return "", false, errors.New("not used by the controller")
}

func (g *fakeGateway) SubmitReadState(ctx context.Context, spaceID, lastRead string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted = append(g.submitted, spaceID+"@"+lastRead)
	return g.submitErr
}

func (g *fakeGateway) mutate(entry string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mutations = append(g.mutations, entry)
	return g.mutateErr
}

func (g *fakeGateway) SendMessage(ctx context.Context, spaceID, text string) error {
	return g.mutate("send " + spaceID + " " + text)
}

func (g *fakeGateway) EditMessage(ctx context.Context, messageName, text string) error {
	return g.mutate("edit " + messageName + " " + text)
}

func (g *fakeGateway) DeleteMessage(ctx context.Context, messageName string) error {
	return g.mutate("delete " + messageName)
}

func (g *fakeGateway) React(ctx context.Context, messageName, emoji string) error {
	return g.mutate("react " + messageName + " " + emoji)
}

type renderCall struct {
	kind     string
	spaceID  string
	spaces   []models.Space
	unread   models.UnreadSet
	messages []models.Message
	names    map[string]string
	ids      []string
	notice   string
	severity Severity
}

type recorder struct {
	mu    sync.Mutex
	calls []renderCall
}

func (r *recorder) add(c renderCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) OnSpacesRendered(spaces []models.Space, unread models.UnreadSet) {
	r.add(renderCall{kind: "spaces", spaces: spaces, unread: unread})
}

func (r *recorder) OnMessagesRendered(spaceID string, messages []models.Message, names map[string]string) {
	r.add(renderCall{kind: "messages", spaceID: spaceID, messages: messages, names: names})
}

func (r *recorder) OnUnreadIndicatorsChanged(ids []string) {
	r.add(renderCall{kind: "unread", ids: ids})
}

func (r *recorder) OnTransientNotice(message string, severity Severity) {
	r.add(renderCall{kind: "notice", notice: message, severity: severity})
}

func (r *recorder) of(kind string) []renderCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []renderCall
	for _, c := range r.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type fakeProber struct {
	mu   sync.Mutex
	set  models.UnreadSet
	runs int

	// hold, when set, delays the next probe until it is closed.
	hold chan struct{}
}

func (p *fakeProber) Probe(ctx context.Context, ids []string) models.UnreadSet {
	p.mu.Lock()
	p.runs++
	out := models.NewUnreadSet()
	for _, id := range ids {
		if p.set.Has(id) {
			out.Add(id)
		}
	}
	hold := p.hold
	p.hold = nil
	p.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
		}
	}
	return out
}

func (p *fakeProber) setUnread(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set = models.NewUnreadSet(ids...)
}

func (p *fakeProber) runCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

type fakeNotifier struct {
	mu     sync.Mutex
	spaces [][]models.Space
}

func (n *fakeNotifier) NotifyUnread(ctx context.Context, spaces []models.Space) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spaces = append(n.spaces, spaces)
	return nil
}

func (n *fakeNotifier) calls() [][]models.Space {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]models.Space(nil), n.spaces...)
}

type harness struct {
	// pollInterval may be set by the setup func; zero disables polling.
	pollInterval time.Duration

	ctrl     *Controller
	gw       *fakeGateway
	cache    *cache.Cache
	rec      *recorder
	prober   *fakeProber
	notifier *fakeNotifier
	cacheDir string
}

func newHarness(t *testing.T, setup func(h *harness)) *harness {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "cache")
	h := &harness{
		gw:       newFakeGateway(),
		cache:    cache.New(dir, time.Hour),
		rec:      &recorder{},
		prober:   &fakeProber{set: models.NewUnreadSet()},
		notifier: &fakeNotifier{},
		cacheDir: dir,
	}
	if setup != nil {
		setup(h)
	}
	h.ctrl = New(Config{
		Gateway:  h.gw,
		Cache:    h.cache,
		Prober:   h.prober,
		Renderer: h.rec,
		Notifier: h.notifier,
		PageSize: 25,

		PollInterval: h.pollInterval,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

// phases is safe to call from require.Eventually conditions.
func (h *harness) phases() Phases {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p, _ := h.ctrl.Phases(ctx)
	return p
}

func (h *harness) waitSettled(t *testing.T, spaces, messages bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		p := h.phases()
		return (!spaces || p.Spaces == PhaseSettled) && (!messages || p.Messages == PhaseSettled)
	}, 2*time.Second, 5*time.Millisecond)
}

func msg(space, id, text, created string) models.Message {
	return models.Message{
		ID:        "spaces/" + space + "/messages/" + id,
		SpaceID:   space,
		SenderID:  "users/1",
		Text:      text,
		CreatedAt: created,
	}
}
