// Package tui is the gchat terminal UI. It renders what the reconcile
// controller tells it to and turns key presses into controller requests.
package tui

import (
	"maps"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/cipher-shad0w/google-chat-cli/internal/config"
	"github.com/cipher-shad0w/google-chat-cli/internal/gateway"
	"github.com/cipher-shad0w/google-chat-cli/internal/logging"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
	"github.com/cipher-shad0w/google-chat-cli/internal/reconcile"
)

// Controller is the part of *reconcile.Controller the UI drives. Every
// call is made from a tea.Cmd, never from Update itself.
type Controller interface {
	LoadSpaces()
	SelectSpace(spaceID string)
	HardRefresh()
	Send(text string)
	Edit(messageName, text string)
	Delete(messageName string)
	React(messageName, emoji string)
}

// NameStore persists display-name overrides.
type NameStore interface {
	Set(userID, name string) error
}

// SessionStore persists UI state between runs.
type SessionStore interface {
	Save(sess *config.Session) error
}

// Options configures a Model.
type Options struct {
	Controller Controller
	Names      NameStore
	Sessions   SessionStore

	// Session is the state restored from the last run.
	Session *config.Session

	Theme   string
	VimMode bool

	// Startup runs once in the background. A non-nil error becomes an
	// error notice.
	Startup func() error

	// Warnings are shown as a notice on start.
	Warnings []string

	// Location is used for message timestamps; nil means local time.
	Location *time.Location
}

type pane int

const (
	paneSpaces pane = iota
	paneChat
	paneInput
)

type mode int

const (
	modeNormal mode = iota
	modeFind
	modeReact
	modeAction
	modeEdit
	modeConfirmDelete
	modeName
)

type notice struct {
	text     string
	severity reconcile.Severity
}

type noticeExpiredMsg struct {
	seq int
}

// Model is the root bubbletea model.
type Model struct {
	ctrl     Controller
	requests *requestQueue
	names    NameStore
	sessions SessionStore
	session  config.Session
	restore  string
	startup  func() error
	warnings []string
	styles   Styles
	vimMode  bool
	loc      *time.Location
	logger   zerolog.Logger

	width  int
	height int
	focus  pane
	mode   mode

	spaces      []models.Space
	unread      models.UnreadSet
	category    string
	spaceCursor int

	focused      string
	focusedTitle string
	loading      bool
	messages     []models.Message
	userNames    map[string]string
	msgCursor    int
	find         string

	input  string
	prompt string
	target models.Message

	notice    notice
	noticeSeq int
}

// NewModel creates the root model.
func NewModel(opts Options) *Model {
	sess := config.Session{}
	if opts.Session != nil {
		sess = *opts.Session
	}
	sess.Category = config.NormalizeCategory(sess.Category)

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	return &Model{
		ctrl:     opts.Controller,
		requests: &requestQueue{},
		names:    opts.Names,
		sessions: opts.Sessions,
		session:  sess,
		restore:  sess.SpaceID,
		startup:  opts.Startup,
		warnings: opts.Warnings,
		styles:   NewStyles(opts.Theme),
		vimMode:  opts.VimMode,
		loc:      loc,
		logger:   logging.Component("tui"),
		focus:    paneSpaces,
		unread:   models.NewUnreadSet(),
		category: sess.Category,
	}
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.do(Controller.LoadSpaces)}
	if m.startup != nil {
		startup := m.startup
		cmds = append(cmds, func() tea.Msg {
			if err := startup(); err != nil {
				return noticeMsg{text: gateway.Describe(err), severity: reconcile.SeverityError}
			}
			return nil
		})
	}
	if len(m.warnings) > 0 {
		text := "Config: " + m.warnings[0]
		if len(m.warnings) > 1 {
			text += " (see log for more)"
		}
		cmds = append(cmds, func() tea.Msg {
			return noticeMsg{text: text, severity: reconcile.SeverityWarning}
		})
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	case spacesRenderedMsg:
		return m, m.applySpaces(typed)
	case messagesRenderedMsg:
		m.applyMessages(typed)
		return m, nil
	case unreadChangedMsg:
		m.unread = models.NewUnreadSet(typed.spaceIDs...)
		m.unread.Remove(m.focused)
		return m, nil
	case noticeMsg:
		return m, m.setNotice(typed.text, typed.severity)
	case noticeExpiredMsg:
		if typed.seq == m.noticeSeq {
			m.notice = notice{}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) applySpaces(msg spacesRenderedMsg) tea.Cmd {
	current, hadCurrent := m.cursorSpace()
	m.spaces = msg.spaces
	m.unread = msg.unread
	if m.unread == nil {
		m.unread = models.NewUnreadSet()
	}
	m.unread.Remove(m.focused)
	m.keepSpaceCursor(current.ID, hadCurrent)

	if m.restore == "" || m.focused != "" {
		return nil
	}
	for _, s := range m.spaces {
		if s.ID == m.restore {
			m.restore = ""
			m.keepSpaceCursor(s.ID, true)
			return m.selectSpace(s)
		}
	}
	return nil
}

func (m *Model) applyMessages(msg messagesRenderedMsg) {
	if msg.spaceID != m.focused {
		return
	}
	m.loading = false
	m.messages = msg.messages
	m.userNames = msg.names
	m.msgCursor = maxInt(0, len(m.visibleMessages())-1)
}

func (m *Model) selectSpace(s models.Space) tea.Cmd {
	m.focused = s.ID
	m.focusedTitle = s.Title()
	m.loading = true
	m.messages = nil
	m.userNames = nil
	m.msgCursor = 0
	m.find = ""
	m.unread.Remove(s.ID)
	m.restore = ""
	m.session.SetSpace(s.ID, s.Title())

	id := s.ID
	return tea.Batch(
		m.do(func(c Controller) { c.SelectSpace(id) }),
		m.saveSession(),
	)
}

// visibleSpaces applies the category filter.
func (m *Model) visibleSpaces() []models.Space {
	if m.category == config.CategoryAll {
		return m.spaces
	}
	out := make([]models.Space, 0, len(m.spaces))
	for _, s := range m.spaces {
		direct := s.Type.IsDirect()
		if (m.category == config.CategoryDMs) == direct {
			out = append(out, s)
		}
	}
	return out
}

func (m *Model) cursorSpace() (models.Space, bool) {
	visible := m.visibleSpaces()
	if m.spaceCursor < 0 || m.spaceCursor >= len(visible) {
		return models.Space{}, false
	}
	return visible[m.spaceCursor], true
}

// keepSpaceCursor moves the cursor back onto id if it is still listed.
func (m *Model) keepSpaceCursor(id string, ok bool) {
	visible := m.visibleSpaces()
	if ok {
		for i, s := range visible {
			if s.ID == id {
				m.spaceCursor = i
				return
			}
		}
	}
	m.spaceCursor = clampInt(m.spaceCursor, 0, maxInt(0, len(visible)-1))
}

func (m *Model) cycleCategory() tea.Cmd {
	current, ok := m.cursorSpace()
	switch m.category {
	case config.CategoryAll:
		m.category = config.CategorySpaces
	case config.CategorySpaces:
		m.category = config.CategoryDMs
	default:
		m.category = config.CategoryAll
	}
	m.keepSpaceCursor(current.ID, ok)
	m.session.SetCategory(m.category)
	return m.saveSession()
}

// visibleMessages applies the find filter.
func (m *Model) visibleMessages() []models.Message {
	needle := strings.ToLower(strings.TrimSpace(m.find))
	if needle == "" {
		return m.messages
	}
	out := make([]models.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		name, _ := models.SenderName(msg, m.userNames)
		if strings.Contains(strings.ToLower(msg.Text), needle) || strings.Contains(strings.ToLower(name), needle) {
			out = append(out, msg)
		}
	}
	return out
}

func (m *Model) selectedMessage() (models.Message, bool) {
	visible := m.visibleMessages()
	if m.msgCursor < 0 || m.msgCursor >= len(visible) {
		return models.Message{}, false
	}
	return visible[m.msgCursor], true
}

// renameSender stores a display name for an unresolved sender and shows it
// right away.
func (m *Model) renameSender(userID, name string) tea.Cmd {
	names := maps.Clone(m.userNames)
	if names == nil {
		names = make(map[string]string)
	}
	names[userID] = name
	m.userNames = names

	store := m.names
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		if err := store.Set(userID, name); err != nil {
			return noticeMsg{text: "Could not save name: " + err.Error(), severity: reconcile.SeverityWarning}
		}
		return noticeMsg{text: "Saved name " + name, severity: reconcile.SeverityInfo}
	}
}

func (m *Model) setNotice(text string, severity reconcile.Severity) tea.Cmd {
	m.noticeSeq++
	m.notice = notice{text: text, severity: severity}
	seq := m.noticeSeq
	return tea.Tick(noticeTTL(severity), func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func noticeTTL(severity reconcile.Severity) time.Duration {
	switch severity {
	case reconcile.SeverityError:
		return 10 * time.Second
	case reconcile.SeverityWarning:
		return 5 * time.Second
	default:
		return 3 * time.Second
	}
}

// do queues fn for the controller and returns the command that runs it off
// the update loop. Calls reach the controller in the order they were queued.
func (m *Model) do(fn func(Controller)) tea.Cmd {
	ctrl := m.ctrl
	if ctrl == nil {
		return nil
	}
	m.requests.push(fn)
	requests := m.requests
	return func() tea.Msg {
		requests.drain(ctrl)
		return nil
	}
}

func (m *Model) saveSession() tea.Cmd {
	store := m.sessions
	if store == nil {
		return nil
	}
	sess := m.session
	logger := m.logger
	return func() tea.Msg {
		if err := store.Save(&sess); err != nil {
			logger.Warn().Err(err).Msg("save session")
		}
		return nil
	}
}
