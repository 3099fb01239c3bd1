package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/cipher-shad0w/google-chat-cli/internal/config"
	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

const gutter = 2

var categoryTitles = map[string]string{
	config.CategoryAll:    "Groups",
	config.CategorySpaces: "Groups [Spaces]",
	config.CategoryDMs:    "Groups [DMs]",
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := maxInt(0, m.height-lipgloss.Height(header)-lipgloss.Height(footer))

	left := spacesWidth(m.width)
	right := maxInt(0, m.width-left)
	chatHeight := maxInt(3, bodyHeight-inputHeight)

	spaces := m.renderSpaces(left, bodyHeight)
	chat := m.renderChat(right, chatHeight)
	input := m.renderInput(right, bodyHeight-chatHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top, spaces, lipgloss.JoinVertical(lipgloss.Left, chat, input))
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m *Model) renderHeader() string {
	title := "gchat"
	if m.focusedTitle != "" {
		title += " · " + m.focusedTitle
	}
	return m.styles.Header.Render(truncate.StringWithTail(title, uint(maxInt(0, m.width-2)), "…"))
}

func (m *Model) renderFooter() string {
	width := uint(maxInt(0, m.width-2))
	if line := m.promptLine(); line != "" {
		return m.styles.PromptLine.Render(truncate.StringWithTail(line, width, "…"))
	}
	if m.notice.text != "" {
		return m.styles.Notice(m.notice.severity).Render(truncate.StringWithTail(m.notice.text, width, "…"))
	}
	return m.styles.Hint.Render(truncate.StringWithTail(m.hints(), width, "…"))
}

func (m *Model) promptLine() string {
	value := strings.ReplaceAll(m.prompt, "\n", "⏎")
	switch m.mode {
	case modeFind:
		return "Find: " + value + "█"
	case modeReact:
		return "React (1 👍 2 ❤️ 3 😂 4 😮 5 😢 6 🎉, or type an emoji): " + value + "█"
	case modeAction:
		return "Message: [e]dit  [d]elete  [q]uote  [esc] cancel"
	case modeEdit:
		return "Edit: " + value + "█"
	case modeConfirmDelete:
		return "Delete this message? [y/n]"
	case modeName:
		return "Name for " + m.target.SenderID + ": " + value + "█"
	}
	return ""
}

func (m *Model) hints() string {
	if m.focus == paneInput {
		return "enter send · alt+enter newline · esc back · tab switch pane"
	}
	hints := "q quit · tab pane · enter open · r refresh · R hard refresh · t category · e react · a actions · f find"
	if m.vimMode {
		hints += " · h/l/ panes · j/k move"
	}
	return hints
}

func (m *Model) renderSpaces(width, height int) string {
	inner := maxInt(0, width-2)
	rows := maxInt(0, height-3)
	visible := m.visibleSpaces()

	lines := []string{m.styles.Title.Render(categoryTitles[m.category])}
	if len(visible) == 0 {
		lines = append(lines, m.styles.Muted.Render("No spaces"))
	}
	start, end := window(len(visible), m.spaceCursor, rows)
	for i := start; i < end; i++ {
		s := visible[i]
		marker := "  "
		if m.unread.Has(s.ID) {
			marker = m.styles.Unread.Render("●") + " "
		}
		title := truncate.StringWithTail(s.Title(), uint(maxInt(0, inner-gutter)), "…")
		switch {
		case i == m.spaceCursor && m.focus == paneSpaces:
			title = m.styles.Selected.Render(title)
		case s.ID == m.focused:
			title = m.styles.Title.Render(title)
		case m.unread.Has(s.ID):
			title = m.styles.Bold.Render(title)
		}
		lines = append(lines, marker+title)
	}
	return m.styles.Pane(m.focus == paneSpaces, width, height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderChat(width, height int) string {
	inner := maxInt(0, width-2)
	rows := maxInt(0, height-3)

	title := m.focusedTitle
	if title == "" {
		title = "Chat"
	}
	if m.find != "" {
		title += " [find: " + m.find + "]"
	}
	lines := []string{m.styles.Title.Render(truncate.StringWithTail(title, uint(inner), "…"))}

	switch {
	case m.focused == "":
		lines = append(lines, m.styles.Muted.Render("Select a space"))
	case m.loading && len(m.messages) == 0:
		lines = append(lines, m.styles.Muted.Render("Loading messages..."))
	case len(m.messages) == 0:
		lines = append(lines, m.styles.Muted.Render("No messages in this space"))
	case len(m.visibleMessages()) == 0:
		lines = append(lines, m.styles.Muted.Render("No matching messages"))
	default:
		lines = append(lines, m.messageLines(inner, rows)...)
	}
	return m.styles.Pane(m.focus == paneChat, width, height).Render(strings.Join(lines, "\n"))
}

// messageLines renders the visible messages and scrolls so the selected one
// is on screen, newest at the bottom.
func (m *Model) messageLines(width, rows int) []string {
	visible := m.visibleMessages()

	type sender struct {
		name     string
		resolved bool
	}
	senders := make([]sender, len(visible))
	nameWidth := 0
	for i, msg := range visible {
		name, resolved := models.SenderName(msg, m.userNames)
		senders[i] = sender{name: name, resolved: resolved}
		nameWidth = maxInt(nameWidth, lipgloss.Width(name)+1)
	}

	var all []string
	ends := make([]int, len(visible))
	for i, msg := range visible {
		prefix, prefixWidth := m.messagePrefix(msg, senders[i].name, senders[i].resolved, nameWidth)
		mark := strings.Repeat(" ", gutter)
		if i == m.msgCursor && m.focus == paneChat {
			mark = m.styles.Title.Render("▎") + " "
		}

		body := formatText(msg.Text, m.styles)
		for _, extra := range []string{formatAttachments(msg.Attachments, m.styles), formatReactions(msg.Reactions, m.styles)} {
			if extra == "" {
				continue
			}
			if body != "" {
				body += "\n"
			}
			body += extra
		}

		bodyWidth := maxInt(10, width-gutter-prefixWidth)
		wrapped := strings.Split(wordwrap.String(body, bodyWidth), "\n")
		pad := strings.Repeat(" ", gutter+prefixWidth)
		for j, line := range wrapped {
			if j == 0 {
				all = append(all, mark+prefix+line)
				continue
			}
			all = append(all, pad+line)
		}
		ends[i] = len(all)
	}

	if len(all) <= rows {
		return all
	}
	end := len(all)
	if m.msgCursor >= 0 && m.msgCursor < len(ends) {
		end = maxInt(ends[m.msgCursor], rows)
	}
	return all[end-rows : end]
}

// messagePrefix returns "[HH:MM] name:" padded to the name column.
func (m *Model) messagePrefix(msg models.Message, name string, resolved bool, nameWidth int) (string, int) {
	var b strings.Builder
	width := 0
	if clock := formatClock(msg.CreatedAt, m.loc); clock != "" {
		b.WriteString(m.styles.Muted.Render("[" + clock + "]"))
		b.WriteString(" ")
		width += len("[00:00] ")
	}
	label := name + ":"
	if resolved {
		b.WriteString(m.styles.Sender.Render(label))
	} else {
		b.WriteString(m.styles.Muted.Render(label))
	}
	b.WriteString(strings.Repeat(" ", nameWidth-lipgloss.Width(label)+1))
	width += nameWidth + 1
	return b.String(), width
}

func (m *Model) renderInput(width, height int) string {
	inner := maxInt(0, width-2)
	rows := maxInt(1, height-2)

	text := m.input
	if m.focus == paneInput {
		text += "█"
	}
	var lines []string
	switch {
	case text != "":
		lines = strings.Split(wordwrap.String(text, maxInt(1, inner)), "\n")
	case m.focused == "":
		lines = []string{m.styles.Muted.Render("Select a space to write")}
	default:
		lines = []string{m.styles.Muted.Render("Write a message (tab to focus)")}
	}
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	return m.styles.Pane(m.focus == paneInput, width, height).Render(strings.Join(lines, "\n"))
}

// window returns the [start, end) slice of n items of which rows fit, keeping
// cursor visible.
func window(n, cursor, rows int) (int, int) {
	if rows <= 0 || n == 0 {
		return 0, 0
	}
	if n <= rows {
		return 0, n
	}
	start := clampInt(cursor-rows+1, 0, n-rows)
	return start, start + rows
}
