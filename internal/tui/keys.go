package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
	"github.com/cipher-shad0w/google-chat-cli/internal/reconcile"
)

// reactionChoices are picked with 1-6 in the react prompt.
var reactionChoices = []string{"👍", "❤️", "😂", "😮", "😢", "🎉"}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.mode != modeNormal {
		return m.handlePromptKey(msg)
	}
	if m.focus == paneInput {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "tab":
		m.cycleFocus(1)
	case "shift+tab":
		m.cycleFocus(-1)
	case "r":
		return m.do(Controller.LoadSpaces)
	case "R":
		return m.do(Controller.HardRefresh)
	case "t":
		return m.cycleCategory()
	case "f":
		if m.focused != "" {
			m.mode = modeFind
			m.prompt = m.find
		}
	case "e":
		return m.openReact()
	case "a":
		if msg, ok := m.selectedMessage(); ok {
			m.target = msg
			m.mode = modeAction
		}
	case "esc":
		if m.find != "" {
			m.find = ""
			m.msgCursor = maxInt(0, len(m.visibleMessages())-1)
		}
	case "h":
		if m.vimMode {
			m.focus = paneSpaces
		}
	case "l":
		if m.vimMode {
			m.focus = paneChat
		}
	case "/":
		if m.vimMode {
			m.focus = paneInput
		}
	case "j":
		if m.vimMode {
			m.moveCursor(1)
		}
	case "k":
		if m.vimMode {
			m.moveCursor(-1)
		}
	case "down":
		m.moveCursor(1)
	case "up":
		m.moveCursor(-1)
	case "home", "g":
		m.moveCursor(-1 << 30)
	case "end", "G":
		m.moveCursor(1 << 30)
	case "enter":
		return m.activate()
	}
	return nil
}

func (m *Model) cycleFocus(step int) {
	m.focus = pane((int(m.focus) + 3 + step) % 3)
}

func (m *Model) moveCursor(delta int) {
	switch m.focus {
	case paneSpaces:
		n := len(m.visibleSpaces())
		m.spaceCursor = clampInt(m.spaceCursor+delta, 0, maxInt(0, n-1))
	case paneChat:
		n := len(m.visibleMessages())
		m.msgCursor = clampInt(m.msgCursor+delta, 0, maxInt(0, n-1))
	}
}

// activate handles enter in the space list and the chat log.
func (m *Model) activate() tea.Cmd {
	switch m.focus {
	case paneSpaces:
		s, ok := m.cursorSpace()
		if !ok {
			return nil
		}
		m.focus = paneChat
		return m.selectSpace(s)
	case paneChat:
		msg, ok := m.selectedMessage()
		if !ok {
			return nil
		}
		if _, resolved := models.SenderName(msg, m.userNames); resolved || msg.SenderID == "" {
			return nil
		}
		m.target = msg
		m.prompt = ""
		m.mode = modeName
	}
	return nil
}

func (m *Model) openReact() tea.Cmd {
	msg, ok := m.selectedMessage()
	if !ok {
		return nil
	}
	m.target = msg
	m.prompt = ""
	m.mode = modeReact
	return nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.focus = paneChat
		return nil
	case "tab":
		m.cycleFocus(1)
		return nil
	case "shift+tab":
		m.cycleFocus(-1)
		return nil
	case "enter":
		return m.submitInput()
	case "alt+enter":
		m.input += "\n"
		return nil
	case "backspace", "ctrl+h":
		m.input = dropLastRune(m.input)
		return nil
	case "ctrl+u":
		m.input = ""
		return nil
	}
	m.input += typed(msg)
	return nil
}

func (m *Model) submitInput() tea.Cmd {
	text := strings.TrimSpace(m.input)
	if text == "" {
		return nil
	}
	if m.focused == "" {
		return m.setNotice("No space selected", reconcile.SeverityWarning)
	}
	m.input = ""
	return m.do(func(c Controller) { c.Send(text) })
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()

	switch m.mode {
	case modeAction:
		switch key {
		case "e":
			m.mode = modeEdit
			m.prompt = m.target.Text
		case "d":
			m.mode = modeConfirmDelete
		case "q":
			m.mode = modeNormal
			m.input = quote(m.target.Text)
			m.focus = paneInput
		case "esc":
			m.closePrompt()
		}
		return nil
	case modeConfirmDelete:
		switch strings.ToLower(key) {
		case "y":
			name := m.target.ID
			m.closePrompt()
			return m.do(func(c Controller) { c.Delete(name) })
		case "n", "esc":
			m.closePrompt()
		}
		return nil
	}

	switch key {
	case "esc":
		if m.mode == modeFind {
			m.find = ""
			m.msgCursor = maxInt(0, len(m.visibleMessages())-1)
		}
		m.closePrompt()
		return nil
	case "enter":
		return m.commitPrompt()
	case "alt+enter":
		if m.mode == modeEdit {
			m.prompt += "\n"
		}
		return nil
	case "backspace", "ctrl+h":
		m.prompt = dropLastRune(m.prompt)
		m.promptChanged()
		return nil
	}

	text := typed(msg)
	if m.mode == modeReact && m.prompt == "" && len(text) == 1 && text[0] >= '1' && text[0] <= '6' {
		m.prompt = reactionChoices[text[0]-'1']
		return m.commitPrompt()
	}
	m.prompt += text
	m.promptChanged()
	return nil
}

func (m *Model) promptChanged() {
	if m.mode != modeFind {
		return
	}
	m.find = m.prompt
	m.msgCursor = maxInt(0, len(m.visibleMessages())-1)
}

func (m *Model) commitPrompt() tea.Cmd {
	value := strings.TrimSpace(m.prompt)
	target := m.target
	current := m.mode
	m.closePrompt()

	switch current {
	case modeFind:
		m.find = value
		m.msgCursor = maxInt(0, len(m.visibleMessages())-1)
	case modeReact:
		if value == "" {
			return nil
		}
		return m.do(func(c Controller) { c.React(target.ID, value) })
	case modeEdit:
		if value == "" || value == strings.TrimSpace(target.Text) {
			return nil
		}
		return m.do(func(c Controller) { c.Edit(target.ID, value) })
	case modeName:
		if value == "" {
			return nil
		}
		return m.renameSender(target.SenderID, value)
	}
	return nil
}

func (m *Model) closePrompt() {
	m.mode = modeNormal
	m.prompt = ""
}

// typed returns the text a key press inserts, or "".
func typed(msg tea.KeyMsg) string {
	switch msg.Type {
	case tea.KeyRunes:
		return string(msg.Runes)
	case tea.KeySpace:
		return " "
	}
	return ""
}

func dropLastRune(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}
