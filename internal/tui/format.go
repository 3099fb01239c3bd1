package tui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

var (
	codeBlockRe  = regexp.MustCompile("(?s)```(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	urlRe        = regexp.MustCompile(`https?://[^\s<>\[\]()]+`)
	boldRe       = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicRe     = regexp.MustCompile(`(^|[^\pL\pN_])_([^_\n]+)_`)
	strikeRe     = regexp.MustCompile(`~([^~\n]+)~`)
	placeholder  = regexp.MustCompile("\x00([A-Z])([0-9]+)\x00")
)

// formatText renders Google Chat markup (*bold*, _italic_, ~strike~,
// `code`, ```blocks``` and bare links) with the given styles.
func formatText(text string, st Styles) string {
	if text == "" {
		return ""
	}

	var held []string
	hold := func(kind byte, rendered string) string {
		held = append(held, rendered)
		return fmt.Sprintf("\x00%c%d\x00", kind, len(held)-1)
	}

	// Code and links are set aside first so their contents are not styled.
	out := codeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		body := strings.TrimSpace(codeBlockRe.FindStringSubmatch(m)[1])
		return hold('B', "\n"+st.Code.Render(body)+"\n")
	})
	out = inlineCodeRe.ReplaceAllStringFunc(out, func(m string) string {
		return hold('C', st.Code.Render(" "+inlineCodeRe.FindStringSubmatch(m)[1]+" "))
	})
	out = urlRe.ReplaceAllStringFunc(out, func(m string) string {
		return hold('L', st.Link.Render(m))
	})

	out = boldRe.ReplaceAllStringFunc(out, func(m string) string {
		return st.Bold.Render(boldRe.FindStringSubmatch(m)[1])
	})
	out = italicRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := italicRe.FindStringSubmatch(m)
		return sub[1] + st.Italic.Render(sub[2])
	})
	out = strikeRe.ReplaceAllStringFunc(out, func(m string) string {
		return st.Strike.Render(strikeRe.FindStringSubmatch(m)[1])
	})

	return placeholder.ReplaceAllStringFunc(out, func(m string) string {
		sub := placeholder.FindStringSubmatch(m)
		idx, err := strconv.Atoi(sub[2])
		if err != nil || idx >= len(held) {
			return ""
		}
		return held[idx]
	})
}

// formatAttachments renders one line listing a message's attachments.
func formatAttachments(atts []models.Attachment, st Styles) string {
	if len(atts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(atts))
	for _, a := range atts {
		name := a.Name
		if name == "" {
			name = "attachment"
		}
		parts = append(parts, attachmentIcon(a.ContentType)+" "+name)
	}
	return st.Muted.Render(strings.Join(parts, " | "))
}

func attachmentIcon(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "\U0001f5bc"
	case strings.HasPrefix(contentType, "video/"):
		return "\U0001f3ac"
	case strings.HasPrefix(contentType, "audio/"):
		return "\U0001f50a"
	case contentType == "application/pdf":
		return "\U0001f4c4"
	default:
		return "\U0001f4ce"
	}
}

// formatReactions renders "👍 3  ❤️ 1".
func formatReactions(reactions []models.Reaction, st Styles) string {
	parts := make([]string, 0, len(reactions))
	for _, r := range reactions {
		if r.Emoji == "" || r.Count <= 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d", r.Emoji, r.Count))
	}
	if len(parts) == 0 {
		return ""
	}
	return st.Muted.Render(strings.Join(parts, "  "))
}

// formatClock returns the local HH:MM of an RFC3339 timestamp, or "".
func formatClock(createdAt string, loc *time.Location) string {
	if createdAt == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("15:04")
}

// quote prefixes every line of text with "> ".
func quote(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n") + "\n"
}
