package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cipher-shad0w/google-chat-cli/internal/models"
)

type wireSpace struct {
	Name            string          `json:"name"`
	DisplayName     string          `json:"displayName"`
	SpaceType       string          `json:"spaceType"`
	Type            string          `json:"type"`
	MembershipCount json.RawMessage `json:"membershipCount"`
	CreateTime      string          `json:"createTime"`
}

type wireUser struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
}

type wireMessage struct {
	Name                   string                `json:"name"`
	Text                   string                `json:"text"`
	ArgumentText           string                `json:"argumentText"`
	CreateTime             string                `json:"createTime"`
	Sender                 wireUser              `json:"sender"`
	EmojiReactionSummaries []wireReactionSummary `json:"emojiReactionSummaries"`
	Attachment             []wireAttachment      `json:"attachment"`
}

type wireReactionSummary struct {
	Emoji struct {
		Unicode     string `json:"unicode"`
		CustomEmoji struct {
			UID string `json:"uid"`
		} `json:"customEmoji"`
	} `json:"emoji"`
	ReactionCount int `json:"reactionCount"`
}

type wireAttachment struct {
	Name         string `json:"name"`
	ContentName  string `json:"contentName"`
	ContentType  string `json:"contentType"`
	DownloadURI  string `json:"downloadUri"`
	ThumbnailURI string `json:"thumbnailUri"`
}

type wireMembership struct {
	Name   string   `json:"name"`
	Member wireUser `json:"member"`
}

type wireReadState struct {
	Name         string `json:"name"`
	LastReadTime string `json:"lastReadTime"`
}

func decodeSpaces(data []byte) ([]models.Space, error) {
	var payload struct {
		Spaces []wireSpace `json:"spaces"`
	}
	if err := decode(data, &payload); err != nil {
		return nil, fmt.Errorf("decode spaces: %w", err)
	}

	spaces := make([]models.Space, 0, len(payload.Spaces))
	seen := make(map[string]struct{}, len(payload.Spaces))
	for _, ws := range payload.Spaces {
		id := models.SpaceID(ws.Name)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		spaces = append(spaces, models.Space{
			ID:          id,
			DisplayName: strings.TrimSpace(ws.DisplayName),
			Type:        spaceType(ws),
			MemberCount: membershipCount(ws.MembershipCount),
			CreatedAt:   parseTime(ws.CreateTime),
		})
	}
	return spaces, nil
}

func spaceType(ws wireSpace) models.SpaceType {
	switch strings.ToUpper(ws.SpaceType) {
	case string(models.SpaceTypeRoom):
		return models.SpaceTypeRoom
	case string(models.SpaceTypeGroupChat):
		return models.SpaceTypeGroupChat
	case string(models.SpaceTypeDirectMessage):
		return models.SpaceTypeDirectMessage
	}
	// Legacy field.
	switch strings.ToUpper(ws.Type) {
	case "DM":
		return models.SpaceTypeDirectMessage
	case "ROOM":
		return models.SpaceTypeRoom
	}
	return ""
}

// membershipCount accepts either a plain number or the API's
// {joinedDirectHumanUserCount, joinedGroupCount} object.
func membershipCount(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var obj struct {
		Users  int `json:"joinedDirectHumanUserCount"`
		Groups int `json:"joinedGroupCount"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Users + obj.Groups
	}
	return 0
}

func decodeMessages(data []byte, spaceID string) ([]models.Message, error) {
	var payload struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := decode(data, &payload); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	msgs := make([]models.Message, 0, len(payload.Messages))
	for _, wm := range payload.Messages {
		if wm.Name == "" {
			continue
		}
		text := wm.Text
		if text == "" {
			text = wm.ArgumentText
		}
		msg := models.Message{
			ID:                wm.Name,
			SpaceID:           spaceID,
			SenderID:          wm.Sender.Name,
			SenderDisplayName: strings.TrimSpace(wm.Sender.DisplayName),
			Text:              text,
			CreatedAt:         wm.CreateTime,
		}
		for _, rs := range wm.EmojiReactionSummaries {
			emoji := rs.Emoji.Unicode
			if emoji == "" && rs.Emoji.CustomEmoji.UID != "" {
				emoji = ":" + rs.Emoji.CustomEmoji.UID + ":"
			}
			if emoji == "" {
				continue
			}
			msg.Reactions = append(msg.Reactions, models.Reaction{Emoji: emoji, Count: rs.ReactionCount})
		}
		for _, wa := range wm.Attachment {
			name := wa.ContentName
			if name == "" {
				name = wa.Name
			}
			url := wa.DownloadURI
			if url == "" {
				url = wa.ThumbnailURI
			}
			msg.Attachments = append(msg.Attachments, models.Attachment{
				Name:        name,
				ContentType: wa.ContentType,
				URL:         url,
			})
		}
		msgs = append(msgs, msg)
	}

	// Requested newest first; displayed oldest first.
	sort.SliceStable(msgs, func(i, j int) bool {
		return createdBefore(msgs[i].CreatedAt, msgs[j].CreatedAt)
	})
	return msgs, nil
}

func decodeMembers(data []byte) ([]models.Member, error) {
	var payload struct {
		Memberships []wireMembership `json:"memberships"`
	}
	if err := decode(data, &payload); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}

	members := make([]models.Member, 0, len(payload.Memberships))
	for _, wm := range payload.Memberships {
		if wm.Member.Name == "" {
			continue
		}
		members = append(members, models.Member{
			UserID:      wm.Member.Name,
			DisplayName: strings.TrimSpace(wm.Member.DisplayName),
		})
	}
	return members, nil
}

func decodeReadState(data []byte) (string, bool, error) {
	var payload wireReadState
	if err := decode(data, &payload); err != nil {
		return "", false, fmt.Errorf("decode read state: %w", err)
	}
	lastRead := strings.TrimSpace(payload.LastReadTime)
	if lastRead == "" {
		return "", false, nil
	}
	return lastRead, true, nil
}

// decode treats empty output as an empty object; gogchat prints nothing
// for empty collections in some versions.
func decode(data []byte, out any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// createdBefore orders RFC 3339 timestamps by instant. The API trims
// trailing zeros from fractional seconds, so string order is not time
// order. Unparseable values fall back to string comparison.
func createdBefore(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.Before(tb)
	}
	return a < b
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
