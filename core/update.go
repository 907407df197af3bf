package core

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is one item of the getUpdates feed. Update kinds the bot does not
// consume are left undecoded.
type Update struct {
	ID                int64    `json:"update_id"`
	Message           *Message `json:"message,omitempty"`
	EditedMessage     *Message `json:"edited_message,omitempty"`
	ChannelPost       *Message `json:"channel_post,omitempty"`
	EditedChannelPost *Message `json:"edited_channel_post,omitempty"`
}

// Payload returns the message carried by the update, preferring a new
// message over an edited one. It returns nil for non-message updates.
func (u Update) Payload() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.ChannelPost != nil:
		return u.ChannelPost
	default:
		return u.EditedChannelPost
	}
}

// Message holds the fields the decoder reads. Sender and chat details are
// carried through as the Bot API library models them.
type Message struct {
	MessageID int64          `json:"message_id"`
	From      *tgbotapi.User `json:"from,omitempty"`
	Date      int64          `json:"date"`
	Chat      tgbotapi.Chat  `json:"chat"`
	Text      string         `json:"text,omitempty"`
	Entities  []Entity       `json:"entities,omitempty"`
}

// Entity annotates a span of Message.Text. Offset and Length count UTF-16
// code units, as the Bot API defines them.
type Entity struct {
	Kind          EntityKind     `json:"type"`
	Offset        int32          `json:"offset"`
	Length        int32          `json:"length"`
	URL           string         `json:"url,omitempty"`
	User          *tgbotapi.User `json:"user,omitempty"`
	Language      string         `json:"language,omitempty"`
	CustomEmojiID string         `json:"custom_emoji_id,omitempty"`
}

// EntityKind is the upstream entity type string. Values outside the known
// set are kept verbatim so newer Bot API versions still decode.
type EntityKind string

const (
	EntityMention              EntityKind = "mention"
	EntityHashtag              EntityKind = "hashtag"
	EntityCashtag              EntityKind = "cashtag"
	EntityBotCommand           EntityKind = "bot_command"
	EntityURL                  EntityKind = "url"
	EntityEmail                EntityKind = "email"
	EntityPhoneNumber          EntityKind = "phone_number"
	EntityBold                 EntityKind = "bold"
	EntityItalic               EntityKind = "italic"
	EntityUnderline            EntityKind = "underline"
	EntityStrikethrough        EntityKind = "strikethrough"
	EntitySpoiler              EntityKind = "spoiler"
	EntityBlockquote           EntityKind = "blockquote"
	EntityExpandableBlockquote EntityKind = "expandable_blockquote"
	EntityCode                 EntityKind = "code"
	EntityPre                  EntityKind = "pre"
	EntityTextLink             EntityKind = "text_link"
	EntityTextMention          EntityKind = "text_mention"
	EntityCustomEmoji          EntityKind = "custom_emoji"
)

var knownEntityKinds = map[EntityKind]bool{
	EntityMention:              true,
	EntityHashtag:              true,
	EntityCashtag:              true,
	EntityBotCommand:           true,
	EntityURL:                  true,
	EntityEmail:                true,
	EntityPhoneNumber:          true,
	EntityBold:                 true,
	EntityItalic:               true,
	EntityUnderline:            true,
	EntityStrikethrough:        true,
	EntitySpoiler:              true,
	EntityBlockquote:           true,
	EntityExpandableBlockquote: true,
	EntityCode:                 true,
	EntityPre:                  true,
	EntityTextLink:             true,
	EntityTextMention:          true,
	EntityCustomEmoji:          true,
}

// Known reports whether k is one of the documented entity types. Anything
// else is an "other" kind.
func (k EntityKind) Known() bool {
	return knownEntityKinds[k]
}
