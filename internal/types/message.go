package types

import (
	"fmt"
	"strings"
	"time"
)

// Guild represents a server the user belongs to.
type Guild struct {
	ID   Snowflake `json:"id"`
	Name string    `json:"name"`
	Icon *string   `json:"icon,omitempty"`
}

// APIUser is a user object as sent by the REST API.
type APIUser struct {
	ID            Snowflake `json:"id"`
	Username      string    `json:"username"`
	GlobalName    *string   `json:"global_name,omitempty"`
	Discriminator string    `json:"discriminator,omitempty"`
	Bot           bool      `json:"bot,omitempty"`
}

// APIMessage is a raw mention record returned by the mentions endpoint.
type APIMessage struct {
	ID              Snowflake   `json:"id"`
	ChannelID       Snowflake   `json:"channel_id"`
	GuildID         *Snowflake  `json:"guild_id,omitempty"`
	Author          APIUser     `json:"author"`
	Content         string      `json:"content"`
	Timestamp       time.Time   `json:"timestamp"`
	EditedTimestamp *time.Time  `json:"edited_timestamp,omitempty"`
	MentionEveryone bool        `json:"mention_everyone"`
	MentionRoles    []Snowflake `json:"mention_roles"`
	Mentions        []APIUser   `json:"mentions"`
	Pinned          bool        `json:"pinned,omitempty"`
	Type            int         `json:"type"`
}

// User is the display form of a message author.
type User struct {
	ID          Snowflake `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bot         bool      `json:"bot,omitempty"`
}

// Message is the domain form of a mention record.
type Message struct {
	ID              Snowflake   `json:"id"`
	ChannelID       Snowflake   `json:"channel_id"`
	GuildID         *Snowflake  `json:"guild_id,omitempty"`
	Author          User        `json:"author"`
	Content         string      `json:"content"`
	Timestamp       time.Time   `json:"timestamp"`
	EditedAt        *time.Time  `json:"edited_at,omitempty"`
	MentionEveryone bool        `json:"mention_everyone"`
	MentionRoles    []Snowflake `json:"mention_roles,omitempty"`
	MentionedUsers  []User      `json:"mentioned_users,omitempty"`
	Pinned          bool        `json:"pinned,omitempty"`
}

// ToDomain converts an API user to its display form.
func (u APIUser) ToDomain() User {
	display := u.Username
	if u.GlobalName != nil && strings.TrimSpace(*u.GlobalName) != "" {
		display = *u.GlobalName
	}
	return User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: display,
		Bot:         u.Bot,
	}
}

// ToDomain converts a raw mention record to a Message.
func (m APIMessage) ToDomain() Message {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = m.ID.Time()
	}
	users := make([]User, 0, len(m.Mentions))
	for _, mentioned := range m.Mentions {
		users = append(users, mentioned.ToDomain())
	}
	var guildID *Snowflake
	if m.GuildID != nil && m.GuildID.Valid() {
		id := *m.GuildID
		guildID = &id
	}
	return Message{
		ID:              m.ID,
		ChannelID:       m.ChannelID,
		GuildID:         guildID,
		Author:          m.Author.ToDomain(),
		Content:         m.Content,
		Timestamp:       ts,
		EditedAt:        m.EditedTimestamp,
		MentionEveryone: m.MentionEveryone,
		MentionRoles:    append([]Snowflake(nil), m.MentionRoles...),
		MentionedUsers:  users,
		Pinned:          m.Pinned,
	}
}

// Link returns the web link to the message under webBase
// (e.g. "https://discord.com"). Direct messages use "@me" as the guild.
func (m Message) Link(webBase string) string {
	guild := "@me"
	if m.GuildID != nil {
		guild = m.GuildID.String()
	}
	return fmt.Sprintf("%s/channels/%s/%s/%s", strings.TrimRight(webBase, "/"), guild, m.ChannelID, m.ID)
}

// MentionKind describes why a message showed up in the mentions feed.
type MentionKind string

const (
	MentionKindDirect   MentionKind = "direct"
	MentionKindRole     MentionKind = "role"
	MentionKindEveryone MentionKind = "everyone"
)

// Kind classifies the mention for the given user id.
func (m Message) Kind(self Snowflake) MentionKind {
	for _, user := range m.MentionedUsers {
		if user.ID == self {
			return MentionKindDirect
		}
	}
	if m.MentionEveryone {
		return MentionKindEveryone
	}
	if len(m.MentionRoles) > 0 {
		return MentionKindRole
	}
	return MentionKindDirect
}
