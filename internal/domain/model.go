package domain

import "time"

// User is the hydrated user snapshot delivered in the identify-accepted
// event. Guilds carry nested channels and members so a freshly identified
// client can render without further round-trips.
type User struct {
	ID            uint64  `json:"id"`
	Name          string  `json:"name"`
	AvatarURL     string  `json:"avatar_url,omitempty"`
	Flags         uint64  `json:"flags"`
	Discriminator uint16  `json:"discriminator"`
	Guilds        []Guild `json:"guilds,omitempty"`
}

// Guild is a community grouping channels and members.
type Guild struct {
	ID       uint64    `json:"id"`
	OwnerID  uint64    `json:"owner_id"`
	Name     string    `json:"name"`
	Channels []Channel `json:"channels,omitempty"`
	Members  []Member  `json:"members,omitempty"`
}

// Channel is a message stream scoped to a guild.
type Channel struct {
	ID      uint64 `json:"id"`
	GuildID uint64 `json:"guild_id"`
	Name    string `json:"name"`
}

// Member is the relationship between a user and a guild they belong to.
type Member struct {
	UserID  uint64 `json:"user_id"`
	GuildID uint64 `json:"guild_id"`
	User    *User  `json:"user,omitempty"`
}

// Role is a named permission grouping within a guild.
type Role struct {
	ID          uint64 `json:"id"`
	GuildID     uint64 `json:"guild_id"`
	Name        string `json:"name"`
	Color       uint32 `json:"color"`
	Position    int32  `json:"position"`
	Permissions uint64 `json:"permissions"`
}

// Invite grants entry to a guild.
type Invite struct {
	Code      string    `json:"code"`
	GuildID   uint64    `json:"guild_id"`
	OwnerID   uint64    `json:"owner_id"`
	Uses      int32     `json:"uses"`
	MaxUses   int32     `json:"max_uses"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a chat message within a channel.
type Message struct {
	ID        uint64    `json:"id"`
	ChannelID uint64    `json:"channel_id"`
	GuildID   uint64    `json:"guild_id"`
	AuthorID  uint64    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at,omitzero"`
}
