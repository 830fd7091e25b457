package models

import "time"

// ReadReceipt records that a user has seen a message. A given reader appears
// at most once in a message's read set.
type ReadReceipt struct {
	UserID int64     `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

// ChatMessage is a persisted chat message. Exactly one of ReceiverID and
// GroupID is set: direct messages target a user, group messages a room.
type ChatMessage struct {
	ID         int64         `json:"id"`
	Content    string        `json:"content"`
	SenderID   int64         `json:"senderId"`
	ReceiverID *int64        `json:"receiverId,omitempty"`
	GroupID    *int64        `json:"groupId,omitempty"`
	ReadBy     []ReadReceipt `json:"readBy"`
	Edited     bool          `json:"isEdited"`
	EditedAt   *time.Time    `json:"editedAt,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsGroup reports whether the message targets a group room.
func (m ChatMessage) IsGroup() bool { return m.GroupID != nil }

// ReadBySet reports whether reader already appears in the read set.
func (m ChatMessage) ReadBySet(reader int64) bool {
	for _, r := range m.ReadBy {
		if r.UserID == reader {
			return true
		}
	}
	return false
}

// Group is a chat room with an explicit member roster.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Members   []int64   `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// HasMember reports whether userID belongs to the group roster.
func (g Group) HasMember(userID int64) bool {
	for _, m := range g.Members {
		if m == userID {
			return true
		}
	}
	return false
}
