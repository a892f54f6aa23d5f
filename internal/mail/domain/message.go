package domain

import "time"

// Direction tells whether a message was written by the contact or by us
type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Message is one logged mail, either synced from the inbox or sent by the app.
// Rows are never updated after creation.
type Message struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	ContactID  *string    `json:"contact_id,omitempty" gorm:"index"`
	MessageID  string     `json:"message_id" gorm:"uniqueIndex;not null"` // Gmail message id
	ThreadID   string     `json:"thread_id,omitempty"`
	Subject    string     `json:"subject"`
	Snippet    string     `json:"snippet"`
	ReceivedAt *time.Time `json:"received_at,omitempty" gorm:"index"`
	Direction  Direction  `json:"direction" gorm:"size:16;not null"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Message) TableName() string {
	return "gmail_messages"
}

// FromContact reports whether the contact wrote the message.
func (m *Message) FromContact() bool {
	return m.Direction == DirectionIncoming
}
