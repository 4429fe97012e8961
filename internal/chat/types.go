package chat

// Message status lifecycle. Transitions are forward-only: a read message never
// reverts. Delivered is accepted from upstream feeds but never produced here.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// Message content types.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeFile  = "file"
)

// Message is one direct message between two portal users.
type Message struct {
	ID          string
	SenderID    string
	ReceiverID  string
	SenderName  string
	Body        string
	MessageType string
	Status      string
	Timestamp   int64
}

// Contact is the display projection of a directory record. It is recomputed
// on every directory fetch and never persisted on its own.
type Contact struct {
	ID           string
	Name         string
	Email        string
	Role         string
	Organization string
	IsOnline     bool
	LastSeen     int64
}

// Summary is the aggregated view of one conversation: the counterparty,
// the most recent message in the thread, and how many of their messages
// the current user has not read yet.
type Summary struct {
	Contact     Contact
	LastMessage Message
	UnreadCount int
}

// Identity is the logged-in user. It is injected into the controller at
// construction and immutable for the session's lifetime; switching users
// means tearing the controller down and building a new one.
type Identity struct {
	UserID string
	Name   string
	Email  string
}
