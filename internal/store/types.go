package store

// User is a synced directory record.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         string
	Organization string
	IsOnline     bool
	LastSeen     int64
}

// Message is a stored direct message.
type Message struct {
	ID          int64
	MsgID       string
	SenderID    string
	ReceiverID  string
	SenderName  string
	Body        string
	MessageType string
	Status      string
	Timestamp   int64
}

// OutboxEntry is a pending outgoing message.
type OutboxEntry struct {
	ID            int64
	ClientMsgID   string
	SenderID      string
	ReceiverID    string
	Body          string
	Status        string // queued, sending, sent, failed
	Attempts      int
	NextAttemptAt int64
	ErrorMessage  string
}
