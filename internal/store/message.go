package store

import (
	"database/sql"
	"time"
)

// statusRankExpr ranks a status SQL expression so comparisons are
// forward-only: sent < delivered < read. A read message never reverts
// to delivered or sent, no matter what a replayed feed record says.
func statusRankExpr(expr string) string {
	return `CASE ` + expr + ` WHEN 'sent' THEN 0 WHEN 'delivered' THEN 1 WHEN 'read' THEN 2 ELSE -1 END`
}

var upsertMessageStmt = `
	INSERT INTO messages (msg_id, sender_id, receiver_id, sender_name, body, message_type, status, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(msg_id) DO UPDATE SET
		sender_name = excluded.sender_name,
		body = excluded.body,
		status = CASE WHEN ` + statusRankExpr("excluded.status") + ` > ` + statusRankExpr("messages.status") + `
			THEN excluded.status ELSE messages.status END`

// UpsertMessage inserts or updates a message (idempotent on msg_id).
// Status only moves forward on replay.
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(upsertMessageStmt,
		m.MsgID, m.SenderID, m.ReceiverID, m.SenderName, m.Body, m.MessageType, m.Status, m.Timestamp, now)
	return err
}

// UpsertMessageTx is UpsertMessage inside an existing transaction, for
// batch ingest.
func UpsertMessageTx(tx *sql.Tx, m *Message) error {
	now := time.Now().UnixMilli()
	_, err := tx.Exec(upsertMessageStmt,
		m.MsgID, m.SenderID, m.ReceiverID, m.SenderName, m.Body, m.MessageType, m.Status, m.Timestamp, now)
	return err
}

// ListThread returns every message between the two users, oldest first.
// The pair filter runs in SQL over both orderings of the participants.
func (db *DB) ListThread(userID, contactID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, msg_id, sender_id, receiver_id, sender_name, body, message_type, status, timestamp
		FROM messages
		WHERE (sender_id = ?1 AND receiver_id = ?2) OR (sender_id = ?2 AND receiver_id = ?1)
		ORDER BY timestamp ASC, id ASC`, userID, contactID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// ListUserMessages returns every message the user sent or received, oldest
// first. This is the aggregation input.
func (db *DB) ListUserMessages(userID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, msg_id, sender_id, receiver_id, sender_name, body, message_type, status, timestamp
		FROM messages
		WHERE sender_id = ?1 OR receiver_id = ?1
		ORDER BY timestamp ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMessages(rows)
}

// MarkThreadRead marks every unread message from contactID to userID as
// read and returns how many rows changed. Re-running it is a no-op, so a
// partially applied batch is safe to retry.
func (db *DB) MarkThreadRead(userID, contactID string) (int64, error) {
	res, err := db.Exec(`
		UPDATE messages SET status = 'read'
		WHERE receiver_id = ? AND sender_id = ? AND status != 'read'`,
		userID, contactID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetMessageStatus advances a message's status. Backward transitions are
// ignored rather than rejected.
func (db *DB) SetMessageStatus(msgID, status string) error {
	_, err := db.Exec(`
		UPDATE messages SET status = ?1
		WHERE msg_id = ?2
		  AND `+statusRankExpr("?1")+` > `+statusRankExpr("status"),
		status, msgID)
	return err
}

// MessageCount returns the total number of stored messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMessages(rows rowScanner) ([]Message, error) {
	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.MsgID, &m.SenderID, &m.ReceiverID, &m.SenderName, &m.Body, &m.MessageType, &m.Status, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
