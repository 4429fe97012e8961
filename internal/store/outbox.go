package store

import "time"

// QueueOutbox adds a message to the send outbox.
func (db *DB) QueueOutbox(clientMsgID, senderID, receiverID, body string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (client_msg_id, sender_id, receiver_id, body, status, next_attempt_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'queued', ?, ?, ?)`,
		clientMsgID, senderID, receiverID, body, now, now, now)
	return err
}

// DueOutbox returns queued entries whose next attempt time has passed.
func (db *DB) DueOutbox(now int64, limit int) ([]OutboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, client_msg_id, sender_id, receiver_id, body, status, attempts, next_attempt_at, error_message
		FROM outbox
		WHERE status = 'queued' AND next_attempt_at <= ?
		ORDER BY created_at ASC
		LIMIT ?`, now, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.SenderID, &e.ReceiverID, &e.Body, &e.Status, &e.Attempts, &e.NextAttemptAt, &e.ErrorMessage); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkOutboxSending updates an outbox entry to 'sending' status.
func (db *DB) MarkOutboxSending(clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sending', updated_at = ? WHERE client_msg_id = ?`, now, clientMsgID)
	return err
}

// MarkOutboxSent updates an outbox entry to 'sent'.
func (db *DB) MarkOutboxSent(clientMsgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sent', error_message = '', updated_at = ? WHERE client_msg_id = ?`, now, clientMsgID)
	return err
}

// MarkOutboxRetry re-queues a failed attempt with a new attempt time.
func (db *DB) MarkOutboxRetry(clientMsgID, errMsg string, nextAttemptAt int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE outbox SET status = 'queued', attempts = attempts + 1,
			next_attempt_at = ?, error_message = ?, updated_at = ?
		WHERE client_msg_id = ?`,
		nextAttemptAt, errMsg, now, clientMsgID)
	return err
}

// RequeueStaleSending flips entries stuck in 'sending' back to 'queued'
// and returns how many rows changed. A crash between mark-sending and
// the delivery outcome leaves rows nothing else would ever pick up; the
// profile lock guarantees a single sender, so at startup every 'sending'
// row is stale.
func (db *DB) RequeueStaleSending() (int64, error) {
	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		UPDATE outbox SET status = 'queued', next_attempt_at = ?1, updated_at = ?1
		WHERE status = 'sending'`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// MarkOutboxFailed marks an entry as permanently failed.
func (db *DB) MarkOutboxFailed(clientMsgID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'failed', error_message = ?, updated_at = ? WHERE client_msg_id = ?`, errMsg, now, clientMsgID)
	return err
}

// GetOutboxEntry returns an outbox entry by client message id, or nil.
func (db *DB) GetOutboxEntry(clientMsgID string) (*OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, client_msg_id, sender_id, receiver_id, body, status, attempts, next_attempt_at, error_message
		FROM outbox WHERE client_msg_id = ?`, clientMsgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var e OutboxEntry
	if err := rows.Scan(&e.ID, &e.ClientMsgID, &e.SenderID, &e.ReceiverID, &e.Body, &e.Status, &e.Attempts, &e.NextAttemptAt, &e.ErrorMessage); err != nil {
		return nil, err
	}
	return &e, nil
}
