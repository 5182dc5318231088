package store

// AppendMessage appends one message to the log and returns its id.
// Messages are persisted regardless of whether live delivery succeeds.
func (db *DB) AppendMessage(senderID, receiverID, content string, timestamp int64) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO messages (sender_id, receiver_id, content, timestamp)
		VALUES (?, ?, ?, ?)`,
		senderID, receiverID, content, timestamp)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListMessagesBetween returns all messages exchanged between a and b, in
// either direction, ordered by timestamp ascending.
func (db *DB) ListMessagesBetween(a, b string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, sender_id, receiver_id, content, timestamp
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY timestamp ASC, id ASC`,
		a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the total number of persisted messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
