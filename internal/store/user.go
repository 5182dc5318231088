package store

import "database/sql"

// UpsertUser inserts or updates a user and stamps last_seen.
// Empty name/role on update keep the existing values.
func (db *DB) UpsertUser(id, name, role string, lastSeen int64) error {
	_, err := db.Exec(`
		INSERT INTO users (id, name, role, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE users.name END,
			role = CASE WHEN excluded.role != '' THEN excluded.role ELSE users.role END,
			last_seen = excluded.last_seen`,
		id, name, role, lastSeen)
	return err
}

// TouchUser updates only last_seen for an existing user.
func (db *DB) TouchUser(id string, lastSeen int64) error {
	_, err := db.Exec(`UPDATE users SET last_seen = ? WHERE id = ?`, lastSeen, id)
	return err
}

// GetUser returns a user by id, or nil if unknown.
func (db *DB) GetUser(id string) (*User, error) {
	var u User
	err := db.QueryRow(`SELECT id, name, role, last_seen FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Role, &u.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListUsersSince returns all users whose last_seen is at or after cutoff,
// most recently seen first.
func (db *DB) ListUsersSince(cutoff int64) ([]User, error) {
	rows, err := db.Query(`
		SELECT id, name, role, last_seen
		FROM users
		WHERE last_seen >= ?
		ORDER BY last_seen DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserCount returns the total number of known users.
func (db *DB) UserCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
