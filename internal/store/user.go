package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// UpsertUser inserts or updates a directory record.
func (db *DB) UpsertUser(u *User) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO directory_users (id, name, email, role, organization, is_online, last_seen, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE directory_users.name END,
			email = CASE WHEN excluded.email != '' THEN excluded.email ELSE directory_users.email END,
			role = excluded.role,
			organization = excluded.organization,
			is_online = excluded.is_online,
			last_seen = excluded.last_seen,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Email, u.Role, u.Organization, u.IsOnline, u.LastSeen, now)
	return err
}

// BulkUpsertUsers inserts or updates multiple directory records in a single
// transaction.
func (db *DB) BulkUpsertUsers(users []User) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, u := range users {
		if _, err := tx.Exec(`
			INSERT INTO directory_users (id, name, email, role, organization, is_online, last_seen, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = CASE WHEN excluded.name != '' THEN excluded.name ELSE directory_users.name END,
				email = CASE WHEN excluded.email != '' THEN excluded.email ELSE directory_users.email END,
				role = excluded.role,
				organization = excluded.organization,
				is_online = excluded.is_online,
				last_seen = excluded.last_seen,
				updated_at = excluded.updated_at`,
			u.ID, u.Name, u.Email, u.Role, u.Organization, u.IsOnline, u.LastSeen, now); err != nil {
			return fmt.Errorf("upsert user %q: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// GetUser returns a directory record by id, or nil when the id is unknown.
func (db *DB) GetUser(id string) (*User, error) {
	var u User
	err := db.QueryRow(`
		SELECT id, name, email, role, organization, is_online, last_seen
		FROM directory_users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Organization, &u.IsOnline, &u.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// likeEscaper makes LIKE metacharacters in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsersByEmailPrefix returns directory records whose email starts with
// prefix, excluding excludeID, ordered by email. The prefix is matched
// literally, so "%" or "_" in the input do not act as wildcards.
func (db *DB) SearchUsersByEmailPrefix(prefix, excludeID string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT id, name, email, role, organization, is_online, last_seen
		FROM directory_users
		WHERE email LIKE ? || '%' ESCAPE '\' AND id != ?
		ORDER BY email ASC
		LIMIT ?`, likeEscaper.Replace(prefix), excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Organization, &u.IsOnline, &u.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserCount returns the total number of directory records.
func (db *DB) UserCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM directory_users`).Scan(&count)
	return count, err
}
