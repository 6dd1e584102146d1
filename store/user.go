package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// GetOrCreateUser finds a user by id, creating it on first contact.
func (s *Store) GetOrCreateUser(ctx context.Context, id string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, email, name, creation_timestamp
		FROM users
		WHERE id = ?
	`), id).Scan(&user.ID, &user.Email, &user.Name, &user.CreationTimestamp)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.Wrap(err, "querying user")
	}

	user = &User{
		ID:                id,
		CreationTimestamp: time.Now().UnixMicro(),
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, email, name, creation_timestamp)
		VALUES (?, ?, ?, ?)
	`), user.ID, user.Email, user.Name, user.CreationTimestamp)
	if err != nil {
		return nil, errors.Wrap(err, "inserting user")
	}
	return user, nil
}
