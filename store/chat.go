package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrChatNotFound is returned when a chat id resolves to nothing.
var ErrChatNotFound = errors.New("chat does not exist")

// CreateChat creates a new chat owned by the given user.
func (s *Store) CreateChat(ctx context.Context, userID string) (*Chat, error) {
	chat := &Chat{
		ID:                uuid.New().String(),
		UserID:            userID,
		CreationTimestamp: time.Now().UnixMicro(),
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO chats (id, user_id, creation_timestamp)
		VALUES (?, ?, ?)
	`), chat.ID, chat.UserID, chat.CreationTimestamp)
	if err != nil {
		return nil, errors.Wrap(err, "inserting chat")
	}
	return chat, nil
}

// GetChat returns a chat by id.
func (s *Store) GetChat(ctx context.Context, id string) (*Chat, error) {
	chat := &Chat{}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, creation_timestamp
		FROM chats
		WHERE id = ?
	`), id).Scan(&chat.ID, &chat.UserID, &chat.CreationTimestamp)
	if err == sql.ErrNoRows {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "querying chat")
	}
	return chat, nil
}

// ListChats returns all chats owned by a user, most recent first.
func (s *Store) ListChats(ctx context.Context, userID string) ([]*Chat, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, user_id, creation_timestamp
		FROM chats
		WHERE user_id = ?
		ORDER BY creation_timestamp DESC
	`), userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying chats")
	}
	defer rows.Close()

	var chats []*Chat
	for rows.Next() {
		chat := &Chat{}
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.CreationTimestamp); err != nil {
			return nil, errors.Wrap(err, "scanning chat row")
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating chat rows")
	}
	return chats, nil
}
