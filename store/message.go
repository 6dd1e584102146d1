package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/walletchat/walletchat/internal/llm"
)

// AppendMessage appends a message record to a chat. Records are
// append-only; there is no update path.
func (s *Store) AppendMessage(ctx context.Context, chatID, userID string, content []*llm.Message) (*Message, error) {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling content")
	}

	message := &Message{
		ID:                uuid.New().String(),
		ChatID:            chatID,
		UserID:            userID,
		Content:           content,
		CreationTimestamp: time.Now().UnixMicro(),
	}
	err = s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO messages (id, chat_id, user_id, content, creation_timestamp)
		VALUES (?, ?, ?, ?, ?)
		RETURNING sequence
	`), message.ID, message.ChatID, message.UserID, string(contentJSON), message.CreationTimestamp).Scan(&message.Sequence)
	if err != nil {
		return nil, errors.Wrap(err, "inserting message")
	}
	return message, nil
}

// ListMessages returns a chat's message records in insertion order.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT sequence, id, chat_id, user_id, content, creation_timestamp
		FROM messages
		WHERE chat_id = ?
		ORDER BY sequence ASC
	`), chatID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		message := &Message{}
		var contentJSON string
		if err := rows.Scan(
			&message.Sequence,
			&message.ID,
			&message.ChatID,
			&message.UserID,
			&contentJSON,
			&message.CreationTimestamp,
		); err != nil {
			return nil, errors.Wrap(err, "scanning message row")
		}
		if err := json.Unmarshal([]byte(contentJSON), &message.Content); err != nil {
			return nil, errors.Wrap(err, "unmarshaling content")
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating message rows")
	}
	return messages, nil
}
