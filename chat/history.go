package chat

import (
	"context"

	"github.com/walletchat/walletchat/internal/llm"
)

// LoadHistory returns a chat's prior role/content pairs in insertion
// order. A missing id or a store failure yields an empty history so
// the caller falls back to the first-turn path; neither is surfaced as
// an error.
func (s *Service) LoadHistory(ctx context.Context, chatID string) []*llm.Message {
	if chatID == "" {
		s.logger.Warn("invalid chat id provided")
		return nil
	}

	records, err := s.store.ListMessages(ctx, chatID)
	if err != nil {
		s.logger.Error("fetching chat history", "chat_id", chatID, "error", err)
		return nil
	}

	// A single stored record may bundle several role/content pairs.
	var history []*llm.Message
	for _, record := range records {
		history = append(history, record.Content...)
	}
	return history
}
