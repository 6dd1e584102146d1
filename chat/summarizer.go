package chat

import (
	"context"

	"github.com/pkg/errors"

	"github.com/walletchat/walletchat/internal/llm"
)

// Summarize collapses prior history into one condensed context message
// via a single model call. There is no retry and no safe partial
// result; failures propagate to the dispatcher.
func (s *Service) Summarize(ctx context.Context, history []*llm.Message) (*llm.Message, error) {
	messages := make([]*llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, &llm.Message{Role: llm.RoleUser, Content: summaryPrompt})

	text, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "summarizing history")
	}
	return &llm.Message{Role: llm.RoleAssistant, Content: text}, nil
}
