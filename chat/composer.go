package chat

import (
	"github.com/walletchat/walletchat/internal/llm"
)

// The composer is pure assembly. Message ordering is
// system -> summary -> current; reordering changes model behavior.

// ComposeFirstTurn assembles the message list for a chat's first turn.
func ComposeFirstTurn(current *llm.Message) []*llm.Message {
	return []*llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		current,
	}
}

// ComposeContinuing assembles the message list for a continuing turn,
// with the condensed history summary between the system prompt and the
// current user message.
func ComposeContinuing(summary, current *llm.Message) []*llm.Message {
	return []*llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		summary,
		current,
	}
}
