package chat

import (
	"context"

	"github.com/walletchat/walletchat/internal/llm"
)

// FallbackResponse replaces the assistant's reply whenever a model call
// fails. The request still completes with success framing; the raw
// error never reaches the transport layer.
const FallbackResponse = "Sorry, I am unable to process your request at the moment."

// DispatchRequest is one prompt to run through the pipeline.
type DispatchRequest struct {
	Prompt string
	ChatID string
	// OnToken selects streaming mode when non-nil; each model token is
	// forwarded to it in emission order.
	OnToken llm.TokenFunc
}

// Dispatch executes the turn in streaming or batch mode and returns
// the assistant's full reply text.
func (s *Service) Dispatch(ctx context.Context, request *DispatchRequest) string {
	if request.OnToken != nil {
		return s.dispatchStreaming(ctx, request)
	}
	return s.dispatchBatch(ctx, request)
}

// dispatchStreaming issues one streaming model call over the first-turn
// composition, forwarding tokens as they arrive.
func (s *Service) dispatchStreaming(ctx context.Context, request *DispatchRequest) string {
	messages := ComposeFirstTurn(&llm.Message{Role: llm.RoleUser, Content: request.Prompt})
	full, err := s.llm.Stream(ctx, messages, request.OnToken)
	if err != nil {
		s.logger.Error("streaming model call failed", "chat_id", request.ChatID, "error", err)
		return FallbackResponse
	}
	return full
}

// dispatchBatch runs the composed turn through the graph executor,
// keyed by the chat's thread id.
func (s *Service) dispatchBatch(ctx context.Context, request *DispatchRequest) string {
	threadID := request.ChatID
	if threadID == "" {
		threadID = "1"
	}

	state := State{Messages: []*llm.Message{
		{Role: llm.RoleUser, Content: request.Prompt},
	}}
	config := InvokeConfig{ThreadID: threadID, ChatID: request.ChatID}

	result, err := s.graph.Invoke(ctx, state, config)
	if err != nil {
		s.logger.Error("batch model call failed", "chat_id", request.ChatID, "error", err)
		return FallbackResponse
	}
	if len(result.Messages) == 0 {
		s.logger.Error("batch model call returned no messages", "chat_id", request.ChatID)
		return FallbackResponse
	}
	return result.Messages[len(result.Messages)-1].Content
}
