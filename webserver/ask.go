package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/walletchat/walletchat/chat"
	"github.com/walletchat/walletchat/internal/llm"
)

// sentinelUserID stands in when a request carries no wallet address.
const sentinelUserID = "0x0"

type askRequest struct {
	Prompt   string            `json:"prompt"`
	Address  string            `json:"address"`
	Messages []incomingMessage `json:"messages"`
	ChatID   string            `json:"chatId,omitempty"`
	Stream   bool              `json:"stream,omitempty"`
}

type incomingMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type askResponse struct {
	Answer string `json:"answer"`
	ChatID string `json:"chatId"`
}

type tokenEvent struct {
	Content string `json:"content"`
}

// handleAsk runs one conversation turn: resolve the user and chat,
// persist the incoming batch, dispatch the prompt, persist the reply.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// A body that fails to decode lands in the generic failure envelope,
	// like every other non-authentication error.
	var request askRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.logger.Error("decoding request body", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Unable to process request",
			Details: err.Error(),
		})
		return
	}

	userID := request.Address
	if userID == "" {
		userID = sentinelUserID
	}
	if _, err := s.store.GetOrCreateUser(ctx, userID); err != nil {
		s.writeStoreError(w, err)
		return
	}

	chatID := request.ChatID
	if chatID == "" {
		newChat, err := s.store.CreateChat(ctx, userID)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		chatID = newChat.ID
	}

	uniqueMessages := dedupeUserMessages(request.Messages)
	if _, err := s.store.AppendMessage(ctx, chatID, userID, uniqueMessages); err != nil {
		s.writeStoreError(w, err)
		return
	}

	if request.Stream {
		s.streamAnswer(w, r, chatID, userID, request.Prompt)
		return
	}

	answer := s.chat.Dispatch(ctx, &chat.DispatchRequest{
		Prompt: request.Prompt,
		ChatID: chatID,
	})
	if answer == "" {
		s.logger.Error("empty model response", "chat_id", chatID)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Unable to process request",
			Details: "unexpected API response format",
		})
		return
	}
	reply := []*llm.Message{{Role: llm.RoleAssistant, Content: answer}}
	if _, err := s.store.AppendMessage(ctx, chatID, userID, reply); err != nil {
		s.writeStoreError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, askResponse{Answer: answer, ChatID: chatID})
}

// streamAnswer dispatches in streaming mode, forwarding each token as
// an SSE frame, then persists the accumulated reply before the
// terminator frame.
func (s *Server) streamAnswer(w http.ResponseWriter, r *http.Request, chatID, userID, prompt string) {
	writer, err := newSSEWriter(w)
	if err != nil {
		s.logger.Error("initializing event stream", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Unable to process request",
			Details: err.Error(),
		})
		return
	}

	full := s.chat.Dispatch(r.Context(), &chat.DispatchRequest{
		Prompt: prompt,
		ChatID: chatID,
		OnToken: func(token string) error {
			return writer.WriteEvent(tokenEvent{Content: token})
		},
	})

	if full != "" {
		reply := []*llm.Message{{Role: llm.RoleAssistant, Content: full}}
		if _, err := s.store.AppendMessage(r.Context(), chatID, userID, reply); err != nil {
			s.logger.Error("persisting streamed reply", "chat_id", chatID, "error", err)
			_ = writer.WriteEvent(errorResponse{
				Error:   "Unable to process request",
				Details: err.Error(),
			})
			_ = writer.WriteDone()
			return
		}
	}
	if err := writer.WriteDone(); err != nil {
		s.logger.Error("writing stream terminator", "chat_id", chatID, "error", err)
	}
}

// dedupeUserMessages keeps user-sender entries only, collapsed to
// unique content values in first-occurrence order.
func dedupeUserMessages(messages []incomingMessage) []*llm.Message {
	seen := map[string]struct{}{}
	unique := []*llm.Message{}
	for _, message := range messages {
		if message.Sender != "user" {
			continue
		}
		if _, ok := seen[message.Content]; ok {
			continue
		}
		seen[message.Content] = struct{}{}
		unique = append(unique, &llm.Message{Role: llm.RoleUser, Content: message.Content})
	}
	return unique
}
