package webserver

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/walletchat/walletchat/internal/llm"
	"github.com/walletchat/walletchat/store"
)

type chatInfo struct {
	ID                string `json:"id"`
	UserID            string `json:"userId"`
	CreationTimestamp int64  `json:"createdAt"`
}

type listChatsResponse struct {
	Chats []chatInfo `json:"chats"`
}

type chatMessagesResponse struct {
	ChatID   string         `json:"chatId"`
	Messages []*llm.Message `json:"messages"`
}

// handleListChats returns a user's chats, most recent first.
func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "Unable to process request",
			Details: "address query parameter is required",
		})
		return
	}

	chats, err := s.store.ListChats(r.Context(), address)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	response := listChatsResponse{Chats: []chatInfo{}}
	for _, c := range chats {
		response.Chats = append(response.Chats, chatInfo{
			ID:                c.ID,
			UserID:            c.UserID,
			CreationTimestamp: c.CreationTimestamp,
		})
	}
	s.writeJSON(w, http.StatusOK, response)
}

// handleChatMessages returns a chat's history as a flat role/content
// sequence in insertion order.
func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")

	if _, err := s.store.GetChat(r.Context(), chatID); err != nil {
		if errors.Is(err, store.ErrChatNotFound) {
			s.writeJSON(w, http.StatusNotFound, errorResponse{
				Error:   "Unable to process request",
				Details: "chat does not exist",
			})
			return
		}
		s.writeStoreError(w, err)
		return
	}

	records, err := s.store.ListMessages(r.Context(), chatID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	response := chatMessagesResponse{ChatID: chatID, Messages: []*llm.Message{}}
	for _, record := range records {
		response.Messages = append(response.Messages, record.Content...)
	}
	s.writeJSON(w, http.StatusOK, response)
}
