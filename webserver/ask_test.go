package webserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/walletchat/walletchat/chat"
	"github.com/walletchat/walletchat/internal/llm"
	"github.com/walletchat/walletchat/store"
)

// fakeClient returns canned completions and tokens.
type fakeClient struct {
	response     string
	streamTokens []string
	err          error
}

func (c *fakeClient) Complete(context.Context, []*llm.Message) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func (c *fakeClient) Stream(_ context.Context, _ []*llm.Message, fn llm.TokenFunc) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	var full string
	for _, token := range c.streamTokens {
		full += token
		if err := fn(token); err != nil {
			return "", err
		}
	}
	return full, nil
}

func newTestServer(t *testing.T, client llm.Client) (*Server, *store.Store) {
	t.Helper()
	s, err := store.New("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.DiscardHandler)
	return New(s, chat.NewService(client, s, logger), logger), s
}

func postAsk(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)
	return recorder
}

func TestAskFirstContact(t *testing.T) {
	server, s := newTestServer(t, &fakeClient{response: "Hello! How can I help?"})

	recorder := postAsk(t, server, `{
		"prompt": "Hi",
		"address": "0xabc",
		"messages": [{"sender": "user", "content": "Hi"}],
		"stream": false
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response askResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.NotEmpty(t, response.Answer)
	require.NotEmpty(t, response.ChatID)

	// The chat was created and owned by the caller.
	created, err := s.GetChat(context.Background(), response.ChatID)
	require.NoError(t, err)
	require.Equal(t, "0xabc", created.UserID)

	// Two persisted records: the user batch, then the assistant reply.
	records, err := s.ListMessages(context.Background(), response.ChatID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, []*llm.Message{{Role: llm.RoleUser, Content: "Hi"}}, records[0].Content)
	require.Equal(t, []*llm.Message{{Role: llm.RoleAssistant, Content: "Hello! How can I help?"}}, records[1].Content)
}

func TestAskDefaultsAddressToSentinel(t *testing.T) {
	server, s := newTestServer(t, &fakeClient{response: "ok"})

	recorder := postAsk(t, server, `{"prompt": "Hi", "messages": []}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response askResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	created, err := s.GetChat(context.Background(), response.ChatID)
	require.NoError(t, err)
	require.Equal(t, "0x0", created.UserID)
}

func TestAskDeduplicatesUserMessages(t *testing.T) {
	server, s := newTestServer(t, &fakeClient{response: "ok"})

	recorder := postAsk(t, server, `{
		"prompt": "Hi",
		"address": "0xabc",
		"messages": [
			{"sender": "user", "content": "first"},
			{"sender": "assistant", "content": "ignored"},
			{"sender": "user", "content": "second"},
			{"sender": "user", "content": "first"}
		]
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response askResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	records, err := s.ListMessages(context.Background(), response.ChatID)
	require.NoError(t, err)
	require.Equal(t, []*llm.Message{
		{Role: llm.RoleUser, Content: "first"},
		{Role: llm.RoleUser, Content: "second"},
	}, records[0].Content)
}

func TestAskExistingChat(t *testing.T) {
	server, s := newTestServer(t, &fakeClient{response: "continued"})
	ctx := context.Background()

	_, err := s.GetOrCreateUser(ctx, "0xabc")
	require.NoError(t, err)
	existing, err := s.CreateChat(ctx, "0xabc")
	require.NoError(t, err)

	recorder := postAsk(t, server, `{
		"prompt": "More",
		"address": "0xabc",
		"messages": [{"sender": "user", "content": "More"}],
		"chatId": "`+existing.ID+`"
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response askResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, existing.ID, response.ChatID)
}

func TestAskUnknownChatReturns401(t *testing.T) {
	server, _ := newTestServer(t, &fakeClient{response: "ok"})

	// A chat id that no row backs trips the messages foreign key.
	recorder := postAsk(t, server, `{
		"prompt": "Hi",
		"address": "0xabc",
		"messages": [{"sender": "user", "content": "Hi"}],
		"chatId": "missing-chat"
	}`)
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	var response errorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, "User authentication required", response.Error)
	require.Equal(t, "Please ensure you are logged in.", response.Details)
}

func TestAskStoreFailureReturns500(t *testing.T) {
	server, s := newTestServer(t, &fakeClient{response: "ok"})
	require.NoError(t, s.Close())

	recorder := postAsk(t, server, `{"prompt": "Hi", "address": "0xabc", "messages": []}`)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var response errorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, "Unable to process request", response.Error)
}

func TestAskMalformedBodyReturns500(t *testing.T) {
	server, _ := newTestServer(t, &fakeClient{response: "ok"})

	recorder := postAsk(t, server, `{not json`)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var response errorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, "Unable to process request", response.Error)
	require.NotEmpty(t, response.Details)
}

func TestAskModelFailureStillSucceeds(t *testing.T) {
	server, s := newTestServer(t, &fakeClient{err: errors.New("model down")})

	recorder := postAsk(t, server, `{"prompt": "Hi", "address": "0xabc", "messages": []}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	var response askResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	require.Equal(t, chat.FallbackResponse, response.Answer)

	// The fallback reply is persisted like any other.
	records, err := s.ListMessages(context.Background(), response.ChatID)
	require.NoError(t, err)
	require.Equal(t, chat.FallbackResponse, records[len(records)-1].Content[0].Content)
}

func TestAskStreaming(t *testing.T) {
	server, s := newTestServer(t, &fakeClient{streamTokens: []string{"Hel", "lo ", "there"}})

	recorder := postAsk(t, server, `{
		"prompt": "Hi",
		"address": "0xabc",
		"messages": [{"sender": "user", "content": "Hi"}],
		"stream": true
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))

	body := recorder.Body.String()
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"), "stream must end with the terminator frame")

	// Concatenating the content of every non-terminal frame yields the
	// same text the non-streaming path would have returned.
	var assembled string
	for _, line := range strings.Split(body, "\n\n") {
		if line == "" || line == "data: [DONE]" {
			continue
		}
		var event tokenEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		assembled += event.Content
	}
	require.Equal(t, "Hello there", assembled)

	// The accumulated reply is persisted once the stream completes.
	chats, err := s.ListChats(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	records, err := s.ListMessages(context.Background(), chats[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Hello there", records[len(records)-1].Content[0].Content)
}

// storeClosingClient streams one token, then closes the store so the
// reply persist that follows the stream fails.
type storeClosingClient struct {
	store *store.Store
}

func (c *storeClosingClient) Complete(context.Context, []*llm.Message) (string, error) {
	return "", errors.New("unexpected batch call")
}

func (c *storeClosingClient) Stream(_ context.Context, _ []*llm.Message, fn llm.TokenFunc) (string, error) {
	if err := fn("tok"); err != nil {
		return "", err
	}
	if err := c.store.Close(); err != nil {
		return "", err
	}
	return "tok", nil
}

func TestAskStreamingPersistFailureEmitsErrorFrame(t *testing.T) {
	client := &storeClosingClient{}
	server, s := newTestServer(t, client)
	client.store = s

	recorder := postAsk(t, server, `{
		"prompt": "Hi",
		"address": "0xabc",
		"messages": [],
		"stream": true
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := recorder.Body.String()
	require.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))

	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 3)
	require.Equal(t, `data: {"content":"tok"}`, frames[0])

	// The persist failure surfaces as a terminal error frame before the
	// terminator, not as a status change.
	var frame errorResponse
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &frame))
	require.Equal(t, "Unable to process request", frame.Error)
	require.NotEmpty(t, frame.Details)
	require.Equal(t, "data: [DONE]", frames[2])
}

func TestAskStreamingModelFailure(t *testing.T) {
	server, _ := newTestServer(t, &fakeClient{err: errors.New("model down")})

	recorder := postAsk(t, server, `{
		"prompt": "Hi",
		"address": "0xabc",
		"messages": [],
		"stream": true
	}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, strings.HasSuffix(recorder.Body.String(), "data: [DONE]\n\n"))
}
