package llm

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client against the OpenAI chat completion API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIClient instantiates and returns a new client. Constructed
// once at process start and reused across requests; carries no
// per-request state.
func NewOpenAIClient(apiKey, apiHost, model string, temperature float32, timeout time.Duration) *OpenAIClient {
	openAIConfig := openai.DefaultConfig(apiKey)
	if apiHost != "" {
		openAIConfig.BaseURL = apiHost
	}
	if timeout > 0 {
		openAIConfig.HTTPClient = &http.Client{Timeout: timeout}
	}
	client := openai.NewClientWithConfig(openAIConfig)
	return &OpenAIClient{client: client, model: model, temperature: temperature}
}

func (c *OpenAIClient) request(messages []*Message, stream bool) openai.ChatCompletionRequest {
	openAIMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		openAIMessages = append(openAIMessages, openai.ChatCompletionMessage{
			Role:    message.Role,
			Content: message.Content,
		})
	}
	return openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Stream:      stream,
		Messages:    openAIMessages,
	}
}

// Complete issues one blocking chat completion call.
func (c *OpenAIClient) Complete(ctx context.Context, messages []*Message) (string, error) {
	response, err := c.client.CreateChatCompletion(ctx, c.request(messages, false))
	if err != nil {
		return "", errors.Wrap(err, "creating chat completion")
	}
	if len(response.Choices) == 0 {
		return "", errors.Errorf("chat completion returned no choice: %+v", response)
	}
	return response.Choices[0].Message.Content, nil
}

// Stream issues one streaming chat completion call, forwarding each
// token to fn in emission order.
func (c *OpenAIClient) Stream(ctx context.Context, messages []*Message, fn TokenFunc) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(messages, true))
	if err != nil {
		return "", errors.Wrap(err, "creating completion stream")
	}
	wrapper := &chatCompletionStreamWrapper{stream}
	defer wrapper.Close()

	var full []byte
	for {
		event, err := wrapper.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "receiving stream event")
		}
		if event.Token == "" {
			continue
		}
		full = append(full, event.Token...)
		if fn != nil {
			if err := fn(event.Token); err != nil {
				return "", errors.Wrap(err, "forwarding token")
			}
		}
	}
	return string(full), nil
}

type chatCompletionStreamWrapper struct {
	stream *openai.ChatCompletionStream
}

func (s *chatCompletionStreamWrapper) Close() { s.stream.Close() }
func (s *chatCompletionStreamWrapper) Recv() (*StreamEvent, error) {
	response, err := s.stream.Recv()
	if err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, errors.Errorf("ChatCompletionResponse returned no choice: %+v", response)
	}
	return &StreamEvent{
		Token:        response.Choices[0].Delta.Content,
		FinishReason: string(response.Choices[0].FinishReason),
	}, nil
}
