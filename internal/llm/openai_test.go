package llm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestMapping(t *testing.T) {
	client := NewOpenAIClient("sk-test", "", "gpt-4", 0.5, 0)

	request := client.request([]*Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "Hi"},
	}, true)

	require.Equal(t, "gpt-4", request.Model)
	require.Equal(t, float32(0.5), request.Temperature)
	require.True(t, request.Stream)
	require.Len(t, request.Messages, 2)
	require.Equal(t, RoleSystem, request.Messages[0].Role)
	require.Equal(t, "Hi", request.Messages[1].Content)
}
