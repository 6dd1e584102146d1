package chat

import (
	"context"
	"log/slog"

	"github.com/walletchat/walletchat/internal/llm"
	"github.com/walletchat/walletchat/store"
)

// HistoryStore is the slice of the chat store the pipeline reads from.
type HistoryStore interface {
	ListMessages(ctx context.Context, chatID string) ([]*store.Message, error)
}

// Service runs the conversation-turn pipeline: history loading, the
// summarization decision, prompt composition and model dispatch.
// Constructed once at process start; holds no per-request state beyond
// the graph checkpointer.
type Service struct {
	llm    llm.Client
	store  HistoryStore
	logger *slog.Logger
	graph  *CompiledGraph
}

// NewService wires the pipeline around an LLM client and a store handle.
func NewService(client llm.Client, historyStore HistoryStore, logger *slog.Logger) *Service {
	s := &Service{
		llm:    client,
		store:  historyStore,
		logger: logger,
	}

	graph := NewGraph()
	graph.AddNode("model", s.callModel)
	graph.AddEdge(Start, "model")
	graph.AddEdge("model", End)
	s.graph = graph.MustCompile(NewMemorySaver())
	return s
}

// callModel is the single graph node: it decides between the
// first-turn and continuing-turn branches and runs one model call.
func (s *Service) callModel(ctx context.Context, state State, config InvokeConfig) (State, error) {
	if config.ChatID == "" {
		return s.initialCallModel(ctx, state)
	}

	history := s.LoadHistory(ctx, config.ChatID)
	if len(history) == 0 {
		return s.initialCallModel(ctx, state)
	}

	current := state.Messages[len(state.Messages)-1]
	summary, err := s.Summarize(ctx, history)
	if err != nil {
		return State{}, err
	}

	response, err := s.llm.Complete(ctx, ComposeContinuing(summary, current))
	if err != nil {
		return State{}, err
	}

	return State{Messages: []*llm.Message{
		summary,
		current,
		{Role: llm.RoleAssistant, Content: response},
	}}, nil
}

// initialCallModel handles the first turn of a chat: no history, no
// summary.
func (s *Service) initialCallModel(ctx context.Context, state State) (State, error) {
	current := state.Messages[len(state.Messages)-1]
	response, err := s.llm.Complete(ctx, ComposeFirstTurn(current))
	if err != nil {
		return State{}, err
	}
	return State{Messages: append(state.Messages, &llm.Message{
		Role:    llm.RoleAssistant,
		Content: response,
	})}, nil
}
