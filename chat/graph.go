package chat

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/walletchat/walletchat/internal/llm"
)

// Sentinel node names for graph edges.
const (
	Start = "__start__"
	End   = "__end__"
)

// State is the message list carried through one graph run.
type State struct {
	Messages []*llm.Message
}

// InvokeConfig carries per-invocation settings through the executor.
// ChatID is normalized to a plain string at the HTTP boundary; nothing
// downstream deals in wrapped identifier shapes.
type InvokeConfig struct {
	// ThreadID keys the checkpointer's saved state.
	ThreadID string
	// ChatID of the conversation, empty on a first turn.
	ChatID string
}

// NodeFunc transforms the state at one node of the graph.
type NodeFunc func(ctx context.Context, state State, config InvokeConfig) (State, error)

// Graph is a builder for a linear stateful workflow.
type Graph struct {
	nodes map[string]NodeFunc
	edges map[string]string
}

// NewGraph returns an empty graph builder.
func NewGraph() *Graph {
	return &Graph{
		nodes: map[string]NodeFunc{},
		edges: map[string]string{},
	}
}

// AddNode registers a named node.
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	g.nodes[name] = fn
	return g
}

// AddEdge connects two nodes. Start and End are valid endpoints.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// Compile validates the graph and binds it to a checkpointer.
func (g *Graph) Compile(checkpointer *MemorySaver) (*CompiledGraph, error) {
	node := g.edges[Start]
	if node == "" {
		return nil, errors.New("graph has no entry edge")
	}
	for node != End {
		if _, ok := g.nodes[node]; !ok {
			return nil, errors.Errorf("edge references unknown node (%s)", node)
		}
		next, ok := g.edges[node]
		if !ok {
			return nil, errors.Errorf("node has no outgoing edge (%s)", node)
		}
		node = next
	}
	return &CompiledGraph{graph: g, checkpointer: checkpointer}, nil
}

// MustCompile is Compile, panicking on a malformed graph. Graphs are
// assembled statically at process start.
func (g *Graph) MustCompile(checkpointer *MemorySaver) *CompiledGraph {
	compiled, err := g.Compile(checkpointer)
	if err != nil {
		panic(err)
	}
	return compiled
}

// CompiledGraph executes the workflow, restoring and saving per-thread
// state around each invocation.
type CompiledGraph struct {
	graph        *Graph
	checkpointer *MemorySaver
}

// Invoke runs the graph over the given state. Prior state saved under
// config.ThreadID is prepended to the incoming messages first.
func (c *CompiledGraph) Invoke(ctx context.Context, state State, config InvokeConfig) (State, error) {
	if prior, ok := c.checkpointer.Load(config.ThreadID); ok {
		state.Messages = append(append([]*llm.Message{}, prior.Messages...), state.Messages...)
	}

	name := c.graph.edges[Start]
	for name != End {
		next, err := c.graph.nodes[name](ctx, state, config)
		if err != nil {
			return State{}, errors.Wrapf(err, "running node (%s)", name)
		}
		state = next
		name = c.graph.edges[name]
	}

	c.checkpointer.Save(config.ThreadID, state)
	return state, nil
}

// MemorySaver is an in-memory per-thread state checkpointer.
type MemorySaver struct {
	mu      sync.Mutex
	threads map[string]State
}

// NewMemorySaver returns an empty checkpointer.
func NewMemorySaver() *MemorySaver {
	return &MemorySaver{threads: map[string]State{}}
}

// Load returns the saved state for a thread, if any.
func (m *MemorySaver) Load(threadID string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.threads[threadID]
	return state, ok
}

// Save records a thread's state.
func (m *MemorySaver) Save(threadID string, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[threadID] = state
}
