// Package agent implements the query-orchestration core: per-session
// conversational state, the tool-use reasoning loop and session
// activity tracking.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/lamberr/ragline/plugin/ai"
	"github.com/lamberr/ragline/plugin/ai/agent/tools"
	"github.com/lamberr/ragline/store"
)

const (
	defaultMaxIterations = 5

	// maxHistoryMessages bounds how much of the stored session log is
	// sent to the model; the store itself keeps everything.
	defaultMaxHistoryMessages = 20

	responseDigestLen = 64
)

// RegistryBuilder assembles the tool set for one call. The retrieval
// tool is bound to the query's collection, so the registry is built per
// call rather than shared.
type RegistryBuilder func(collectionName string) (*tools.Registry, error)

// TranscriptWriter persists finished exchanges. Failures are logged and
// never mask a successfully computed answer.
type TranscriptWriter interface {
	CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error)
}

// Agent is the orchestrator. One Ask call is one logical task; calls
// for the same sender are serialized so their read-modify-write of the
// session history and activity record cannot interleave.
type Agent struct {
	llm           ai.LLMService
	history       *HistoryStore
	tracker       *ActivityTracker
	transcripts   TranscriptWriter
	buildRegistry RegistryBuilder
	maxIterations int
	maxHistory    int

	senderLocks sync.Map // senderID -> *sync.Mutex
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations caps the tool-use loop per call.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithMaxHistoryMessages bounds the history slice sent to the model.
func WithMaxHistoryMessages(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxHistory = n
		}
	}
}

// WithTranscriptWriter enables transcript persistence.
func WithTranscriptWriter(w TranscriptWriter) Option {
	return func(a *Agent) {
		a.transcripts = w
	}
}

// New creates an Agent.
func New(llm ai.LLMService, history *HistoryStore, tracker *ActivityTracker, buildRegistry RegistryBuilder, opts ...Option) (*Agent, error) {
	if llm == nil {
		return nil, fmt.Errorf("llm cannot be nil")
	}
	if history == nil {
		return nil, fmt.Errorf("history store cannot be nil")
	}
	if tracker == nil {
		return nil, fmt.Errorf("activity tracker cannot be nil")
	}
	if buildRegistry == nil {
		return nil, fmt.Errorf("registry builder cannot be nil")
	}

	a := &Agent{
		llm:           llm,
		history:       history,
		tracker:       tracker,
		buildRegistry: buildRegistry,
		maxIterations: defaultMaxIterations,
		maxHistory:    defaultMaxHistoryMessages,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// History exposes the session history store.
func (a *Agent) History() *HistoryStore {
	return a.history
}

// Tracker exposes the activity tracker.
func (a *Agent) Tracker() *ActivityTracker {
	return a.tracker
}

// Ask answers one query for the given sender against the given
// collection. It returns the final answer, or an *Error carrying the
// stage at which the call failed.
func (a *Agent) Ask(ctx context.Context, query, senderID, collectionName string) (string, error) {
	lock := a.senderLock(senderID)
	lock.Lock()
	defer lock.Unlock()

	// Touch before anything can fail so partial activity is visible.
	record := a.tracker.Touch(senderID, collectionName)

	slog.Info("agent ask started",
		"sender_id", senderID,
		"collection", collectionName,
		"message_count", record.MessageCount)

	registry, err := a.buildRegistry(collectionName)
	if err != nil {
		return "", NewError(StageToolLoop, fmt.Errorf("tool registry: %w", err))
	}

	userMessage := ai.UserMessage(query)
	messages := a.composeContext(senderID, userMessage)

	// Everything produced during this call, kept for the session log.
	transcript := []ai.Message{userMessage}

	start := time.Now()
	for iteration := 0; iteration < a.maxIterations; iteration++ {
		response, err := a.llm.ChatWithTools(ctx, messages, registry.Specs())
		if err != nil {
			return "", NewError(StageChat, err)
		}

		if len(response.ToolCalls) == 0 {
			answer := response.Content
			a.finalize(ctx, senderID, collectionName, query, answer, transcript)
			slog.Info("agent ask completed",
				"sender_id", senderID,
				"iterations", iteration+1,
				"duration", time.Since(start))
			return answer, nil
		}

		assistant := *response
		messages = append(messages, assistant)
		transcript = append(transcript, assistant)

		results := a.executeToolCalls(ctx, registry, response.ToolCalls)
		for i, call := range response.ToolCalls {
			toolMessage := ai.ToolMessage(call.ID, call.Name, results[i].Content())
			messages = append(messages, toolMessage)
			transcript = append(transcript, toolMessage)
		}
	}

	return "", NewError(StageToolLoop,
		fmt.Errorf("no final answer after %d tool iterations", a.maxIterations))
}

// composeContext assembles the reasoning context: system instruction,
// trimmed history oldest-first, new user message last.
func (a *Agent) composeContext(senderID string, userMessage ai.Message) []ai.Message {
	history := a.history.Get(senderID)
	if len(history) > a.maxHistory {
		history = history[len(history)-a.maxHistory:]
		// The window must not open with tool replies whose proposing
		// assistant message was cut off; the API rejects a tool-role
		// message without a preceding tool_calls message.
		for len(history) > 0 && history[0].Role == ai.RoleTool {
			history = history[1:]
		}
	}

	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.SystemMessage(systemPrompt))
	messages = append(messages, history...)
	messages = append(messages, userMessage)
	return messages
}

// executeToolCalls runs the calls proposed in one model turn. Calls run
// concurrently unless any tool in the turn declares itself
// synchronous-only, but results always come back in proposal order.
func (a *Agent) executeToolCalls(ctx context.Context, registry *tools.Registry, calls []ai.ToolCall) []tools.Result {
	results := make([]tools.Result, len(calls))

	if len(calls) == 1 || hasSynchronousTool(registry, calls) {
		for i, call := range calls {
			results[i] = registry.Dispatch(ctx, call)
		}
		return results
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		group.Go(func() error {
			results[i] = registry.Dispatch(groupCtx, call)
			return nil
		})
	}
	// Dispatch never returns an error; failures are inside the results.
	_ = group.Wait()
	return results
}

// SynchronousTool marks tools that must not run concurrently with other
// tools in the same turn.
type SynchronousTool interface {
	SynchronousOnly() bool
}

func hasSynchronousTool(registry *tools.Registry, calls []ai.ToolCall) bool {
	for _, call := range calls {
		tool, ok := registry.Get(call.Name)
		if !ok {
			continue
		}
		if marker, ok := tool.(SynchronousTool); ok && marker.SynchronousOnly() {
			return true
		}
	}
	return false
}

// finalize appends the call's messages and the answer to the session
// log, updates the activity record and persists the transcript.
func (a *Agent) finalize(ctx context.Context, senderID, collectionName, query, answer string, transcript []ai.Message) {
	a.history.Append(senderID, append(transcript, ai.AssistantMessage(answer))...)
	a.tracker.MarkResponded(senderID, collectionName, digest(answer))

	if a.transcripts == nil {
		return
	}
	if _, err := a.transcripts.CreateConversation(ctx, &store.Conversation{
		SenderID:       senderID,
		CollectionName: collectionName,
		Query:          query,
		Response:       answer,
	}); err != nil {
		// Persistence failure must not mask a computed answer, but
		// silent data loss has to be visible.
		slog.Error("failed to persist conversation",
			"sender_id", senderID,
			"collection", collectionName,
			"error", err)
	}
}

func (a *Agent) senderLock(senderID string) *sync.Mutex {
	lock, _ := a.senderLocks.LoadOrStore(senderID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func digest(answer string) string {
	if len(answer) <= responseDigestLen {
		return answer
	}
	cut := responseDigestLen
	for cut > 0 && !utf8.RuneStart(answer[cut]) {
		cut--
	}
	return answer[:cut]
}
