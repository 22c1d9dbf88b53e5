// Package llm wraps the OpenAI chat and embedding APIs behind the two
// narrow interfaces the rest of the backend consumes. With no API key the
// client stays disabled and every generate call reports a miss, which the
// callers turn into canned fallback text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

const (
	requestTimeout = 4 * time.Second
	maxRetries     = 3
	baseRetryDelay = time.Second
)

const systemPromptAction = `You simulate the actions of one specific agent in a cyber city.
Answer with a single short line, no quotes, no markup. Do not add timestamps
or other agents' names, only the action itself.

You are always given the agent's name, mood, energy level, current task,
recent memories and a text description of the character. The action must
logically fit THIS agent and its state.

Be creative and varied. Examples: "surveyed the surroundings",
"checked the security system", "studied the district map",
"found a curious artifact", "analyzed the data", "logged observations".`

const systemPromptChat = `You are one specific AI agent in a virtual cyber city, with your own
personality and opinions. You talk with other agents in a text group chat.
The chat name, its description and any "Topic: ..." hint define the
SITUATION you are in; stay inside it and develop it.

Separate system messages carry information about you and your counterpart:
names, mood, character traits, a short persona description, plus memories
and conversation history. Take all of it into account.

Write only first-person chat lines, like ordinary messenger messages.
Do not narrate physical actions or surroundings, and do not speak in the
third person. You have your own views that may differ from the other
agent's. Keep replies short (1-5 sentences) and never repeat yourself.`

// ActionPrompt carries everything the model needs to invent a solo action
// for an agent.
type ActionPrompt struct {
	AgentName   string
	Mood        float64
	Energy      int
	CurrentTask string
	Memories    []string
	Traits      []string
	Persona     string
}

// HistoryEntry is one prior line of a conversation. From holds the speaker
// name so the client can map lines onto chat roles.
type HistoryEntry struct {
	From string
	Text string
}

// MessagePrompt carries the context for generating one chat line from
// Sender addressed at Receiver.
type MessagePrompt struct {
	SenderName     string
	SenderMood     float64
	SenderTraits   []string
	SenderPersona  string
	ReceiverName   string
	ReceiverTraits []string
	Affinity       float64
	Memories       []string
	History        []HistoryEntry
	TopicHint      string
}

// TextGenerator produces agent dialogue and actions. The bool result is
// false whenever no text could be produced, whether the client is disabled
// or the upstream call failed; callers fall back to canned text.
type TextGenerator interface {
	GenerateAction(ctx context.Context, p ActionPrompt) (string, bool)
	GenerateMessage(ctx context.Context, p MessagePrompt) (string, bool)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Client struct {
	client  *openai.Client
	model   string
	enabled bool
	log     *logger.Logger
}

var _ TextGenerator = (*Client)(nil)
var _ Embedder = (*Client)(nil)

// NewClient builds the wrapper. An empty apiKey yields a disabled client
// whose generate calls always miss.
func NewClient(apiKey, model, baseURL string, baseLog *logger.Logger) *Client {
	c := &Client{
		model:   model,
		enabled: apiKey != "",
		log:     baseLog.With("client", "llm"),
	}
	if !c.enabled {
		c.log.Info("no API key configured, text generation disabled")
		return c
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c.client = openai.NewClientWithConfig(config)
	return c
}

func (c *Client) Enabled() bool { return c.enabled }

func (c *Client) GenerateAction(ctx context.Context, p ActionPrompt) (string, bool) {
	if !c.enabled {
		return "", false
	}

	memText := "no fresh memories"
	if len(p.Memories) > 0 {
		memText = strings.Join(head(p.Memories, 5), "; ")
	}
	taskText := p.CurrentTask
	if taskText == "" {
		taskText = "no active task"
	}
	traitsText := "ordinary"
	if len(p.Traits) > 0 {
		traitsText = strings.Join(head(p.Traits, 3), ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Agent: %s\n", p.AgentName)
	fmt.Fprintf(&b, "Traits: %s\n", traitsText)
	if persona := strings.TrimSpace(p.Persona); persona != "" {
		fmt.Fprintf(&b, "%s\n", persona)
	}
	fmt.Fprintf(&b, "Mood: %.2f\n", p.Mood)
	fmt.Fprintf(&b, "Energy: %d\n", p.Energy)
	fmt.Fprintf(&b, "Current task: %s\n", taskText)
	fmt.Fprintf(&b, "Recent memories: %s\n", memText)
	b.WriteString("Come up with a unique, interesting action reflecting this agent's personality. Do not repeat previous actions.")

	text, err := c.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPromptAction},
		{Role: openai.ChatMessageRoleUser, Content: b.String()},
	})
	if err != nil {
		c.log.Warn("action generation failed", "agent", p.AgentName, "error", err)
		return "", false
	}
	return text, true
}

func (c *Client) GenerateMessage(ctx context.Context, p MessagePrompt) (string, bool) {
	if !c.enabled {
		return "", false
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPromptChat},
	}
	for _, line := range p.History {
		role := openai.ChatMessageRoleUser
		if line.From == p.SenderName {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: line.Text})
	}
	if p.TopicHint != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Topic: " + p.TopicHint,
		})
	}
	if len(p.Memories) > 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Memories: " + strings.Join(head(p.Memories, 5), "; "),
		})
	}

	summary := fmt.Sprintf(
		"Sender: %s (Mood: %.2f, Traits: %s). Receiver: %s (Traits: %s). Affinity: %.2f.",
		p.SenderName, p.SenderMood, strings.Join(head(p.SenderTraits, 3), ", "),
		p.ReceiverName, strings.Join(head(p.ReceiverTraits, 3), ", "),
		p.Affinity,
	)
	if persona := strings.TrimSpace(p.SenderPersona); persona != "" {
		if len(persona) > 200 {
			persona = persona[:200]
		}
		summary += " Persona: " + persona
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: summary,
	})

	text, err := c.complete(ctx, messages)
	if err != nil {
		c.log.Warn("message generation failed", "sender", p.SenderName, "error", err)
		return "", false
	}
	return text, true
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.enabled {
		return nil, errors.New("llm client disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data")
	}
	return resp.Data[0].Embedding, nil
}

// complete issues one chat completion, retrying with exponential backoff
// when the API reports a rate limit.
func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * (1 << (attempt - 1))
			c.log.Info("rate limited, retrying", "delay", delay, "attempt", attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
		})
		cancel()
		if err != nil {
			lastErr = err
			if isRateLimit(err) {
				continue
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no response choices")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	}
	return "", lastErr
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429
	}
	return false
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
