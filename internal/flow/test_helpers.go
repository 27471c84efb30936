package flow

import (
	"context"
	"testing"

	"github.com/openai/openai-go"
)

// genAIReply is one scripted response for the mock GenAI client.
type genAIReply struct {
	content string
	err     error
}

// scriptedGenAI implements genai.ClientInterface by replaying scripted
// responses in call order. It records every system prompt for assertions.
type scriptedGenAI struct {
	t       *testing.T
	queue   []genAIReply
	prompts []string
}

func newScriptedGenAI(t *testing.T, replies ...genAIReply) *scriptedGenAI {
	t.Helper()
	return &scriptedGenAI{t: t, queue: replies}
}

func (m *scriptedGenAI) enqueue(replies ...genAIReply) {
	m.queue = append(m.queue, replies...)
}

func (m *scriptedGenAI) next(systemPrompt string) (string, error) {
	m.prompts = append(m.prompts, systemPrompt)
	if len(m.queue) == 0 {
		m.t.Fatalf("scriptedGenAI: unexpected call %d, no scripted reply left", len(m.prompts))
	}
	reply := m.queue[0]
	m.queue = m.queue[1:]
	return reply.content, reply.err
}

func (m *scriptedGenAI) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.next(systemPrompt)
}

func (m *scriptedGenAI) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return m.next("")
}

func (m *scriptedGenAI) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return m.next(systemPrompt)
}

func (m *scriptedGenAI) GenerateMessagesJSON(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return m.next("")
}
