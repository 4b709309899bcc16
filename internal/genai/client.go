package genai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Backend is the single generative capability shared by quiz generation and
// answer evaluation. Invoke forces the model to call the named tool and
// returns the raw tool arguments; callers validate the payload themselves
// since the backend is not schema-guaranteed.
type Backend interface {
	Invoke(ctx context.Context, system, prompt, toolName string, schema map[string]any) (json.RawMessage, error)
}

// OpenAIBackend implements Backend through the chat-completions API with
// function-calling structured output.
type OpenAIBackend struct {
	client *openai.Client
	model  string
}

func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAIBackend{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (b *OpenAIBackend) Invoke(ctx context.Context, system, prompt, toolName string, schema map[string]any) (json.RawMessage, error) {
	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Tools: []openai.Tool{
			{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:       toolName,
					Parameters: schema,
				},
			},
		},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: toolName},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	if len(choice.Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("no tool calls in response")
	}
	call := choice.Message.ToolCalls[0]
	if call.Function.Name != toolName {
		return nil, fmt.Errorf("unexpected tool call %q", call.Function.Name)
	}
	return json.RawMessage(call.Function.Arguments), nil
}
