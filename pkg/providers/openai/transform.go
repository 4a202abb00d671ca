package openai

import (
	"time"

	sdk "github.com/openai/openai-go/v3"

	"mercator-hq/chatrelay/pkg/providers"
)

// buildParams transforms a ConverseRequest to chat completion parameters.
// The system prompt becomes a leading system message.
func buildParams(req *providers.ConverseRequest) sdk.ChatCompletionNewParams {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, sdk.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == providers.RoleAssistant {
			messages = append(messages, sdk.AssistantMessage(m.Text()))
		} else {
			messages = append(messages, sdk.UserMessage(m.Text()))
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(req.ModelID),
		Messages: messages,
	}
	if req.Inference.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(int64(req.Inference.MaxTokens))
	}
	if req.Inference.Temperature > 0 {
		params.Temperature = sdk.Float(req.Inference.Temperature)
	}
	if req.Inference.TopP > 0 {
		params.TopP = sdk.Float(req.Inference.TopP)
	}
	return params
}

// transformResponse converts a chat completion to the Converse shape.
func transformResponse(c *sdk.ChatCompletion, start time.Time) *providers.ConverseResponse {
	resp := &providers.ConverseResponse{
		Output: providers.ConverseOutput{
			Message: providers.Message{Role: providers.RoleAssistant, Content: []providers.ContentBlock{}},
		},
		Usage:   convertUsage(c.Usage),
		Metrics: providers.MetricsSince(start),
	}
	if len(c.Choices) > 0 {
		choice := c.Choices[0]
		resp.Output.Message.Content = append(resp.Output.Message.Content, providers.ContentBlock{Text: choice.Message.Content})
		resp.StopReason = mapFinishReason(choice.FinishReason)
	}
	return resp
}

func convertUsage(u sdk.CompletionUsage) providers.Usage {
	return providers.Usage{
		InputTokens:  int(u.PromptTokens),
		OutputTokens: int(u.CompletionTokens),
		TotalTokens:  int(u.TotalTokens),
	}
}

// mapFinishReason maps OpenAI finish reasons onto Converse stop reasons.
func mapFinishReason(reason string) string {
	switch reason {
	case "stop":
		return providers.StopReasonEndTurn
	case "length":
		return providers.StopReasonMaxTokens
	default:
		return reason
	}
}
