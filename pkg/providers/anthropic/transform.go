package anthropic

import (
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"mercator-hq/chatrelay/pkg/providers"
)

// buildParams transforms a ConverseRequest to Messages API parameters.
func buildParams(req *providers.ConverseRequest) sdk.MessageNewParams {
	messages := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content))
		for _, c := range m.Content {
			blocks = append(blocks, sdk.NewTextBlock(c.Text))
		}
		if m.Role == providers.RoleAssistant {
			messages = append(messages, sdk.NewAssistantMessage(blocks...))
		} else {
			messages = append(messages, sdk.NewUserMessage(blocks...))
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.ModelID),
		MaxTokens: int64(req.Inference.MaxTokens),
		Messages:  messages,
	}
	if req.Inference.Temperature > 0 {
		params.Temperature = sdk.Float(req.Inference.Temperature)
	}
	if req.Inference.TopP > 0 {
		params.TopP = sdk.Float(req.Inference.TopP)
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	return params
}

// transformResponse converts a Messages API response to the Converse shape.
func transformResponse(msg *sdk.Message, start time.Time) *providers.ConverseResponse {
	content := make([]providers.ContentBlock, 0, len(msg.Content))
	for _, block := range msg.Content {
		if block.Type == "text" {
			content = append(content, providers.ContentBlock{Text: block.Text})
		}
	}

	in := int(msg.Usage.InputTokens)
	out := int(msg.Usage.OutputTokens)

	return &providers.ConverseResponse{
		Output: providers.ConverseOutput{
			Message: providers.Message{Role: providers.RoleAssistant, Content: content},
		},
		StopReason: string(msg.StopReason),
		Usage: providers.Usage{
			InputTokens:  in,
			OutputTokens: out,
			TotalTokens:  in + out,
		},
		Metrics: providers.MetricsSince(start),
	}
}
