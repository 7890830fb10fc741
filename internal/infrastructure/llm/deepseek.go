package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/sirupsen/logrus"
)

// DeepSeekClient 走 OpenAI 兼容协议 (DeepSeek / OpenAI 都可以)
type DeepSeekClient struct {
	modelName  string
	client     *openai.Client
	categories []string
	log        *logrus.Logger
	now        func() time.Time
}

func NewDeepSeekClient(apiKey, baseURL, modelName string, categories []string, log *logrus.Logger) *DeepSeekClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &DeepSeekClient{
		modelName:  modelName,
		client:     openai.NewClientWithConfig(config),
		categories: categories,
		log:        log,
		now:        time.Now,
	}
}

func (d *DeepSeekClient) Understand(ctx context.Context, userText string) (model.Command, error) {
	req := openai.ChatCompletionRequest{
		Model: d.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: understandPrompt(d.now(), strings.Join(d.categories, ", "))},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
		Tools:       openAITools(buildToolSpecs(d.categories)),
		ToolChoice:  "auto",
		Temperature: 0.1, // 低温有助于参数稳定
	}
	return d.complete(ctx, req)
}

func (d *DeepSeekClient) EvaluateGoal(ctx context.Context, userText string) (model.Command, error) {
	req := openai.ChatCompletionRequest{
		Model: d.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: goalPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
		Tools: openAITools([]toolSpec{goalToolSpec()}),
		// 强制调用目标校验工具
		ToolChoice: openai.ToolChoice{
			Type: openai.ToolTypeFunction,
			Function: openai.ToolFunction{
				Name: string(model.IntentEvaluateGoal),
			},
		},
		Temperature: 0.1,
	}
	return d.complete(ctx, req)
}

func (d *DeepSeekClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (model.Command, error) {
	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		d.log.Warn("LLM 没有返回任何 choice")
		return nil, nil
	}
	return commandFromMessage(resp.Choices[0].Message), nil
}

// commandFromMessage 优先取工具调用，其次是文本回复
func commandFromMessage(msg openai.ChatCompletionMessage) model.Command {
	for _, call := range msg.ToolCalls {
		if call.Function.Name == "" {
			continue
		}
		return DecodeCommand(call.Function.Name, decodeJSONArguments(call.Function.Arguments))
	}
	if text := strings.TrimSpace(msg.Content); text != "" {
		return model.TextualResponse{Text: text}
	}
	return nil
}

func openAITools(specs []toolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, ts := range specs {
		props := make(map[string]jsonschema.Definition, len(ts.Params))
		for _, p := range ts.Params {
			props[p.Name] = jsonschema.Definition{
				Type:        openAIType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        string(ts.Intent),
				Description: ts.Description,
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: props,
					Required:   ts.Required,
				},
			},
		})
	}
	return tools
}

func openAIType(t paramType) jsonschema.DataType {
	switch t {
	case paramNumber:
		return jsonschema.Number
	case paramInteger:
		return jsonschema.Integer
	case paramBoolean:
		return jsonschema.Boolean
	default:
		return jsonschema.String
	}
}
