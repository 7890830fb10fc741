package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/leon37/FinChatLedger/internal/model"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// GeminiClient 使用 Google Gemini 的 function calling
type GeminiClient struct {
	client     *genai.Client
	modelName  string
	categories []string
	log        *logrus.Logger
	now        func() time.Time
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, categories []string, log *logrus.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &GeminiClient{
		client:     client,
		modelName:  modelName,
		categories: categories,
		log:        log,
		now:        time.Now,
	}, nil
}

// Close 关闭底层连接
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func (g *GeminiClient) Understand(ctx context.Context, userText string) (model.Command, error) {
	m := g.newModel(buildToolSpecs(g.categories), "")
	prompt := understandPrompt(g.now(), strings.Join(g.categories, ", ")) +
		"\n\nPedido do usuário: '" + userText + "'"
	return g.generate(ctx, m, prompt)
}

func (g *GeminiClient) EvaluateGoal(ctx context.Context, userText string) (model.Command, error) {
	goal := goalToolSpec()
	m := g.newModel([]toolSpec{goal}, string(goal.Intent))
	prompt := goalPrompt + "\n\nObjetivo informado: '" + userText + "'"
	return g.generate(ctx, m, prompt)
}

// newModel forced 非空时强制模型调用该函数
func (g *GeminiClient) newModel(specs []toolSpec, forced string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	m.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(specs)}}
	m.ToolConfig = geminiToolConfig(forced)
	m.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}
	return m
}

func (g *GeminiClient) generate(ctx context.Context, m *genai.GenerativeModel, prompt string) (model.Command, error) {
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		g.log.Warn("Gemini 没有返回候选结果")
		return nil, nil
	}
	return commandFromParts(resp.Candidates[0].Content.Parts), nil
}

// commandFromParts 第一个 function call 优先，否则取最后一段文本
func commandFromParts(parts []genai.Part) model.Command {
	var lastText string
	for _, part := range parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			if p.Name != "" {
				return DecodeCommand(p.Name, p.Args)
			}
		case genai.Text:
			if t := strings.TrimSpace(string(p)); t != "" {
				lastText = t
			}
		}
	}
	if lastText != "" {
		return model.TextualResponse{Text: lastText}
	}
	return nil
}

func geminiToolConfig(forced string) *genai.ToolConfig {
	if forced == "" {
		return &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto}}
	}
	return &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{
		Mode:                 genai.FunctionCallingAny,
		AllowedFunctionNames: []string{forced},
	}}
}

func geminiDeclarations(specs []toolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, ts := range specs {
		props := make(map[string]*genai.Schema, len(ts.Params))
		for _, p := range ts.Params {
			schema := &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
			}
			// Gemini 的枚举需要 format=enum
			if len(p.Enum) > 0 {
				schema.Format = "enum"
				schema.Enum = p.Enum
			}
			props[p.Name] = schema
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        string(ts.Intent),
			Description: ts.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   ts.Required,
			},
		})
	}
	return decls
}

func geminiType(t paramType) genai.Type {
	switch t {
	case paramNumber:
		return genai.TypeNumber
	case paramInteger:
		return genai.TypeInteger
	case paramBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}
