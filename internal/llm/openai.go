package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Config holds gateway configuration.
type Config struct {
	BaseURL string // e.g. "https://api.openai.com/v1" or "http://localhost:11434/v1"
	APIKey  string
	Model   string
	Timeout time.Duration // per request

	// MaxRetries is passed to the SDK transport. Zero disables retries.
	MaxRetries int

	// Temperature is omitted from requests when nil.
	Temperature *float64

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// DefaultConfig returns the hosted OpenAI defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-5-nano",
		Timeout: 60 * time.Second,
	}
}

// OpenAIGateway talks to any OpenAI-compatible chat completions endpoint.
type OpenAIGateway struct {
	client      openai.Client
	baseURL     string
	model       string
	temperature *float64
	logger      *zap.Logger
}

// NewOpenAIGateway creates a gateway from cfg.
func NewOpenAIGateway(cfg Config) (*OpenAIGateway, error) {
	if cfg.Model == "" {
		return nil, failure.New(failure.KindConfiguration, "llm.new", "model is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIGateway{
		client:      openai.NewClient(opts...),
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}, nil
}

// Complete sends the conversation and returns the model's reply.
func (g *OpenAIGateway) Complete(ctx context.Context, req Request) (Completion, error) {
	const op = "llm.complete"

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}
	if req.Shape != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.Shape.Name(),
					Description: openai.String(req.Shape.Description()),
					Strict:      openai.Bool(req.Shape.Strict()),
					Schema:      req.Shape.Schema(),
				},
			},
		}
	}
	if g.temperature != nil {
		params.Temperature = openai.Float(*g.temperature)
	}

	g.logger.Debug("Sending completion request",
		zap.String("model", g.model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("tools", len(req.Tools)),
		zap.Bool("shaped", req.Shape != nil))

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return Completion{}, failure.Transport(op,
				fmt.Errorf("model endpoint returned status %d: %w", apiErr.StatusCode, err))
		}
		return Completion{}, failure.Transport(op, err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, failure.Transport(op, errors.New("response has no choices"))
	}

	msg := resp.Choices[0].Message
	completion := Completion{Text: msg.Content}
	for _, call := range msg.ToolCalls {
		if call.Type != "" && call.Type != "function" {
			continue
		}
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		args := call.Function.Arguments
		if args == "" {
			args = "{}"
		}
		completion.ToolRequests = append(completion.ToolRequests, types.ToolInvocationRequest{
			ID:        id,
			Name:      call.Function.Name,
			Arguments: []byte(args),
		})
	}

	g.logger.Debug("Completion received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("tool_calls", len(completion.ToolRequests)),
		zap.String("finish_reason", resp.Choices[0].FinishReason))

	if completion.IsFinal() && msg.Refusal != "" {
		if req.Shape != nil {
			return Completion{}, failure.Shape("shape."+req.Shape.Name(), "model refused: "+msg.Refusal, nil)
		}
		if completion.Text == "" {
			completion.Text = msg.Refusal
		}
	}

	return Finalize(req, completion)
}

// Ping checks that the endpoint is reachable and the key is accepted.
func (g *OpenAIGateway) Ping(ctx context.Context) error {
	if _, err := g.client.Models.List(ctx); err != nil {
		return failure.Transport("llm.ping", err)
	}
	return nil
}

// ModelInfo returns information about the configured model.
func (g *OpenAIGateway) ModelInfo() string {
	if g.baseURL == "" {
		return g.model
	}
	return fmt.Sprintf("%s @ %s", g.model, g.baseURL)
}

// Model returns the configured model name.
func (g *OpenAIGateway) Model() string {
	return g.model
}

func toOpenAIMessages(msgs []types.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case types.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case types.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case types.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.InvocationID))
		case types.RoleAssistant:
			if len(m.ToolRequests) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, r := range m.ToolRequests {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: r.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      r.Name,
							Arguments: string(r.Arguments),
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		}
	}
	return out
}

func toOpenAITools(decls []types.ToolDeclaration) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(decls))
	for _, d := range decls {
		fn := openai.FunctionDefinitionParam{
			Name:       d.Name,
			Parameters: openai.FunctionParameters(d.InputSchema),
		}
		if d.Description != "" {
			fn.Description = openai.String(d.Description)
		}
		out = append(out, openai.ChatCompletionFunctionTool(fn))
	}
	return out
}
