// Package assistant assembles the ready-made agents: a coding assistant with
// file tools, a research assistant with search tools, and two shaped
// assistants answering weather and store knowledge-base questions.
package assistant

import (
	"context"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/agent"
	"github.com/ashutoshrp06/agentflow/internal/config"
	"github.com/ashutoshrp06/agentflow/internal/failure"
	"github.com/ashutoshrp06/agentflow/internal/llm"
	"github.com/ashutoshrp06/agentflow/internal/prompt"
	"github.com/ashutoshrp06/agentflow/internal/retryhttp"
	"github.com/ashutoshrp06/agentflow/internal/shape"
	"github.com/ashutoshrp06/agentflow/internal/tools"
	"github.com/ashutoshrp06/agentflow/internal/tools/filesystem"
	"github.com/ashutoshrp06/agentflow/internal/tools/knowledge"
	"github.com/ashutoshrp06/agentflow/internal/tools/research"
	"github.com/ashutoshrp06/agentflow/internal/tools/weather"
	"github.com/ashutoshrp06/agentflow/internal/types"
)

// Deps are the collaborators shared by all assistants.
type Deps struct {
	Config  *config.Config
	Gateway llm.Gateway
	Prompts *prompt.Catalogue
	HTTP    *retryhttp.Client
	Logger  *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Config == nil {
		d.Config = config.DefaultConfig()
	}
	if d.Prompts == nil {
		d.Prompts = prompt.Default()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.HTTP == nil {
		d.HTTP = NewHTTPClient(d.Config, d.Logger)
	}
	return d
}

// NewHTTPClient builds the tool-layer HTTP client from the research.http
// settings.
func NewHTTPClient(cfg *config.Config, logger *zap.Logger) *retryhttp.Client {
	return retryhttp.New(retryhttp.Config{
		Retries:       cfg.Research.HTTP.Retries,
		Backoff:       cfg.HTTPBackoff(),
		RetryStatuses: cfg.Research.HTTP.RetryStatuses,
		UserAgent:     cfg.Research.HTTP.UserAgent,
		Timeout:       cfg.HTTPTimeout(),
		Logger:        logger,
	})
}

// WeatherReport is the shaped answer of the weather assistant.
type WeatherReport struct {
	Temperature float64 `json:"temperature" jsonschema:"The current temperature in Celsius, of the given location"`
	Response    string  `json:"response" jsonschema:"A brief natural language response to the user question"`
}

// KBResponse is the shaped answer of the knowledge-base assistant.
type KBResponse struct {
	Answer string `json:"answer" jsonschema:"The answer to the user's question"`
	Source int    `json:"source" jsonschema:"The reference id of the answer"`
}

var (
	weatherShape = shape.MustOf[WeatherReport]("weather_report", "Current weather answer")
	kbShape      = shape.MustOf[KBResponse]("kb_response", "Knowledge base answer")
)

// Shaped is an agent whose final answer decodes into T.
type Shaped[T any] struct {
	agent *agent.Agent
	out   shape.Typed[T]
}

// Ask runs one question and decodes the answer.
func (s *Shaped[T]) Ask(ctx context.Context, question string) (T, *agent.Result, error) {
	return agent.RunAs(ctx, s.agent, question, s.out)
}

// Agent returns the underlying agent.
func (s *Shaped[T]) Agent() *agent.Agent {
	return s.agent
}

// NewCoder returns the coding assistant. Its file tools are rooted at
// agent.workspace, and agent.system_prompt replaces the built-in prompt.
func NewCoder(d Deps) (*agent.Agent, error) {
	d = d.withDefaults()

	system := d.Config.Agent.SystemPrompt
	if system == "" {
		var err error
		system, err = render(d, prompt.Coder, prompt.Vars{"WORKSPACE": d.Config.Agent.Workspace})
		if err != nil {
			return nil, err
		}
	}

	registry, err := coderTools(d)
	if err != nil {
		return nil, err
	}
	return build(d, registry, system)
}

// NewResearcher returns the research assistant with web, arXiv, Wikipedia
// and page-fetch tools.
func NewResearcher(d Deps) (*agent.Agent, error) {
	d = d.withDefaults()

	system, err := render(d, prompt.Researcher, nil)
	if err != nil {
		return nil, err
	}

	registry, err := researchTools(d)
	if err != nil {
		return nil, err
	}
	return build(d, registry, system)
}

// NewWeather returns the weather assistant.
func NewWeather(d Deps) (*Shaped[WeatherReport], error) {
	d = d.withDefaults()

	system, err := render(d, prompt.Weather, nil)
	if err != nil {
		return nil, err
	}
	registry, err := weatherTools(d)
	if err != nil {
		return nil, err
	}
	a, err := build(d, registry, system)
	if err != nil {
		return nil, err
	}
	return &Shaped[WeatherReport]{agent: a, out: weatherShape}, nil
}

// NewKnowledge returns the store knowledge-base assistant.
func NewKnowledge(d Deps) (*Shaped[KBResponse], error) {
	d = d.withDefaults()

	system, err := render(d, prompt.Knowledge, nil)
	if err != nil {
		return nil, err
	}
	registry, err := knowledgeTools(d)
	if err != nil {
		return nil, err
	}
	a, err := build(d, registry, system)
	if err != nil {
		return nil, err
	}
	return &Shaped[KBResponse]{agent: a, out: kbShape}, nil
}

// Toolset lists the tools one assistant is given.
type Toolset struct {
	Assistant string                  `json:"assistant"`
	Tools     []types.ToolDeclaration `json:"tools"`
}

// Toolsets describes the tools of every assistant without contacting a model.
func Toolsets(d Deps) ([]Toolset, error) {
	d = d.withDefaults()

	sets := []struct {
		name  string
		build func(Deps) (*tools.Registry, error)
	}{
		{"coder", coderTools},
		{"research", researchTools},
		{"weather", weatherTools},
		{"kb", knowledgeTools},
	}
	out := make([]Toolset, 0, len(sets))
	for _, s := range sets {
		registry, err := s.build(d)
		if err != nil {
			return nil, err
		}
		out = append(out, Toolset{Assistant: s.name, Tools: registry.Declarations()})
	}
	return out, nil
}

func coderTools(d Deps) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	return registry, registerAll(registry, filesystem.New(d.Config.Agent.Workspace).Tools()...)
}

func researchTools(d Deps) (*tools.Registry, error) {
	rc := d.Config.Research
	r := research.New(research.Config{
		HTTP:              d.HTTP,
		Logger:            d.Logger,
		TavilyAPIKey:      rc.Tavily.APIKey,
		TavilyBaseURL:     rc.Tavily.BaseURL,
		ArxivEndpoint:     rc.Arxiv.Endpoint,
		ArxivMaxPages:     rc.Arxiv.MaxPages,
		ArxivTextChars:    rc.Arxiv.TextChars,
		PDFDelay:          d.Config.PDFDelay(),
		WikipediaEndpoint: rc.Wikipedia.Endpoint,
	})
	registry := tools.NewRegistry()
	return registry, registerAll(registry, r.Tools()...)
}

func weatherTools(d Deps) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	return registry, registerAll(registry, weather.New(d.Config.Weather.Endpoint, d.HTTP).Tool())
}

func knowledgeTools(d Deps) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	return registry, registerAll(registry, knowledge.New(d.Config.Knowledge.Path).Tool())
}

func build(d Deps, registry *tools.Registry, system string) (*agent.Agent, error) {
	return agent.New(agent.Config{
		Gateway:      d.Gateway,
		Tools:        registry,
		SystemPrompt: system,
		MaxCycles:    d.Config.Agent.MaxCycles,
		ToolTimeout:  d.Config.ToolTimeout(),
		CallTimeout:  d.Config.LLMTimeout(),
		Logger:       d.Logger,
	})
}

func registerAll(registry *tools.Registry, ts ...tools.Tool) error {
	for _, t := range ts {
		if err := registry.Register(t); err != nil {
			return failure.Wrap(failure.KindConfiguration, "assistant.tools", err)
		}
	}
	return nil
}

func render(d Deps, name string, vars prompt.Vars) (string, error) {
	out, err := d.Prompts.Render(name, vars)
	if err != nil {
		return "", failure.Wrap(failure.KindConfiguration, "assistant.prompt", err)
	}
	return out, nil
}
