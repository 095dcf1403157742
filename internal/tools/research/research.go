// Package research provides the web, academic and encyclopedia search tools
// used by the research assistant.
//
// Upstream failures never escape as errors: every tool reports them as a
// single-element result list holding an ErrorResult, so the model can read
// what went wrong and carry on.
package research

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ashutoshrp06/agentflow/internal/retryhttp"
	"github.com/ashutoshrp06/agentflow/internal/tools"
)

const (
	DefaultTavilyBaseURL     = "https://api.tavily.com"
	DefaultArxivEndpoint     = "https://export.arxiv.org/api/query"
	DefaultWikipediaEndpoint = "https://en.wikipedia.org/w/api.php"

	DefaultArxivMaxPages  = 6
	DefaultArxivTextChars = 5000
	DefaultPageMaxChars   = 8000
)

// Config holds research tool settings.
type Config struct {
	HTTP   *retryhttp.Client
	Logger *zap.Logger

	TavilyAPIKey  string
	TavilyBaseURL string

	ArxivEndpoint  string
	ArxivMaxPages  int
	ArxivTextChars int
	// PDFDelay is waited after each PDF download. Zero disables it.
	PDFDelay time.Duration

	WikipediaEndpoint string
}

// ErrorResult is the single element returned when an upstream call fails.
type ErrorResult struct {
	Error string `json:"error"`
}

// Research owns the shared HTTP client and settings of the research tools.
type Research struct {
	cfg    Config
	http   *retryhttp.Client
	logger *zap.Logger
}

// New creates the research tools from cfg.
func New(cfg Config) *Research {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.HTTP == nil {
		cfg.HTTP = retryhttp.New(retryhttp.Config{Logger: cfg.Logger})
	}
	if cfg.TavilyBaseURL == "" {
		cfg.TavilyBaseURL = DefaultTavilyBaseURL
	}
	if cfg.ArxivEndpoint == "" {
		cfg.ArxivEndpoint = DefaultArxivEndpoint
	}
	if cfg.ArxivMaxPages <= 0 {
		cfg.ArxivMaxPages = DefaultArxivMaxPages
	}
	if cfg.ArxivTextChars <= 0 {
		cfg.ArxivTextChars = DefaultArxivTextChars
	}
	if cfg.WikipediaEndpoint == "" {
		cfg.WikipediaEndpoint = DefaultWikipediaEndpoint
	}

	return &Research{
		cfg:    cfg,
		http:   cfg.HTTP,
		logger: cfg.Logger,
	}
}

// Tools returns the search tools followed by fetch_page.
func (r *Research) Tools() []tools.Tool {
	return []tools.Tool{
		tools.Must[TavilyArgs]("tavily_search_tool",
			"Performs a general-purpose web search using the Tavily API.",
			r.tavily),
		tools.Must[ArxivArgs]("arxiv_search_tool",
			"Searches arXiv and (internally) fetches PDFs to memory and extracts text.",
			r.arxiv),
		tools.Must[WikipediaArgs]("wikipedia_search_tool",
			"Searches for a Wikipedia article summary by query string.",
			r.wikipedia),
		tools.Must[FetchPageArgs]("fetch_page",
			"Fetches a web page and returns its content as Markdown. Use it to read a result found by a search tool.",
			r.fetchPage),
	}
}

func (r *Research) tavily(ctx context.Context, args TavilyArgs) (any, error) {
	return r.Tavily(ctx, args), nil
}

func (r *Research) arxiv(ctx context.Context, args ArxivArgs) (any, error) {
	return r.Arxiv(ctx, args), nil
}

func (r *Research) wikipedia(ctx context.Context, args WikipediaArgs) (any, error) {
	return r.Wikipedia(ctx, args), nil
}

func (r *Research) fetchPage(ctx context.Context, args FetchPageArgs) (any, error) {
	return r.FetchPage(ctx, args), nil
}

func failed(format string, args ...any) []any {
	return []any{ErrorResult{Error: fmt.Sprintf(format, args...)}}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
