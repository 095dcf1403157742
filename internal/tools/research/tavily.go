package research

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

type TavilyArgs struct {
	Query         string `json:"query" jsonschema:"Search keywords for retrieving information from the web."`
	MaxResults    int    `json:"max_results,omitempty" jsonschema:"Maximum number of results to return (default 5)."`
	IncludeImages bool   `json:"include_images,omitempty" jsonschema:"Whether to include image results."`
}

// WebResult is one Tavily hit.
type WebResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

// ImageResult is appended after the web results when images are requested.
type ImageResult struct {
	ImageURL string `json:"image_url"`
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeImages bool   `json:"include_images"`
}

type tavilyResponse struct {
	Results []WebResult       `json:"results"`
	Images  []json.RawMessage `json:"images"`
}

// Tavily runs a web search. The result list holds WebResult entries followed
// by ImageResult entries, or a single ErrorResult.
func (r *Research) Tavily(ctx context.Context, args TavilyArgs) []any {
	if r.cfg.TavilyAPIKey == "" {
		return failed("TAVILY_API_KEY not found in environment variables.")
	}
	if args.MaxResults <= 0 {
		args.MaxResults = 5
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:        r.cfg.TavilyAPIKey,
		Query:         args.Query,
		MaxResults:    args.MaxResults,
		IncludeImages: args.IncludeImages,
	})
	if err != nil {
		return failed("encode request: %v", err)
	}

	endpoint := strings.TrimRight(r.cfg.TavilyBaseURL, "/") + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return failed("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.TavilyAPIKey)

	resp, err := r.http.Do(req)
	if err != nil {
		return failed("Tavily request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failed("read Tavily response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed("Tavily returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded tavilyResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return failed("decode Tavily response: %v", err)
	}

	out := make([]any, 0, len(decoded.Results)+len(decoded.Images))
	for _, res := range decoded.Results {
		out = append(out, res)
	}
	if args.IncludeImages {
		for _, img := range decoded.Images {
			if u := imageURL(img); u != "" {
				out = append(out, ImageResult{ImageURL: u})
			}
		}
	}

	r.logger.Debug("Tavily search completed",
		zap.String("query", args.Query),
		zap.Int("results", len(out)))
	return out
}

// imageURL accepts both the plain string form and the {url, description}
// form Tavily uses when image descriptions are enabled.
func imageURL(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}
