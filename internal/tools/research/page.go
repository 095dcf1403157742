package research

import (
	"context"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
)

type FetchPageArgs struct {
	URL      string `json:"url" jsonschema:"The http or https URL of the page to fetch."`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"Maximum number of characters of Markdown to return (default 8000)."`
}

// Page is a fetched web page rendered as Markdown.
type Page struct {
	URL       string `json:"url"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

// FetchPage downloads a page and converts it to Markdown. Relative links are
// resolved against the page origin.
func (r *Research) FetchPage(ctx context.Context, args FetchPageArgs) []any {
	if args.MaxChars <= 0 {
		args.MaxChars = DefaultPageMaxChars
	}

	u, err := url.Parse(args.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return failed("invalid page URL %q: only absolute http(s) URLs are supported", args.URL)
	}

	body, err := r.http.Get(ctx, u.String())
	if err != nil {
		return failed("page fetch failed: %v", err)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body),
		converter.WithDomain(u.Scheme+"://"+u.Host))
	if err != nil {
		return failed("HTML conversion failed: %v", err)
	}

	content, truncated := truncateRunes(strings.TrimSpace(markdown), args.MaxChars)
	return []any{Page{URL: u.String(), Content: content, Truncated: truncated}}
}
