package research

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

type WikipediaArgs struct {
	Query     string `json:"query" jsonschema:"Search keywords for the Wikipedia article."`
	Sentences int    `json:"sentences,omitempty" jsonschema:"Number of sentences in the summary (default 5)."`
}

// Article is the summary of the best matching Wikipedia page.
type Article struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type wikiPageResponse struct {
	Query struct {
		Pages []struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
			FullURL string `json:"fullurl"`
			Missing bool   `json:"missing"`
		} `json:"pages"`
	} `json:"query"`
}

// Wikipedia looks up the top search hit for the query and returns its lead
// summary as a single Article.
func (r *Research) Wikipedia(ctx context.Context, args WikipediaArgs) []any {
	if args.Sentences <= 0 {
		args.Sentences = 5
	}

	var search wikiSearchResponse
	if err := r.wikiQuery(ctx, url.Values{
		"list":     {"search"},
		"srsearch": {args.Query},
		"srlimit":  {"1"},
	}, &search); err != nil {
		return failed("Wikipedia search failed: %v", err)
	}
	if len(search.Query.Search) == 0 {
		return failed("no Wikipedia article found for %q", args.Query)
	}
	title := search.Query.Search[0].Title

	var page wikiPageResponse
	if err := r.wikiQuery(ctx, url.Values{
		"prop":        {"extracts|info"},
		"titles":      {title},
		"exsentences": {strconv.Itoa(args.Sentences)},
		"explaintext": {"1"},
		"inprop":      {"url"},
		"redirects":   {"1"},
	}, &page); err != nil {
		return failed("Wikipedia page lookup failed: %v", err)
	}
	if len(page.Query.Pages) == 0 || page.Query.Pages[0].Missing {
		return failed("Wikipedia page %q does not exist", title)
	}

	p := page.Query.Pages[0]
	return []any{Article{Title: p.Title, Summary: p.Extract, URL: p.FullURL}}
}

func (r *Research) wikiQuery(ctx context.Context, params url.Values, out any) error {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	body, err := r.http.Get(ctx, r.cfg.WikipediaEndpoint+"?"+params.Encode())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
