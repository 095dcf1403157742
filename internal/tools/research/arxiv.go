package research

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type ArxivArgs struct {
	Query      string `json:"query" jsonschema:"Search keywords."`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of papers to return (default 3)."`
}

// Paper is one arXiv entry. PDFTextExcerpt holds the start of the extracted
// full text, or the abstract when the extraction looked unreadable.
type Paper struct {
	Title          string   `json:"title"`
	Authors        []string `json:"authors"`
	Published      string   `json:"published"`
	URL            string   `json:"url"`
	Summary        string   `json:"summary"`
	LinkPDF        string   `json:"link_pdf,omitempty"`
	PDFTextExcerpt string   `json:"pdf_text_excerpt,omitempty"`
	PDFTextWarning string   `json:"pdf_text_warning,omitempty"`
	PDFError       string   `json:"pdf_error,omitempty"`
	TextError      string   `json:"text_error,omitempty"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

// Arxiv searches arXiv and attaches a text excerpt of each paper's PDF.
func (r *Research) Arxiv(ctx context.Context, args ArxivArgs) []any {
	if args.MaxResults <= 0 {
		args.MaxResults = 3
	}

	endpoint := fmt.Sprintf("%s?search_query=all:%s&start=0&max_results=%d",
		r.cfg.ArxivEndpoint, url.QueryEscape(args.Query), args.MaxResults)

	body, err := r.http.Get(ctx, endpoint)
	if err != nil {
		return failed("arXiv API request failed: %v", err)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return failed("arXiv API XML parse failed: %v", err)
	}

	out := make([]any, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper := r.paperFromEntry(entry)
		if paper.LinkPDF != "" {
			r.attachPDFText(ctx, &paper)
		}
		out = append(out, paper)
	}

	r.logger.Debug("arXiv search completed",
		zap.String("query", args.Query),
		zap.Int("papers", len(out)))
	return out
}

func (r *Research) paperFromEntry(entry atomEntry) Paper {
	published := entry.Published
	if len(published) > 10 {
		published = published[:10]
	}

	paper := Paper{
		Title:     strings.TrimSpace(entry.Title),
		Authors:   make([]string, 0, len(entry.Authors)),
		Published: published,
		URL:       strings.TrimSpace(entry.ID),
		Summary:   strings.TrimSpace(entry.Summary),
	}
	for _, a := range entry.Authors {
		if a.Name != "" {
			paper.Authors = append(paper.Authors, a.Name)
		}
	}

	for _, link := range entry.Links {
		if link.Title == "pdf" {
			paper.LinkPDF = link.Href
			break
		}
	}
	if paper.LinkPDF == "" && paper.URL != "" {
		paper.LinkPDF = ensurePDFURL(paper.URL)
	}
	return paper
}

func (r *Research) attachPDFText(ctx context.Context, paper *Paper) {
	data, err := r.http.Get(ctx, paper.LinkPDF)
	if err != nil {
		paper.PDFError = fmt.Sprintf("PDF fetch failed: %v", err)
		return
	}
	if err := sleep(ctx, r.cfg.PDFDelay); err != nil {
		paper.PDFError = fmt.Sprintf("PDF fetch failed: %v", err)
		return
	}

	text, err := extractPDFText(data, r.cfg.ArxivMaxPages)
	if err != nil {
		paper.TextError = fmt.Sprintf("Text extraction failed: %v", err)
		return
	}

	text = cleanText(text)
	if text == "" {
		return
	}

	snippet, _ := truncateRunes(text, r.cfg.ArxivTextChars)
	snippet = strings.TrimSpace(snippet)
	if looksUnreadable(snippet) {
		paper.PDFTextExcerpt = paper.Summary
		paper.PDFTextWarning = "Extracted PDF text looked unreadable; using abstract."
		return
	}
	paper.PDFTextExcerpt = snippet
}
