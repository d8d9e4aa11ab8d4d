package builtin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/hupe1980/agentgraph/tool"
)

// WebSearchOptions configure the web_search tool.
type WebSearchOptions struct {
	Region     string // DuckDuckGo kl parameter, e.g. "us-en"
	MaxResults int
	BaseURL    string
	HTTPClient *http.Client
}

// WebSearchArgs are the arguments of the web_search tool.
type WebSearchArgs struct {
	Query string `json:"query" description:"Search query"`
}

// SearchResult is one related topic returned by the search backend.
type SearchResult struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Answer        string     `json:"Answer"`
	Definition    string     `json:"Definition"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// WebSearch queries the DuckDuckGo instant answer API.
func WebSearch(optFns ...func(o *WebSearchOptions)) tool.Tool {
	opts := WebSearchOptions{
		Region:     "us-en",
		MaxResults: 5,
		BaseURL:    "https://api.duckduckgo.com/",
		HTTPClient: defaultHTTPClient(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return tool.NewTypedTool(
		"web_search",
		"Search the web for current information. Returns a short abstract and related links.",
		func(ctx context.Context, in WebSearchArgs) (any, error) {
			q := strings.TrimSpace(in.Query)
			if q == "" {
				return nil, errors.New("query must not be empty")
			}

			var resp ddgResponse
			err := getJSON(ctx, opts.HTTPClient, opts.BaseURL, url.Values{
				"q":             {q},
				"format":        {"json"},
				"no_html":       {"1"},
				"skip_disambig": {"1"},
				"kl":            {opts.Region},
			}, &resp)
			if err != nil {
				return nil, err
			}

			out := map[string]any{"query": q}
			if resp.Heading != "" {
				out["heading"] = resp.Heading
			}
			if resp.Answer != "" {
				out["answer"] = resp.Answer
			}
			if resp.AbstractText != "" {
				out["abstract"] = resp.AbstractText
				out["url"] = resp.AbstractURL
			} else if resp.Definition != "" {
				out["abstract"] = resp.Definition
			}

			results := flattenTopics(resp.RelatedTopics, opts.MaxResults)
			if len(results) > 0 {
				out["results"] = results
			}
			if len(out) == 1 {
				out["message"] = "no results found"
			}
			return out, nil
		},
	)
}

func flattenTopics(topics []ddgTopic, limit int) []SearchResult {
	var out []SearchResult
	var walk func([]ddgTopic)
	walk = func(ts []ddgTopic) {
		for _, t := range ts {
			if limit > 0 && len(out) >= limit {
				return
			}
			if t.Text != "" {
				out = append(out, SearchResult{Text: t.Text, URL: t.FirstURL})
			}
			walk(t.Topics)
		}
	}
	walk(topics)
	return out
}
