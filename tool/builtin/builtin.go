package builtin

import "github.com/hupe1980/agentgraph/tool"

// Options select and configure the builtin tools.
type Options struct {
	AlphaVantageAPIKey string
	SearchRegion       string
	// Enabled restricts the set by name; empty enables all.
	Enabled []string
}

// Tools returns the enabled builtin tools in a stable order:
// get_stock_price, calculator, web_search.
func Tools(optFns ...func(o *Options)) []tool.Tool {
	opts := Options{SearchRegion: "us-en"}
	for _, fn := range optFns {
		fn(&opts)
	}

	all := []tool.Tool{
		StockPrice(func(o *StockPriceOptions) { o.APIKey = opts.AlphaVantageAPIKey }),
		Calculator(),
		WebSearch(func(o *WebSearchOptions) { o.Region = opts.SearchRegion }),
	}

	if len(opts.Enabled) == 0 {
		return all
	}

	enabled := make(map[string]bool, len(opts.Enabled))
	for _, name := range opts.Enabled {
		enabled[name] = true
	}

	out := make([]tool.Tool, 0, len(all))
	for _, t := range all {
		if enabled[t.Name()] {
			out = append(out, t)
		}
	}
	return out
}
