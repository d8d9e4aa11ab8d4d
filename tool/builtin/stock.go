package builtin

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/hupe1980/agentgraph/tool"
)

// StockPriceOptions configure the get_stock_price tool.
type StockPriceOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// StockPriceArgs are the arguments of the get_stock_price tool.
type StockPriceArgs struct {
	Symbol string `json:"symbol" description:"Ticker symbol, e.g. AAPL or TSLA"`
}

// StockPrice fetches the latest quote for a ticker symbol from Alpha Vantage
// (GLOBAL_QUOTE). The decoded provider payload is returned unchanged.
func StockPrice(optFns ...func(o *StockPriceOptions)) tool.Tool {
	opts := StockPriceOptions{
		BaseURL:    "https://www.alphavantage.co/query",
		HTTPClient: defaultHTTPClient(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return tool.NewTypedTool(
		"get_stock_price",
		"Fetch the latest stock price for a given symbol (e.g. 'AAPL', 'TSLA') using Alpha Vantage.",
		func(ctx context.Context, in StockPriceArgs) (any, error) {
			symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
			if symbol == "" {
				return nil, errors.New("symbol must not be empty")
			}
			if opts.APIKey == "" {
				return nil, errors.New("alpha vantage api key is not configured")
			}

			var quote map[string]any
			err := getJSON(ctx, opts.HTTPClient, opts.BaseURL, url.Values{
				"function": {"GLOBAL_QUOTE"},
				"symbol":   {symbol},
				"apikey":   {opts.APIKey},
			}, &quote)
			if err != nil {
				return nil, err
			}

			if msg, ok := quote["Error Message"].(string); ok {
				return nil, errors.New(msg)
			}
			return quote, nil
		},
	)
}
