package suggest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// DefaultAlphaVantageURL is the Alpha Vantage API endpoint.
const DefaultAlphaVantageURL = "https://www.alphavantage.co"

// AlphaVantage searches listed equities with the SYMBOL_SEARCH function.
//
// The service answers quota violations with HTTP 200 and a "Note" or
// "Information" message instead of results; both are reported as
// ErrRateLimited, as is HTTP 429.
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAlphaVantage creates the equity provider.
func NewAlphaVantage(baseURL, apiKey string, client *http.Client) *AlphaVantage {
	if baseURL == "" {
		baseURL = DefaultAlphaVantageURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &AlphaVantage{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

// Name implements Provider.
func (p *AlphaVantage) Name() string { return "alphavantage" }

// Search implements Provider.
func (p *AlphaVantage) Search(ctx context.Context, query string) ([]Suggestion, error) {
	addr := fmt.Sprintf("%s/query?function=SYMBOL_SEARCH&keywords=%s&apikey=%s",
		p.baseURL, url.QueryEscape(query), url.QueryEscape(p.apiKey))

	var body map[string]any
	if err := jwget(ctx, p.client, addr, &body); err != nil {
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			return nil, ErrRateLimited
		}
		return nil, fmt.Errorf("alphavantage search %q: %w", query, err)
	}

	if rateLimited(body) {
		return nil, ErrRateLimited
	}
	if msg, ok := body["Error Message"].(string); ok {
		return nil, fmt.Errorf("alphavantage search %q: %s", query, msg)
	}
	if _, ok := body["bestMatches"]; !ok {
		return nil, fmt.Errorf("alphavantage search %q: response has no bestMatches", query)
	}

	matches, err := jsonpath.Get("$.bestMatches[*]", body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage search %q: %w", query, err)
	}
	rows, _ := matches.([]any)

	out := make([]Suggestion, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		s := Suggestion{
			Symbol:   field(m, "1. symbol"),
			Name:     field(m, "2. name"),
			Region:   field(m, "4. region"),
			Currency: field(m, "8. currency"),
			Source:   p.Name(),
		}
		if s.Symbol == "" && s.Name == "" {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func rateLimited(body map[string]any) bool {
	if note, ok := body["Note"].(string); ok && note != "" {
		return true
	}
	info, ok := body["Information"].(string)
	if !ok {
		return false
	}
	info = strings.ToLower(info)
	return strings.Contains(info, "rate limit") || strings.Contains(info, "frequency")
}

func field(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}
