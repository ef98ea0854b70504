package suggest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dvloznov/investment-ledger/internal/cells"
)

// DefaultMFAPIURL is the public mutual fund scheme search service.
const DefaultMFAPIURL = "https://api.mfapi.in"

// MFAPI searches Indian mutual fund schemes. It needs no credentials.
type MFAPI struct {
	baseURL string
	client  *http.Client
}

// NewMFAPI creates the fund-scheme provider.
func NewMFAPI(baseURL string, client *http.Client) *MFAPI {
	if baseURL == "" {
		baseURL = DefaultMFAPIURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &MFAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Name implements Provider.
func (p *MFAPI) Name() string { return "mfapi" }

// schemeResult matches one item of the search response. Scheme codes come
// back as numbers, occasionally as strings.
type schemeResult struct {
	SchemeCode any    `json:"schemeCode"`
	SchemeName string `json:"schemeName"`
}

// Search implements Provider.
func (p *MFAPI) Search(ctx context.Context, query string) ([]Suggestion, error) {
	addr := fmt.Sprintf("%s/mf/search?q=%s", p.baseURL, url.QueryEscape(query))

	var results []schemeResult
	if err := jwget(ctx, p.client, addr, &results); err != nil {
		return nil, fmt.Errorf("mfapi search %q: %w", query, err)
	}

	out := make([]Suggestion, 0, len(results))
	for _, r := range results {
		name := strings.TrimSpace(r.SchemeName)
		if name == "" {
			continue
		}
		out = append(out, Suggestion{
			Symbol:   cells.ToString(r.SchemeCode),
			Name:     name,
			Region:   "India",
			Currency: "INR",
			Source:   p.Name(),
		})
	}
	return out, nil
}
