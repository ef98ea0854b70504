package suggest

import (
	"context"
	"errors"
)

// Suggestion is one security-name candidate.
type Suggestion struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
	Source   string `json:"source"`
}

// Result is what a caller receives for a query.
type Result struct {
	Results     []Suggestion `json:"results"`
	RateLimited bool         `json:"rateLimited,omitempty"`
}

// Provider looks up candidates for a normalized query.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Suggestion, error)
}

var (
	// ErrProviderUnavailable is returned when no lookup provider is configured.
	ErrProviderUnavailable = errors.New("suggestion channel unavailable")

	// ErrRateLimited is returned by a provider that refused the request
	// because of its call quota.
	ErrRateLimited = errors.New("provider rate limit reached")
)
