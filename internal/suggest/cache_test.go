package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockProvider is a Provider whose behaviour is set per test.
type mockProvider struct {
	name       string
	SearchFunc func(ctx context.Context, query string) ([]Suggestion, error)
	calls      atomic.Int32
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, query string) ([]Suggestion, error) {
	m.calls.Add(1)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return nil, nil
}

func returning(results ...Suggestion) func(context.Context, string) ([]Suggestion, error) {
	return func(context.Context, string) ([]Suggestion, error) {
		return results, nil
	}
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, fund, equity Provider, opts Options) *Cache {
	t.Helper()
	c, err := NewCache(fund, equity, opts, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return c
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  SBI   Bluechip ", "sbi bluechip"},
		{"\tHDFC\nTop 100", "hdfc top 100"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSuggest_NoProviders(t *testing.T) {
	c := newTestCache(t, nil, nil, Options{})
	if _, err := c.Suggest(context.Background(), "sbi"); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Suggest() error = %v, want ErrProviderUnavailable", err)
	}
}

func TestSuggest_EmptyQueryBypassesProviders(t *testing.T) {
	fund := &mockProvider{name: "fund"}
	c := newTestCache(t, fund, nil, Options{})

	res, err := c.Suggest(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if res.Results == nil || len(res.Results) != 0 {
		t.Errorf("Suggest(blank) = %+v, want empty non-nil results", res)
	}
	if fund.calls.Load() != 0 || c.Len() != 0 {
		t.Errorf("blank query touched providers or cache: calls=%d len=%d", fund.calls.Load(), c.Len())
	}
}

func TestSuggest_FallbackOrder(t *testing.T) {
	equityHit := Suggestion{Symbol: "INFY", Name: "Infosys Ltd", Source: "equity"}

	tests := []struct {
		name        string
		fund        func(context.Context, string) ([]Suggestion, error)
		equity      func(context.Context, string) ([]Suggestion, error)
		wantSymbols []string
		wantEquity  int32
		wantLimited bool
	}{
		{
			name:        "fund results win",
			fund:        returning(Suggestion{Symbol: "119551", Name: "Infosys Fund"}),
			equity:      returning(equityHit),
			wantSymbols: []string{"119551"},
			wantEquity:  0,
		},
		{
			name:        "empty fund falls back",
			fund:        returning(),
			equity:      returning(equityHit),
			wantSymbols: []string{"INFY"},
			wantEquity:  1,
		},
		{
			name: "fund error is swallowed",
			fund: func(context.Context, string) ([]Suggestion, error) {
				return nil, errors.New("connection refused")
			},
			equity:      returning(equityHit),
			wantSymbols: []string{"INFY"},
			wantEquity:  1,
		},
		{
			name: "rate limit is a flag",
			fund: returning(),
			equity: func(context.Context, string) ([]Suggestion, error) {
				return nil, ErrRateLimited
			},
			wantEquity:  1,
			wantLimited: true,
		},
		{
			name: "fund panic falls back",
			fund: func(context.Context, string) ([]Suggestion, error) {
				panic("nil map write")
			},
			equity:      returning(equityHit),
			wantSymbols: []string{"INFY"},
			wantEquity:  1,
		},
		{
			name: "equity panic yields no results",
			fund: returning(),
			equity: func(context.Context, string) ([]Suggestion, error) {
				panic("index out of range")
			},
			wantEquity: 1,
		},
		{
			name: "both fail",
			fund: func(context.Context, string) ([]Suggestion, error) {
				return nil, errors.New("boom")
			},
			equity: func(context.Context, string) ([]Suggestion, error) {
				return nil, errors.New("bad json")
			},
			wantEquity: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fund := &mockProvider{name: "fund", SearchFunc: tt.fund}
			equity := &mockProvider{name: "equity", SearchFunc: tt.equity}
			c := newTestCache(t, fund, equity, Options{})

			res, err := c.Suggest(context.Background(), "infy")
			if err != nil {
				t.Fatalf("Suggest: %v", err)
			}
			if len(res.Results) != len(tt.wantSymbols) {
				t.Fatalf("Suggest() = %+v, want symbols %v", res.Results, tt.wantSymbols)
			}
			for i, s := range res.Results {
				if s.Symbol != tt.wantSymbols[i] {
					t.Errorf("result[%d] = %q, want %q", i, s.Symbol, tt.wantSymbols[i])
				}
			}
			if res.RateLimited != tt.wantLimited {
				t.Errorf("RateLimited = %v, want %v", res.RateLimited, tt.wantLimited)
			}
			if fund.calls.Load() != 1 || equity.calls.Load() != tt.wantEquity {
				t.Errorf("calls fund=%d equity=%d, want 1/%d", fund.calls.Load(), equity.calls.Load(), tt.wantEquity)
			}
		})
	}
}

func TestSuggest_TTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	fund := &mockProvider{name: "fund", SearchFunc: returning(Suggestion{Symbol: "1", Name: "Axis Bluechip"})}
	c := newTestCache(t, fund, nil, Options{Clock: clock.Now})
	ctx := context.Background()

	first, err := c.Suggest(ctx, "axis")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}

	clock.Advance(6*time.Hour - time.Second)
	second, err := c.Suggest(ctx, "  AXIS ")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if fund.calls.Load() != 1 {
		t.Errorf("re-query before TTL called provider %d times, want 1", fund.calls.Load())
	}
	if len(second.Results) != 1 || second.Results[0] != first.Results[0] {
		t.Errorf("cached result changed: %+v vs %+v", second, first)
	}

	clock.Advance(2 * time.Second)
	if _, err := c.Suggest(ctx, "axis"); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if fund.calls.Load() != 2 {
		t.Errorf("re-query after TTL called provider %d times, want 2", fund.calls.Load())
	}
}

func TestSuggest_EmptyResultPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    EmptyResultPolicy
		wantCalls int32
	}{
		{"cache empty", CacheEmptyResults, 1},
		{"skip empty", SkipEmptyResults, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fund := &mockProvider{name: "fund"}
			c := newTestCache(t, fund, nil, Options{EmptyResults: tt.policy})
			for i := 0; i < 2; i++ {
				if _, err := c.Suggest(context.Background(), "nothing"); err != nil {
					t.Fatalf("Suggest: %v", err)
				}
			}
			if fund.calls.Load() != tt.wantCalls {
				t.Errorf("provider calls = %d, want %d", fund.calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestSuggest_Coalescing(t *testing.T) {
	release := make(chan struct{})
	fund := &mockProvider{name: "fund", SearchFunc: func(context.Context, string) ([]Suggestion, error) {
		<-release
		return nil, nil
	}}
	equity := &mockProvider{name: "equity", SearchFunc: returning(Suggestion{Symbol: "TCS", Name: "Tata Consultancy"})}
	c := newTestCache(t, fund, equity, Options{})

	const callers = 20
	var wg sync.WaitGroup
	results := make([]Result, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Suggest(context.Background(), "tcs")
			if err != nil {
				t.Errorf("Suggest: %v", err)
			}
			results[i] = res
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if fund.calls.Load() != 1 || equity.calls.Load() != 1 {
		t.Errorf("provider calls fund=%d equity=%d, want 1/1", fund.calls.Load(), equity.calls.Load())
	}
	for i, res := range results {
		if len(res.Results) != 1 || res.Results[0].Symbol != "TCS" {
			t.Errorf("caller %d got %+v", i, res)
		}
	}
}

func TestSuggest_AbandonedCallerDoesNotCancelLookup(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fund := &mockProvider{name: "fund", SearchFunc: func(ctx context.Context, _ string) ([]Suggestion, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []Suggestion{{Symbol: "42", Name: "Parag Parikh Flexi Cap"}}, nil
	}}
	c := newTestCache(t, fund, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Suggest(ctx, "parag")
		errCh <- err
	}()

	<-started
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("abandoned caller error = %v, want context.Canceled", err)
	}

	close(release)
	res, err := c.Suggest(context.Background(), "parag")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(res.Results) != 1 || res.Results[0].Symbol != "42" {
		t.Errorf("Suggest() = %+v, want the shared lookup's result", res)
	}
	if fund.calls.Load() != 1 {
		t.Errorf("provider calls = %d, want 1", fund.calls.Load())
	}
}

func TestClear(t *testing.T) {
	fund := &mockProvider{name: "fund", SearchFunc: returning(Suggestion{Symbol: "1", Name: "Kotak Gold"})}
	c := newTestCache(t, fund, nil, Options{})
	ctx := context.Background()

	if _, err := c.Suggest(ctx, "kotak"); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
	if _, err := c.Suggest(ctx, "kotak"); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if fund.calls.Load() != 2 {
		t.Errorf("provider calls = %d, want 2 after Clear", fund.calls.Load())
	}
}

func TestClear_DuringInFlightLookup(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	fund := &mockProvider{name: "fund", SearchFunc: func(context.Context, string) ([]Suggestion, error) {
		once.Do(func() {
			close(started)
			<-release
		})
		return []Suggestion{{Symbol: "7", Name: "Nippon Small Cap"}}, nil
	}}
	c := newTestCache(t, fund, nil, Options{})

	done := make(chan Result, 1)
	go func() {
		res, _ := c.Suggest(context.Background(), "nippon")
		done <- res
	}()

	<-started
	c.Clear()
	close(release)

	if res := <-done; len(res.Results) != 1 {
		t.Errorf("waiter should still receive the lookup result, got %+v", res)
	}
	if c.Len() != 0 {
		t.Errorf("lookup started before Clear populated the cache")
	}
	if _, err := c.Suggest(context.Background(), "nippon"); err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if fund.calls.Load() != 2 {
		t.Errorf("provider calls = %d, want 2", fund.calls.Load())
	}
}

func TestSuggest_TokenFilterAndCap(t *testing.T) {
	candidates := []Suggestion{
		{Name: "SBI Bluechip Fund", Symbol: "SBI123"},
		{Name: "HDFC Bluechip"},
	}
	for i := 0; i < 12; i++ {
		candidates = append(candidates, Suggestion{Name: fmt.Sprintf("SBI Bluechip Plan %d", i)})
	}
	fund := &mockProvider{name: "fund", SearchFunc: returning(candidates...)}
	c := newTestCache(t, fund, nil, Options{})

	res, err := c.Suggest(context.Background(), "sbi bluechip")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(res.Results) != MaxResults {
		t.Fatalf("len(results) = %d, want %d", len(res.Results), MaxResults)
	}
	if res.Results[0].Symbol != "SBI123" {
		t.Errorf("first result = %+v, want SBI Bluechip Fund", res.Results[0])
	}
	for _, s := range res.Results {
		if s.Name == "HDFC Bluechip" {
			t.Error("HDFC Bluechip should be filtered out: missing token sbi")
		}
	}

	single, err := c.Suggest(context.Background(), "hdfc")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	// Single-token queries pass through unfiltered, capped.
	if len(single.Results) != MaxResults || single.Results[1].Name != "HDFC Bluechip" {
		t.Errorf("single-token query should not filter: %+v", single.Results)
	}
}

func TestPresent_DoesNotMutateCachedSlice(t *testing.T) {
	cached := Result{Results: []Suggestion{{Name: "a b"}, {Name: "b"}, {Name: "a b c"}}}
	_ = present("a b", cached)
	if len(cached.Results) != 3 || cached.Results[1].Name != "b" {
		t.Errorf("present modified the cached result: %+v", cached.Results)
	}
}
