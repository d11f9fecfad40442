package external

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"tryon-live/internal/domain/repositories"
)

// FetchRoute is one way of reaching an image URL: either a relay that
// proxies the GET on the client's behalf, or the direct request itself.
type FetchRoute struct {
	Name  string
	Build func(target string) string
}

// NewRelayRoute builds a route through a relay endpoint that takes the
// target URL as a query value, e.g. "https://relay.example/raw?url=".
func NewRelayRoute(name, prefix string) FetchRoute {
	return FetchRoute{
		Name: name,
		Build: func(target string) string {
			return prefix + url.QueryEscape(target)
		},
	}
}

// NewDirectRoute requests the origin without any intermediary.
func NewDirectRoute() FetchRoute {
	return FetchRoute{
		Name:  "direct",
		Build: func(target string) string { return target },
	}
}

// RelayFetcher retrieves an image through an ordered list of routes.
// Reference images are often hosted behind access controls that reject
// direct requests, so the relay fallback is a correctness requirement.
type RelayFetcher struct {
	client *http.Client
	routes []FetchRoute
}

func NewRelayFetcher(client *http.Client, routes []FetchRoute) (*RelayFetcher, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("at least one fetch route is required")
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &RelayFetcher{
		client: client,
		routes: routes,
	}, nil
}

// Fetch tries each route in order and returns the bytes of the first one
// that succeeds. It fails only after every route is exhausted.
func (f *RelayFetcher) Fetch(ctx context.Context, target string) (*repositories.FetchOutcome, error) {
	var lastErr error

	for _, route := range f.routes {
		data, err := f.tryRoute(ctx, route, target)
		if err != nil {
			slog.Warn("Fetch route failed", "route", route.Name, "url", target, "error", err)
			lastErr = err
			continue
		}

		mimeType := http.DetectContentType(data)
		return repositories.NewFetchOutcome(data, mimeType, route.Name), nil
	}

	return nil, fmt.Errorf("%w: last error: %v", repositories.ErrAllRoutesExhausted, lastErr)
}

func (f *RelayFetcher) tryRoute(ctx context.Context, route FetchRoute, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, route.Build(target), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	return data, nil
}
