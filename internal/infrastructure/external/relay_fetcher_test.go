package external

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"tryon-live/internal/domain/repositories"
)

func testImageBytes(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to create test JPEG: %v", err)
	}
	return buf.Bytes()
}

func failingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func servingServer(t *testing.T, body []byte, hits *atomic.Int64) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRelayFetcher_FallbackOrder(t *testing.T) {
	want := testImageBytes(t)

	primary := failingServer(t, http.StatusForbidden)
	secondary := failingServer(t, http.StatusBadGateway)
	origin := servingServer(t, want, nil)

	fetcher, err := NewRelayFetcher(nil, []FetchRoute{
		NewRelayRoute("primary-relay", primary.URL+"/raw?url="),
		NewRelayRoute("secondary-relay", secondary.URL+"/?"),
		NewDirectRoute(),
	})
	if err != nil {
		t.Fatalf("NewRelayFetcher() error = %v", err)
	}

	outcome, err := fetcher.Fetch(context.Background(), origin.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !bytes.Equal(outcome.Data(), want) {
		t.Error("Fallback result differs from origin bytes")
	}
	if outcome.Route() != "direct" {
		t.Errorf("Winning route = %s, want direct", outcome.Route())
	}
	if outcome.MimeType() != "image/jpeg" {
		t.Errorf("Detected mime type = %s, want image/jpeg", outcome.MimeType())
	}
}

func TestRelayFetcher_SingleRouteIndistinguishable(t *testing.T) {
	want := testImageBytes(t)
	origin := servingServer(t, want, nil)

	fetcher, err := NewRelayFetcher(nil, []FetchRoute{NewDirectRoute()})
	if err != nil {
		t.Fatalf("NewRelayFetcher() error = %v", err)
	}

	outcome, err := fetcher.Fetch(context.Background(), origin.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !bytes.Equal(outcome.Data(), want) {
		t.Error("Single-route result differs from origin bytes")
	}
	if outcome.Route() != "direct" {
		t.Errorf("Winning route = %s, want direct", outcome.Route())
	}
}

func TestRelayFetcher_FirstRouteWinsWithoutFallthrough(t *testing.T) {
	want := testImageBytes(t)

	var relayHits atomic.Int64
	relay := servingServer(t, want, &relayHits)
	var originHits atomic.Int64
	origin := servingServer(t, want, &originHits)

	fetcher, err := NewRelayFetcher(nil, []FetchRoute{
		NewRelayRoute("primary-relay", relay.URL+"/raw?url="),
		NewDirectRoute(),
	})
	if err != nil {
		t.Fatalf("NewRelayFetcher() error = %v", err)
	}

	outcome, err := fetcher.Fetch(context.Background(), origin.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if outcome.Route() != "primary-relay" {
		t.Errorf("Winning route = %s, want primary-relay", outcome.Route())
	}
	if relayHits.Load() != 1 {
		t.Errorf("Relay hit %d times, want 1", relayHits.Load())
	}
	if originHits.Load() != 0 {
		t.Errorf("Origin hit %d times, want 0", originHits.Load())
	}
}

func TestRelayFetcher_AllRoutesExhausted(t *testing.T) {
	primary := failingServer(t, http.StatusForbidden)
	secondary := failingServer(t, http.StatusInternalServerError)

	fetcher, err := NewRelayFetcher(nil, []FetchRoute{
		NewRelayRoute("primary-relay", primary.URL+"/raw?url="),
		NewRelayRoute("secondary-relay", secondary.URL+"/?"),
	})
	if err != nil {
		t.Fatalf("NewRelayFetcher() error = %v", err)
	}

	_, err = fetcher.Fetch(context.Background(), "http://origin.invalid/image.jpg")
	if !errors.Is(err, repositories.ErrAllRoutesExhausted) {
		t.Errorf("Expected ErrAllRoutesExhausted, got %v", err)
	}
}

func TestNewRelayFetcher_RequiresRoutes(t *testing.T) {
	if _, err := NewRelayFetcher(nil, nil); err == nil {
		t.Error("Expected error for empty route list")
	}
}
