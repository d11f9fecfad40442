package repositories

import (
	"context"
	"errors"
)

// ErrAllRoutesExhausted is returned when every fetch route failed. The last
// underlying error is attached to it.
var ErrAllRoutesExhausted = errors.New("all fetch routes exhausted")

// FetchOutcome carries the retrieved image bytes tagged with the route that
// produced them.
type FetchOutcome struct {
	data     []byte
	mimeType string
	route    string
}

func NewFetchOutcome(data []byte, mimeType, route string) *FetchOutcome {
	return &FetchOutcome{
		data:     data,
		mimeType: mimeType,
		route:    route,
	}
}

func (o *FetchOutcome) Data() []byte {
	return o.data
}

func (o *FetchOutcome) MimeType() string {
	return o.mimeType
}

func (o *FetchOutcome) Route() string {
	return o.route
}

// ImageFetcher retrieves an image through an ordered chain of routes,
// tolerating failures of any individual route.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchOutcome, error)
}
