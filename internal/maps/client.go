// README: Google Maps client construction shared by the route and places services.
package maps

import (
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrNotConfigured is returned by services built without an API key.
var ErrNotConfigured = errors.New("maps api key not configured")

const (
	region   = "fr"
	language = "fr"
)

// NewClient builds a Maps client. Extra options (e.g. maps.WithBaseURL in
// tests) are appended after the key.
func NewClient(apiKey string, opts ...maps.ClientOption) (*maps.Client, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return client, nil
}
