package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"
)

// Suggestion is one address proposed while the customer types.
type Suggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
	MainText    string `json:"main_text"`
	Secondary   string `json:"secondary_text"`
}

// PlacesService wraps Places Autocomplete for the booking form.
type PlacesService struct {
	client *maps.Client
}

func NewPlacesService(client *maps.Client) *PlacesService {
	return &PlacesService{client: client}
}

// Autocomplete returns address suggestions restricted to France.
// Inputs shorter than three characters yield no suggestions.
func (s *PlacesService) Autocomplete(ctx context.Context, input string) ([]Suggestion, error) {
	input = strings.TrimSpace(input)
	if len([]rune(input)) < 3 {
		return nil, nil
	}

	r := &maps.PlaceAutocompleteRequest{
		Input:      input,
		Language:   language,
		Components: map[maps.Component][]string{maps.ComponentCountry: {region}},
	}
	resp, err := s.client.PlaceAutocomplete(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("places api error: %w", err)
	}

	out := make([]Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, Suggestion{
			PlaceID:     p.PlaceID,
			Description: p.Description,
			MainText:    p.StructuredFormatting.MainText,
			Secondary:   p.StructuredFormatting.SecondaryText,
		})
	}
	return out, nil
}
