// README: Address autocomplete for the booking form.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/maps"
)

type Autocompleter interface {
	Autocomplete(ctx context.Context, input string) ([]maps.Suggestion, error)
}

type PlacesHandler struct {
	places Autocompleter
}

// NewPlacesHandler accepts a nil Autocompleter when no maps key is configured.
func NewPlacesHandler(places Autocompleter) *PlacesHandler {
	return &PlacesHandler{places: places}
}

func (h *PlacesHandler) Autocomplete(c *gin.Context) {
	if h.places == nil {
		writeError(c, http.StatusServiceUnavailable, "maps_unavailable", "address search is not configured")
		return
	}
	out, err := h.places.Autocomplete(c.Request.Context(), c.Query("input"))
	if err != nil {
		_ = c.Error(err)
		writeError(c, http.StatusBadGateway, "maps_error", "address search failed")
		return
	}
	if out == nil {
		out = []maps.Suggestion{}
	}
	writeJSON(c, http.StatusOK, gin.H{"suggestions": out})
}
