// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chauffeur/internal/modules/pricing"
	"chauffeur/internal/modules/reservation"
	"chauffeur/internal/modules/zone"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// isValidID accepts the UUIDs handed out by types.NewID.
func isValidID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, code, msg string) {
	writeJSON(c, status, errorResponse{Error: msg, Code: code})
}

func writeInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, http.StatusInternalServerError, "internal", "internal error")
}

func writePricingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pricing.ErrDistanceRequired):
		writeError(c, http.StatusUnprocessableEntity, "distance_required", err.Error())
	case errors.Is(err, pricing.ErrInvalidDistance):
		writeError(c, http.StatusUnprocessableEntity, "invalid_distance", err.Error())
	case errors.Is(err, zone.ErrIntegrity):
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "pricing_configuration_error", "pricing configuration is invalid")
	default:
		writeInternal(c, err)
	}
}

func writeZoneError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, zone.ErrBadRequest):
		writeError(c, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, zone.ErrReservedCode):
		writeError(c, http.StatusBadRequest, "reserved_code", err.Error())
	case errors.Is(err, zone.ErrZoneNotFound), errors.Is(err, zone.ErrLocationNotFound), errors.Is(err, zone.ErrPricingNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, zone.ErrZoneExists):
		writeError(c, http.StatusConflict, "zone_exists", err.Error())
	case errors.Is(err, zone.ErrZoneInUse):
		writeError(c, http.StatusConflict, "zone_in_use", err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeReservationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reservation.ErrBadRequest):
		writeError(c, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, reservation.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, reservation.ErrForbidden):
		// Other customers' bookings are reported as missing.
		writeError(c, http.StatusNotFound, "not_found", reservation.ErrNotFound.Error())
	case errors.Is(err, reservation.ErrInvalidState), errors.Is(err, reservation.ErrConflict):
		writeError(c, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, pricing.ErrDistanceRequired), errors.Is(err, pricing.ErrInvalidDistance), errors.Is(err, zone.ErrIntegrity):
		writePricingError(c, err)
	default:
		writeInternal(c, err)
	}
}
