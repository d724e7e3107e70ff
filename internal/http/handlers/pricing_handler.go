// README: Public pricing handlers (quote, active tables).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/modules/pricing"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(svc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: svc}
}

type quoteReq struct {
	DepartureAddress string   `json:"departure_address" binding:"required"`
	ArrivalAddress   string   `json:"arrival_address" binding:"required"`
	DistanceKm       *float64 `json:"distance_km"`
}

func (h *PricingHandler) Quote(c *gin.Context) {
	var req quoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "departure_address and arrival_address are required")
		return
	}
	q, err := h.pricing.CalculatePrice(c.Request.Context(), pricing.Request{
		Departure:  req.DepartureAddress,
		Arrival:    req.ArrivalAddress,
		DistanceKm: req.DistanceKm,
	})
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, q)
}

func (h *PricingHandler) Tables(c *gin.Context) {
	t, err := h.pricing.Tables(c.Request.Context())
	if err != nil {
		writePricingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}
