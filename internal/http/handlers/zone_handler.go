// README: Admin handlers for zones, their locations and the zone pricing table.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/modules/zone"
)

type ZoneHandler struct {
	zones *zone.Service
}

func NewZoneHandler(svc *zone.Service) *ZoneHandler {
	return &ZoneHandler{zones: svc}
}

func (h *ZoneHandler) ListZones(c *gin.Context) {
	zs, err := h.zones.ListZones(c.Request.Context())
	if err != nil {
		writeZoneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"zones": zs})
}

func (h *ZoneHandler) CreateZone(c *gin.Context) {
	var in zone.ZoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	z, err := h.zones.CreateZone(c.Request.Context(), in)
	if err != nil {
		writeZoneError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, z)
}

func (h *ZoneHandler) UpdateZone(c *gin.Context) {
	var in zone.ZoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	z, err := h.zones.UpdateZone(c.Request.Context(), c.Param("code"), in)
	if err != nil {
		writeZoneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, z)
}

func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	if err := h.zones.DeleteZone(c.Request.Context(), c.Param("code")); err != nil {
		writeZoneError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ZoneHandler) AddLocation(c *gin.Context) {
	var in zone.LocationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	loc, err := h.zones.AddLocation(c.Request.Context(), c.Param("code"), in)
	if err != nil {
		writeZoneError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, loc)
}

func (h *ZoneHandler) DeleteLocation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid location id")
		return
	}
	if err := h.zones.DeleteLocation(c.Request.Context(), c.Param("code"), id); err != nil {
		writeZoneError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ZoneHandler) ListPricings(c *gin.Context) {
	ps, err := h.zones.ListPricings(c.Request.Context())
	if err != nil {
		writeZoneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"pricings": ps})
}

func (h *ZoneHandler) UpsertPricing(c *gin.Context) {
	var in zone.PricingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	p, err := h.zones.UpsertPricing(c.Request.Context(), in)
	if err != nil {
		writeZoneError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (h *ZoneHandler) DeletePricing(c *gin.Context) {
	if err := h.zones.DeletePricing(c.Request.Context(), c.Param("from"), c.Param("to")); err != nil {
		writeZoneError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
