// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/http/handlers"
	"chauffeur/internal/http/middleware"
	"chauffeur/internal/infra"
	"chauffeur/internal/logger"
	"chauffeur/internal/modules/pricing"
	"chauffeur/internal/modules/reservation"
	"chauffeur/internal/modules/zone"
)

type RouterDeps struct {
	Pricing      *pricing.Service
	Zones        *zone.Service
	Reservations *reservation.Service
	// Places is nil when no maps key is configured.
	Places   handlers.Autocompleter
	Verifier infra.TokenVerifier
	Log      *logger.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logging(deps.Log), middleware.Recovery(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")

	pricingHandler := handlers.NewPricingHandler(deps.Pricing)
	api.POST("/pricing/quote", pricingHandler.Quote)
	api.GET("/pricing/zones", pricingHandler.Tables)

	placesHandler := handlers.NewPlacesHandler(deps.Places)
	api.GET("/places/autocomplete", placesHandler.Autocomplete)

	authed := api.Group("", middleware.Auth(deps.Verifier))

	reservationHandler := handlers.NewReservationHandler(deps.Reservations)
	authed.POST("/reservations", reservationHandler.Create)
	authed.GET("/reservations", reservationHandler.Mine)
	authed.GET("/reservations/:id", reservationHandler.Get)
	authed.POST("/reservations/:id/cancel", reservationHandler.Cancel)

	admin := authed.Group("/admin", middleware.RequireRole(middleware.RoleAdmin))

	zoneHandler := handlers.NewZoneHandler(deps.Zones)
	admin.GET("/zones", zoneHandler.ListZones)
	admin.POST("/zones", zoneHandler.CreateZone)
	admin.PUT("/zones/:code", zoneHandler.UpdateZone)
	admin.DELETE("/zones/:code", zoneHandler.DeleteZone)
	admin.POST("/zones/:code/locations", zoneHandler.AddLocation)
	admin.DELETE("/zones/:code/locations/:id", zoneHandler.DeleteLocation)
	admin.GET("/zone-pricings", zoneHandler.ListPricings)
	admin.PUT("/zone-pricings", zoneHandler.UpsertPricing)
	admin.DELETE("/zone-pricings/:from/:to", zoneHandler.DeletePricing)

	admin.GET("/reservations", reservationHandler.List)
	admin.POST("/reservations/:id/confirm", reservationHandler.Confirm)
	admin.POST("/reservations/:id/complete", reservationHandler.Complete)

	return r
}
